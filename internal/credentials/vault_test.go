package credentials

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestVaultRoundTrip(t *testing.T) {
	vault, err := NewVault(testKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	sealed, err := vault.Seal("1//refresh-token-value")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	opened, err := vault.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != "1//refresh-token-value" {
		t.Fatalf("round trip mismatch: got %q", opened)
	}
}

func TestVaultSealIsRandomized(t *testing.T) {
	vault, err := NewVault(testKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	first, err := vault.Seal("token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	second, err := vault.Seal("token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("sealing the same token twice produced identical ciphertext")
	}
}

func TestVaultRejectsTamperedCiphertext(t *testing.T) {
	vault, err := NewVault(testKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	sealed, err := vault.Seal("token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := vault.Open(sealed); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestVaultRejectsShortKey(t *testing.T) {
	if _, err := NewVault([]byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestVaultRejectsTruncatedCiphertext(t *testing.T) {
	vault, err := NewVault(testKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if _, err := vault.Open([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}
