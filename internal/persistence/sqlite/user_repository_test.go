package sqlite_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/testfixtures"
)

func TestUserRepositoryLifecycle(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(
		testfixtures.WithUserID("user-1"),
		testfixtures.WithUserEmail("Ana@Example.com"),
		testfixtures.WithUserRefreshToken([]byte{0x01, 0x02, 0x03}),
	)
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	loaded, err := harness.Users.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if loaded.Email != "Ana@Example.com" {
		t.Errorf("email = %q", loaded.Email)
	}
	if !bytes.Equal(loaded.RefreshToken, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("refresh token = %v", loaded.RefreshToken)
	}

	loaded.DisplayName = "Ana Torres"
	loaded.IsAdmin = true
	if err := harness.Users.UpdateUser(ctx, loaded); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	updated, err := harness.Users.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser after update: %v", err)
	}
	if updated.DisplayName != "Ana Torres" || !updated.IsAdmin {
		t.Errorf("updated user = %+v", updated)
	}
}

func TestGetUserByEmailIsCaseInsensitive(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(
		testfixtures.WithUserID("user-1"),
		testfixtures.WithUserEmail("Ana@Example.com"),
	)
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	loaded, err := harness.Users.GetUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if loaded.ID != "user-1" {
		t.Errorf("id = %q", loaded.ID)
	}
}

func TestUserRepositoryConstraints(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(testfixtures.WithUserID("user-1"), testfixtures.WithUserEmail("ana@example.com"))
	if err := harness.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dup := testfixtures.NewUserFixture(testfixtures.WithUserID("user-2"), testfixtures.WithUserEmail("ana@example.com"))
	if err := harness.Users.CreateUser(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("duplicate email error = %v, want ErrDuplicate", err)
	}

	if _, err := harness.Users.GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("missing user error = %v, want ErrNotFound", err)
	}

	ghost := testfixtures.NewUserFixture(testfixtures.WithUserID("ghost"))
	if err := harness.Users.UpdateUser(ctx, ghost); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("update of missing user error = %v, want ErrNotFound", err)
	}
}
