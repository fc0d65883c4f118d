package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the reservation
// service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	// Google OAuth client used for sign-in and delegated calendar access.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// VaultKey encrypts refresh tokens at rest. 32 bytes, hex encoded in the
	// environment.
	VaultKey []byte

	AdminEmails     []string
	SessionTTL      time.Duration
	CalendarTimeout time.Duration
	TimeZone        string
}

// DefaultSQLiteDSN opens the local database with foreign keys enforced, a
// busy timeout for competing writers, and immediate transactions so the
// booking conflict check holds the write lock from the start.
const DefaultSQLiteDSN = "file:reservations.db?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required and malformed values are
// aggregated so one failed start reports every problem at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       DefaultSQLiteDSN,
		SessionTTL:      12 * time.Hour,
		CalendarTimeout: 10 * time.Second,
		TimeZone:        "UTC",
	}

	missing := make([]string, 0, 4)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROOMS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROOMS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if cfg.GoogleClientID = strings.TrimSpace(os.Getenv("ROOMS_GOOGLE_CLIENT_ID")); cfg.GoogleClientID == "" {
		missing = append(missing, "ROOMS_GOOGLE_CLIENT_ID")
	}
	if cfg.GoogleClientSecret = strings.TrimSpace(os.Getenv("ROOMS_GOOGLE_CLIENT_SECRET")); cfg.GoogleClientSecret == "" {
		missing = append(missing, "ROOMS_GOOGLE_CLIENT_SECRET")
	}
	if cfg.GoogleRedirectURL = strings.TrimSpace(os.Getenv("ROOMS_GOOGLE_REDIRECT_URL")); cfg.GoogleRedirectURL == "" {
		missing = append(missing, "ROOMS_GOOGLE_REDIRECT_URL")
	}

	if keyValue := strings.TrimSpace(os.Getenv("ROOMS_VAULT_KEY")); keyValue == "" {
		missing = append(missing, "ROOMS_VAULT_KEY")
	} else {
		key, err := hex.DecodeString(keyValue)
		if err != nil || len(key) != 32 {
			invalid = append(invalid, "ROOMS_VAULT_KEY")
		} else {
			cfg.VaultKey = key
		}
	}

	if emails := strings.TrimSpace(os.Getenv("ROOMS_ADMIN_EMAILS")); emails != "" {
		for _, email := range strings.Split(emails, ",") {
			if email = strings.TrimSpace(email); email != "" {
				cfg.AdminEmails = append(cfg.AdminEmails, email)
			}
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ROOMS_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROOMS_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("ROOMS_CALENDAR_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "ROOMS_CALENDAR_TIMEOUT")
		} else {
			cfg.CalendarTimeout = timeout
		}
	}

	if tz := strings.TrimSpace(os.Getenv("ROOMS_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "ROOMS_TIMEZONE")
		} else {
			cfg.TimeZone = tz
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
