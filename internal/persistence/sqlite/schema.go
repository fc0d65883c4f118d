package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records the last
// applied index so restarts are idempotent.
var migrations = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_name TEXT NOT NULL DEFAULT '',
		is_admin INTEGER NOT NULL DEFAULT 0,
		refresh_token BLOB,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		calendar_resource_id TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		color TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE equipment (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE reservations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		room_id TEXT NOT NULL REFERENCES rooms(id),
		title TEXT NOT NULL,
		description TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed',
		calendar_event_id TEXT,
		meet_link TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX idx_reservations_room_window ON reservations (room_id, status, start_time, end_time)`,
	`CREATE TABLE reservation_invitees (
		reservation_id TEXT NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		email TEXT NOT NULL COLLATE NOCASE,
		PRIMARY KEY (reservation_id, email)
	)`,
	`CREATE TABLE reservation_equipment (
		reservation_id TEXT NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		equipment_id TEXT NOT NULL REFERENCES equipment(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		PRIMARY KEY (reservation_id, equipment_id)
	)`,
	`CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX idx_sessions_expires ON sessions (expires_at)`,
}

// Migrate brings the schema up to date.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		var version int
		if err := tx.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		if version > len(migrations) {
			return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", version, len(migrations))
		}

		for i := version; i < len(migrations); i++ {
			if _, err := tx.Exec(migrations[i]); err != nil {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}

		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}

		return nil
	})
}
