package testfixtures

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Reservations persistence.ReservationStore
	Rooms        persistence.RoomRepository
	Equipment    persistence.EquipmentRepository
	Users        persistence.UserRepository
	Sessions     persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a migrated temporary database
// file. The DSN mirrors production: foreign keys on, immediate transactions.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)

	pool, err := sqlite.Open(dsn)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Reservations: sqlite.NewReservationRepository(pool),
		Rooms:        sqlite.NewRoomRepository(pool),
		Equipment:    sqlite.NewEquipmentRepository(pool),
		Users:        sqlite.NewUserRepository(pool),
		Sessions:     sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedBase inserts one user and one room so reservation fixtures referencing
// user-001/room-001 satisfy their foreign keys.
func (h *SQLiteHarness) SeedBase(tb testing.TB) (persistence.User, persistence.Room) {
	tb.Helper()

	ctx := context.Background()
	user := NewUserFixture(WithUserID("user-001"), WithUserEmail("user-001@example.com"))
	if err := h.Users.CreateUser(ctx, user); err != nil {
		tb.Fatalf("failed to seed user: %v", err)
	}
	room := NewRoomFixture(WithRoomID("room-001"))
	if err := h.Rooms.CreateRoom(ctx, room); err != nil {
		tb.Fatalf("failed to seed room: %v", err)
	}
	return user, room
}
