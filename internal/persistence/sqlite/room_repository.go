package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/room-reservations/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a SQLite-backed room catalog.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	query := `
		INSERT INTO rooms (id, name, capacity, calendar_resource_id, active, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		room.ID,
		room.Name,
		room.Capacity,
		nullString(room.CalendarResourceID),
		boolToInt(room.Active),
		nullString(room.Color),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return mapError(err)
}

// UpdateRoom updates an existing room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	query := `
		UPDATE rooms
		SET name = ?, capacity = ?, calendar_resource_id = ?, active = ?, color = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		room.Name,
		room.Capacity,
		nullString(room.CalendarResourceID),
		boolToInt(room.Active),
		nullString(room.Color),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	query := `
		SELECT id, name, capacity, calendar_resource_id, active, color, created_at, updated_at
		FROM rooms WHERE id = ?
	`
	return scanRoom(r.pool.db.QueryRowContext(ctx, query, id).Scan)
}

// ListRooms returns rooms ordered by name. Inactive rooms are hidden unless
// includeInactive is set (admin views).
func (r *RoomRepository) ListRooms(ctx context.Context, includeInactive bool) ([]persistence.Room, error) {
	query := `
		SELECT id, name, capacity, calendar_resource_id, active, color, created_at, updated_at
		FROM rooms
	`
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, mapError(rows.Err())
}

// DeactivateRoom hides the room from listings and new bookings without
// touching its historical reservations.
func (r *RoomRepository) DeactivateRoom(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "UPDATE rooms SET active = 0 WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func scanRoom(scan func(dest ...any) error) (persistence.Room, error) {
	var room persistence.Room
	var resourceID, color sql.NullString
	var active int
	var createdStr, updatedStr string

	if err := scan(&room.ID, &room.Name, &room.Capacity, &resourceID, &active, &color, &createdStr, &updatedStr); err != nil {
		return persistence.Room{}, mapError(err)
	}

	room.CalendarResourceID = fromNullString(resourceID)
	room.Color = fromNullString(color)
	room.Active = active != 0

	var err error
	if room.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
