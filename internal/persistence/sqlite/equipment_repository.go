package sqlite

import (
	"context"

	"github.com/example/room-reservations/internal/persistence"
)

// EquipmentRepository implements persistence.EquipmentRepository using SQLite.
type EquipmentRepository struct {
	pool *ConnectionPool
}

// NewEquipmentRepository creates a SQLite-backed equipment catalog.
func NewEquipmentRepository(pool *ConnectionPool) *EquipmentRepository {
	return &EquipmentRepository{pool: pool}
}

// CreateEquipment inserts a new equipment item.
func (r *EquipmentRepository) CreateEquipment(ctx context.Context, item persistence.Equipment) error {
	query := `INSERT INTO equipment (id, name, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.pool.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		boolToInt(item.Active),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	return mapError(err)
}

// UpdateEquipment updates an existing equipment item.
func (r *EquipmentRepository) UpdateEquipment(ctx context.Context, item persistence.Equipment) error {
	query := `UPDATE equipment SET name = ?, active = ?, updated_at = ? WHERE id = ?`
	result, err := r.pool.db.ExecContext(ctx, query,
		item.Name,
		boolToInt(item.Active),
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// GetEquipment retrieves an equipment item by ID.
func (r *EquipmentRepository) GetEquipment(ctx context.Context, id string) (persistence.Equipment, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM equipment WHERE id = ?`
	return scanEquipment(r.pool.db.QueryRowContext(ctx, query, id).Scan)
}

// ListEquipment returns equipment ordered by name.
func (r *EquipmentRepository) ListEquipment(ctx context.Context, includeInactive bool) ([]persistence.Equipment, error) {
	query := `SELECT id, name, active, created_at, updated_at FROM equipment`
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []persistence.Equipment
	for rows.Next() {
		item, err := scanEquipment(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, mapError(rows.Err())
}

// DeactivateEquipment hides the item from listings and new requests.
func (r *EquipmentRepository) DeactivateEquipment(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "UPDATE equipment SET active = 0 WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func scanEquipment(scan func(dest ...any) error) (persistence.Equipment, error) {
	var item persistence.Equipment
	var active int
	var createdStr, updatedStr string

	if err := scan(&item.ID, &item.Name, &active, &createdStr, &updatedStr); err != nil {
		return persistence.Equipment{}, mapError(err)
	}
	item.Active = active != 0

	var err error
	if item.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Equipment{}, err
	}
	if item.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Equipment{}, err
	}
	return item, nil
}
