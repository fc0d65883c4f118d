package sqlite

import (
	"context"

	"github.com/example/room-reservations/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a SQLite-backed user store.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	query := `
		INSERT INTO users (id, email, display_name, is_admin, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		boolToInt(user.IsAdmin),
		user.RefreshToken,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapError(err)
}

// UpdateUser updates an existing user, including the stored (encrypted)
// refresh token.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	query := `
		UPDATE users
		SET email = ?, display_name = ?, is_admin = ?, refresh_token = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		user.Email,
		user.DisplayName,
		boolToInt(user.IsAdmin),
		user.RefreshToken,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// GetUser retrieves a user by ID.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	query := userSelect + ` WHERE id = ?`
	return scanUser(r.pool.db.QueryRowContext(ctx, query, id).Scan)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	query := userSelect + ` WHERE email = ? COLLATE NOCASE`
	return scanUser(r.pool.db.QueryRowContext(ctx, query, email).Scan)
}

const userSelect = `SELECT id, email, display_name, is_admin, refresh_token, created_at, updated_at FROM users`

func scanUser(scan func(dest ...any) error) (persistence.User, error) {
	var user persistence.User
	var isAdmin int
	var refreshToken []byte
	var createdStr, updatedStr string

	if err := scan(&user.ID, &user.Email, &user.DisplayName, &isAdmin, &refreshToken, &createdStr, &updatedStr); err != nil {
		return persistence.User{}, mapError(err)
	}
	user.IsAdmin = isAdmin != 0
	user.RefreshToken = refreshToken

	var err error
	if user.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
