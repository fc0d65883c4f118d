package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/interval"
	"github.com/example/room-reservations/internal/persistence"
)

const reservationColumns = `id, user_id, room_id, title, description, start_time, end_time, status, calendar_event_id, meet_link, created_at, updated_at`

// ReservationRepository implements persistence.ReservationStore on SQLite.
type ReservationRepository struct {
	pool *ConnectionPool
}

// NewReservationRepository creates a SQLite-backed reservation store.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// InTransaction runs fn against a transaction-scoped view of the store. The
// conflict check and the row writes of a booking share this transaction, so
// concurrent bookings for the same room are serialized by SQLite's write lock
// and the loser observes the winner's rows.
func (r *ReservationRepository) InTransaction(ctx context.Context, fn func(tx persistence.ReservationTx) error) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&reservationTx{tx: tx})
	})
}

// GetReservation loads a reservation with its associations.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	var res persistence.Reservation
	err := r.InTransaction(ctx, func(tx persistence.ReservationTx) error {
		var err error
		res, err = tx.GetReservation(id)
		return err
	})
	return res, err
}

// ListForWindow returns confirmed reservations intersecting [start, end),
// joined with room and owner display attributes.
func (r *ReservationRepository) ListForWindow(ctx context.Context, start, end time.Time) ([]persistence.ReservationListing, error) {
	query := `
		SELECT ` + prefixColumns("r", reservationColumns) + `,
			rm.name, rm.color, u.display_name
		FROM reservations r
		JOIN rooms rm ON r.room_id = rm.id
		JOIN users u ON r.user_id = u.id
		WHERE r.status = ? AND r.start_time < ? AND r.end_time > ?
		ORDER BY r.start_time ASC, r.id ASC
	`
	return r.queryListings(ctx, query, string(persistence.StatusConfirmed), formatTime(end), formatTime(start))
}

// ListActiveForUser returns confirmed, not-yet-ended reservations the user
// owns or is invited to.
func (r *ReservationRepository) ListActiveForUser(ctx context.Context, userID, email string, now time.Time) ([]persistence.ReservationListing, error) {
	query := `
		SELECT DISTINCT ` + prefixColumns("r", reservationColumns) + `,
			rm.name, rm.color, u.display_name
		FROM reservations r
		JOIN rooms rm ON r.room_id = rm.id
		JOIN users u ON r.user_id = u.id
		LEFT JOIN reservation_invitees ri ON r.id = ri.reservation_id
		WHERE r.status = ? AND r.end_time > ? AND (r.user_id = ? OR ri.email = ?)
		ORDER BY r.start_time ASC, r.id ASC
	`
	return r.queryListings(ctx, query, string(persistence.StatusConfirmed), formatTime(now), userID, email)
}

func (r *ReservationRepository) queryListings(ctx context.Context, query string, args ...any) ([]persistence.ReservationListing, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var listings []persistence.ReservationListing
	for rows.Next() {
		var listing persistence.ReservationListing
		var roomColor sql.NullString
		res, err := scanReservation(rows.Scan, &listing.RoomName, &roomColor, &listing.OwnerName)
		if err != nil {
			return nil, err
		}
		listing.Reservation = res
		listing.RoomColor = fromNullString(roomColor)
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	// Load association rows per listing; reservation counts per window are
	// small enough that the extra round-trips do not matter.
	for i := range listings {
		if err := r.loadAssociations(ctx, &listings[i].Reservation); err != nil {
			return nil, err
		}
	}

	return listings, nil
}

func (r *ReservationRepository) loadAssociations(ctx context.Context, res *persistence.Reservation) error {
	query := func(query string, args ...any) (*sql.Rows, error) {
		return r.pool.db.QueryContext(ctx, query, args...)
	}

	invitees, err := queryInvitees(query, res.ID)
	if err != nil {
		return err
	}
	res.Invitees = invitees

	equipment, err := queryEquipment(query, res.ID)
	if err != nil {
		return err
	}
	res.Equipment = equipment
	return nil
}

// reservationTx implements persistence.ReservationTx over a live *sql.Tx.
type reservationTx struct {
	tx *sql.Tx
}

func (t *reservationTx) FindConflicts(roomID string, start, end time.Time, excludeID string) ([]persistence.Reservation, error) {
	// The SQL bounds narrow the candidate set; the half-open overlap rule
	// itself is applied by the interval package after the timestamps are
	// parsed back into time values.
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE room_id = ? AND status = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC
	`
	rows, err := t.tx.Query(query, roomID, string(persistence.StatusConfirmed), formatTime(end), formatTime(start))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var conflicts []persistence.Reservation
	for rows.Next() {
		res, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		if excludeID != "" && res.ID == excludeID {
			continue
		}
		if !interval.Overlaps(res.Start, res.End, start, end) {
			continue
		}
		conflicts = append(conflicts, res)
	}
	return conflicts, mapError(rows.Err())
}

func (t *reservationTx) GetReservation(id string) (persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(t.tx.QueryRow(query, id).Scan)
	if err != nil {
		return persistence.Reservation{}, err
	}

	if res.Invitees, err = queryInvitees(t.tx.Query, id); err != nil {
		return persistence.Reservation{}, err
	}
	if res.Equipment, err = queryEquipment(t.tx.Query, id); err != nil {
		return persistence.Reservation{}, err
	}
	return res, nil
}

func (t *reservationTx) InsertReservation(res persistence.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.Exec(query,
		res.ID,
		res.UserID,
		res.RoomID,
		res.Title,
		nullString(res.Description),
		formatTime(res.Start),
		formatTime(res.End),
		string(res.Status),
		nullString(res.CalendarEventID),
		nullString(res.MeetLink),
		formatTime(res.CreatedAt),
		formatTime(res.UpdatedAt),
	)
	return mapError(err)
}

func (t *reservationTx) UpdateReservation(res persistence.Reservation) error {
	query := `
		UPDATE reservations
		SET room_id = ?, title = ?, description = ?, start_time = ?, end_time = ?,
			status = ?, calendar_event_id = ?, meet_link = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := t.tx.Exec(query,
		res.RoomID,
		res.Title,
		nullString(res.Description),
		formatTime(res.Start),
		formatTime(res.End),
		string(res.Status),
		nullString(res.CalendarEventID),
		nullString(res.MeetLink),
		formatTime(res.UpdatedAt),
		res.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func (t *reservationTx) DeleteReservation(id string) error {
	// Invitee and equipment rows are removed by ON DELETE CASCADE.
	result, err := t.tx.Exec("DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func (t *reservationTx) ReplaceInvitees(reservationID string, emails []string) error {
	if _, err := t.tx.Exec("DELETE FROM reservation_invitees WHERE reservation_id = ?", reservationID); err != nil {
		return mapError(err)
	}
	for _, email := range dedupeFold(emails) {
		if _, err := t.tx.Exec(
			"INSERT INTO reservation_invitees (reservation_id, email) VALUES (?, ?)",
			reservationID, email,
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (t *reservationTx) ReplaceEquipment(reservationID string, items []persistence.EquipmentRequest) error {
	if _, err := t.tx.Exec("DELETE FROM reservation_equipment WHERE reservation_id = ?", reservationID); err != nil {
		return mapError(err)
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.EquipmentID == "" {
			continue
		}
		if _, ok := seen[item.EquipmentID]; ok {
			continue
		}
		seen[item.EquipmentID] = struct{}{}
		if _, err := t.tx.Exec(
			"INSERT INTO reservation_equipment (reservation_id, equipment_id, user_id) VALUES (?, ?, ?)",
			reservationID, item.EquipmentID, item.UserID,
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// scanReservation reads the reservation columns (plus any extra targets) from
// a row scan function shared by QueryRow and Rows.
func scanReservation(scan func(dest ...any) error, extra ...any) (persistence.Reservation, error) {
	var res persistence.Reservation
	var description, eventID, meetLink sql.NullString
	var status, startStr, endStr, createdStr, updatedStr string

	dest := []any{
		&res.ID, &res.UserID, &res.RoomID, &res.Title, &description,
		&startStr, &endStr, &status, &eventID, &meetLink, &createdStr, &updatedStr,
	}
	dest = append(dest, extra...)

	if err := scan(dest...); err != nil {
		return persistence.Reservation{}, mapError(err)
	}

	res.Description = fromNullString(description)
	res.CalendarEventID = fromNullString(eventID)
	res.MeetLink = fromNullString(meetLink)
	res.Status = persistence.ReservationStatus(status)

	var err error
	if res.Start, err = parseTime(startStr); err != nil {
		return persistence.Reservation{}, err
	}
	if res.End, err = parseTime(endStr); err != nil {
		return persistence.Reservation{}, err
	}
	if res.CreatedAt, err = parseTime(createdStr); err != nil {
		return persistence.Reservation{}, err
	}
	if res.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return persistence.Reservation{}, err
	}
	return res, nil
}

type rowQuerier func(query string, args ...any) (*sql.Rows, error)

func queryInvitees(query rowQuerier, reservationID string) ([]string, error) {
	rows, err := query("SELECT email FROM reservation_invitees WHERE reservation_id = ? ORDER BY email ASC", reservationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, mapError(err)
		}
		emails = append(emails, email)
	}
	return emails, mapError(rows.Err())
}

func queryEquipment(query rowQuerier, reservationID string) ([]persistence.EquipmentRequest, error) {
	rows, err := query("SELECT equipment_id, user_id FROM reservation_equipment WHERE reservation_id = ? ORDER BY equipment_id ASC", reservationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []persistence.EquipmentRequest
	for rows.Next() {
		var item persistence.EquipmentRequest
		if err := rows.Scan(&item.EquipmentID, &item.UserID); err != nil {
			return nil, mapError(err)
		}
		items = append(items, item)
	}
	return items, mapError(rows.Err())
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func dedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, value)
	}
	return result
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = prefix + "." + part
	}
	return strings.Join(parts, ", ")
}
