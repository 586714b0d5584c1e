package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
)

const tripColumns = `id, user_id, destination, days, budget, companions, plan, saved_at`

// CreateTrip stores a saved trip. Trips are immutable once written.
func (db *DB) CreateTrip(ctx context.Context, trip *model.SavedTrip) error {
	trip.ID = xid.New().String()
	trip.SavedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO saved_trips (`+tripColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trip.ID,
		trip.UserID,
		trip.Destination,
		trip.Days,
		string(trip.Budget),
		string(trip.Companions),
		trip.Plan,
		trip.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting trip for user %s: %w", trip.UserID, err)
	}
	return nil
}

// ListTripsByUser returns the user's trips newest first. xids sort by
// creation time, so id breaks ties between trips saved in the same instant.
func (db *DB) ListTripsByUser(ctx context.Context, userID string) ([]model.SavedTrip, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM saved_trips
		 WHERE user_id = ?
		 ORDER BY saved_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing trips for user %s: %w", userID, err)
	}
	defer rows.Close()

	trips := make([]model.SavedTrip, 0)
	for rows.Next() {
		var (
			t          model.SavedTrip
			budget     string
			companions string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Destination, &t.Days, &budget, &companions, &t.Plan, &t.SavedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning trip row: %w", err)
		}
		t.Budget = model.Budget(budget)
		t.Companions = model.Companions(companions)
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating trip rows: %w", err)
	}
	return trips, nil
}

// DeleteTrip removes a trip, scoped to its owner so one user can never
// delete another's trip by guessing an ID.
func (db *DB) DeleteTrip(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM saved_trips WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting trip %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("trip", id)
	}
	return nil
}
