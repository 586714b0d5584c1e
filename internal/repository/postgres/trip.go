package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
)

const tripColumns = `id, user_id, destination, days, budget, companions, plan, saved_at`

// CreateTrip inserts a saved trip; saved_at comes from the database clock.
func (s *Store) CreateTrip(ctx context.Context, trip *model.SavedTrip) error {
	const q = `
		INSERT INTO saved_trips (id, user_id, destination, days, budget, companions, plan)
		VALUES (@id, @user_id, @destination, @days, @budget, @companions, @plan)
		RETURNING id, saved_at`

	args := pgx.NamedArgs{
		"id":          uuid.NewString(),
		"user_id":     trip.UserID,
		"destination": trip.Destination,
		"days":        trip.Days,
		"budget":      string(trip.Budget),
		"companions":  string(trip.Companions),
		"plan":        trip.Plan,
	}

	if err := s.db.QueryRow(ctx, q, args).Scan(&trip.ID, &trip.SavedAt); err != nil {
		return fmt.Errorf("postgres: inserting trip for user %s: %w", trip.UserID, err)
	}
	return nil
}

// ListTripsByUser returns the user's trips newest first.
func (s *Store) ListTripsByUser(ctx context.Context, userID string) ([]model.SavedTrip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM saved_trips
		WHERE user_id = @user_id
		ORDER BY saved_at DESC, id DESC`

	rows, err := s.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("postgres: listing trips for user %s: %w", userID, err)
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
			return nil, fmt.Errorf("postgres: scanning trip: %w", err)
		}
		t.Budget = model.Budget(budget)
		t.Companions = model.Companions(companions)
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating trips: %w", err)
	}
	return trips, nil
}

// DeleteTrip removes a trip only if userID owns it.
func (s *Store) DeleteTrip(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM saved_trips WHERE id = @id AND user_id = @user_id`

	tag, err := s.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("postgres: deleting trip %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("trip", id)
	}
	return nil
}
