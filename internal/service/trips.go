package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
	"github.com/sakif/dreamways/internal/repository"
)

const (
	MsgLoginToSave   = "Please log in to save trips"
	MsgLoginToDelete = "Please log in to delete trips"
)

// TripService hands out per-user trip collections.
type TripService struct {
	repo   repository.TripRepository
	logger *slog.Logger
}

// NewTripService creates a TripService over the given store.
func NewTripService(repo repository.TripRepository, logger *slog.Logger) *TripService {
	return &TripService{repo: repo, logger: logger}
}

// For returns the collection scoped to user. user may be nil (anonymous),
// in which case every operation that needs a user fails without touching
// the store.
func (s *TripService) For(user *model.User) *TripCollection {
	return &TripCollection{repo: s.repo, logger: s.logger, user: user}
}

// TripCollection is one user's saved trips as of the last fetch.
//
// It lives for one request. Every mutation is followed by a full re-fetch,
// so after any method returns successfully Trips() mirrors the store.
type TripCollection struct {
	repo   repository.TripRepository
	logger *slog.Logger
	user   *model.User
	trips  []model.SavedTrip
}

// User is the collection's owner, or nil.
func (c *TripCollection) User() *model.User {
	return c.user
}

// Trips returns a copy of the in-memory list.
func (c *TripCollection) Trips() []model.SavedTrip {
	out := make([]model.SavedTrip, len(c.trips))
	copy(out, c.trips)
	return out
}

// Fetch replaces the in-memory list with the user's trips from the store.
// Without a user the list is simply cleared.
func (c *TripCollection) Fetch(ctx context.Context) error {
	if c.user == nil {
		c.trips = nil
		return nil
	}

	trips, err := c.repo.ListTripsByUser(ctx, c.user.ID)
	if err != nil {
		c.logger.Error("fetching saved trips failed",
			slog.String("userID", c.user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/trips: fetching for %s: %w", c.user.ID, err)
	}
	c.trips = trips
	return nil
}

// Save stores plan for the current user and refreshes the list.
func (c *TripCollection) Save(ctx context.Context, plan model.TripPlan) (*model.SavedTrip, error) {
	if c.user == nil {
		return nil, apperror.Unauthorized(MsgLoginToSave)
	}

	plan.TripRequest = plan.TripRequest.Normalized()
	if err := plan.TripRequest.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(plan.Plan) == "" {
		return nil, apperror.ValidationFailed("plan", "plan is required")
	}

	trip := model.NewSavedTrip(c.user.ID, plan)
	if err := c.repo.CreateTrip(ctx, trip); err != nil {
		c.logger.Error("saving trip failed",
			slog.String("userID", c.user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/trips: saving for %s: %w", c.user.ID, err)
	}

	c.logger.Info("trip saved",
		slog.String("userID", c.user.ID),
		slog.String("tripID", trip.ID),
		slog.String("destination", trip.Destination),
	)

	if err := c.Fetch(ctx); err != nil {
		return nil, err
	}
	return trip, nil
}

// Delete removes trip id if the current user owns it, then refreshes.
func (c *TripCollection) Delete(ctx context.Context, id string) error {
	if c.user == nil {
		return apperror.Unauthorized(MsgLoginToDelete)
	}
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "trip id is required")
	}

	if err := c.repo.DeleteTrip(ctx, c.user.ID, id); err != nil {
		c.logger.Error("deleting trip failed",
			slog.String("userID", c.user.ID),
			slog.String("tripID", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/trips: deleting %s: %w", id, err)
	}

	c.logger.Info("trip deleted", slog.String("userID", c.user.ID), slog.String("tripID", id))
	return c.Fetch(ctx)
}
