// Package repository defines the persistence contracts the services depend on.
// The sqlite and postgres subpackages implement them; services never see SQL.
package repository

import (
	"context"

	"github.com/sakif/dreamways/internal/model"
)

// UserRepository stores accounts for the local identity service.
type UserRepository interface {
	// CreateUser inserts a password account and fills in ID and timestamps.
	// Returns apperror.ErrConflict if the email is already registered.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID returns apperror.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// GetUserByEmail looks up an account by its (lower-cased) email.
	// Returns apperror.ErrNotFound if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// UpsertGitHubUser finds the account linked to user.GitHubID, links an
	// existing account with the same email, or creates a new one. The
	// stored record is copied back into user.
	UpsertGitHubUser(ctx context.Context, user *model.User) error

	// DeleteUser removes the account and, by cascade, its saved trips.
	// Returns apperror.ErrNotFound if no such user exists.
	DeleteUser(ctx context.Context, id string) error
}

// TripRepository is the document store for saved trips.
type TripRepository interface {
	// CreateTrip assigns ID and SavedAt and stores the trip.
	CreateTrip(ctx context.Context, trip *model.SavedTrip) error

	// ListTripsByUser returns the user's trips, most recently saved first.
	// A user with no trips gets an empty, non-nil slice.
	ListTripsByUser(ctx context.Context, userID string) ([]model.SavedTrip, error)

	// DeleteTrip removes trip id only if it belongs to userID.
	// Returns apperror.ErrNotFound otherwise.
	DeleteTrip(ctx context.Context, userID, id string) error
}

// Store is a complete backend: both repositories plus lifecycle.
type Store interface {
	UserRepository
	TripRepository
	Ping(ctx context.Context) error
	Close() error
}
