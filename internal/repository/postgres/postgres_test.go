package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
)

// newTestStore returns a Store bound to a transaction that is rolled back
// when the test ends. Skips unless TEST_DATABASE_URL points at a Postgres.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(ctx) })

	// pgx.Tx.Begin opens a savepoint, so UpsertGitHubUser still works.
	return newWithQuerier(tx)
}

func TestPostgres_UserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{DisplayName: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	err := s.CreateUser(ctx, &model.User{Email: "ada@example.com"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)
}

func TestPostgres_GetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := &model.User{Email: "grace@example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))

	byEmail, err := s.GetUserByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestPostgres_UpsertGitHubUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.User{GitHubID: 4242, DisplayName: "octocat"}
	require.NoError(t, s.UpsertGitHubUser(ctx, first))

	again := &model.User{GitHubID: 4242, DisplayName: "Mona"}
	require.NoError(t, s.UpsertGitHubUser(ctx, again))

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Mona", again.DisplayName)
}

func TestPostgres_Trips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := &model.User{Email: "alice@example.com"}
	bob := &model.User{Email: "bob@example.com"}
	require.NoError(t, s.CreateUser(ctx, alice))
	require.NoError(t, s.CreateUser(ctx, bob))

	trip := &model.SavedTrip{
		UserID: alice.ID, Destination: "Paris", Days: 5,
		Budget: model.BudgetMedium, Companions: model.CompanionsCouple, Plan: "plan",
	}
	require.NoError(t, s.CreateTrip(ctx, trip))
	assert.NotEmpty(t, trip.ID)

	trips, err := s.ListTripsByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, model.BudgetMedium, trips[0].Budget)

	err = s.DeleteTrip(ctx, bob.ID, trip.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	require.NoError(t, s.DeleteTrip(ctx, alice.ID, trip.ID))

	require.NoError(t, s.DeleteUser(ctx, alice.ID))
	trips, err = s.ListTripsByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, trips)
}
