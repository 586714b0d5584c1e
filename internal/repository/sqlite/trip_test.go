package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
)

func newTrip(userID, destination string) *model.SavedTrip {
	return &model.SavedTrip{
		UserID:      userID,
		Destination: destination,
		Days:        3,
		Budget:      model.BudgetLow,
		Companions:  model.CompanionsFriends,
		Plan:        "Day 1: arrive in " + destination,
	}
}

func TestCreateTrip_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "traveller@example.com")

	trip := newTrip(u.ID, "Lisbon")
	require.NoError(t, db.CreateTrip(ctx, trip))
	assert.NotEmpty(t, trip.ID)
	assert.WithinDuration(t, time.Now(), trip.SavedAt, 5*time.Second)

	trips, err := db.ListTripsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, trips, 1)

	got := trips[0]
	assert.Equal(t, trip.ID, got.ID)
	assert.Equal(t, "Lisbon", got.Destination)
	assert.Equal(t, 3, got.Days)
	assert.Equal(t, model.BudgetLow, got.Budget)
	assert.Equal(t, model.CompanionsFriends, got.Companions)
	assert.Equal(t, "Day 1: arrive in Lisbon", got.Plan)
	assert.WithinDuration(t, trip.SavedAt, got.SavedAt, time.Millisecond)
}

func TestCreateTrip_UnknownUserRejected(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateTrip(context.Background(), newTrip("no-such-user", "Rome"))

	assert.Error(t, err, "foreign key must reject trips for unknown users")
}

func TestListTripsByUser_NewestFirstAndScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	for _, dest := range []string{"Paris", "Kyoto", "Cairo"} {
		require.NoError(t, db.CreateTrip(ctx, newTrip(alice.ID, dest)))
	}
	require.NoError(t, db.CreateTrip(ctx, newTrip(bob.ID, "Lima")))

	trips, err := db.ListTripsByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, trips, 3)
	assert.Equal(t, "Cairo", trips[0].Destination)
	assert.Equal(t, "Kyoto", trips[1].Destination)
	assert.Equal(t, "Paris", trips[2].Destination)
}

func TestListTripsByUser_EmptyIsNonNil(t *testing.T) {
	db := newTestDB(t)

	trips, err := db.ListTripsByUser(context.Background(), "nobody")

	require.NoError(t, err)
	assert.NotNil(t, trips)
	assert.Empty(t, trips)
}

func TestDeleteTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	trip := newTrip(alice.ID, "Reykjavik")
	require.NoError(t, db.CreateTrip(ctx, trip))

	t.Run("other user cannot delete", func(t *testing.T) {
		err := db.DeleteTrip(ctx, bob.ID, trip.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("owner deletes", func(t *testing.T) {
		require.NoError(t, db.DeleteTrip(ctx, alice.ID, trip.ID))
		trips, err := db.ListTripsByUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, trips)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		err := db.DeleteTrip(ctx, alice.ID, trip.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})
}

func TestNew_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dreamways.db")
	ctx := context.Background()

	db, err := New(ctx, path)
	require.NoError(t, err)
	u := createTestUser(t, db, "persist@example.com")
	require.NoError(t, db.CreateTrip(ctx, newTrip(u.ID, "Seoul")))
	require.NoError(t, db.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	// Reopening re-runs goose, which must be a no-op on a migrated file.
	db, err = New(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	trips, err := db.ListTripsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "Seoul", trips[0].Destination)
	assert.NoError(t, db.Ping(ctx))
}
