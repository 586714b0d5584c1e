package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	err    error // returned by every call when set
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if u.Email != "" && existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	f.nextID++
	u.ID = "user-" + strconv.Itoa(f.nextID)
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHubUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.GitHubID == u.GitHubID {
			existing.DisplayName = u.DisplayName
			*u = *existing
			return nil
		}
	}
	f.nextID++
	u.ID = "user-" + strconv.Itoa(f.nextID)
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

func newTestLocal(t *testing.T) (*Local, *fakeUserRepo, *[]Event) {
	t.Helper()
	repo := newFakeUserRepo()
	svc := NewLocal(repo, auth.NewPasswordServiceForTest(bcrypt.MinCost), slog.New(slog.NewTextHandler(io.Discard, nil)))

	var events []Event
	unsubscribe := svc.Subscribe(func(e Event) { events = append(events, e) })
	t.Cleanup(unsubscribe)
	return svc, repo, &events
}

// =========================================================================
// SIGN UP / SIGN IN
// =========================================================================

func TestSignUp_CreatesAccountAndPublishes(t *testing.T) {
	svc, repo, events := newTestLocal(t)

	u, err := svc.SignUp(context.Background(), "  Ada ", " Ada@Example.com ", "Str0ng!Pass")
	require.NoError(t, err)

	assert.Equal(t, "Ada", u.DisplayName)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "Str0ng!Pass", repo.users[u.ID].PasswordHash)

	require.Len(t, *events, 1)
	assert.Equal(t, SignedUp, (*events)[0].Kind)
	assert.Equal(t, u.ID, (*events)[0].UserID)
}

func TestSignUp_Rejections(t *testing.T) {
	svc, _, events := newTestLocal(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "Ada", "ada@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	*events = nil

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"duplicate email", "ADA@example.com", apperror.ErrConflict},
		{"malformed email", "not-an-email", apperror.ErrValidation},
		{"empty email", "", apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, "Someone", tt.email, "Str0ng!Pass")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
	assert.Empty(t, *events, "failed sign-ups must not publish")
}

func TestSignIn(t *testing.T) {
	svc, _, events := newTestLocal(t)
	ctx := context.Background()
	created, err := svc.SignUp(ctx, "Grace", "grace@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	*events = nil

	t.Run("correct credentials", func(t *testing.T) {
		u, err := svc.SignIn(ctx, "GRACE@example.com", "Str0ng!Pass")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)
		require.Len(t, *events, 1)
		assert.Equal(t, SignedIn, (*events)[0].Kind)
	})

	for _, tc := range []struct{ name, email, password string }{
		{"wrong password", "grace@example.com", "nope"},
		{"unknown email", "nobody@example.com", "Str0ng!Pass"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignIn(ctx, tc.email, tc.password)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, MsgInvalidCredentials, appErr.Message)
		})
	}
}

func TestSignIn_GitHubOnlyAccountHasNoPassword(t *testing.T) {
	svc, _, _ := newTestLocal(t)
	ctx := context.Background()
	_, err := svc.SignInGitHub(ctx, &auth.GitHubUser{ID: 9, Login: "octo", Email: "octo@example.com"})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "octo@example.com", "")
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}

func TestSignIn_RepositoryFailure(t *testing.T) {
	svc, repo, _ := newTestLocal(t)
	repo.err = errors.New("disk on fire")

	_, err := svc.SignIn(context.Background(), "a@b.co", "x")

	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrUnauthorized), "storage errors are not credential errors")
}

// =========================================================================
// GITHUB / SIGN OUT / DELETE
// =========================================================================

func TestSignInGitHub(t *testing.T) {
	svc, _, events := newTestLocal(t)
	ctx := context.Background()

	u, err := svc.SignInGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, "octocat", u.DisplayName)

	again, err := svc.SignInGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "octocat", Name: "Mona"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Mona", again.DisplayName)
	assert.Len(t, *events, 2)

	_, err = svc.SignInGitHub(ctx, nil)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestSignOut_Publishes(t *testing.T) {
	svc, _, events := newTestLocal(t)

	require.NoError(t, svc.SignOut(context.Background(), "user-1"))
	require.Len(t, *events, 1)
	assert.Equal(t, Event{Kind: SignedOut, UserID: "user-1"}, (*events)[0])

	assert.Error(t, svc.SignOut(context.Background(), ""))
}

func TestDeleteAccount(t *testing.T) {
	svc, _, events := newTestLocal(t)
	ctx := context.Background()
	u, err := svc.SignUp(ctx, "Temp", "temp@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	*events = nil

	require.NoError(t, svc.DeleteAccount(ctx, u.ID))
	require.Len(t, *events, 1)
	assert.Equal(t, Deleted, (*events)[0].Kind)

	_, err = svc.User(ctx, u.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	err = svc.DeleteAccount(ctx, u.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Len(t, *events, 1, "failed delete must not publish")
}
