// Package identity is the account service the session manager sits on top
// of: it checks credentials, creates accounts, and announces every change in
// account state to subscribers.
//
// Local is the only implementation. It keeps accounts in the users table of
// whichever repository backend the server runs on.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/model"
	"github.com/sakif/dreamways/internal/repository"
)

// Service is what the session manager needs from an identity provider.
type Service interface {
	SignIn(ctx context.Context, email, password string) (*model.User, error)
	SignUp(ctx context.Context, name, email, password string) (*model.User, error)
	SignInGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, error)
	SignOut(ctx context.Context, userID string) error
	User(ctx context.Context, id string) (*model.User, error)
	DeleteAccount(ctx context.Context, id string) error
	Subscribe(fn func(Event)) (unsubscribe func())
}

var _ Service = (*Local)(nil)

// MsgInvalidCredentials is deliberately identical for unknown email and
// wrong password.
const MsgInvalidCredentials = "Invalid email or password"

// Local implements Service on a UserRepository and bcrypt.
type Local struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	bus       *Bus
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewLocal creates the local identity service.
func NewLocal(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *Local {
	return &Local{
		users:     users,
		passwords: passwords,
		bus:       NewBus(),
		validate:  validator.New(),
		logger:    logger,
	}
}

// Subscribe registers fn for account events.
func (s *Local) Subscribe(fn func(Event)) func() {
	return s.bus.Subscribe(fn)
}

// SignIn checks an email/password pair.
func (s *Local) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("identity: sign in: %w", err)
	}

	// GitHub-only accounts have no password to check.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("identity: sign in: %w", err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	s.bus.Publish(Event{Kind: SignedIn, UserID: user.ID, User: user})
	return user, nil
}

// SignUp creates a password account and signs it in. Password policy is the
// caller's concern; SignUp only enforces what bcrypt itself requires.
func (s *Local) SignUp(ctx context.Context, name, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}

	user := &model.User{
		DisplayName:  strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("identity: sign up: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	s.bus.Publish(Event{Kind: SignedUp, UserID: user.ID, User: user})
	return user, nil
}

// SignInGitHub finds or creates the account behind a GitHub profile.
func (s *Local) SignInGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	if gh == nil || gh.ID == 0 {
		return nil, apperror.ValidationFailed("github", "GitHub profile is missing")
	}

	user := &model.User{
		GitHubID:    gh.ID,
		DisplayName: gh.DisplayName(),
		Email:       normalizeEmail(gh.Email),
	}
	if err := s.users.UpsertGitHubUser(ctx, user); err != nil {
		return nil, fmt.Errorf("identity: github sign in (githubID=%d): %w", gh.ID, err)
	}

	s.logger.Info("user signed in via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	s.bus.Publish(Event{Kind: SignedIn, UserID: user.ID, User: user})
	return user, nil
}

// SignOut announces that userID's session ended.
func (s *Local) SignOut(_ context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("not signed in")
	}
	s.bus.Publish(Event{Kind: SignedOut, UserID: userID})
	return nil
}

// User returns the account with the given id.
func (s *Local) User(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("identity: fetching user %s: %w", id, err)
	}
	return user, nil
}

// DeleteAccount removes the account and its saved trips.
func (s *Local) DeleteAccount(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("identity: deleting user %s: %w", id, err)
	}
	s.logger.Info("account deleted", slog.String("userID", id))
	s.bus.Publish(Event{Kind: Deleted, UserID: id})
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
