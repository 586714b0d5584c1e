// Package session tracks who is signed in. It wraps the identity service,
// hands out signed session tokens, and keeps an in-memory view of the
// signed-in users that is updated from identity events.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/identity"
	"github.com/sakif/dreamways/internal/model"
)

const (
	// userCacheTTL bounds how long a user record is served without asking
	// the identity service again.
	userCacheTTL    = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
)

var _ auth.Resolver = (*Manager)(nil)

// Session is the result of a successful login or registration.
type Session struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Manager is the session manager. It is safe for concurrent use.
type Manager struct {
	identity identity.Service
	tokens   *auth.TokenService
	logger   *slog.Logger

	users   *cache.Cache // userID -> *model.User
	revoked *cache.Cache // token id -> struct{}, kept until the token would expire

	unsubscribe func()
	closeOnce   sync.Once
}

// NewManager subscribes to identity events. Call Close to unsubscribe.
func NewManager(id identity.Service, tokens *auth.TokenService, logger *slog.Logger) *Manager {
	m := &Manager{
		identity: id,
		tokens:   tokens,
		logger:   logger,
		users:    cache.New(userCacheTTL, cleanupInterval),
		revoked:  cache.New(tokens.TTL(), cleanupInterval),
	}
	m.unsubscribe = id.Subscribe(m.handle)
	return m
}

// Close tears down the identity subscription. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(m.unsubscribe)
}

// handle runs synchronously inside the identity operation that published e,
// so the cache is current before that operation returns to its caller.
func (m *Manager) handle(e identity.Event) {
	switch e.Kind {
	case identity.SignedUp, identity.SignedIn:
		if e.User != nil {
			m.users.SetDefault(e.UserID, cloneUser(e.User))
		}
	case identity.SignedOut, identity.Deleted:
		m.users.Delete(e.UserID)
	}
	m.logger.Debug("identity event", slog.String("kind", e.Kind.String()), slog.String("userID", e.UserID))
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := m.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.issue(user)
}

// Register enforces the password policy and creates the account. A password
// that breaks the policy never reaches the identity service.
func (m *Manager) Register(ctx context.Context, name, email, password string) (*Session, error) {
	if violations := auth.ValidatePassword(password); len(violations) > 0 {
		return nil, apperror.ValidationFailed("password", auth.JoinViolations(violations))
	}

	user, err := m.identity.SignUp(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return m.issue(user)
}

// LoginGitHub signs in with a GitHub profile obtained through OAuth.
func (m *Manager) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*Session, error) {
	user, err := m.identity.SignInGitHub(ctx, gh)
	if err != nil {
		return nil, err
	}
	return m.issue(user)
}

// Logout revokes token and signs its user out. An already invalid token is
// not an error: there is nothing left to revoke.
func (m *Manager) Logout(ctx context.Context, token string) error {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil
	}

	if ttl := time.Until(claims.ExpiresAt); ttl > 0 {
		m.revoked.Set(claims.TokenID, struct{}{}, ttl)
	}
	if err := m.identity.SignOut(ctx, claims.UserID); err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// DeleteAccount removes the signed-in user's account and revokes token.
func (m *Manager) DeleteAccount(ctx context.Context, token string) error {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return apperror.Unauthorized("Please log in")
	}
	if err := m.identity.DeleteAccount(ctx, claims.UserID); err != nil {
		return err
	}
	if ttl := time.Until(claims.ExpiresAt); ttl > 0 {
		m.revoked.Set(claims.TokenID, struct{}{}, ttl)
	}
	return nil
}

// Resolve returns the user a token belongs to. Expired, revoked or orphaned
// tokens yield an ErrUnauthorized error.
func (m *Manager) Resolve(ctx context.Context, token string) (*model.User, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, apperror.Unauthorized("session expired")
	}
	if _, revoked := m.revoked.Get(claims.TokenID); revoked {
		return nil, apperror.Unauthorized("session ended")
	}

	if cached, ok := m.users.Get(claims.UserID); ok {
		return cloneUser(cached.(*model.User)), nil
	}

	user, err := m.identity.User(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("session: resolving user %s: %w", claims.UserID, err)
	}
	m.users.SetDefault(user.ID, cloneUser(user))
	return user, nil
}

func (m *Manager) issue(user *model.User) (*Session, error) {
	tok, err := m.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("session: issuing token for %s: %w", user.ID, err)
	}
	return &Session{User: user, Token: tok.Value, ExpiresAt: tok.ExpiresAt}, nil
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}
