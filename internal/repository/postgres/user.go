package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
)

const userColumns = `id, display_name, email, password_hash, github_id, created_at, updated_at`

// CreateUser inserts a password account.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	const q = `
		INSERT INTO users (id, display_name, email, password_hash, github_id)
		VALUES (@id, @display_name, @email, @password_hash, @github_id)
		RETURNING ` + userColumns

	args := pgx.NamedArgs{
		"id":            uuid.NewString(),
		"display_name":  user.DisplayName,
		"email":         nullable(user.Email),
		"password_hash": user.PasswordHash,
		"github_id":     nullable(user.GitHubID),
	}

	created, err := scanUser(s.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}
	*user = *created
	return nil
}

// GetUserByID retrieves a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = @id`

	u, err := scanUser(s.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = @email`

	u, err := scanUser(s.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHubUser resolves a GitHub sign-in: linked account, then an
// account with the same email, then a new account. Runs in one transaction.
func (s *Store) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning github upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	const byGitHub = `
		UPDATE users SET display_name = @display_name, updated_at = now()
		WHERE github_id = @github_id
		RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, byGitHub, pgx.NamedArgs{
		"display_name": user.DisplayName,
		"github_id":    user.GitHubID,
	}))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: updating github user %d: %w", user.GitHubID, err)
	}

	if u == nil && user.Email != "" {
		const byEmail = `
			UPDATE users SET github_id = @github_id, updated_at = now()
			WHERE email = @email
			RETURNING ` + userColumns

		u, err = scanUser(tx.QueryRow(ctx, byEmail, pgx.NamedArgs{
			"github_id": user.GitHubID,
			"email":     user.Email,
		}))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("postgres: linking github user %d: %w", user.GitHubID, err)
		}
	}

	if u == nil {
		const insert = `
			INSERT INTO users (id, display_name, email, github_id)
			VALUES (@id, @display_name, @email, @github_id)
			RETURNING ` + userColumns

		u, err = scanUser(tx.QueryRow(ctx, insert, pgx.NamedArgs{
			"id":           uuid.NewString(),
			"display_name": user.DisplayName,
			"email":        nullable(user.Email),
			"github_id":    user.GitHubID,
		}))
		if err != nil {
			return fmt.Errorf("postgres: inserting github user %d: %w", user.GitHubID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: committing github upsert: %w", err)
	}
	*user = *u
	return nil
}

// DeleteUser removes the account; ON DELETE CASCADE removes its trips.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("postgres: deleting user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u        model.User
		email    *string
		githubID *int64
	)
	if err := row.Scan(&u.ID, &u.DisplayName, &email, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if email != nil {
		u.Email = *email
	}
	if githubID != nil {
		u.GitHubID = *githubID
	}
	return &u, nil
}
