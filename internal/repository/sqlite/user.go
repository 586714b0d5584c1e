package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/model"
)

const userColumns = `id, display_name, email, password_hash, github_id, created_at, updated_at`

// CreateUser inserts a new password account. The ID is an xid: globally
// unique and sortable by creation time.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.DisplayName,
		nullString(user.Email),
		user.PasswordHash,
		nullInt64(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHubUser resolves a GitHub sign-in to an account.
//
// Lookup order: an account already linked to the GitHub ID, then a password
// account with the same email (which gets linked), then a brand-new account.
// The three steps run in one transaction so two concurrent first sign-ins
// cannot both insert.
func (db *DB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning github upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	now := time.Now().UTC()

	existing, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID))
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET display_name = ?, updated_at = ? WHERE id = ?`,
			user.DisplayName, now, existing.ID)
		if err != nil {
			return fmt.Errorf("sqlite: updating github user %s: %w", existing.ID, err)
		}
		existing.DisplayName = user.DisplayName
		existing.UpdatedAt = now
		*user = *existing
		return commit(tx)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("sqlite: looking up github_id %d: %w", user.GitHubID, err)
	}

	if user.Email != "" {
		existing, err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email))
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
				user.GitHubID, now, existing.ID)
			if err != nil {
				return fmt.Errorf("sqlite: linking github_id to user %s: %w", existing.ID, err)
			}
			existing.GitHubID = user.GitHubID
			existing.UpdatedAt = now
			*user = *existing
			return commit(tx)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("sqlite: looking up email for github user: %w", err)
		}
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.DisplayName, nullString(user.Email), "", user.GitHubID, now, now)
	if err != nil {
		return fmt.Errorf("sqlite: inserting github user %d: %w", user.GitHubID, err)
	}
	return commit(tx)
}

// DeleteUser removes the account; ON DELETE CASCADE removes its trips.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		email    sql.NullString
		githubID sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.DisplayName, &email, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.GitHubID = githubID.Int64
	return &u, nil
}
