package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
)

const userColumns = `id, email, name, avatar_url, provider, password_hash, created_at`

// CreateUser inserts a user. Users arriving from an identity provider already
// carry an ID, so one is only generated when none is set.
// A duplicate email (or ID) is reported as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Provider == "" {
		user.Provider = "email"
	}
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, db.q(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.Name, user.AvatarURL, user.Provider, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if db.dialect.isUnique(err) {
			return apperror.Conflict(fmt.Sprintf("a user with email %s already exists", user.Email))
		}
		return fmt.Errorf("%s: inserting user %s: %w", db.name(), user.Email, err)
	}
	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: getting user %s: %w", db.name(), id, err)
	}
	return u, nil
}

// GetUserByEmail matches case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`), email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: getting user by email: %w", db.name(), err)
	}
	return u, nil
}

// UpdateUser writes the profile fields. Email and provider are immutable.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := db.conn.ExecContext(ctx, db.q(
		`UPDATE users SET name = ?, avatar_url = ?, password_hash = ? WHERE id = ?`),
		user.Name, user.AvatarURL, user.PasswordHash, user.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: updating user %s: %w", db.name(), user.ID, err)
	}
	return expectOneRow(res, "user", user.ID)
}

// DeleteUser removes the user. Their memories and shares go with them
// (ON DELETE CASCADE).
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, db.q(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%s: deleting user %s: %w", db.name(), id, err)
	}
	return expectOneRow(res, "user", id)
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Provider, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// expectOneRow turns "0 rows affected" into a NotFound error.
func expectOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
