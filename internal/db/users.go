package db

import (
	"context"
	"errors"
	"fmt"

	"studi/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrEmailTaken is returned when a signup collides with an existing account.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, name, COALESCE(google_id, ''), COALESCE(picture, ''), COALESCE(password_hash, ''), created_at`

// CreateLocalUser registers an email/password account.
func (db *DB) CreateLocalUser(ctx context.Context, email, name, passwordHash string) (models.User, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING `+userColumns,
		email, name, passwordHash)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrEmailTaken
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail looks up an account; models.ErrNotFound when absent.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// UpsertGoogleUser creates or refreshes an account from a Google profile.
func (db *DB) UpsertGoogleUser(ctx context.Context, email, name, googleID, picture string) (models.User, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO users (email, name, google_id, picture) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET google_id = EXCLUDED.google_id, picture = EXCLUDED.picture
		 RETURNING `+userColumns,
		email, name, googleID, picture)

	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert google user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u  models.User
		id pgtype.UUID
	)
	if err := row.Scan(&id, &u.Email, &u.Name, &u.GoogleID, &u.Picture, &u.PasswordHash, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	return u, nil
}
