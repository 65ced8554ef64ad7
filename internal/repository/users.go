package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// UserRecord is the stored account, password hash included. It stays inside
// the server; only domain.User crosses the API boundary.
type UserRecord struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
}

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, role string) (int64, error) {
	query := `INSERT INTO users (email, password_hash, role, created_at)
	          VALUES ($1, $2, $3, NOW()) RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, email, passwordHash, role).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	query := `SELECT id, email, password_hash, role FROM users WHERE email = $1`

	var user UserRecord
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return &user, nil
}
