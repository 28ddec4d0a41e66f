package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// User is a platform account with a bcrypt password hash and a role list.
type User struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
	IsActive     bool     `json:"is_active"`
}

// CreateUser inserts a new user. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, roles, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, string(roles), u.IsActive, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// UserByUsername fetches one user.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, roles, is_active
		FROM users WHERE username = ?`, username)

	var (
		u     User
		roles string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &roles, &u.IsActive)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query user %q: %w", username, err)
	}
	if err := json.Unmarshal([]byte(roles), &u.Roles); err != nil {
		return nil, false, fmt.Errorf("decode roles: %w", err)
	}
	return &u, true, nil
}

// CreateSession stores a hashed bearer token with its expiry.
func (s *Store) CreateSession(ctx context.Context, tokenHash, username string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, username, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		tokenHash, username, expiresAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionUser resolves a hashed token to its user, enforcing expiry and the
// active flag. Expired sessions are deleted on sight.
func (s *Store) SessionUser(ctx context.Context, tokenHash string) (*User, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, expires_at FROM sessions WHERE token_hash = ?`, tokenHash)

	var (
		username  string
		expiresAt time.Time
	)
	err := row.Scan(&username, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query session: %w", err)
	}

	if time.Now().After(expiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
		return nil, false, nil
	}

	u, found, err := s.UserByUsername(ctx, username)
	if err != nil || !found {
		return nil, false, err
	}
	if !u.IsActive {
		return nil, false, nil
	}
	return u, true, nil
}
