package user

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gruenet/gruechat/internal/perm"
)

// ErrBadCredentials is returned when a known username presents the wrong
// password.
var ErrBadCredentials = errors.New("bad credentials")

// Repo handles database operations for users.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a new user repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts a new user with a hashed password and no modes.
func (r *Repo) Create(username, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	_, err = r.db.Exec(`
		INSERT INTO users (username, password_hash, modes)
		VALUES (?, ?, '')
	`, username, hash)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}

	return r.GetByUsername(username)
}

// Authenticate checks username/password and returns the user if valid.
//
// Unknown usernames are provisioned on the spot: the account is created
// with the supplied password as its credential and authentication
// succeeds. Known usernames must match their stored password, or
// ErrBadCredentials is returned.
func (r *Repo) Authenticate(username, password string) (*User, error) {
	u, err := r.GetByUsername(username)
	if errors.Is(err, sql.ErrNoRows) {
		return r.Create(username, password)
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrBadCredentials
	}

	now := time.Now()
	r.db.Exec(`
		UPDATE users SET last_seen_at = ?, total_calls = total_calls + 1, updated_at = ?
		WHERE id = ?
	`, now, now, u.ID)

	u.LastSeenAt = &now
	u.TotalCalls++

	return u, nil
}

// GetByUsername retrieves a user by exact username.
func (r *Repo) GetByUsername(username string) (*User, error) {
	u := &User{}
	var modes string
	var lastSeen, created, updated sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, username, password_hash, modes, total_calls, last_seen_at,
		       created_at, updated_at
		FROM users WHERE username = ?
	`, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &modes, &u.TotalCalls, &lastSeen,
		&created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}

	u.Perms = perm.FromString(modes)
	if lastSeen.Valid {
		u.LastSeenAt = &lastSeen.Time
	}
	if created.Valid {
		u.CreatedAt = created.Time
	}
	if updated.Valid {
		u.UpdatedAt = updated.Time
	}

	return u, nil
}

// Exists checks if a username is already taken.
func (r *Repo) Exists(username string) bool {
	var count int
	r.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	return count > 0
}

// UpdateModes persists a user's granted mode letters.
func (r *Repo) UpdateModes(username, modes string) error {
	_, err := r.db.Exec(`
		UPDATE users SET modes = ?, updated_at = ? WHERE username = ?
	`, modes, time.Now(), username)
	return err
}

// UpdatePassword changes a user's password.
func (r *Repo) UpdatePassword(username, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?
	`, hash, time.Now(), username)
	return err
}

// Delete removes a user account.
func (r *Repo) Delete(username string) error {
	res, err := r.db.Exec("DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no such user %s", username)
	}
	return nil
}

// List returns all users, ordered by username.
func (r *Repo) List() ([]*User, error) {
	rows, err := r.db.Query(`
		SELECT id, username, modes, total_calls, last_seen_at
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		var modes string
		var lastSeen sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &modes, &u.TotalCalls, &lastSeen); err != nil {
			return nil, err
		}
		u.Perms = perm.FromString(modes)
		if lastSeen.Valid {
			u.LastSeenAt = &lastSeen.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
