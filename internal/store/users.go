// ABOUTME: User repository: signup, credential verification, username lookup
// ABOUTME: Stores bcrypt hashes only; login failures are indistinguishable

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when a username does not exist, so a
// failed login costs the same whether the username or the password was
// wrong. Prevents timing attacks that enumerate usernames.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRepo persists user records through the shared database handle.
type UserRepo struct {
	db     *DB
	logger *slog.Logger
}

// NewUserRepo creates a user repository and enforces the user schema.
func NewUserRepo(db *DB) (*UserRepo, error) {
	if err := db.EnsureUserSchema(); err != nil {
		return nil, err
	}
	return &UserRepo{
		db:     db,
		logger: db.logger.With("repo", "user"),
	}, nil
}

// CreateUser inserts a new user with a bcrypt-hashed credential. The
// plaintext password is never stored. Returns ErrDuplicateUsername when
// the uniqueness index rejects the insert.
func (r *UserRepo) CreateUser(ctx context.Context, first, last, username, password, email string) error {
	if username == "" {
		return fmt.Errorf("creating user: username must not be empty")
	}

	// Hash outside the connection lock; bcrypt is deliberately slow.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	id := NewRecordID("user")
	now := time.Now().UTC().Format(timeLayout)

	query := `
		INSERT INTO user (id, first_name, last_name, username, email, pass, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	r.db.mu.Lock()
	_, err = r.db.conn.ExecContext(ctx, query, id.String(), first, last, username, email, string(hash), now, now)
	r.db.mu.Unlock()

	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("user %q: %w", username, ErrDuplicateUsername)
		}
		return fmt.Errorf("inserting user %q: %w", username, err)
	}

	r.logger.Info("created user", "id", id, "username", username)
	return nil
}

// VerifyPassword looks up the user by username and compares the supplied
// password against the stored hash. Returns the public projection on
// match and (nil, nil) on either an unknown username or a wrong password;
// the two cases are indistinguishable to the caller.
func (r *UserRepo) VerifyPassword(ctx context.Context, username, password string) (*UserView, error) {
	query := `
		SELECT id, first_name, last_name, username, email, pass, created_at, updated_at
		FROM user
		WHERE username = ?
	`

	var (
		idStr, hash            string
		createdAt, updatedAt   string
		first, last, uname, em string
	)

	r.db.mu.Lock()
	err := r.db.conn.QueryRowContext(ctx, query, username).Scan(
		&idStr, &first, &last, &uname, &em, &hash, &createdAt, &updatedAt,
	)
	r.db.mu.Unlock()

	if errors.Is(err, sql.ErrNoRows) {
		// Burn the same bcrypt cost as a real comparison.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user %q: %w", username, err)
	}

	// Compare after releasing the lock; other queries can proceed while
	// bcrypt runs.
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, nil
	}

	view, err := scanUserView(idStr, first, last, uname, em, createdAt, updatedAt)
	if err != nil {
		return nil, err
	}

	r.logger.Info("verified credentials", "username", username)
	return view, nil
}

// GetUserID resolves a username to its RecordID. Returns ErrNotFound when
// no such username exists.
func (r *UserRepo) GetUserID(ctx context.Context, username string) (RecordID, error) {
	query := `SELECT id FROM user WHERE username = ?`

	var idStr string

	r.db.mu.Lock()
	err := r.db.conn.QueryRowContext(ctx, query, username).Scan(&idStr)
	r.db.mu.Unlock()

	if errors.Is(err, sql.ErrNoRows) {
		return RecordID{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return RecordID{}, fmt.Errorf("querying user id for %q: %w", username, err)
	}

	return ParseRecordID(idStr)
}

func scanUserView(idStr, first, last, username, email, createdAt, updatedAt string) (*UserView, error) {
	id, err := ParseRecordID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	updated, err := time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &UserView{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Username:  username,
		Email:     email,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE
// constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure UserRepo implements UserStore.
var _ UserStore = (*UserRepo)(nil)
