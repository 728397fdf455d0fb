// ABOUTME: Connection manager owning the single embedded SQLite handle
// ABOUTME: Process-wide singleton with sync.Once init and a shared mutex

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Process-wide singleton handle. Initialize is guarded by a one-time cell
// so concurrent first calls cannot open the file twice; the error from the
// first attempt is sticky and returned to every caller.
var (
	initOnce sync.Once
	shared   *DB
	initErr  error
)

// DB owns the physical connection to the embedded engine. Repositories
// hold a shared *DB and serialize their queries through mu; none of them
// keeps a private copy of the handle.
type DB struct {
	mu     sync.Mutex
	conn   *sql.DB
	logger *slog.Logger

	userSchema         schemaOnce
	conversationSchema schemaOnce
}

// Initialize opens the embedded database exactly once per process. The
// (path, namespace, database) triple maps to the file
// <path>/<namespace>/<database>.db. Subsequent calls are no-ops that
// return the outcome of the first attempt. Open failures are fatal and
// wrapped in ErrStorageUnavailable; a local single-writer engine cannot be
// shared with another process, so there is no retry.
func Initialize(path, namespace, database string) error {
	initOnce.Do(func() {
		shared, initErr = Open(path, namespace, database)
	})
	return initErr
}

// Conn returns the shared handle. Calling it before a successful
// Initialize is a programming error and panics rather than handing out a
// nil connection.
func Conn() *DB {
	if shared == nil {
		panic("store: Conn called before Initialize")
	}
	return shared
}

// Open opens a standalone handle without touching the process singleton.
// Tests use it to get isolated databases; production code goes through
// Initialize/Conn.
func Open(path, namespace, database string) (*DB, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Join(path, namespace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating database directory: %v", ErrStorageUnavailable, err)
	}

	file := filepath.Join(dir, database+".db")
	conn, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStorageUnavailable, err)
	}

	// One physical connection. Everything already serializes on db.mu, and
	// a second connection would just contend on the SQLite file lock.
	conn.SetMaxOpenConns(1)

	// WAL mode for better concurrent read performance
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: enabling WAL mode: %v", ErrStorageUnavailable, err)
	}

	// Enforce referential integrity between user/conversation/message
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %v", ErrStorageUnavailable, err)
	}

	logger.Info("database opened", "file", file, "namespace", namespace)
	return &DB{conn: conn, logger: logger}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	db.logger.Info("closing database")
	return db.conn.Close()
}

// schemaOnce runs a schema definition exactly once and makes its error
// sticky, so a failed definition surfaces to every later caller instead of
// only the first.
type schemaOnce struct {
	once sync.Once
	err  error
}

func (s *schemaOnce) do(f func() error) error {
	s.once.Do(func() {
		s.err = f()
	})
	return s.err
}
