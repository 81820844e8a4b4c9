// Package sqlite implements the repository interfaces on SQLite.
//
// We use modernc.org/sqlite, a pure-Go translation of the SQLite C
// sources: no CGo, no C compiler, trivial cross-compilation. The blank
// import below registers it with database/sql as the "sqlite" driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mraihan/quicknotes/internal/apperror"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both repository
// interfaces. The server owns its lifecycle: New opens and migrates,
// Close flushes the WAL and releases the file lock on shutdown.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection; if the
	// pool opened a second one it would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Force an immediate connection so a bad path or permissions issue
	// surfaces here rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in flight —
	// default SQLite locks the whole file during writes, which is a
	// problem for a server handling requests concurrently.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default for backwards compatibility;
	// notes reference users, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this
// idempotent across restarts.
//
// Uniqueness invariants live here, not in application code:
//   - username and email are UNIQUE across all users
//   - google_id is UNIQUE but nullable; SQLite treats NULLs as distinct
//     in unique indexes, so any number of local-only accounts (google_id
//     NULL) can coexist while no two accounts share a google_id
//
// These constraints are the backstop for the concurrent-signup race:
// when two requests both pass the "not found" checks and race to insert
// the same email, the loser gets a UNIQUE violation rather than a
// duplicate row.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT,
			google_id     TEXT UNIQUE,
			avatar_url    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			tags       TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);
		CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating notes table: %w", err)
	}

	return nil
}

// conflictError translates a SQLite UNIQUE violation into the
// apperror.Conflict the service layer expects, naming the colliding
// field. modernc.org/sqlite reports violations as
// "UNIQUE constraint failed: users.email"; anything else passes through
// unchanged.
func conflictError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email", "user already exists with that email")
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username", "user already exists with that username")
	case strings.Contains(msg, "users.google_id"):
		return apperror.Conflict("googleId", "user already exists with that Google account")
	}
	return apperror.Conflict("", "record conflicts with an existing one")
}
