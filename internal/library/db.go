// Package library mirrors the user's movie library in a small SQLite
// database: titles keyed by imdb id plus per-user play state. It backs
// the already-in-library filter stage, the watched-removal sweep and
// the played-status sync.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const busyTimeoutMS = 5000

const schema = `
CREATE TABLE IF NOT EXISTS library_items (
	imdb_id    TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS play_states (
	imdb_id   TEXT NOT NULL,
	user      TEXT NOT NULL,
	played    INTEGER NOT NULL DEFAULT 0,
	played_at DATETIME,
	PRIMARY KEY (imdb_id, user)
);
`

// DB represents the library database connection
type DB struct {
	*sqlx.DB
}

// Open creates the library database connection, bootstrapping the
// schema when needed.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for library database: %w", err)
		}
	}

	// WAL mode allows concurrent reads while writing
	dsn := fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=%d", path, busyTimeoutMS)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Warn().Err(err).Msg("Failed to set PRAGMA foreign_keys")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap library schema: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping library database: %w", err)
	}

	log.Debug().Str("path", path).Msg("Library database ready")
	return &DB{db}, nil
}
