package library

import (
	"context"
	"fmt"
	"time"
)

// Item represents a row in the library_items table
type Item struct {
	ImdbID    string    `db:"imdb_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

// InsertItem adds a movie to the library mirror.
func (db *DB) InsertItem(ctx context.Context, imdbID, title string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO library_items (imdb_id, title)
		VALUES (?, ?)
		ON CONFLICT(imdb_id) DO UPDATE SET title = excluded.title`,
		imdbID, title)
	if err != nil {
		return fmt.Errorf("failed to insert library item %s: %w", imdbID, err)
	}
	return nil
}

// AddUser registers a library user. Existing users are left untouched.
func (db *DB) AddUser(ctx context.Context, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("failed to add user %s: %w", name, err)
	}
	return nil
}

// ImdbIDSet returns the set of imdb ids present in the library.
func (db *DB) ImdbIDSet(ctx context.Context) (map[string]bool, error) {
	var ids []string
	if err := db.SelectContext(ctx, &ids, "SELECT imdb_id FROM library_items"); err != nil {
		return nil, fmt.Errorf("failed to load library ids: %w", err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// WatchedByAll returns the ids of library items every registered user
// has played. With no registered users the set is empty.
func (db *DB) WatchedByAll(ctx context.Context) (map[string]bool, error) {
	var ids []string
	err := db.SelectContext(ctx, &ids, `
		SELECT li.imdb_id
		FROM library_items li
		WHERE (SELECT COUNT(*) FROM users) > 0
		  AND NOT EXISTS (
			SELECT 1 FROM users u
			WHERE NOT EXISTS (
				SELECT 1 FROM play_states ps
				WHERE ps.imdb_id = li.imdb_id
				  AND ps.user = u.name
				  AND ps.played = 1
			)
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to load watched ids: %w", err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// MarkPlayed records that a user has played a library item. Re-marking
// is a no-op apart from the timestamp, so syncs can repeat safely.
func (db *DB) MarkPlayed(ctx context.Context, imdbID, user string, playedAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO play_states (imdb_id, user, played, played_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(imdb_id, user) DO UPDATE SET played = 1, played_at = excluded.played_at`,
		imdbID, user, playedAt)
	if err != nil {
		return fmt.Errorf("failed to mark %s played for %s: %w", imdbID, user, err)
	}
	return nil
}

// HasItem reports whether the imdb id exists in the library.
func (db *DB) HasItem(ctx context.Context, imdbID string) (bool, error) {
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM library_items WHERE imdb_id = ?", imdbID); err != nil {
		return false, fmt.Errorf("failed to check library item %s: %w", imdbID, err)
	}
	return n > 0, nil
}
