// Package settings owns the persisted, user-mutable settings document:
// filter thresholds, genre toggles, feature flags and the refresh
// high-water mark. The refresh orchestrator is the only writer outside
// of an explicit reset.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// KnownGenres lists every genre category that can be toggled. A genre
// missing from the settings document is treated as allowed.
var KnownGenres = []string{
	"Action", "Adventure", "Animation", "Biography", "Comedy", "Crime",
	"Documentary", "Drama", "Family", "Fantasy", "Film-Noir", "History",
	"Horror", "Music", "Musical", "Mystery", "Romance", "Sci-Fi",
	"Sport", "Thriller", "War", "Western",
}

// Settings is the persisted settings document.
type Settings struct {
	MinimumRating float64 `json:"minimumImdbRating"`
	MinimumVotes  int     `json:"minimumImdbVotes"`
	AgeDays       int     `json:"ageDays"`

	IncludeLibraryItems bool `json:"addItemsAlreadyInLibrary"`
	HidePlayed          bool `json:"hidePlayedMovies"`
	EnableNotifications bool `json:"enableNewReleaseNotification"`

	// Genres maps a genre category to whether it is allowed. Genres not
	// present default to allowed.
	Genres map[string]bool `json:"genres"`

	InstallationID string `json:"installationId"`

	// RefreshVersion gates the one-time catalog migrations. Bumped only
	// after a migration pass has been persisted.
	RefreshVersion int `json:"refreshVersion"`

	// LastPublishDate is the refresh high-water mark: the newest feed
	// publish timestamp already processed.
	LastPublishDate time.Time `json:"lastPublishDate"`
}

// Defaults returns a settings document with the stock thresholds.
func Defaults() *Settings {
	genres := make(map[string]bool, len(KnownGenres))
	for _, g := range KnownGenres {
		genres[g] = true
	}
	return &Settings{
		MinimumRating:       7.0,
		MinimumVotes:        1000,
		AgeDays:             365,
		IncludeLibraryItems: true,
		HidePlayed:          false,
		EnableNotifications: true,
		Genres:              genres,
	}
}

// GenreExcludeList returns the genres toggled off, i.e. the deny set the
// filter chain checks the primary genre against.
func (s *Settings) GenreExcludeList() map[string]bool {
	excluded := make(map[string]bool)
	for genre, allowed := range s.Genres {
		if !allowed {
			excluded[genre] = true
		}
	}
	return excluded
}

// Store loads and saves the settings document.
type Store struct {
	path string
}

// NewStore creates a settings store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (st *Store) Path() string {
	return st.path
}

// Load reads the settings document. An absent file yields defaults. The
// installation identifier is generated on first load and written back,
// so every subsequent read observes the same id.
func (st *Store) Load() (*Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(st.path)
	switch {
	case os.IsNotExist(err):
		// First run, keep defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to read settings %s: %w", st.path, err)
	default:
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings %s: %w", st.path, err)
		}
	}

	if s.InstallationID == "" {
		s.InstallationID = uuid.NewString()
		if err := st.Save(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Save writes the settings document. The write goes through a temp file
// and rename so a reader never observes a partial document.
func (st *Store) Save(s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
