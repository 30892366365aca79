package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	dataFileName      = "blurn.data.json"
	failedFileName    = "blurn.failed.json"
	playStateFileName = "blurn.playstate.json"
)

// Store persists the catalog and the failed-lookup queue as JSON array
// files under the data directory. There is no locking here: callers
// serialize operations against the same data directory.
type Store struct {
	dataPath      string
	failedPath    string
	playStatePath string
}

// NewStore creates a store rooted at the given data directory.
func NewStore(dataDir string) *Store {
	return &Store{
		dataPath:      filepath.Join(dataDir, dataFileName),
		failedPath:    filepath.Join(dataDir, failedFileName),
		playStatePath: filepath.Join(dataDir, playStateFileName),
	}
}

// DataPath returns the catalog file location.
func (s *Store) DataPath() string { return s.dataPath }

// FailedPath returns the failed-lookup queue file location.
func (s *Store) FailedPath() string { return s.failedPath }

// LoadCatalog reads the persisted catalog. An absent file means an
// empty catalog, not an error.
func (s *Store) LoadCatalog() ([]Item, error) {
	var items []Item
	if err := readJSONFile(s.dataPath, &items); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return items, nil
}

// LoadFailed reads the failed-lookup queue. An absent file means an
// empty queue.
func (s *Store) LoadFailed() ([]FailedLookup, error) {
	var failed []FailedLookup
	if err := readJSONFile(s.failedPath, &failed); err != nil {
		return nil, fmt.Errorf("failed to load failed-lookup queue: %w", err)
	}
	return failed, nil
}

// LoadPlayStates reads the play-state file maintained by the listing
// consumer. Absent file means no marks.
func (s *Store) LoadPlayStates() ([]PlayState, error) {
	var states []PlayState
	if err := readJSONFile(s.playStatePath, &states); err != nil {
		return nil, fmt.Errorf("failed to load play states: %w", err)
	}
	return states, nil
}

// Persist writes the catalog and the failed-lookup queue. Each file is
// written whole through a temp file and rename; last write wins.
func (s *Store) Persist(items []Item, failed []FailedLookup) error {
	if err := s.PersistCatalog(items); err != nil {
		return err
	}
	if failed == nil {
		failed = []FailedLookup{}
	}
	if err := writeJSONFile(s.failedPath, failed); err != nil {
		return fmt.Errorf("failed to persist failed-lookup queue: %w", err)
	}
	return nil
}

// PersistCatalog writes just the catalog file.
func (s *Store) PersistCatalog(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	if err := writeJSONFile(s.dataPath, items); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	return nil
}

// RemoveWhere deletes catalog items matching the predicate and persists
// the catalog only when at least one item was removed. It returns the
// number of removed items.
func (s *Store) RemoveWhere(pred func(*Item) bool) (int, error) {
	items, err := s.LoadCatalog()
	if err != nil {
		return 0, err
	}

	kept := items[:0:0]
	removed := 0
	for _, item := range items {
		if pred(&item) {
			removed++
			log.Debug().Str("imdb_id", item.ImdbID).Str("title", item.Title).Msg("Removing catalog item")
			continue
		}
		kept = append(kept, item)
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.PersistCatalog(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Reset truncates the catalog and the failed-lookup queue to empty
// arrays. Settings are untouched.
func (s *Store) Reset() error {
	return s.Persist([]Item{}, []FailedLookup{})
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
