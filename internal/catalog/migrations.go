package catalog

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// CurrentVersion is the schema version the migrations converge on. The
// stored version lives in the settings document and is bumped only after
// a migration pass has been persisted, so an interrupted pass simply
// reruns; every migration is a pure rewrite and safe to repeat.
const CurrentVersion = 4

// Migration is a one-time catalog transform gated by a version number.
type Migration struct {
	Version int
	Name    string
	Apply   func([]Item) []Item
}

// Migrations returns the known migrations in ascending version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 3,
			Name:    "rewrite w640 posters to original resolution",
			Apply: func(items []Item) []Item {
				for i := range items {
					if items[i].TmdbID != 0 {
						items[i].Poster = strings.ReplaceAll(items[i].Poster, "/w640/", "/original/")
					}
				}
				return items
			},
		},
		{
			Version: 4,
			Name:    "collapse duplicate imdb ids",
			Apply: func(items []Item) []Item {
				seen := make(map[string]bool, len(items))
				deduped := items[:0:0]
				for _, item := range items {
					if seen[item.ImdbID] {
						continue
					}
					seen[item.ImdbID] = true
					deduped = append(deduped, item)
				}
				return deduped
			},
		},
	}
}

// Migrate applies every migration newer than fromVersion and returns the
// rewritten catalog together with the new version. The second return is
// false when the catalog was already current.
func Migrate(items []Item, fromVersion int) ([]Item, int, bool) {
	version := fromVersion
	migrated := false

	for _, m := range Migrations() {
		if m.Version <= version {
			continue
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Running catalog migration")
		items = m.Apply(items)
		version = m.Version
		migrated = true
	}

	return items, version, migrated
}
