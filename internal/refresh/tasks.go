package refresh

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"blurn/internal/catalog"
	"blurn/internal/settings"
)

// RemoveWatched sweeps the catalog, removing items that every library
// user has played. The catalog file is rewritten only when something
// was removed, so re-running the sweep is a no-op.
func RemoveWatched(ctx context.Context, store *catalog.Store, lib Library) (int, error) {
	watched, err := lib.WatchedByAll(ctx)
	if err != nil {
		return 0, err
	}
	log.Debug().Int("watched", len(watched)).Msg("Watched movie count")
	if len(watched) == 0 {
		return 0, nil
	}

	removed, err := store.RemoveWhere(func(item *catalog.Item) bool {
		return watched[item.ImdbID]
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Removed watched movies from catalog")
	}
	return removed, nil
}

// SyncPlayed copies the catalog-side play marks recorded by the listing
// consumer onto the library mirror. Marks for titles not in the library
// are skipped; re-running the sync is idempotent.
func SyncPlayed(ctx context.Context, store *catalog.Store, lib Library) (int, error) {
	states, err := store.LoadPlayStates()
	if err != nil {
		return 0, err
	}
	if len(states) == 0 {
		return 0, nil
	}

	libraryIDs, err := lib.ImdbIDSet(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if !libraryIDs[state.ImdbID] {
			continue
		}
		playedAt := state.PlayedAt
		if playedAt.IsZero() {
			playedAt = time.Now()
		}
		if err := lib.MarkPlayed(ctx, state.ImdbID, state.User, playedAt); err != nil {
			return synced, err
		}
		log.Debug().Str("imdb_id", state.ImdbID).Str("user", state.User).Msg("Marked as watched in movie library")
		synced++
	}
	return synced, nil
}

// Reset truncates the catalog and the failed-lookup queue and rewinds
// the high-water mark to the epoch. Thresholds and the installation id
// are retained.
func Reset(store *catalog.Store, settingsStore *settings.Store) error {
	if err := store.Reset(); err != nil {
		return err
	}

	cfg, err := settingsStore.Load()
	if err != nil {
		return err
	}
	cfg.LastPublishDate = time.Time{}
	if err := settingsStore.Save(cfg); err != nil {
		return err
	}

	log.Info().Msg("Catalog reset, settings retained")
	return nil
}
