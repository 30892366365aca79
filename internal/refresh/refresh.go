// Package refresh coordinates the ingestion pipeline: pull the release
// feed, carry forward unresolved lookups, enrich, filter, merge into the
// catalog, persist and advance the high-water mark. A run is strictly
// sequential; the metadata providers are rate-limit-sensitive and the
// candidate order is contractual.
package refresh

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"blurn/internal/catalog"
	"blurn/internal/feed"
	"blurn/internal/filter"
	"blurn/internal/notify"
	"blurn/internal/omdb"
	"blurn/internal/settings"
	"blurn/internal/tmdb"
	"blurn/internal/tracking"
)

// FeedSource produces the raw candidate entries.
type FeedSource interface {
	Fetch(ctx context.Context) ([]feed.Entry, error)
}

// MetadataClient resolves a candidate to a catalog item.
type MetadataClient interface {
	Lookup(ctx context.Context, title string, year int, sourceDate time.Time) (*catalog.Item, error)
}

// PosterSource is the secondary id/poster enrichment.
type PosterSource interface {
	FindByImdbID(ctx context.Context, imdbID string) (*tmdb.Find, error)
}

// Library is the user's media-library mirror as the pipeline sees it.
type Library interface {
	ImdbIDSet(ctx context.Context) (map[string]bool, error)
	WatchedByAll(ctx context.Context) (map[string]bool, error)
	MarkPlayed(ctx context.Context, imdbID, user string, playedAt time.Time) error
}

// yearHintPattern extracts the year from a feed entry description; the
// last "| YYYY |" token wins.
var yearHintPattern = regexp.MustCompile(`\| (\d{4}) \|`)

// Orchestrator runs the refresh pipeline over injected collaborators.
type Orchestrator struct {
	feed     FeedSource
	metadata MetadataClient
	posters  PosterSource
	store    *catalog.Store
	settings *settings.Store

	library  Library
	notifier notify.Notifier
	tracker  *tracking.Tracker
	progress func(done, total int)
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLibrary attaches the library mirror.
func WithLibrary(lib Library) Option {
	return func(o *Orchestrator) { o.library = lib }
}

// WithNotifier overrides the noop notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithTracker attaches the usage beacon.
func WithTracker(t *tracking.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithProgress installs a per-candidate progress callback.
func WithProgress(fn func(done, total int)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.progress = fn
		}
	}
}

// WithClock overrides the time source used for the age cutoff.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a refresh orchestrator.
func New(src FeedSource, metadata MetadataClient, posters PosterSource, store *catalog.Store, settingsStore *settings.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		feed:     src,
		metadata: metadata,
		posters:  posters,
		store:    store,
		settings: settingsStore,
		notifier: notify.NewNotifier(""),
		progress: func(done, total int) {},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Report summarizes a refresh run.
type Report struct {
	FeedEntries int
	Candidates  int
	Accepted    int
	Rejected    int
	Failed      int
}

// candidate is a feed entry or a carried-forward failure awaiting
// enrichment.
type candidate struct {
	title       string
	year        int
	description string
	published   time.Time
	carried     bool
}

// Run executes one refresh. A feed fetch failure aborts with zero side
// effects; individual lookup failures are queued for the next run. On
// cancellation the persisted catalog is left exactly as it was.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.tracker.Track("refresh", "start")

	entries, err := o.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := o.settings.Load()
	if err != nil {
		return nil, err
	}

	existing, err := o.store.LoadCatalog()
	if err != nil {
		return nil, err
	}

	existing, err = o.runPendingMigrations(existing, cfg)
	if err != nil {
		return nil, err
	}

	candidates, err := o.collectCandidates(entries, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("feed_entries", len(entries)).
		Int("candidates", len(candidates)).
		Time("high_water_mark", cfg.LastPublishDate).
		Msg("Checking new candidates")

	fctx, err := o.buildFilterContext(ctx, cfg)
	if err != nil {
		return nil, err
	}

	report := &Report{FeedEntries: len(entries), Candidates: len(candidates)}
	var accepted []catalog.Item
	var nextFailed []catalog.FailedLookup

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.progress(i+1, len(candidates))

		item, err := o.metadata.Lookup(ctx, cand.title, cand.year, cand.published)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var lookupErr *omdb.LookupError
			if errors.As(err, &lookupErr) {
				log.Debug().Str("title", cand.title).Int("year", cand.year).Err(err).
					Msg("Adding candidate to failed list")
				nextFailed = append(nextFailed, catalog.FailedLookup{Title: cand.title, Year: cand.year})
				report.Failed++
				continue
			}
			return nil, err
		}

		result := filter.Apply(item, fctx)
		if !result.Accepted {
			log.Debug().
				Str("stage", result.Stage).
				Str("imdb_id", item.ImdbID).
				Msg(result.Reason)
			report.Rejected++
			continue
		}

		o.enrich(ctx, item)
		fctx.BatchIDs[item.ImdbID] = true
		accepted = append(accepted, *item)
		report.Accepted++
		log.Debug().Str("imdb_id", item.ImdbID).Str("title", item.Title).Msg("Adding item to the catalog")

		if cfg.EnableNotifications {
			if err := o.notifier.NotifyNewRelease(ctx, item); err != nil {
				log.Warn().Err(err).Str("title", item.Title).Msg("Failed to send new-release notification")
			}
		}
	}

	// Backfill the secondary id and poster for legacy records.
	for i := range existing {
		if existing[i].TmdbID == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			o.enrich(ctx, &existing[i])
		}
	}

	merged := catalog.Merge(accepted, existing)
	if err := o.store.Persist(merged, nextFailed); err != nil {
		return nil, err
	}

	// A quiet feed still advances the mark so it is not reprocessed.
	if len(entries) > 0 {
		cfg.LastPublishDate = entries[0].Published
		if err := o.settings.Save(cfg); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("accepted", report.Accepted).
		Int("rejected", report.Rejected).
		Int("failed", report.Failed).
		Int("catalog_size", len(merged)).
		Msg("Refresh finished")

	o.tracker.Track("refresh", "end")
	return report, nil
}

// runPendingMigrations applies the one-time catalog rewrites and bumps
// the stored version only after the rewritten catalog has been
// persisted, so an interrupted pass reruns harmlessly.
func (o *Orchestrator) runPendingMigrations(items []catalog.Item, cfg *settings.Settings) ([]catalog.Item, error) {
	if cfg.RefreshVersion >= catalog.CurrentVersion {
		return items, nil
	}

	migrated, version, changed := catalog.Migrate(items, cfg.RefreshVersion)
	if changed {
		if err := o.store.PersistCatalog(migrated); err != nil {
			return nil, err
		}
	}
	cfg.RefreshVersion = version
	if err := o.settings.Save(cfg); err != nil {
		return nil, err
	}
	return migrated, nil
}

// collectCandidates keeps entries newer than the high-water mark, one
// representative per (title, publish date) group, reversed to process
// oldest first, and appends the previous run's failed lookups so every
// refresh retries them exactly once.
func (o *Orchestrator) collectCandidates(entries []feed.Entry, cfg *settings.Settings) ([]candidate, error) {
	type groupKey struct {
		title     string
		published string
	}
	seen := make(map[groupKey]bool)

	var fresh []candidate
	for _, entry := range entries {
		if !entry.Published.After(cfg.LastPublishDate) {
			continue
		}
		key := groupKey{entry.Title, entry.Published.Format(time.RFC3339)}
		if seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, candidate{
			title:       entry.Title,
			year:        extractYearHint(entry.Description),
			description: entry.Description,
			published:   entry.Published,
		})
	}

	// The feed is newest-first; process oldest-unseen-first.
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}

	failed, err := o.store.LoadFailed()
	if err != nil {
		return nil, err
	}
	for _, f := range failed {
		fresh = append(fresh, candidate{title: f.Title, year: f.Year, carried: true})
	}
	return fresh, nil
}

func (o *Orchestrator) buildFilterContext(ctx context.Context, cfg *settings.Settings) (*filter.Context, error) {
	libraryIDs := map[string]bool{}
	if !cfg.IncludeLibraryItems && o.library != nil {
		var err error
		libraryIDs, err = o.library.ImdbIDSet(ctx)
		if err != nil {
			return nil, err
		}
	}

	today := o.now().Truncate(24 * time.Hour)
	return &filter.Context{
		BatchIDs:            map[string]bool{},
		LibraryIDs:          libraryIDs,
		IncludeLibraryItems: cfg.IncludeLibraryItems,
		ExcludedGenres:      cfg.GenreExcludeList(),
		MinimumRating:       cfg.MinimumRating,
		MinimumVotes:        cfg.MinimumVotes,
		AgeDays:             cfg.AgeDays,
		Cutoff:              today.AddDate(0, 0, -cfg.AgeDays),
	}, nil
}

// enrich attaches the secondary id and original-resolution poster. A
// missing poster is never a reason to drop an item, so failures are
// only logged.
func (o *Orchestrator) enrich(ctx context.Context, item *catalog.Item) {
	if o.posters == nil {
		return
	}
	found, err := o.posters.FindByImdbID(ctx, item.ImdbID)
	if err != nil {
		log.Debug().Err(err).Str("imdb_id", item.ImdbID).Msg("Poster enrichment failed")
		return
	}
	item.TmdbID = found.TmdbID
	item.Poster = found.PosterURL
}

// extractYearHint pulls the year from a description; the last
// "| YYYY |" token wins. Zero means no hint.
func extractYearHint(description string) int {
	matches := yearHintPattern.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return 0
	}
	year, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0
	}
	return year
}
