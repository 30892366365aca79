package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"blurn/internal/catalog"
	"blurn/internal/config"
	"blurn/internal/feed"
	"blurn/internal/library"
	"blurn/internal/notify"
	"blurn/internal/omdb"
	"blurn/internal/refresh"
	"blurn/internal/scheduler"
	"blurn/internal/settings"
	"blurn/internal/tmdb"
	"blurn/internal/tracking"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

const usage = `Usage: blurn [command] [options]
Commands: refresh, daemon, import-library, remove-watched, sync-played, reset

For command-specific options, use: blurn [command] -h`

func main() {
	cfg := config.DefaultConfig()

	newFlagSet := func(name string) (*flag.FlagSet, *string) {
		fs := flag.NewFlagSet(name, flag.ExitOnError)
		fs.StringVar(&cfg.DataDir, "data", config.GetEnvString("BLURN_DATA_DIR", config.DefaultDataDir),
			"Directory holding the catalog, failed queue and settings files (env: BLURN_DATA_DIR)")
		fs.StringVar(&cfg.LibraryDBPath, "library-db", config.GetEnvString("BLURN_LIBRARY_DB", config.DefaultLibraryDBPath),
			"Path to the library mirror SQLite database (env: BLURN_LIBRARY_DB)")
		fs.StringVar(&cfg.FeedURL, "feed-url", config.GetEnvString("BLURN_FEED_URL", config.DefaultFeedURL),
			"Blu-Ray new releases RSS feed URL (env: BLURN_FEED_URL)")
		fs.StringVar(&cfg.NtfyTopic, "ntfy-topic", cfg.NtfyTopic,
			"ntfy topic URL for new-release notifications, empty to disable (env: BLURN_NTFY_TOPIC)")

		logLevelStr := fs.String("log-level", config.GetEnvString("BLURN_LOG_LEVEL", config.DefaultLogLevel),
			"Log level: debug, info, warn, error (env: BLURN_LOG_LEVEL)")
		return fs, logLevelStr
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	run := func(fs *flag.FlagSet, logLevelStr *string, fn func(*config.Config) error) {
		fs.Parse(os.Args[2:])
		if level, err := zerolog.ParseLevel(*logLevelStr); err == nil {
			cfg.LogLevel = level
		}
		zerolog.SetGlobalLevel(cfg.LogLevel)

		if err := fn(cfg); err != nil {
			log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
			os.Exit(1)
		}
	}

	switch os.Args[1] {
	case "refresh":
		fs, logLevelStr := newFlagSet("refresh")
		run(fs, logLevelStr, runRefresh)

	case "daemon":
		fs, logLevelStr := newFlagSet("daemon")
		fs.StringVar(&cfg.RefreshSpec, "refresh-spec", cfg.RefreshSpec, "Cron spec for the refresh job (env: BLURN_REFRESH_SPEC)")
		fs.StringVar(&cfg.RemoveWatchedSpec, "remove-watched-spec", cfg.RemoveWatchedSpec, "Cron spec for the watched-removal sweep (env: BLURN_REMOVE_WATCHED_SPEC)")
		fs.StringVar(&cfg.SyncPlayedSpec, "sync-played-spec", cfg.SyncPlayedSpec, "Cron spec for the played-status sync (env: BLURN_SYNC_PLAYED_SPEC)")
		run(fs, logLevelStr, runDaemon)

	case "import-library":
		fs, logLevelStr := newFlagSet("import-library")
		csvPath := fs.String("csv", config.GetEnvString("BLURN_LIBRARY_CSV", ""), "Path to the library CSV export (env: BLURN_LIBRARY_CSV)")
		run(fs, logLevelStr, func(cfg *config.Config) error {
			return runImportLibrary(cfg, *csvPath)
		})

	case "remove-watched":
		fs, logLevelStr := newFlagSet("remove-watched")
		run(fs, logLevelStr, runRemoveWatched)

	case "sync-played":
		fs, logLevelStr := newFlagSet("sync-played")
		run(fs, logLevelStr, runSyncPlayed)

	case "reset":
		fs, logLevelStr := newFlagSet("reset")
		run(fs, logLevelStr, runReset)

	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

// pipeline bundles the wired collaborators shared by the commands.
type pipeline struct {
	orchestrator *refresh.Orchestrator
	store        *catalog.Store
	settings     *settings.Store
	library      *library.DB
	tracker      *tracking.Tracker
	lock         *refresh.RunLock
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	settingsStore := settings.NewStore(cfg.SettingsPath())
	current, err := settingsStore.Load()
	if err != nil {
		return nil, err
	}

	store := catalog.NewStore(cfg.DataDir)

	lib, err := library.Open(cfg.LibraryDBPath)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	omdbClient, err := omdb.New(cfg.OMDbAPIKey, cfg.OMDbBaseURL, omdb.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	tmdbClient, err := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBBaseURL, cfg.TMDBImageBaseURL, tmdb.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	tracker := tracking.New(cfg.TrackingURL, current.InstallationID)

	orchestrator := refresh.New(
		feed.NewSource(cfg.FeedURL, feed.WithHTTPClient(httpClient)),
		omdbClient,
		tmdbClient,
		store,
		settingsStore,
		refresh.WithLibrary(lib),
		refresh.WithNotifier(notify.NewNotifier(cfg.NtfyTopic)),
		refresh.WithTracker(tracker),
		refresh.WithProgress(func(done, total int) {
			log.Debug().Int("done", done).Int("total", total).Msg("Refresh progress")
		}),
	)

	return &pipeline{
		orchestrator: orchestrator,
		store:        store,
		settings:     settingsStore,
		library:      lib,
		tracker:      tracker,
		lock:         refresh.NewRunLock(cfg.LockPath()),
	}, nil
}

func (p *pipeline) close() {
	if err := p.library.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close library database")
	}
}

// withLock runs fn while holding the run-in-progress lock.
func (p *pipeline) withLock(fn func() error) error {
	if err := p.lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := p.lock.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()
	return fn()
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()
	return ctx, cancel
}

// runRefresh executes a single refresh run.
func runRefresh(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, cancel := signalContext()
	defer cancel()

	return p.withLock(func() error {
		report, err := p.orchestrator.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Refresh canceled, catalog untouched")
				return nil
			}
			return err
		}
		log.Info().
			Int("candidates", report.Candidates).
			Int("accepted", report.Accepted).
			Int("rejected", report.Rejected).
			Int("failed", report.Failed).
			Msg("Refresh run complete")
		return nil
	})
}

// runDaemon schedules refresh, watched-removal and played-sync on their
// cron specs until interrupted.
func runDaemon(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	// Held for the daemon's lifetime; one-shot commands in another
	// process fail fast instead of interleaving with scheduled runs.
	if err := p.lock.Acquire(); err != nil {
		return err
	}
	defer p.lock.Release()

	ctx, cancel := signalContext()
	defer cancel()

	sched := scheduler.New(
		scheduler.Job{Name: "refresh", Spec: cfg.RefreshSpec, Run: func(ctx context.Context) error {
			_, err := p.orchestrator.Run(ctx)
			return err
		}},
		scheduler.Job{Name: "remove-watched", Spec: cfg.RemoveWatchedSpec, Run: func(ctx context.Context) error {
			p.tracker.Track("removewatched", "start")
			_, err := refresh.RemoveWatched(ctx, p.store, p.library)
			if err == nil {
				p.tracker.Track("removewatched", "end")
			}
			return err
		}},
		scheduler.Job{Name: "sync-played", Spec: cfg.SyncPlayedSpec, Run: func(ctx context.Context) error {
			p.tracker.Track("syncplayed", "start")
			_, err := refresh.SyncPlayed(ctx, p.store, p.library)
			if err == nil {
				p.tracker.Track("syncplayed", "end")
			}
			return err
		}},
	)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	sched.Stop()
	return nil
}

func runImportLibrary(cfg *config.Config, csvPath string) error {
	if csvPath == "" {
		return fmt.Errorf("a library CSV path is required (-csv)")
	}

	lib, err := library.Open(cfg.LibraryDBPath)
	if err != nil {
		return err
	}
	defer lib.Close()

	return library.NewImporter(lib).ImportCSV(context.Background(), csvPath)
}

func runRemoveWatched(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, cancel := signalContext()
	defer cancel()

	return p.withLock(func() error {
		p.tracker.Track("removewatched", "start")
		removed, err := refresh.RemoveWatched(ctx, p.store, p.library)
		if err != nil {
			return err
		}
		p.tracker.Track("removewatched", "end")
		log.Info().Int("removed", removed).Msg("Watched-removal sweep complete")
		return nil
	})
}

func runSyncPlayed(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, cancel := signalContext()
	defer cancel()

	return p.withLock(func() error {
		p.tracker.Track("syncplayed", "start")
		synced, err := refresh.SyncPlayed(ctx, p.store, p.library)
		if err != nil {
			return err
		}
		p.tracker.Track("syncplayed", "end")
		log.Info().Int("synced", synced).Msg("Played-status sync complete")
		return nil
	})
}

func runReset(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	return p.withLock(func() error {
		return refresh.Reset(p.store, p.settings)
	})
}
