package config

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the static process configuration. Mutable state (filter
// thresholds, high-water mark) lives in the persisted settings document,
// not here.
type Config struct {
	// File paths
	DataDir       string
	LibraryDBPath string

	// Upstream endpoints
	FeedURL          string
	OMDbBaseURL      string
	OMDbAPIKey       string
	TMDBBaseURL      string
	TMDBAPIKey       string
	TMDBImageBaseURL string

	// Outbound side effects
	NtfyTopic   string
	TrackingURL string

	// Daemon scheduling
	RefreshSpec       string
	RemoveWatchedSpec string
	SyncPlayedSpec    string

	HTTPTimeout time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration from hardcoded defaults
// and BLURN_* environment overrides.
func DefaultConfig() *Config {
	defaultLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	trackingURL := DefaultTrackingURL
	if GetEnvBool("BLURN_TRACKING_DISABLED", false) {
		trackingURL = ""
	}

	return &Config{
		DataDir:           DefaultDataDir,
		LibraryDBPath:     DefaultLibraryDBPath,
		FeedURL:           DefaultFeedURL,
		OMDbBaseURL:       DefaultOMDbBaseURL,
		OMDbAPIKey:        GetEnvString("BLURN_OMDB_API_KEY", DefaultOMDbAPIKey),
		TMDBBaseURL:       DefaultTMDBBaseURL,
		TMDBAPIKey:        GetEnvString("BLURN_TMDB_API_KEY", DefaultTMDBAPIKey),
		TMDBImageBaseURL:  DefaultTMDBImageBaseURL,
		NtfyTopic:         GetEnvString("BLURN_NTFY_TOPIC", ""),
		TrackingURL:       trackingURL,
		RefreshSpec:       GetEnvString("BLURN_REFRESH_SPEC", DefaultRefreshSpec),
		RemoveWatchedSpec: GetEnvString("BLURN_REMOVE_WATCHED_SPEC", DefaultRemoveWatchedSpec),
		SyncPlayedSpec:    GetEnvString("BLURN_SYNC_PLAYED_SPEC", DefaultSyncPlayedSpec),
		HTTPTimeout:       time.Duration(GetEnvInt("BLURN_HTTP_TIMEOUT_SECONDS", DefaultHTTPTimeoutSeconds)) * time.Second,
		LogLevel:          GetEnvLogLevel("BLURN_LOG_LEVEL", defaultLevel),
	}
}

// SettingsPath returns the path of the persisted settings document.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "blurn.settings.json")
}

// LockPath returns the path of the run-in-progress lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "blurn.lock")
}
