package config

// Constants defining default values for application configuration
const (
	DefaultDataDir       = "./data"
	DefaultLibraryDBPath = "./data/library.db"

	DefaultFeedURL = "http://www.blu-ray.com/rss/newreleasesfeed.xml"

	DefaultOMDbBaseURL = "https://www.omdbapi.com"
	DefaultOMDbAPIKey  = "fe53f97e"

	DefaultTMDBBaseURL      = "https://api.themoviedb.org/3"
	DefaultTMDBAPIKey       = "3e97b8d1c00a0f2fe72054febe695276"
	DefaultTMDBImageBaseURL = "https://image.tmdb.org/t/p/original"

	DefaultTrackingURL = "https://www.google-analytics.com/collect"

	// Cron specs for the daemon's scheduled operations.
	DefaultRefreshSpec       = "@every 4h"
	DefaultRemoveWatchedSpec = "@every 12h"
	DefaultSyncPlayedSpec    = "@every 1h"

	DefaultHTTPTimeoutSeconds = 30

	DefaultLogLevel = "debug"
)
