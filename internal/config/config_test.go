package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGetEnvString(t *testing.T) {
	t.Setenv("BLURN_TEST_STRING", "custom")
	if got := GetEnvString("BLURN_TEST_STRING", "fallback"); got != "custom" {
		t.Errorf("expected custom, got %q", got)
	}
	if got := GetEnvString("BLURN_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("BLURN_TEST_INT", "42")
	if got := GetEnvInt("BLURN_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("BLURN_TEST_INT", "not a number")
	if got := GetEnvInt("BLURN_TEST_INT", 7); got != 7 {
		t.Errorf("expected the default for garbage input, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("BLURN_TEST_BOOL", "true")
	if !GetEnvBool("BLURN_TEST_BOOL", false) {
		t.Error("expected true")
	}
	t.Setenv("BLURN_TEST_BOOL", "banana")
	if GetEnvBool("BLURN_TEST_BOOL", false) {
		t.Error("expected the default for garbage input")
	}
}

func TestGetEnvLogLevel(t *testing.T) {
	t.Setenv("BLURN_TEST_LEVEL", "warn")
	if got := GetEnvLogLevel("BLURN_TEST_LEVEL", zerolog.DebugLevel); got != zerolog.WarnLevel {
		t.Errorf("expected warn, got %s", got)
	}
	t.Setenv("BLURN_TEST_LEVEL", "loud")
	if got := GetEnvLogLevel("BLURN_TEST_LEVEL", zerolog.DebugLevel); got != zerolog.DebugLevel {
		t.Errorf("expected the default for an unknown level, got %s", got)
	}
}

func TestDefaultConfigPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/blurn"

	if got := cfg.SettingsPath(); got != filepath.Join("/var/lib/blurn", "blurn.settings.json") {
		t.Errorf("unexpected settings path %q", got)
	}
	if got := cfg.LockPath(); got != filepath.Join("/var/lib/blurn", "blurn.lock") {
		t.Errorf("unexpected lock path %q", got)
	}
}

func TestDefaultConfigEnvOverrides(t *testing.T) {
	t.Setenv("BLURN_OMDB_API_KEY", "override-key")
	t.Setenv("BLURN_NTFY_TOPIC", "https://ntfy.sh/blurn-test")
	t.Setenv("BLURN_LOG_LEVEL", "warn")
	t.Setenv("BLURN_HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("BLURN_REFRESH_SPEC", "@every 30m")

	cfg := DefaultConfig()
	if cfg.OMDbAPIKey != "override-key" {
		t.Errorf("expected the env api key, got %q", cfg.OMDbAPIKey)
	}
	if cfg.NtfyTopic != "https://ntfy.sh/blurn-test" {
		t.Errorf("expected the env ntfy topic, got %q", cfg.NtfyTopic)
	}
	if cfg.LogLevel != zerolog.WarnLevel {
		t.Errorf("expected the env log level, got %s", cfg.LogLevel)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("expected a 5s timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.RefreshSpec != "@every 30m" {
		t.Errorf("expected the env refresh spec, got %q", cfg.RefreshSpec)
	}
	if cfg.RemoveWatchedSpec != DefaultRemoveWatchedSpec {
		t.Errorf("expected the stock sweep spec, got %q", cfg.RemoveWatchedSpec)
	}
}

func TestDefaultConfigTrackingOptOut(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TrackingURL != DefaultTrackingURL {
		t.Errorf("expected tracking enabled by default, got %q", cfg.TrackingURL)
	}

	t.Setenv("BLURN_TRACKING_DISABLED", "true")
	cfg = DefaultConfig()
	if cfg.TrackingURL != "" {
		t.Errorf("expected tracking disabled via env, got %q", cfg.TrackingURL)
	}
}
