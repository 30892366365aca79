// Package tracking sends the best-effort usage beacon fired at the
// start and end of each scheduled operation. The call runs on a
// detached goroutine with its own error boundary so a beacon failure
// can never propagate into or block the pipeline.
package tracking

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const appVersion = "1.0.0"

// Tracker posts usage events. A zero endpoint disables it.
type Tracker struct {
	endpoint       string
	installationID string
	client         *http.Client
}

// New creates a tracker. installationID is the persisted per-install
// identifier from the settings document.
func New(endpoint, installationID string) *Tracker {
	return &Tracker{
		endpoint:       strings.TrimSpace(endpoint),
		installationID: installationID,
		client:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Track fires one beacon for the given task ("refresh", "removewatched",
// ...) and session control ("start" or "end"). It returns immediately;
// delivery happens in the background and failures are only logged.
func (t *Tracker) Track(task, sessionControl string) {
	if t == nil || t.endpoint == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		values := url.Values{
			"v":   {"1"},
			"t":   {"event"},
			"cid": {t.installationID},
			"ec":  {task},
			"ea":  {appVersion},
			"an":  {"BlurN"},
			"av":  {appVersion},
			"ds":  {"app"},
			"sc":  {sessionControl},
			"z":   {strconv.Itoa(rand.Intn(2147483646) + 1)},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(values.Encode()))
		if err != nil {
			log.Debug().Err(err).Msg("Failed to build tracking request")
			return
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			log.Debug().Err(err).Str("task", task).Msg("Failed to track usage")
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
	}()
}
