// Package notify delivers the one-event-per-new-release notification.
// When no ntfy topic is configured, a noop implementation is returned so
// callers never branch on configuration.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blurn/internal/catalog"
)

const userAgent = "BlurN-Go/1.0"

// Notifier is the outbound notification surface of the pipeline.
type Notifier interface {
	NotifyNewRelease(ctx context.Context, item *catalog.Item) error
}

// NewNotifier builds a notifier backed by ntfy when a topic is
// configured, a noop otherwise.
func NewNotifier(topic string) Notifier {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return noopNotifier{}
	}
	return &ntfyNotifier{
		endpoint: topic,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifyNewRelease(context.Context, *catalog.Item) error { return nil }

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyNotifier) NotifyNewRelease(ctx context.Context, item *catalog.Item) error {
	message := fmt.Sprintf("%s (%d) - IMDb %.1f from %d votes\n%s",
		item.Title, item.Year, item.Rating, item.Votes, item.ImdbURL())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Title", "New Blu-Ray release")
	req.Header.Set("X-Tags", "blurn,release")
	req.Header.Set("X-Click", item.ImdbURL())

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
