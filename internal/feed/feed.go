// Package feed fetches the Blu-Ray new-release RSS feed and turns it
// into raw candidate entries. Entries come back in document order
// (newest first); grouping and high-water-mark handling belong to the
// refresh orchestrator.
package feed

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

// Entry is a raw feed item. Titles are already HTML-decoded and stripped
// of the Blu-ray suffix noise; Description stays verbatim apart from
// entity decoding because the year hint is extracted from it later.
type Entry struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
}

// TransportError reports a failed feed fetch: either a transport-level
// failure or a non-success HTTP status. The orchestrator aborts the
// whole run on it; there is no retry here.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed fetch %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("feed fetch %s returned HTTP status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Source fetches and parses the release feed.
type Source struct {
	url    string
	client *http.Client
	parser *gofeed.Parser
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSource creates a feed source for the given RSS URL.
func NewSource(url string, opts ...Option) *Source {
	s := &Source{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch retrieves the feed and parses it into entries, preserving the
// feed's natural order.
func (s *Source) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &TransportError{URL: s.url, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: s.url, StatusCode: resp.StatusCode}
	}

	parsed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.url, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		entries = append(entries, Entry{
			Title:       CleanTitle(item.Title),
			Link:        html.UnescapeString(item.Link),
			Description: html.UnescapeString(item.Description),
			Published:   published,
		})
	}

	log.Debug().Int("entries", len(entries)).Str("url", s.url).Msg("Fetched release feed")
	return entries, nil
}

// CleanTitle strips the known release-format suffixes from a feed title
// and decodes HTML entities.
func CleanTitle(title string) string {
	title = strings.ReplaceAll(title, " 4K (Blu-ray)", "")
	title = strings.ReplaceAll(title, " (Blu-ray)", "")
	return html.UnescapeString(title)
}
