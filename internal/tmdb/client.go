// Package tmdb implements the secondary metadata provider: a find-by-
// imdb-id call used to enrich accepted items with a poster URL and a
// TMDB id. Enrichment is best effort; callers swallow its failures.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Find is the poster/secondary-id enrichment for one imdb id.
type Find struct {
	TmdbID    int64
	PosterURL string
}

type findResponse struct {
	MovieResults []struct {
		ID         int64  `json:"id"`
		PosterPath string `json:"poster_path"`
	} `json:"movie_results"`
}

// Client provides access to the TMDB find endpoint.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, imageBaseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("tmdb base url required")
	}
	c := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FindByImdbID resolves an imdb id to its TMDB id and original-resolution
// poster URL. Any unexpected response shape is an error the caller may
// ignore.
func (c *Client) FindByImdbID(ctx context.Context, imdbID string) (*Find, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, fmt.Errorf("imdb id must not be empty")
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("external_source", "imdb_id")
	endpoint := fmt.Sprintf("%s/find/%s?%s", c.baseURL, url.PathEscape(imdbID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb find returned %d", resp.StatusCode)
	}

	var payload findResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	if len(payload.MovieResults) == 0 {
		return nil, fmt.Errorf("no movie results for %s", imdbID)
	}

	first := payload.MovieResults[0]
	return &Find{
		TmdbID:    first.ID,
		PosterURL: c.imageBaseURL + first.PosterPath,
	}, nil
}
