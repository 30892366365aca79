// Package omdb implements the primary metadata provider client. A
// lookup either yields a fully populated catalog item or a LookupError;
// "found but not a movie" is a valid item that the filter chain rejects,
// not a lookup failure.
package omdb

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"blurn/internal/catalog"
)

// LookupError reports that the provider returned no usable movie:
// transport failure, unparsable response, an explicit upstream error
// payload, or a result without an external id. Candidates failing this
// way are queued for retry on the next refresh.
type LookupError struct {
	Title string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup of %q failed: %v", e.Title, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Client queries the OMDb API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
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

// New creates an OMDb client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("omdb base url required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// response is the OMDb XML envelope: the root carries either a movie
// element or an error element.
type response struct {
	XMLName xml.Name      `xml:"root"`
	Movie   *movieElement `xml:"movie"`
	Error   string        `xml:"error"`
}

type movieElement struct {
	Title     string `xml:"title,attr"`
	Year      string `xml:"year,attr"`
	Rated     string `xml:"rated,attr"`
	Released  string `xml:"released,attr"`
	Runtime   string `xml:"runtime,attr"`
	Genre     string `xml:"genre,attr"`
	Director  string `xml:"director,attr"`
	Writer    string `xml:"writer,attr"`
	Actors    string `xml:"actors,attr"`
	Plot      string `xml:"plot,attr"`
	Language  string `xml:"language,attr"`
	Country   string `xml:"country,attr"`
	Awards    string `xml:"awards,attr"`
	Poster    string `xml:"poster,attr"`
	Metascore string `xml:"metascore,attr"`
	Rating    string `xml:"imdbRating,attr"`
	Votes     string `xml:"imdbVotes,attr"`
	ImdbID    string `xml:"imdbID,attr"`
	Type      string `xml:"type,attr"`
}

// Lookup queries the provider by title and optional year hint. A miss
// on the first attempt, whether the provider's not-found payload or a
// result without an external id, is retried once with the 3D/4K marker
// stripped when the title carries one and a year hint is present.
// sourceDate becomes the item's SourceReleaseDate.
func (c *Client) Lookup(ctx context.Context, title string, year int, sourceDate time.Time) (*catalog.Item, error) {
	item, upstream, err := c.query(ctx, title, year, sourceDate)
	if err != nil {
		return nil, err
	}

	if (item == nil || item.ImdbID == "") && year > 0 && hasFormatMarker(title) {
		stripped := title[:len(title)-3]
		log.Debug().Str("title", title).Str("retry_title", stripped).Msg("No result for format-suffixed title, retrying lookup")
		item, upstream, err = c.query(ctx, stripped, year, sourceDate)
		if err != nil {
			return nil, err
		}
	}

	if item == nil || item.ImdbID == "" {
		if upstream != "" {
			return nil, &LookupError{Title: title, Err: fmt.Errorf("provider error: %s", upstream)}
		}
		return nil, &LookupError{Title: title, Err: fmt.Errorf("provider returned no external id")}
	}
	return item, nil
}

func hasFormatMarker(title string) bool {
	return strings.HasSuffix(title, " 3D") || strings.HasSuffix(title, " 4K")
}

// query performs one provider request. A not-found payload is a miss,
// not an error: it returns a nil item with the upstream message so the
// caller can decide whether a retry applies.
func (c *Client) query(ctx context.Context, title string, year int, sourceDate time.Time) (*catalog.Item, string, error) {
	params := url.Values{}
	params.Set("t", html.UnescapeString(title))
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}
	params.Set("plot", "short")
	params.Set("r", "xml")
	params.Set("apikey", c.apiKey)

	endpoint := c.baseURL + "/?" + params.Encode()
	log.Debug().Str("url", endpoint).Msg("Querying metadata provider")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", &LookupError{Title: title, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &LookupError{Title: title, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &LookupError{Title: title, Err: fmt.Errorf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &LookupError{Title: title, Err: err}
	}

	var payload response
	if err := xml.Unmarshal(body, &payload); err != nil {
		return nil, "", &LookupError{Title: title, Err: fmt.Errorf("unparsable response: %w", err)}
	}
	if payload.Movie == nil {
		if payload.Error != "" {
			return nil, payload.Error, nil
		}
		return nil, "", &LookupError{Title: title, Err: fmt.Errorf("response carries neither movie nor error element")}
	}

	return buildItem(payload.Movie, sourceDate), "", nil
}

func buildItem(m *movieElement, sourceDate time.Time) *catalog.Item {
	runtime := m.Runtime
	return &catalog.Item{
		ImdbID:            m.ImdbID,
		Title:             html.UnescapeString(m.Title),
		Year:              parseIntDefault(m.Year),
		Rated:             m.Rated,
		Plot:              html.UnescapeString(m.Plot),
		Runtime:           runtime,
		RuntimeDuration:   catalog.ParseRuntime(runtime),
		Genre:             m.Genre,
		Director:          html.UnescapeString(m.Director),
		Writer:            html.UnescapeString(m.Writer),
		Actors:            html.UnescapeString(m.Actors),
		Language:          html.UnescapeString(m.Language),
		Country:           html.UnescapeString(m.Country),
		Awards:            html.UnescapeString(m.Awards),
		Poster:            html.UnescapeString(m.Poster),
		Metascore:         m.Metascore,
		Rating:            ParseRating(m.Rating),
		Votes:             ParseVotes(m.Votes),
		Type:              m.Type,
		Released:          ParseReleaseDate(m.Released),
		SourceReleaseDate: sourceDate,
	}
}

func parseIntDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
