package omdb_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"blurn/internal/omdb"
)

const movieXML = `<?xml version="1.0" encoding="UTF-8"?>
<root response="True">
  <movie title="Example Movie" year="2023" rated="PG-13" released="15 Mar 2023"
    runtime="120 min" genre="Drama, Thriller" director="Jane Doe"
    writer="John Roe" actors="Alice, Bob" plot="A movie about examples."
    language="English" country="USA" awards="N/A"
    poster="https://img.example.com/poster.jpg" metascore="75"
    imdbRating="7.5" imdbVotes="5,000" imdbID="tt1234567" type="movie"/>
</root>`

const emptyIDXML = `<?xml version="1.0" encoding="UTF-8"?>
<root response="True">
  <movie title="Unknown" year="" imdbRating="N/A" imdbVotes="N/A" imdbID="" type="movie"/>
</root>`

const errorXML = `<?xml version="1.0" encoding="UTF-8"?>
<root response="False">
  <error>Movie not found!</error>
</root>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*omdb.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := omdb.New("test-key", srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

func TestLookupPopulatesItemFromMovieElement(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("t"); got != "Example Movie" {
			t.Errorf("expected title query %q, got %q", "Example Movie", got)
		}
		if got := r.URL.Query().Get("y"); got != "2023" {
			t.Errorf("expected year query %q, got %q", "2023", got)
		}
		if got := r.URL.Query().Get("r"); got != "xml" {
			t.Errorf("expected xml response format, got %q", got)
		}
		fmt.Fprint(w, movieXML)
	})

	sourceDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	item, err := client.Lookup(context.Background(), "Example Movie", 2023, sourceDate)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if item.ImdbID != "tt1234567" {
		t.Errorf("expected imdb id tt1234567, got %q", item.ImdbID)
	}
	if item.Title != "Example Movie" {
		t.Errorf("unexpected title %q", item.Title)
	}
	if item.Year != 2023 {
		t.Errorf("expected year 2023, got %d", item.Year)
	}
	if item.Rating != 7.5 {
		t.Errorf("expected rating 7.5, got %v", item.Rating)
	}
	if item.Votes != 5000 {
		t.Errorf("expected 5000 votes, got %d", item.Votes)
	}
	if item.RuntimeDuration != 120*time.Minute {
		t.Errorf("expected runtime 120m, got %v", item.RuntimeDuration)
	}
	if !item.Released.Equal(time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected released date %v", item.Released)
	}
	if !item.SourceReleaseDate.Equal(sourceDate) {
		t.Errorf("expected source release date %v, got %v", sourceDate, item.SourceReleaseDate)
	}
}

func TestLookupRetriesWithoutFormatMarker(t *testing.T) {
	t.Parallel()

	// The provider answers a suffixed title with its not-found payload or
	// an id-less result; both miss shapes must trigger the stripped retry.
	tests := []struct {
		name string
		miss string
	}{
		{"not found payload", errorXML},
		{"result without id", emptyIDXML},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var mu sync.Mutex
			var titles []string
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				title := r.URL.Query().Get("t")
				mu.Lock()
				titles = append(titles, title)
				mu.Unlock()
				if title == "Example Movie 3D" {
					fmt.Fprint(w, tc.miss)
					return
				}
				fmt.Fprint(w, movieXML)
			})

			item, err := client.Lookup(context.Background(), "Example Movie 3D", 2023, time.Time{})
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if item.ImdbID != "tt1234567" {
				t.Errorf("expected retry to resolve the id, got %q", item.ImdbID)
			}
			mu.Lock()
			defer mu.Unlock()
			if len(titles) != 2 || titles[0] != "Example Movie 3D" || titles[1] != "Example Movie" {
				t.Errorf("expected original then stripped title, got %v", titles)
			}
		})
	}
}

func TestLookupRetryMissStillFails(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, errorXML)
	})

	_, err := client.Lookup(context.Background(), "Example Movie 4K", 2023, time.Time{})
	var lerr *omdb.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %T: %v", err, err)
	}
	if lerr.Title != "Example Movie 4K" {
		t.Errorf("expected the original title on the error, got %q", lerr.Title)
	}
	if requests.Load() != 2 {
		t.Errorf("expected the stripped retry before failing, got %d requests", requests.Load())
	}
}

func TestLookupDoesNotRetryWithoutYearHint(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, errorXML)
	})

	_, err := client.Lookup(context.Background(), "Example Movie 3D", 0, time.Time{})
	var lerr *omdb.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %T: %v", err, err)
	}
	if requests.Load() != 1 {
		t.Errorf("expected a single request, got %d", requests.Load())
	}
}

func TestLookupErrorPayload(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, errorXML)
	})

	_, err := client.Lookup(context.Background(), "No Such Movie", 2023, time.Time{})
	var lerr *omdb.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %T: %v", err, err)
	}
	if lerr.Title != "No Such Movie" {
		t.Errorf("expected the failing title on the error, got %q", lerr.Title)
	}
}

func TestLookupServerError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.Lookup(context.Background(), "Example Movie", 2023, time.Time{})
	var lerr *omdb.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %T: %v", err, err)
	}
}

func TestLookupEmptyIDWithoutMarkerFails(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, emptyIDXML)
	})

	_, err := client.Lookup(context.Background(), "Example Movie", 2023, time.Time{})
	var lerr *omdb.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected a LookupError, got %T: %v", err, err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := omdb.New("", "https://example.com"); err == nil {
		t.Error("expected an error for an empty api key")
	}
	if _, err := omdb.New("key", ""); err == nil {
		t.Error("expected an error for an empty base url")
	}
}

func TestParseRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"7.5", 7.5},
		{"N/A", 0},
		{"", 0},
		{"10.0", 10.0},
	}
	for _, tc := range tests {
		if got := omdb.ParseRating(tc.in); got != tc.want {
			t.Errorf("ParseRating(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseVotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"5,000", 5000},
		{"1,234,567", 1234567},
		{"42", 42},
		{"N/A", 0},
	}
	for _, tc := range tests {
		if got := omdb.ParseVotes(tc.in); got != tc.want {
			t.Errorf("ParseVotes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseReleaseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"15 Mar 2023", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"5 Mar 2023", time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2023-03-15", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"N/A", time.Time{}},
		{"", time.Time{}},
		{"someday", time.Time{}},
	}
	for _, tc := range tests {
		if got := omdb.ParseReleaseDate(tc.in); !got.Equal(tc.want) {
			t.Errorf("ParseReleaseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
