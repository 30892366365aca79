// Package catalog holds the persisted catalog model and its JSON-backed
// store: the accepted-item catalog, the failed-lookup retry queue and
// the play-state file written by the listing consumer.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Item is the persisted catalog unit. ImdbID is the primary key; an item
// is never persisted without one.
type Item struct {
	ImdbID string `json:"imdbId"`
	TmdbID int64  `json:"tmdbId,omitempty"`

	Title string `json:"title"`
	Year  int    `json:"year"`
	Rated string `json:"rated"`
	Plot  string `json:"plot"`

	// Runtime keeps the provider's free text ("104 min"); the duration
	// is derived from it once when the item is built.
	Runtime         string        `json:"runtime"`
	RuntimeDuration time.Duration `json:"runtimeDuration,omitempty"`

	// Genre is the provider's ordered comma list; the first entry is the
	// primary classification used for filtering.
	Genre    string `json:"genre"`
	Director string `json:"director"`
	Writer   string `json:"writer"`
	Actors   string `json:"actors"`
	Language string `json:"language"`
	Country  string `json:"country"`
	Awards   string `json:"awards"`

	Poster    string  `json:"poster"`
	Metascore string  `json:"metascore"`
	Rating    float64 `json:"imdbRating"`
	Votes     int     `json:"imdbVotes"`
	Type      string  `json:"type"`

	// Released is the theatrical/general release date; zero when the
	// provider reported none.
	Released time.Time `json:"released"`

	// SourceReleaseDate is the date this title was observed as new in
	// the feed. It anchors dedup, carry-forward and the catalog order.
	SourceReleaseDate time.Time `json:"sourceReleaseDate"`
}

// FirstGenre returns the primary genre classification.
func (i *Item) FirstGenre() string {
	genre, _, _ := strings.Cut(i.Genre, ",")
	return strings.TrimSpace(genre)
}

// ImdbURL returns the title's IMDb detail page.
func (i *Item) ImdbURL() string {
	return fmt.Sprintf("http://www.imdb.com/title/%s/", i.ImdbID)
}

// ParseRuntime converts runtime text of the form "<N> min" to a
// duration. "N/A" or unparsable text yields zero.
func ParseRuntime(runtime string) time.Duration {
	if runtime == "" || runtime == "N/A" {
		return 0
	}
	mins, err := strconv.Atoi(strings.SplitN(runtime, " ", 2)[0])
	if err != nil {
		return 0
	}
	return time.Duration(mins) * time.Minute
}

// FailedLookup is a candidate whose enrichment returned no usable data.
// It is retried exactly once per refresh until it succeeds or is
// cleared.
type FailedLookup struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// PlayState is a played marker recorded against a catalog item by the
// listing consumer. The sync task copies these onto the library mirror.
type PlayState struct {
	ImdbID   string    `json:"imdbId"`
	User     string    `json:"user"`
	PlayedAt time.Time `json:"playedAt"`
}

// Sort orders the catalog by source release date desc, rating desc, vote
// count desc, metascore desc, title asc, with imdb id as the final
// deterministic tie-break. Sorting an already sorted catalog is a no-op.
func Sort(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		return less(&items[a], &items[b])
	})
}

func less(a, b *Item) bool {
	if !a.SourceReleaseDate.Equal(b.SourceReleaseDate) {
		return a.SourceReleaseDate.After(b.SourceReleaseDate)
	}
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.Votes != b.Votes {
		return a.Votes > b.Votes
	}
	if a.Metascore != b.Metascore {
		return a.Metascore > b.Metascore
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ImdbID < b.ImdbID
}

// Merge drops newly accepted items whose imdb id already exists in the
// current catalog, prepends the remainder and re-sorts. The inputs are
// not modified.
func Merge(accepted, existing []Item) []Item {
	known := make(map[string]bool, len(existing))
	for _, item := range existing {
		known[item.ImdbID] = true
	}

	merged := make([]Item, 0, len(accepted)+len(existing))
	for _, item := range accepted {
		if known[item.ImdbID] {
			continue
		}
		merged = append(merged, item)
	}
	merged = append(merged, existing...)

	Sort(merged)
	return merged
}
