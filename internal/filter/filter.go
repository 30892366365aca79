// Package filter implements the ordered predicate chain that classifies
// an enriched candidate. The stage order is a hard contract: the cheap
// duplicate and library checks short-circuit before the quality checks,
// which determines the skip reason logged for a given item.
package filter

import (
	"fmt"
	"time"

	"blurn/internal/catalog"
)

// Context carries the run-scoped state and the configured thresholds.
type Context struct {
	// BatchIDs holds external ids already accepted in this run.
	BatchIDs map[string]bool
	// LibraryIDs holds the ids present in the user's library; consulted
	// only when IncludeLibraryItems is false.
	LibraryIDs          map[string]bool
	IncludeLibraryItems bool

	ExcludedGenres map[string]bool
	MinimumRating  float64
	MinimumVotes   int
	AgeDays        int
	// Cutoff is today minus the age window. Items released before it
	// are rejected; the boundary itself is accepted.
	Cutoff time.Time
}

// Result is the chain's verdict. Stage and Reason are set on rejection.
type Result struct {
	Accepted bool
	Stage    string
	Reason   string
}

type stage struct {
	name  string
	check func(*catalog.Item, *Context) (rejected bool, reason string)
}

// chain is evaluated in order; the first rejection wins. Earlier stages
// must not be reordered.
var chain = []stage{
	{"duplicate", func(item *catalog.Item, c *Context) (bool, string) {
		if c.BatchIDs[item.ImdbID] {
			return true, fmt.Sprintf("%s is a duplicate", item.ImdbID)
		}
		return false, ""
	}},
	{"library", func(item *catalog.Item, c *Context) (bool, string) {
		if !c.IncludeLibraryItems && c.LibraryIDs[item.ImdbID] {
			return true, fmt.Sprintf("%s is already in the library", item.ImdbID)
		}
		return false, ""
	}},
	{"type", func(item *catalog.Item, c *Context) (bool, string) {
		if item.Type != "movie" {
			return true, fmt.Sprintf("%s is not of type 'movie'", item.Title)
		}
		return false, ""
	}},
	{"genre", func(item *catalog.Item, c *Context) (bool, string) {
		if genre := item.FirstGenre(); c.ExcludedGenres[genre] {
			return true, fmt.Sprintf("%s has first genre '%s' which is not whitelisted", item.Title, genre)
		}
		return false, ""
	}},
	{"rating", func(item *catalog.Item, c *Context) (bool, string) {
		if item.Rating < c.MinimumRating {
			return true, fmt.Sprintf("%s has an IMDb rating of %.1f which is lower than the minimum setting of %.1f",
				item.Title, item.Rating, c.MinimumRating)
		}
		return false, ""
	}},
	{"votes", func(item *catalog.Item, c *Context) (bool, string) {
		if item.Votes < c.MinimumVotes {
			return true, fmt.Sprintf("%s has a total of %d IMDb votes which is lower than the minimum setting of %d votes",
				item.Title, item.Votes, c.MinimumVotes)
		}
		return false, ""
	}},
	{"age", func(item *catalog.Item, c *Context) (bool, string) {
		if item.Released.Before(c.Cutoff) {
			return true, fmt.Sprintf("%s was released on %s which is older than the setting of %d days",
				item.Title, item.Released.Format("2006-01-02"), c.AgeDays)
		}
		return false, ""
	}},
}

// StageNames returns the chain's stage names in evaluation order.
func StageNames() []string {
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.name
	}
	return names
}

// Apply classifies the item against the chain.
func Apply(item *catalog.Item, c *Context) Result {
	for _, st := range chain {
		if rejected, reason := st.check(item, c); rejected {
			return Result{Stage: st.name, Reason: reason}
		}
	}
	return Result{Accepted: true}
}
