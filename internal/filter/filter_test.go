package filter_test

import (
	"reflect"
	"testing"
	"time"

	"blurn/internal/catalog"
	"blurn/internal/filter"
)

func passingItem() *catalog.Item {
	return &catalog.Item{
		ImdbID:   "tt1234567",
		Title:    "Example Movie",
		Type:     "movie",
		Genre:    "Drama, Thriller",
		Rating:   7.5,
		Votes:    5000,
		Released: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func passingContext() *filter.Context {
	return &filter.Context{
		BatchIDs:            map[string]bool{},
		LibraryIDs:          map[string]bool{},
		IncludeLibraryItems: true,
		ExcludedGenres:      map[string]bool{},
		MinimumRating:       7.0,
		MinimumVotes:        1000,
		AgeDays:             365,
		Cutoff:              time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStageOrderIsPinned(t *testing.T) {
	t.Parallel()

	want := []string{"duplicate", "library", "type", "genre", "rating", "votes", "age"}
	if got := filter.StageNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("stage order changed: got %v, want %v", got, want)
	}
}

func TestApplyAcceptsPassingItem(t *testing.T) {
	t.Parallel()

	res := filter.Apply(passingItem(), passingContext())
	if !res.Accepted {
		t.Fatalf("expected acceptance, rejected at %q: %s", res.Stage, res.Reason)
	}
	if res.Stage != "" || res.Reason != "" {
		t.Errorf("accepted result must carry no stage or reason, got %q/%q", res.Stage, res.Reason)
	}
}

func TestApplyRejectionStages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		item      func(*catalog.Item)
		ctx       func(*filter.Context)
		wantStage string
	}{
		{
			name:      "duplicate in batch",
			ctx:       func(c *filter.Context) { c.BatchIDs["tt1234567"] = true },
			wantStage: "duplicate",
		},
		{
			name: "already in library",
			ctx: func(c *filter.Context) {
				c.IncludeLibraryItems = false
				c.LibraryIDs["tt1234567"] = true
			},
			wantStage: "library",
		},
		{
			name: "library id ignored when library items are included",
			ctx: func(c *filter.Context) {
				c.IncludeLibraryItems = true
				c.LibraryIDs["tt1234567"] = true
			},
			wantStage: "",
		},
		{
			name:      "not a movie",
			item:      func(i *catalog.Item) { i.Type = "series" },
			wantStage: "type",
		},
		{
			name:      "excluded primary genre",
			item:      func(i *catalog.Item) { i.Genre = "Horror, Drama" },
			ctx:       func(c *filter.Context) { c.ExcludedGenres["Horror"] = true },
			wantStage: "genre",
		},
		{
			name:      "secondary genre exclusion does not reject",
			item:      func(i *catalog.Item) { i.Genre = "Drama, Horror" },
			ctx:       func(c *filter.Context) { c.ExcludedGenres["Horror"] = true },
			wantStage: "",
		},
		{
			name:      "rating below minimum",
			item:      func(i *catalog.Item) { i.Rating = 6.9 },
			wantStage: "rating",
		},
		{
			name:      "rating exactly at minimum passes",
			item:      func(i *catalog.Item) { i.Rating = 7.0 },
			wantStage: "",
		},
		{
			name:      "votes below minimum",
			item:      func(i *catalog.Item) { i.Votes = 999 },
			wantStage: "votes",
		},
		{
			name:      "votes exactly at minimum pass",
			item:      func(i *catalog.Item) { i.Votes = 1000 },
			wantStage: "",
		},
		{
			name:      "released before cutoff",
			item:      func(i *catalog.Item) { i.Released = time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC) },
			wantStage: "age",
		},
		{
			name:      "released exactly on cutoff passes",
			item:      func(i *catalog.Item) { i.Released = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC) },
			wantStage: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := passingItem()
			ctx := passingContext()
			if tc.item != nil {
				tc.item(item)
			}
			if tc.ctx != nil {
				tc.ctx(ctx)
			}

			res := filter.Apply(item, ctx)
			if tc.wantStage == "" {
				if !res.Accepted {
					t.Fatalf("expected acceptance, rejected at %q: %s", res.Stage, res.Reason)
				}
				return
			}
			if res.Accepted {
				t.Fatalf("expected rejection at %q, item was accepted", tc.wantStage)
			}
			if res.Stage != tc.wantStage {
				t.Errorf("expected stage %q, got %q (%s)", tc.wantStage, res.Stage, res.Reason)
			}
			if res.Reason == "" {
				t.Error("rejection must carry a reason")
			}
		})
	}
}

func TestFirstRejectionWins(t *testing.T) {
	t.Parallel()

	// Fails both the type and the rating stage; the earlier stage must be
	// the one reported.
	item := passingItem()
	item.Type = "series"
	item.Rating = 1.0

	res := filter.Apply(item, passingContext())
	if res.Accepted || res.Stage != "type" {
		t.Fatalf("expected rejection at type, got accepted=%v stage=%q", res.Accepted, res.Stage)
	}
}
