package omdb

import (
	"strconv"
	"strings"
	"time"
)

// releaseDateLayouts covers the provider's date spellings.
var releaseDateLayouts = []string{
	"02 Jan 2006",
	"2 Jan 2006",
	"2006-01-02",
}

// ParseRating parses a decimal rating. The fractional separator is
// always '.' regardless of host locale; "N/A" or garbage yields 0.
func ParseRating(s string) float64 {
	rating, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return rating
}

// ParseVotes parses a vote count, stripping thousands separators first.
func ParseVotes(s string) int {
	votes, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return votes
}

// ParseReleaseDate parses the provider's release date. "N/A" or an
// unknown spelling yields the zero time.
func ParseReleaseDate(s string) time.Time {
	if s == "" || s == "N/A" {
		return time.Time{}
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
