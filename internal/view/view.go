// Package view derives the displayed list from a raw result set: filter,
// sort, paginate and export. Every function is pure and leaves its input
// untouched.
package view

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
)

// SortKey selects the display order.
type SortKey string

// Sort keys. Relevance keeps retrieval order; the others sort descending.
const (
	SortRelevance   SortKey = "relevance"
	SortRating      SortKey = "rating"
	SortReviews     SortKey = "reviews"
	SortOpportunity SortKey = "opportunity"
)

// ParseSortKey accepts a sort key name, case-insensitively. Empty means
// relevance.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortRelevance, nil
	case SortRelevance, SortRating, SortReviews, SortOpportunity:
		return k, nil
	default:
		return "", eris.Errorf("view: unknown sort key %q", s)
	}
}

// Filters are AND-combined. Zero values disable a filter. HasWebsite and
// NoWebsite are mutually exclusive, as are HasSocials and NoSocials; the
// caller keeps them that way.
type Filters struct {
	MinRating  float64
	HasWebsite bool
	NoWebsite  bool
	OpenNow    bool
	HasSocials bool
	NoSocials  bool
}

// FromQuery maps interpreted query filters onto view filters.
func FromQuery(f model.QueryFilters) Filters {
	return Filters{
		MinRating:  f.MinRating,
		NoWebsite:  f.NoWebsite,
		OpenNow:    f.OpenNow,
		HasSocials: f.HasSocials,
		NoSocials:  f.NoSocials,
	}
}

// Match reports whether b passes every enabled filter.
func (f Filters) Match(b model.Business) bool {
	if f.MinRating > 0 && b.Rating < f.MinRating {
		return false
	}
	if f.HasWebsite && !b.HasWebsite() {
		return false
	}
	if f.NoWebsite && b.HasWebsite() {
		return false
	}
	// Loose on purpose: "Open now", "Open 24 hours" and "Opens 8am" all pass.
	if f.OpenNow && !strings.Contains(strings.ToLower(b.OpenState), "open") {
		return false
	}
	if f.HasSocials && !b.Socials.Any() {
		return false
	}
	if f.NoSocials && b.Socials.Any() {
		return false
	}
	return true
}

// Present returns a new slice holding the businesses that pass f, ordered by
// key. Ties keep their relative input order.
func Present(all []model.Business, f Filters, key SortKey) []model.Business {
	out := make([]model.Business, 0, len(all))
	for _, b := range all {
		if f.Match(b) {
			out = append(out, b)
		}
	}

	var value func(model.Business) float64
	switch key {
	case SortRating:
		value = func(b model.Business) float64 { return b.Rating }
	case SortReviews:
		value = func(b model.Business) float64 { return float64(b.Reviews) }
	case SortOpportunity:
		value = func(b model.Business) float64 { return float64(b.OpportunityScore) }
	default:
		return out
	}

	slices.SortStableFunc(out, func(a, b model.Business) int {
		va, vb := value(a), value(b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Paginate returns page (1-based) of list with perPage items per page, and
// the total number of pages. Out-of-range pages are empty.
func Paginate(list []model.Business, page, perPage int) ([]model.Business, int) {
	if perPage <= 0 {
		return list, 1
	}
	pages := (len(list) + perPage - 1) / perPage
	if page < 1 || page > pages {
		return []model.Business{}, pages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(list))
	return list[start:end], pages
}
