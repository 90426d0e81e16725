package model

import "strings"

// QueryFilters are the optional filters an interpreted search can carry.
type QueryFilters struct {
	NoWebsite  bool    `json:"noWebsite,omitempty"`
	OpenNow    bool    `json:"openNow,omitempty"`
	MinRating  float64 `json:"minRating,omitempty"`
	NoSocials  bool    `json:"noSocials,omitempty"`
	HasSocials bool    `json:"hasSocials,omitempty"`
}

// StructuredQuery is the interpreted form of a free-text search. It is
// created once per search and reused unchanged for every page of it.
type StructuredQuery struct {
	Category string       `json:"category"`
	Location string       `json:"location"`
	Filters  QueryFilters `json:"filters"`
}

// Text renders the query as the free-text phrase sent to the provider.
func (q StructuredQuery) Text() string {
	category := strings.TrimSpace(q.Category)
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return category
	}
	if category == "" {
		return location
	}
	return category + " in " + location
}
