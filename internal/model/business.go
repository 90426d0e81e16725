package model

// Social network names used as keys in Socials and in provider link scans.
const (
	NetworkFacebook  = "facebook"
	NetworkInstagram = "instagram"
	NetworkTwitter   = "twitter"
	NetworkLinkedIn  = "linkedin"
)

// Networks lists the tracked social networks in display order.
var Networks = []string{NetworkFacebook, NetworkInstagram, NetworkTwitter, NetworkLinkedIn}

// Business is one normalized place record. Values are produced by the
// normalizer and carry a score derived from the other fields, so a changed
// field means a new value from the normalizer, never an in-place patch.
type Business struct {
	Title      string       `json:"title"`
	Address    string       `json:"address"`
	Phone      string       `json:"phone,omitempty"`
	Website    string       `json:"website,omitempty"`
	Rating     float64      `json:"rating,omitempty"`
	Reviews    int          `json:"reviews,omitempty"`
	Type       string       `json:"type,omitempty"`
	OpenState  string       `json:"open_state,omitempty"`
	Hours      string       `json:"hours,omitempty"`
	Email      string       `json:"email,omitempty"`
	Socials    Socials      `json:"socials"`
	GPS        *Coordinates `json:"gps_coordinates,omitempty"`

	OpportunityScore   int      `json:"opportunity_score"`
	OpportunityFactors []string `json:"opportunity_factors"`
}

// Key returns the identity key: title and address joined by "|", exact match.
func (b Business) Key() string {
	return BusinessKey(b.Title, b.Address)
}

// BusinessKey builds an identity key without a Business value.
func BusinessKey(title, address string) string {
	return title + "|" + address
}

// HasWebsite reports whether the business has its own site.
func (b Business) HasWebsite() bool {
	return b.Website != ""
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Socials holds profile URLs per network. Empty strings mean absent.
type Socials struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// Any reports whether at least one network has a URL.
func (s Socials) Any() bool {
	return s.Facebook != "" || s.Instagram != "" || s.Twitter != "" || s.LinkedIn != ""
}

// Get returns the URL stored for network, or "".
func (s Socials) Get(network string) string {
	switch network {
	case NetworkFacebook:
		return s.Facebook
	case NetworkInstagram:
		return s.Instagram
	case NetworkTwitter:
		return s.Twitter
	case NetworkLinkedIn:
		return s.LinkedIn
	}
	return ""
}

// With returns a copy of s with network set to url. Unknown networks are ignored.
func (s Socials) With(network, url string) Socials {
	switch network {
	case NetworkFacebook:
		s.Facebook = url
	case NetworkInstagram:
		s.Instagram = url
	case NetworkTwitter:
		s.Twitter = url
	case NetworkLinkedIn:
		s.LinkedIn = url
	}
	return s
}
