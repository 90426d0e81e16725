// Package normalize converts raw provider records into scored Business values.
package normalize

import (
	"net/url"
	"strings"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/scorer"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

// socialDomains maps registrable domains to the network they belong to.
var socialDomains = []struct {
	domain  string
	network string
}{
	{"facebook.com", model.NetworkFacebook},
	{"instagram.com", model.NetworkInstagram},
	{"twitter.com", model.NetworkTwitter},
	{"x.com", model.NetworkTwitter},
	{"linkedin.com", model.NetworkLinkedIn},
}

// Normalize builds a scored Business from one raw record. It never rejects a
// record: missing fields stay empty and feed the score as absent.
func Normalize(p places.Place) model.Business {
	b := model.Business{
		Title:     p.Title,
		Address:   p.Address,
		Phone:     p.Phone,
		Website:   strings.TrimSpace(p.Website),
		Rating:    p.Rating,
		Reviews:   p.Reviews,
		Type:      p.Type,
		OpenState: p.OpenState,
		Hours:     p.Hours,
		Email:     p.Email,
	}
	if p.GPSCoordinates != nil {
		b.GPS = &model.Coordinates{
			Latitude:  p.GPSCoordinates.Latitude,
			Longitude: p.GPSCoordinates.Longitude,
		}
	}

	// A social profile is never the business's own site.
	if network := SocialNetwork(b.Website); network != "" {
		b.Socials = b.Socials.With(network, b.Website)
		b.Website = ""
	}

	for _, link := range p.Links {
		network := SocialNetwork(link)
		if network == "" || b.Socials.Get(network) != "" {
			continue
		}
		b.Socials = b.Socials.With(network, strings.TrimSpace(link))
	}

	b.OpportunityScore, b.OpportunityFactors = scorer.Score(b)
	return b
}

// NormalizeAll normalizes records in order.
func NormalizeAll(records []places.Place) []model.Business {
	out := make([]model.Business, len(records))
	for i, p := range records {
		out[i] = Normalize(p)
	}
	return out
}

// SocialNetwork returns the network a URL's host belongs to, or "" when the
// host is not one of the tracked social domains. Subdomains match
// (m.facebook.com); look-alike hosts do not (fox.com is not x.com).
func SocialNetwork(raw string) string {
	host := hostOf(raw)
	if host == "" {
		return ""
	}
	for _, sd := range socialDomains {
		if host == sd.domain || strings.HasSuffix(host, "."+sd.domain) {
			return sd.network
		}
	}
	return ""
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
}
