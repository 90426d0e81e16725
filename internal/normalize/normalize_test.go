package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/scorer"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

func TestNormalize_CopiesFields(t *testing.T) {
	p := places.Place{
		Title:          "Bean There Cafe",
		Address:        "12 Elm St",
		Phone:          "+1 555-0100",
		Website:        "https://beanthere.com",
		Rating:         4.4,
		Reviews:        210,
		Type:           "Coffee shop",
		OpenState:      "Open ⋅ Closes 6PM",
		Hours:          "7AM-6PM",
		Email:          "hello@beanthere.com",
		GPSCoordinates: &places.GPSCoordinates{Latitude: 40.1, Longitude: -74.2},
	}

	b := Normalize(p)

	assert.Equal(t, "Bean There Cafe", b.Title)
	assert.Equal(t, "12 Elm St", b.Address)
	assert.Equal(t, "+1 555-0100", b.Phone)
	assert.Equal(t, "https://beanthere.com", b.Website)
	assert.InDelta(t, 4.4, b.Rating, 0.001)
	assert.Equal(t, 210, b.Reviews)
	assert.Equal(t, "Coffee shop", b.Type)
	assert.Equal(t, "Open ⋅ Closes 6PM", b.OpenState)
	assert.Equal(t, "7AM-6PM", b.Hours)
	assert.Equal(t, "hello@beanthere.com", b.Email)
	require.NotNil(t, b.GPS)
	assert.InDelta(t, 40.1, b.GPS.Latitude, 0.0001)
}

func TestNormalize_FacebookWebsiteMovesToSocials(t *testing.T) {
	b := Normalize(places.Place{Title: "T", Website: "https://www.facebook.com/joespizza"})

	assert.Empty(t, b.Website)
	assert.Equal(t, "https://www.facebook.com/joespizza", b.Socials.Facebook)
	assert.Contains(t, b.OpportunityFactors, scorer.FactorMissingWebsite)
	assert.NotContains(t, b.OpportunityFactors, scorer.FactorMissingSocials)
}

func TestNormalize_XComIsTwitter(t *testing.T) {
	b := Normalize(places.Place{Website: "x.com/joes"})

	assert.Empty(t, b.Website)
	assert.Equal(t, "x.com/joes", b.Socials.Twitter)
}

func TestNormalize_LinksFillEmptySlotsOnly(t *testing.T) {
	p := places.Place{
		Website: "https://instagram.com/primary",
		Links: []string{
			"https://booking.example.org/joes",
			"https://instagram.com/secondary",
			"https://linkedin.com/company/joes",
			"https://facebook.com/first",
			"https://facebook.com/second",
		},
	}

	b := Normalize(p)

	assert.Empty(t, b.Website)
	assert.Equal(t, "https://instagram.com/primary", b.Socials.Instagram)
	assert.Equal(t, "https://facebook.com/first", b.Socials.Facebook)
	assert.Equal(t, "https://linkedin.com/company/joes", b.Socials.LinkedIn)
	assert.Empty(t, b.Socials.Twitter)
}

func TestNormalize_EmptyRecord(t *testing.T) {
	b := Normalize(places.Place{})

	assert.Empty(t, b.Title)
	assert.Nil(t, b.GPS)
	assert.Equal(t, 85, b.OpportunityScore)
	assert.Equal(t, []string{
		scorer.FactorMissingWebsite,
		scorer.FactorMissingSocials,
		scorer.FactorVeryLowReviews,
		scorer.FactorMissingEmail,
		scorer.FactorPoorOnlinePresence,
	}, b.OpportunityFactors)
}

func TestNormalize_RescoreAfterEmail(t *testing.T) {
	p := places.Place{Title: "A", Website: "https://a.com", Reviews: 100, Rating: 4.5}

	before := Normalize(p)
	p.Email = "info@a.com"
	after := Normalize(p)

	assert.Equal(t, before.OpportunityScore-10, after.OpportunityScore)
	assert.Contains(t, before.OpportunityFactors, scorer.FactorMissingEmail)
	assert.NotContains(t, after.OpportunityFactors, scorer.FactorMissingEmail)
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	out := NormalizeAll([]places.Place{{Title: "1"}, {Title: "2"}, {Title: "3"}})

	require.Len(t, out, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{out[0].Title, out[1].Title, out[2].Title})
}

func TestSocialNetwork(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://facebook.com/a", model.NetworkFacebook},
		{"https://m.facebook.com/a", model.NetworkFacebook},
		{"http://WWW.Instagram.com/a", model.NetworkInstagram},
		{"https://twitter.com/a", model.NetworkTwitter},
		{"https://x.com/a", model.NetworkTwitter},
		{"https://www.linkedin.com/in/a", model.NetworkLinkedIn},
		{"https://fox.com", ""},
		{"https://notfacebook.com", ""},
		{"https://acme.com/facebook.com", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SocialNetwork(tt.url), tt.url)
	}
}
