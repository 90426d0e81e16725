// Package scorer computes the opportunity score: a 0-100 estimate of how much
// a business needs web and marketing help.
package scorer

import "github.com/mohrashard/bizfinder-ai-sub000/internal/model"

// MaxScore caps the additive total.
const MaxScore = 100

// Factor labels, in evaluation order.
const (
	FactorMissingWebsite     = "Missing Website"
	FactorMissingSocials     = "Missing Social Media"
	FactorLowRating          = "Low Rating (< 3.5)"
	FactorMediocreRating     = "Mediocre Rating (< 4.0)"
	FactorVeryLowReviews     = "Very Low Reviews (< 10)"
	FactorLowReviews         = "Low Reviews (< 50)"
	FactorMissingEmail       = "Missing Email"
	FactorPoorOnlinePresence = "Poor Online Presence"
)

// Contribution is one fired factor and the points it added.
type Contribution struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// Score returns the capped opportunity score and the fired factors in
// evaluation order. It reads only website, socials, rating, reviews and email.
func Score(b model.Business) (int, []string) {
	contributions, total := Breakdown(b)
	factors := make([]string, len(contributions))
	for i, c := range contributions {
		factors[i] = c.Factor
	}
	return total, factors
}

// Breakdown returns every fired contribution with its points, plus the capped
// total. A zero rating counts as no rating.
func Breakdown(b model.Business) ([]Contribution, int) {
	var out []Contribution
	add := func(factor string, points int) {
		out = append(out, Contribution{Factor: factor, Points: points})
	}

	noWebsite := !b.HasWebsite()
	noSocials := !b.Socials.Any()

	if noWebsite {
		add(FactorMissingWebsite, 30)
	}
	if noSocials {
		add(FactorMissingSocials, 20)
	}

	switch {
	case b.Rating > 0 && b.Rating < 3.5:
		add(FactorLowRating, 15)
	case b.Rating >= 3.5 && b.Rating < 4.0:
		add(FactorMediocreRating, 5)
	}

	switch {
	case b.Reviews < 10:
		add(FactorVeryLowReviews, 20)
	case b.Reviews < 50:
		add(FactorLowReviews, 10)
	}

	if b.Email == "" {
		add(FactorMissingEmail, 10)
	}
	if noWebsite && noSocials {
		add(FactorPoorOnlinePresence, 5)
	}

	total := 0
	for _, c := range out {
		total += c.Points
	}
	return out, min(total, MaxScore)
}
