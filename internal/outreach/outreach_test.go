package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/scorer"
)

func lead() model.Business {
	b := model.Business{Title: "Lakeside Dental", Type: "Dentist", Phone: "+94 11 234 5678", Reviews: 8}
	b.OpportunityScore, b.OpportunityFactors = scorer.Score(b)
	return b
}

var me = Sender{Name: "jane perera", Agency: "Brightside Digital"}

func TestCompose_Email(t *testing.T) {
	msg, err := Compose(KindEmail, lead(), me)
	require.NoError(t, err)

	assert.Equal(t, KindEmail, msg.Kind)
	assert.Equal(t, "Quick idea for Lakeside Dental", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Lakeside Dental team,")
	assert.Contains(t, msg.Body, "My name is Jane Perera from Brightside Digital.")
	assert.Contains(t, msg.Body, "as a dentist")
	assert.Contains(t, msg.Body, "- "+pitches[scorer.FactorMissingWebsite])
	assert.Contains(t, msg.Body, "- "+pitches[scorer.FactorMissingSocials])
	assert.NotContains(t, msg.Body, pitches[scorer.FactorVeryLowReviews], "only the top two factors")
	assert.Contains(t, msg.Body, "Best regards,\nJane Perera")
}

func TestCompose_WhatsApp(t *testing.T) {
	msg, err := Compose(KindWhatsApp, lead(), Sender{Name: "jane"})
	require.NoError(t, err)

	assert.Empty(t, msg.Subject)
	assert.Equal(t,
		"Hi Lakeside Dental! I'm Jane. I noticed "+pitches[scorer.FactorMissingWebsite]+
			". I help local businesses with this. Can I send you a few ideas?",
		msg.Body)
}

func TestCompose_Call(t *testing.T) {
	msg, err := Compose(KindCall, lead(), me)
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "Call script for Lakeside Dental (+94 11 234 5678)")
	assert.Contains(t, msg.Body, "2. Hook:")
	assert.Contains(t, msg.Body, "3. Follow-up: \"Also, "+pitches[scorer.FactorMissingSocials]+".\"")
	assert.Contains(t, msg.Body, "4. Ask:")
}

func TestCompose_NoFactors(t *testing.T) {
	b := model.Business{Title: "Green Leaf Spa"}
	msg, err := Compose(KindCall, b, Sender{})
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "this is Your Name.")
	assert.Contains(t, msg.Body, "room to grow")
	assert.Contains(t, msg.Body, "3. Ask:")
}

func TestCompose_UnknownKind(t *testing.T) {
	_, err := Compose(Kind("fax"), lead(), me)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" WhatsApp ")
	require.NoError(t, err)
	assert.Equal(t, KindWhatsApp, k)

	_, err = ParseKind("sms")
	assert.Error(t, err)
}

func TestPoints_OrderFollowsFactors(t *testing.T) {
	b := model.Business{OpportunityFactors: []string{scorer.FactorLowRating, scorer.FactorMissingEmail, scorer.FactorMissingSocials}}
	assert.Equal(t, []string{pitches[scorer.FactorLowRating], pitches[scorer.FactorMissingEmail]}, Points(b))
}
