// Package outreach drafts first-contact messages for a lead. It is pure
// templating with no state.
package outreach

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/scorer"
)

// Kind is the outreach channel.
type Kind string

// Kinds.
const (
	KindEmail    Kind = "email"
	KindWhatsApp Kind = "whatsapp"
	KindCall     Kind = "call"
)

// ParseKind matches a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindEmail, KindWhatsApp, KindCall:
		return k, nil
	default:
		return "", eris.Errorf("outreach: unknown kind %q", s)
	}
}

// Sender identifies who the message is from.
type Sender struct {
	Name   string `mapstructure:"sender_name"`
	Agency string `mapstructure:"agency"`
}

// Message is a drafted message. Subject is only set for email.
type Message struct {
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// maxPoints caps how many opportunity factors a message mentions.
const maxPoints = 2

// pitches turns a factor into something worth saying to the owner.
var pitches = map[string]string{
	scorer.FactorMissingWebsite:     "you don't have a website yet, so customers searching online can't find much about you",
	scorer.FactorMissingSocials:     "there's no social media presence linked to your listing",
	scorer.FactorLowRating:          "your rating could use some help, and a few happy-customer reviews go a long way",
	scorer.FactorMediocreRating:     "your rating is close to great and a small push could lift it above 4 stars",
	scorer.FactorVeryLowReviews:     "you have very few reviews compared to others nearby",
	scorer.FactorLowReviews:         "a few more reviews would help you stand out nearby",
	scorer.FactorMissingEmail:       "there's no easy way for customers to email you",
	scorer.FactorPoorOnlinePresence: "your overall online presence is quite limited",
}

var templates = template.Must(template.New("outreach").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
}).Parse(`
{{- define "email" -}}
Hi {{ .Business }} team,

My name is {{ .Sender }}{{ with .Agency }} from {{ . }}{{ end }}. I came across your listing{{ with .Category }} as a {{ . }}{{ end }} and noticed a couple of things:
{{ range .Points }}
- {{ . }}{{ end }}

We help local businesses fix exactly this. Would you be open to a quick 15-minute chat this week?

Best regards,
{{ .Sender }}
{{- end }}

{{- define "whatsapp" -}}
Hi {{ .Business }}! I'm {{ .Sender }}{{ with .Agency }} from {{ . }}{{ end }}. I noticed {{ .Lead }}. I help local businesses with this. Can I send you a few ideas?
{{- end }}

{{- define "call" -}}
Call script for {{ .Business }}{{ with .Phone }} ({{ . }}){{ end }}

1. Intro: "Hi, this is {{ .Sender }}{{ with .Agency }} from {{ . }}{{ end }}. Am I speaking with the owner?"
2. Hook: "I was looking at your listing and noticed {{ .Lead }}."
{{- range $i, $p := .Rest }}
{{ add $i 3 }}. Follow-up: "Also, {{ $p }}."
{{- end }}
{{ add (len .Rest) 3 }}. Ask: "Would a short meeting this week work to go over some ideas?"
{{- end }}
`))

type data struct {
	Business string
	Category string
	Phone    string
	Sender   string
	Agency   string
	Points   []string
	Lead     string
	Rest     []string
}

// Compose drafts a message of the given kind to b, mentioning its top
// opportunity factors.
func Compose(kind Kind, b model.Business, from Sender) (Message, error) {
	points := Points(b)
	d := data{
		Business: strings.TrimSpace(b.Title),
		Category: strings.ToLower(strings.TrimSpace(b.Type)),
		Phone:    b.Phone,
		Sender:   cases.Title(language.English).String(strings.TrimSpace(from.Name)),
		Agency:   strings.TrimSpace(from.Agency),
		Points:   points,
		Lead:     points[0],
		Rest:     points[1:],
	}
	if d.Sender == "" {
		d.Sender = "Your Name"
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(kind), d); err != nil {
		return Message{}, eris.Wrapf(err, "outreach: render %s", kind)
	}

	msg := Message{Kind: kind, Body: strings.TrimSpace(buf.String())}
	if kind == KindEmail {
		msg.Subject = "Quick idea for " + d.Business
	}
	return msg, nil
}

// Points returns up to two pitch lines for b's opportunity factors, in
// evaluation order. A business with no factors gets a generic line.
func Points(b model.Business) []string {
	var out []string
	for _, f := range b.OpportunityFactors {
		if p, ok := pitches[f]; ok {
			out = append(out, p)
		}
		if len(out) == maxPoints {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "there may be room to grow your online presence even further")
	}
	return out
}
