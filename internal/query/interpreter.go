// Package query turns a free-text search phrase into a StructuredQuery.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/anthropic"
)

const systemPrompt = `You convert local business search phrases into search parameters.
Respond with ONLY a JSON object, no other text, in exactly this shape:
{"category": "string", "location": "string", "filters": {"noWebsite": false, "openNow": false, "minRating": 0, "noSocials": false, "hasSocials": false}}
category is the kind of business. location is the city, area or address, or "" if none is given.
Set a filter only when the phrase asks for it.`

// responseSchema is the accepted shape of the model output.
const responseSchema = `{
	"type": "object",
	"required": ["category"],
	"properties": {
		"category": {"type": "string", "minLength": 1},
		"location": {"type": ["string", "null"]},
		"filters": {
			"type": ["object", "null"],
			"properties": {
				"noWebsite":  {"type": ["boolean", "null"]},
				"openNow":    {"type": ["boolean", "null"]},
				"minRating":  {"type": ["number", "null"], "minimum": 0, "maximum": 5},
				"noSocials":  {"type": ["boolean", "null"]},
				"hasSocials": {"type": ["boolean", "null"]}
			}
		}
	}
}`

var schema = mustSchema(responseSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("query: compile response schema: %v", err))
	}
	return sc
}

// ClientFactory builds an LLM client for a credential.
type ClientFactory func(apiKey string) anthropic.Client

// Interpreter turns user text into a StructuredQuery. It never fails: every
// error path resolves to a best-effort query.
type Interpreter struct {
	newClient ClientFactory
	model     string
}

// NewInterpreter creates an Interpreter. A nil factory uses the SDK client;
// an empty model uses anthropic.DefaultModel.
func NewInterpreter(newClient ClientFactory, model string) *Interpreter {
	if newClient == nil {
		newClient = func(apiKey string) anthropic.Client { return anthropic.NewClient(apiKey) }
	}
	if model == "" {
		model = anthropic.DefaultModel
	}
	return &Interpreter{newClient: newClient, model: model}
}

// Interpret parses text. With no apiKey it uses the keyword heuristic; with a
// key it asks the model and falls back to Degraded on any failure.
func (i *Interpreter) Interpret(ctx context.Context, text, apiKey string) model.StructuredQuery {
	if apiKey == "" {
		return Heuristic(text)
	}

	q, err := i.ask(ctx, text, apiKey)
	if err != nil {
		zap.L().Warn("query: llm interpretation failed, using raw text", zap.String("text", text), zap.Error(err))
		return Degraded(text)
	}
	return q
}

func (i *Interpreter) ask(ctx context.Context, text, apiKey string) (model.StructuredQuery, error) {
	temp := 0.0
	resp, err := i.newClient(apiKey).CreateMessage(ctx, anthropic.MessageRequest{
		Model:       i.model,
		MaxTokens:   256,
		System:      []anthropic.SystemBlock{{Text: systemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: fmt.Sprintf("Extract search parameters from this query: %q", text)}},
		Temperature: &temp,
	})
	if err != nil {
		return model.StructuredQuery{}, eris.Wrap(err, "query: llm request")
	}
	if resp == nil {
		return model.StructuredQuery{}, eris.New("query: no llm response")
	}
	resp.Usage.LogCost(i.model, "interpret")

	return Parse(resp.Text())
}

// Parse strips code fences from a model reply, validates it against the
// response schema and decodes it.
func Parse(reply string) (model.StructuredQuery, error) {
	raw := StripCodeFences(reply)
	if raw == "" {
		return model.StructuredQuery{}, eris.New("query: empty llm response")
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return model.StructuredQuery{}, eris.Wrap(err, "query: parse llm json")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return model.StructuredQuery{}, eris.Errorf("query: llm json does not match schema: %s", strings.Join(msgs, "; "))
	}

	var wire struct {
		Category string  `json:"category"`
		Location *string `json:"location"`
		Filters  *struct {
			NoWebsite  *bool    `json:"noWebsite"`
			OpenNow    *bool    `json:"openNow"`
			MinRating  *float64 `json:"minRating"`
			NoSocials  *bool    `json:"noSocials"`
			HasSocials *bool    `json:"hasSocials"`
		} `json:"filters"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return model.StructuredQuery{}, eris.Wrap(err, "query: decode llm json")
	}

	q := model.StructuredQuery{Category: strings.TrimSpace(wire.Category)}
	if wire.Location != nil {
		q.Location = strings.TrimSpace(*wire.Location)
	}
	if f := wire.Filters; f != nil {
		q.Filters = model.QueryFilters{
			NoWebsite:  deref(f.NoWebsite),
			OpenNow:    deref(f.OpenNow),
			MinRating:  deref(f.MinRating),
			NoSocials:  deref(f.NoSocials),
			HasSocials: deref(f.HasSocials),
		}
	}
	return q, nil
}

// StripCodeFences removes markdown code fence markers around a reply.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Heuristic is the no-credential interpretation: the whole phrase is the
// category, and "without website" / "no website" sets the noWebsite filter.
func Heuristic(text string) model.StructuredQuery {
	lower := strings.ToLower(text)
	return model.StructuredQuery{
		Category: text,
		Filters: model.QueryFilters{
			NoWebsite: strings.Contains(lower, "without website") || strings.Contains(lower, "no website"),
		},
	}
}

// Degraded is the result of a failed interpretation.
func Degraded(text string) model.StructuredQuery {
	return model.StructuredQuery{Category: text}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
