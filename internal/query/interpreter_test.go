package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockAnthropicClient implements anthropic.Client for testing.
type mockAnthropicClient struct {
	response *anthropic.MessageResponse
	err      error
	lastReq  anthropic.MessageRequest
}

func (m *mockAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}
}

func interpreterWith(client *mockAnthropicClient, gotKey *string) *Interpreter {
	return NewInterpreter(func(apiKey string) anthropic.Client {
		if gotKey != nil {
			*gotKey = apiKey
		}
		return client
	}, "")
}

func TestInterpret_NoKeyHeuristic(t *testing.T) {
	called := false
	i := NewInterpreter(func(string) anthropic.Client {
		called = true
		return &mockAnthropicClient{}
	}, "")

	q := i.Interpret(context.Background(), "Plumbers in Leeds WITHOUT Website", "")

	assert.False(t, called)
	assert.Equal(t, "Plumbers in Leeds WITHOUT Website", q.Category)
	assert.Empty(t, q.Location)
	assert.True(t, q.Filters.NoWebsite)
	assert.False(t, q.Filters.OpenNow)
	assert.Zero(t, q.Filters.MinRating)
}

func TestHeuristic(t *testing.T) {
	assert.True(t, Heuristic("cafes with no website").Filters.NoWebsite)
	assert.False(t, Heuristic("cafes with a website").Filters.NoWebsite)
	assert.Equal(t, model.QueryFilters{}, Heuristic("gyms").Filters)
}

func TestInterpret_LLMSuccess(t *testing.T) {
	client := &mockAnthropicClient{response: textResponse("```json\n" +
		`{"category": "dentists", "location": "Austin, TX", "filters": {"noWebsite": true, "openNow": false, "minRating": 4.0, "noSocials": false, "hasSocials": true}}` +
		"\n```")}
	var key string
	i := interpreterWith(client, &key)

	q := i.Interpret(context.Background(), "dentists in austin rated 4+ without a site", "sk-test")

	assert.Equal(t, "sk-test", key)
	assert.Equal(t, model.StructuredQuery{
		Category: "dentists",
		Location: "Austin, TX",
		Filters:  model.QueryFilters{NoWebsite: true, MinRating: 4.0, HasSocials: true},
	}, q)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Contains(t, client.lastReq.Messages[0].Content, "dentists in austin rated 4+ without a site")
	assert.Equal(t, anthropic.DefaultModel, client.lastReq.Model)
}

func TestInterpret_NullFilters(t *testing.T) {
	client := &mockAnthropicClient{response: textResponse(`{"category": "bakeries", "location": null, "filters": {"minRating": null, "openNow": true}}`)}

	q := interpreterWith(client, nil).Interpret(context.Background(), "open bakeries", "k")

	assert.Equal(t, "bakeries", q.Category)
	assert.Empty(t, q.Location)
	assert.True(t, q.Filters.OpenNow)
	assert.Zero(t, q.Filters.MinRating)
}

func TestInterpret_DegradesOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		client *mockAnthropicClient
	}{
		{"network error", &mockAnthropicClient{err: errors.New("dial tcp: connection refused")}},
		{"malformed json", &mockAnthropicClient{response: textResponse(`{"category": "dentists"`)}},
		{"not json", &mockAnthropicClient{response: textResponse("Sure! Here are dentists.")}},
		{"empty content", &mockAnthropicClient{response: &anthropic.MessageResponse{}}},
		{"nil response", &mockAnthropicClient{}},
		{"missing category", &mockAnthropicClient{response: textResponse(`{"location": "Austin"}`)}},
		{"wrong types", &mockAnthropicClient{response: textResponse(`{"category": "x", "filters": {"noWebsite": "yes"}}`)}},
		{"rating out of range", &mockAnthropicClient{response: textResponse(`{"category": "x", "filters": {"minRating": 9}}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := interpreterWith(tt.client, nil).Interpret(context.Background(), "dentists without website", "k")
			assert.Equal(t, Degraded("dentists without website"), q)
			assert.False(t, q.Filters.NoWebsite, "degraded result carries no filters")
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
}

func TestParse_EmptyReply(t *testing.T) {
	_, err := Parse("```json\n```")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
