package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/config"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/crm"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/enrich"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/monitoring"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/query"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/retrieval"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/search"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/store"
	anthropicpkg "github.com/mohrashard/bizfinder-ai-sub000/pkg/anthropic"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

// searchEnv holds the clients a search session needs.
type searchEnv struct {
	Registry    *prometheus.Registry
	Metrics     *monitoring.Metrics
	Coordinator *retrieval.Coordinator
	Interpreter *query.Interpreter
}

// initSearch builds the retrieval coordinator and interpreter from config.
func initSearch(c *config.Config) *searchEnv {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	finderOpts := []enrich.Option{
		enrich.WithTimeout(time.Duration(c.Enrich.TimeoutSecs) * time.Second),
		enrich.WithCacheTTL(time.Duration(c.Enrich.CacheTTLMins) * time.Minute),
	}
	if c.Enrich.UserAgent != "" {
		finderOpts = append(finderOpts, enrich.WithUserAgent(c.Enrich.UserAgent))
	}

	opts := []retrieval.Option{
		retrieval.WithProvider(c.Places.BaseURL, c.Places.Engine),
		retrieval.WithChannels(channels(c.Relays)...),
		retrieval.WithHTTPClient(&http.Client{Timeout: time.Duration(c.Backend.TimeoutSecs) * time.Second}),
		retrieval.WithEmailFinder(enrich.NewFinder(finderOpts...)),
		retrieval.WithMetrics(metrics),
	}
	if c.Backend.URL != "" {
		opts = append(opts, retrieval.WithBackend(c.Backend.URL))
	}

	return &searchEnv{
		Registry:    reg,
		Metrics:     metrics,
		Coordinator: retrieval.New(opts...),
		Interpreter: query.NewInterpreter(func(key string) anthropicpkg.Client {
			return anthropicpkg.NewClient(key)
		}, c.Anthropic.Model),
	}
}

// NewSession starts a search session with the configured credentials.
func (e *searchEnv) NewSession(c *config.Config) *search.Session {
	return search.NewSession(e.Coordinator, e.Interpreter,
		search.Credentials{PlacesKey: c.Places.Key, LLMKey: c.Anthropic.Key},
		search.WithMetrics(e.Metrics),
	)
}

// channels maps configured relays onto retrieval channels, or the defaults
// when none are configured.
func channels(relays []config.RelayConfig) []retrieval.Channel {
	if len(relays) == 0 {
		return retrieval.DefaultChannels()
	}
	out := make([]retrieval.Channel, 0, len(relays))
	for _, r := range relays {
		out = append(out, retrieval.Relay(r.Name, r.Template))
	}
	return out
}

// placesFactory builds provider clients for the backend.
func placesFactory(c *config.Config) func(string) places.Client {
	return func(key string) places.Client {
		return places.NewClient(key,
			places.WithBaseURL(c.Places.BaseURL),
			places.WithEngine(c.Places.Engine),
		)
	}
}

// openTracker opens the configured lead store. Callers close the returned
// store.
func openTracker(ctx context.Context, c *config.Config) (*crm.Tracker, store.Store, error) {
	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open lead store")
	}
	return crm.NewTracker(st), st, nil
}
