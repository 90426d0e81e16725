// Package retrieval runs a places search through the first-party backend,
// falls back through ordered alternate channels, and turns the raw records
// into enriched, scored businesses.
package retrieval

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/monitoring"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/normalize"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

const (
	// PageSize is the number of records per provider page and the offset
	// increment between pages.
	PageSize = 20

	// maxEnrichConcurrency caps concurrent email lookups per page.
	maxEnrichConcurrency = 50

	// PrimaryChannel names the first-party backend in logs and metrics.
	PrimaryChannel = "primary"

	// KeyHeader carries the caller's places key to the backend.
	KeyHeader = "X-Places-Key"

	maxBodyBytes = 4 << 20
)

// Credentials are passed explicitly on every search.
type Credentials struct {
	PlacesKey string
}

// EmailFinder looks up a contact email for a website. It must not fail:
// absence is "".
type EmailFinder interface {
	FindEmail(ctx context.Context, url string) string
}

// Coordinator executes searches. It keeps no state between calls; the
// caller owns the offset.
type Coordinator struct {
	backendURL  string
	providerURL string
	engine      string
	channels    []Channel
	http        *http.Client
	finder      EmailFinder
	metrics     *monitoring.Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBackend sets the first-party backend base URL. Empty means no backend
// is deployed and searches go straight to the fallback channels.
func WithBackend(baseURL string) Option {
	return func(c *Coordinator) {
		c.backendURL = strings.TrimRight(baseURL, "/")
	}
}

// WithProvider sets the upstream provider base URL and engine used to build
// the URL the fallback channels fetch.
func WithProvider(baseURL, engine string) Option {
	return func(c *Coordinator) {
		c.providerURL = baseURL
		c.engine = engine
	}
}

// WithChannels replaces the fallback channels. Order is attempt order.
func WithChannels(channels ...Channel) Option {
	return func(c *Coordinator) {
		c.channels = channels
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Coordinator) {
		c.http = hc
	}
}

// WithEmailFinder enables contact enrichment.
func WithEmailFinder(f EmailFinder) Option {
	return func(c *Coordinator) {
		c.finder = f
	}
}

// WithMetrics records channel and enrichment outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New creates a Coordinator with the default fallback channels.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		channels: DefaultChannels(),
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search returns one page of businesses for q starting at offset. It fails
// with a *places.ProviderError when the backend reports a provider error,
// ErrNoCredential when fallback is needed without a key, and an error
// matching ErrConnectivity when every channel fails.
func (c *Coordinator) Search(ctx context.Context, q model.StructuredQuery, offset int, creds Credentials) ([]model.Business, error) {
	start := time.Now()
	defer c.metrics.ObserveSearch(start)

	if offset < 0 {
		offset = 0
	}
	req := places.SearchRequest{Query: q.Text(), Offset: offset}
	log := zap.L().With(zap.String("query", req.Query), zap.Int("offset", offset))

	records, err := c.primary(ctx, req, creds)
	c.metrics.ChannelAttempt(PrimaryChannel, err == nil)
	if err == nil {
		log.Info("retrieval: primary channel succeeded", zap.Int("records", len(records)))
		return c.Enrich(ctx, records), nil
	}

	var unavailable *unavailableError
	if !errors.As(err, &unavailable) {
		return nil, err
	}
	log.Warn("retrieval: primary channel unavailable, trying fallbacks", zap.Error(err))

	if creds.PlacesKey == "" {
		return nil, ErrNoCredential
	}

	records, err = c.fallback(ctx, req, creds, ChannelFailure{Channel: PrimaryChannel, Err: err})
	if err != nil {
		return nil, err
	}
	return c.Enrich(ctx, records), nil
}

func (c *Coordinator) primary(ctx context.Context, req places.SearchRequest, creds Credentials) ([]places.Place, error) {
	if c.backendURL == "" {
		return nil, &unavailableError{reason: "not configured"}
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("offset", strconv.Itoa(req.Offset))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.backendURL+"/api/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: create primary request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if creds.PlacesKey != "" {
		httpReq.Header.Set(KeyHeader, creds.PlacesKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "retrieval: primary")
		}
		return nil, &unavailableError{reason: "network", err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &unavailableError{reason: "read", err: err}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, &unavailableError{reason: "route not found"}
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		// A gateway status carrying a provider error is still a provider error.
		if _, err := places.Decode(resp.StatusCode, body); isProviderError(err) {
			return nil, err
		}
		return nil, &unavailableError{reason: "status " + strconv.Itoa(resp.StatusCode)}
	}

	result, err := places.Decode(resp.StatusCode, body)
	if err != nil {
		if isProviderError(err) {
			return nil, err
		}
		// Reachable but not speaking the search protocol, e.g. a static
		// host answering every route with an HTML page.
		return nil, &unavailableError{reason: "malformed response", err: err}
	}
	return result.LocalResults, nil
}

func (c *Coordinator) fallback(ctx context.Context, req places.SearchRequest, creds Credentials, primaryFailure ChannelFailure) ([]places.Place, error) {
	upstream := places.BuildURL(c.providerURL, c.engine, creds.PlacesKey, req)
	failures := []ChannelFailure{primaryFailure}

	for _, ch := range c.channels {
		records, err := c.fetchChannel(ctx, ch, upstream)
		c.metrics.ChannelAttempt(ch.Name, err == nil)
		if err == nil {
			zap.L().Info("retrieval: fallback channel succeeded",
				zap.String("channel", ch.Name),
				zap.Int("records", len(records)),
			)
			return records, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "retrieval: fallback")
		}
		zap.L().Warn("retrieval: fallback channel failed, trying next",
			zap.String("channel", ch.Name),
			zap.Error(err),
		)
		failures = append(failures, ChannelFailure{Channel: ch.Name, Err: err})
	}

	return nil, &ConnectivityError{Failures: failures}
}

func (c *Coordinator) fetchChannel(ctx context.Context, ch Channel, upstream string) ([]places.Place, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ch.Endpoint(upstream), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieval: create %s request", ch.Name)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieval: %s", ch.Name)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "retrieval: read %s response", ch.Name)
	}

	result, err := places.Decode(resp.StatusCode, body)
	if err != nil {
		return nil, err
	}
	return result.LocalResults, nil
}

// Enrich normalizes records and looks up a contact email for every business
// that has its own website but no email, concurrently. Output order matches
// input order. A business gaining an email is normalized again so its score
// reflects the new field.
func (c *Coordinator) Enrich(ctx context.Context, records []places.Place) []model.Business {
	out := make([]model.Business, len(records))
	if len(records) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(min(len(records), maxEnrichConcurrency))

	for i, p := range records {
		g.Go(func() error {
			b := normalize.Normalize(p)
			if c.finder != nil && b.Website != "" && b.Email == "" {
				email := c.finder.FindEmail(ctx, b.Website)
				c.metrics.Enrichment(email != "")
				if email != "" {
					p.Email = email
					b = normalize.Normalize(p)
				}
			}
			out[i] = b
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func isProviderError(err error) bool {
	var pe *places.ProviderError
	return errors.As(err, &pe)
}
