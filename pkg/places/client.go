// Package places provides a client for the Google Maps places search engine
// exposed by SerpApi-compatible providers.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://serpapi.com"
	defaultEngine  = "google_maps"

	// maxResponseBytes caps provider response bodies.
	maxResponseBytes = 4 << 20
)

// noResultsMarker is how the provider reports an empty result set. It arrives
// in the error field but is not a failure.
const noResultsMarker = "hasn't returned any results"

var payloadKeys = []string{"local_results", "search_metadata"}

// ErrMalformedResponse means a 200 body parsed as JSON but is not a search
// payload.
var ErrMalformedResponse = eris.New("places: response is not a search payload")

// Client performs places search operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is one page of a places search.
type SearchRequest struct {
	Query  string
	Offset int
}

// SearchResponse is the provider's search payload.
type SearchResponse struct {
	LocalResults []Place `json:"local_results"`
	Error        string  `json:"error,omitempty"`
}

// Place is one raw place record as returned by the provider.
type Place struct {
	Title          string          `json:"title" yaml:"title"`
	Address        string          `json:"address" yaml:"address"`
	Phone          string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website        string          `json:"website,omitempty" yaml:"website,omitempty"`
	Rating         float64         `json:"rating,omitempty" yaml:"rating,omitempty"`
	Reviews        int             `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	Type           string          `json:"type,omitempty" yaml:"type,omitempty"`
	OpenState      string          `json:"open_state,omitempty" yaml:"open_state,omitempty"`
	Hours          string          `json:"hours,omitempty" yaml:"hours,omitempty"`
	GPSCoordinates *GPSCoordinates `json:"gps_coordinates,omitempty" yaml:"gps_coordinates,omitempty"`
	Email          string          `json:"email,omitempty" yaml:"email,omitempty"`
	// Links holds auxiliary URLs (social profiles, booking pages) some
	// providers pre-extract from the listing.
	Links []string `json:"links,omitempty" yaml:"links,omitempty"`
}

// GPSCoordinates is a provider lat/lng pair.
type GPSCoordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// ProviderError is a failure reported by the provider itself, such as an
// invalid or exhausted API key. Retrying through another route does not help.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("places: provider error (status %d): %s", e.StatusCode, e.Message)
}

// StatusError is a non-200 response that carried no provider error message,
// typically a gateway or rate-limit page.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("places: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("places: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithEngine overrides the search engine parameter.
func WithEngine(engine string) Option {
	return func(c *httpClient) {
		c.engine = engine
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	engine  string
	http    *http.Client
}

// NewClient creates a places search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		engine:  defaultEngine,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	target := BuildURL(c.baseURL, c.engine, c.apiKey, req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	return Decode(resp.StatusCode, body)
}

// BuildURL returns the upstream search URL for req. Relays fetch this URL on
// the caller's behalf, so it carries every parameter including the key.
func BuildURL(baseURL, engine, apiKey string, req SearchRequest) string {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if engine == "" {
		engine = defaultEngine
	}
	q := url.Values{}
	q.Set("engine", engine)
	q.Set("type", "search")
	q.Set("q", req.Query)
	if req.Offset > 0 {
		q.Set("start", strconv.Itoa(req.Offset))
	}
	if apiKey != "" {
		q.Set("api_key", apiKey)
	}
	return strings.TrimRight(baseURL, "/") + "/search.json?" + q.Encode()
}

// Decode parses a provider response body. A provider-reported error becomes a
// *ProviderError, except the "no results" notice which yields an empty page.
// A 200 body without local_results or search_metadata is ErrMalformedResponse.
func Decode(statusCode int, body []byte) (*SearchResponse, error) {
	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if statusCode != http.StatusOK {
			return nil, &StatusError{StatusCode: statusCode, Body: truncate(string(body), 200)}
		}
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	if result.Error != "" {
		if strings.Contains(result.Error, noResultsMarker) {
			return &SearchResponse{}, nil
		}
		return nil, &ProviderError{StatusCode: statusCode, Message: result.Error}
	}

	if statusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: statusCode}
	}

	if !isSearchPayload(body) {
		return nil, ErrMalformedResponse
	}
	return &result, nil
}

// isSearchPayload reports whether body is an object carrying one of the keys
// every search payload has. Wrappers, challenge pages and null do not.
func isSearchPayload(body []byte) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return false
	}
	for _, k := range payloadKeys {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
