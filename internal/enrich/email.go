// Package enrich discovers contact details from a business's own website.
package enrich

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultTimeout bounds one lookup end to end.
	DefaultTimeout = 3 * time.Second

	// DefaultUserAgent is a desktop browser agent; some sites reject bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxPageBytes = 1 << 20
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Asset extensions that show up after an "@" in retina image names and
// bundled file references.
var assetExtensions = []string{"png", "jpg", "jpeg", "gif", "svg", "webp", "css", "js", "woff", "woff2"}

// Substrings of tracking snippets and placeholder copy.
var placeholderMarkers = []string{"sentry", "example", "domain"}

// Finder looks up a contact email on a website. A Finder is safe for
// concurrent use.
type Finder struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	cache     *cache.Cache
}

// Option configures a Finder.
type Option func(*Finder)

// WithTimeout overrides the per-lookup bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Finder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Finder) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Finder) {
		f.client = hc
	}
}

// WithCacheTTL caches completed lookups per URL for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(f *Finder) {
		if ttl > 0 {
			f.cache = cache.New(ttl, 2*ttl)
		} else {
			f.cache = nil
		}
	}
}

// NewFinder creates a Finder with a 3 second bound and a browser User-Agent.
func NewFinder(opts ...Option) *Finder {
	f := &Finder{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: DefaultTimeout,
				}).DialContext,
				TLSHandshakeTimeout: DefaultTimeout,
			},
		},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FindEmail fetches pageURL once and returns the first contact email found,
// or "" when the page is unreachable, slow, non-2xx, or has none. It never
// returns an error and never retries.
func (f *Finder) FindEmail(ctx context.Context, pageURL string) string {
	if pageURL == "" {
		return ""
	}
	if f.cache != nil {
		if v, ok := f.cache.Get(pageURL); ok {
			return v.(string)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.fetch(ctx, pageURL)
	if err != nil {
		zap.L().Debug("enrich: fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}

	email := ExtractEmail(body)
	if f.cache != nil {
		f.cache.Set(pageURL, email, cache.DefaultExpiration)
	}
	return email
}

func (f *Finder) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("enrich: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read body")
	}
	return decodeCharset(body, resp.Header.Get("Content-Type")), nil
}

// decodeCharset converts a page declared in a non-UTF-8 charset to UTF-8.
// Unknown charsets and decode failures leave the body untouched.
func decodeCharset(body []byte, contentType string) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

// ExtractEmail returns the best email in an HTML page: a mailto: link first,
// then the first bare address that is not an asset name or placeholder.
func ExtractEmail(body []byte) string {
	if email := mailtoEmail(body); email != "" {
		return email
	}
	for _, candidate := range emailRe.FindAllString(string(body), -1) {
		if plausible(candidate) {
			return candidate
		}
	}
	return ""
}

func mailtoEmail(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
			return true
		}
		if m := emailRe.FindString(href[len("mailto:"):]); m != "" {
			found = m
			return false
		}
		return true
	})
	return found
}

func plausible(email string) bool {
	lower := strings.ToLower(email)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, "."+ext) {
			return false
		}
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
