package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func serveHTML(t *testing.T, status int, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFindEmail_MailtoWins(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>
		<p>Write to sales@acme.com</p>
		<a href="mailto:owner@acme.com?subject=Hi">Email us</a>
	</body></html>`)

	got := NewFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "owner@acme.com", got)
}

func TestFindEmail_UppercaseMailto(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<a href="MAILTO:Info@Acme.com">x</a>`)

	got := NewFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "Info@Acme.com", got)
}

func TestFindEmail_BareAddressFiltered(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html>
		<img src="logo@2x.png">
		<script>Sentry.init({dsn: "https://abc@o123.ingest.sentry.io/1"})</script>
		<p>you@example.com</p>
		<p>admin@yourdomain.com</p>
		<link href="font@latest.woff2">
		<footer>Contact: bookings@joesbarber.co.uk</footer>
	</html>`)

	got := NewFinder().FindEmail(context.Background(), srv.URL)
	assert.Equal(t, "bookings@joesbarber.co.uk", got)
}

func TestFindEmail_NoneFound(t *testing.T) {
	srv := serveHTML(t, http.StatusOK, `<html><body>Call us!</body></html>`)

	assert.Empty(t, NewFinder().FindEmail(context.Background(), srv.URL))
}

func TestFindEmail_NonSuccessStatus(t *testing.T) {
	srv := serveHTML(t, http.StatusForbidden, `<a href="mailto:blocked@acme.com">x</a>`)

	assert.Empty(t, NewFinder().FindEmail(context.Background(), srv.URL))
}

func TestFindEmail_SendsBrowserUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	NewFinder().FindEmail(context.Background(), srv.URL)
	assert.Contains(t, ua.Load(), "Mozilla/5.0")
}

func TestFindEmail_TimeoutYieldsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewFinder(WithTimeout(200 * time.Millisecond))
	start := time.Now()
	got := f.FindEmail(context.Background(), srv.URL)

	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFindEmail_DefaultTimeoutIsThreeSeconds(t *testing.T) {
	assert.Equal(t, 3*time.Second, NewFinder().timeout)
}

func TestFindEmail_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	assert.Empty(t, NewFinder().FindEmail(context.Background(), addr))
}

func TestFindEmail_EmptyURL(t *testing.T) {
	assert.Empty(t, NewFinder().FindEmail(context.Background(), ""))
}

func TestFindEmail_CachesCompletedLookups(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<a href="mailto:hi@cached.com">x</a>`))
	}))
	defer srv.Close()

	f := NewFinder(WithCacheTTL(time.Minute))
	assert.Equal(t, "hi@cached.com", f.FindEmail(context.Background(), srv.URL))
	assert.Equal(t, "hi@cached.com", f.FindEmail(context.Background(), srv.URL))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFindEmail_FailuresNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFinder(WithCacheTTL(time.Minute))
	f.FindEmail(context.Background(), srv.URL)
	f.FindEmail(context.Background(), srv.URL)
	assert.Equal(t, int32(2), hits.Load())
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"mailto beats earlier bare", `a@first.com <a href="mailto:b@second.com">`, "b@second.com"},
		{"jpg asset", `hero@3x.jpg then real@biz.com`, "real@biz.com"},
		{"js asset", `bundle@1.2.js`, ""},
		{"placeholder", `name@example.org`, ""},
		{"mailto without address", `<a href="mailto:">x</a> c@biz.io`, "c@biz.io"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEmail([]byte(tt.html)))
		})
	}
}

func TestFindEmail_DecodesDeclaredCharset(t *testing.T) {
	page, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().
		Bytes([]byte(`<p>Café Lumière</p><a href="mailto:bonjour@bistro.fr">mail</a>`))
	assert.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-16le")
		_, _ = w.Write(page)
	}))
	t.Cleanup(srv.Close)

	assert.Equal(t, "bonjour@bistro.fr", NewFinder().FindEmail(context.Background(), srv.URL))
}

func TestDecodeCharset_LeavesUnknownAlone(t *testing.T) {
	body := []byte("plain")
	assert.Equal(t, body, decodeCharset(body, "text/html; charset=x-made-up"))
	assert.Equal(t, body, decodeCharset(body, "text/html"))
	assert.Equal(t, body, decodeCharset(body, ""))
}
