// Package search drives a user search session: interpret the text, fetch
// pages through retrieval, and fall back to demo data when the first page
// cannot be fetched.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/demo"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/monitoring"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/retrieval"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

// Notices shown alongside demo data.
const (
	NoticeNoCredential = "No places API key is configured, so demo data is shown. Add a key to run live searches."
	NoticeConnectivity = "The search service could not be reached, so demo data is shown. Check your connection and try again."
	NoticeProvider     = "The search provider rejected the request, so demo data is shown: "
)

var (
	// ErrSuperseded means a newer operation started before this one finished;
	// its result was discarded.
	ErrSuperseded = eris.New("search: superseded by a newer request")

	// ErrEmptyQuery rejects blank search text.
	ErrEmptyQuery = eris.New("search: empty query")

	// ErrNoActiveSearch means LoadMore was called without a live result set.
	ErrNoActiveSearch = eris.New("search: no live search to continue")
)

// Searcher fetches one page of businesses.
type Searcher interface {
	Search(ctx context.Context, q model.StructuredQuery, offset int, creds retrieval.Credentials) ([]model.Business, error)
}

// Interpreter turns free text into a structured query. It never fails.
type Interpreter interface {
	Interpret(ctx context.Context, text, apiKey string) model.StructuredQuery
}

// Credentials are the user-supplied keys for one session.
type Credentials struct {
	PlacesKey string
	LLMKey    string
}

// Snapshot is the visible state of a session after an operation.
type Snapshot struct {
	ID      string                `json:"id"`
	Query   model.StructuredQuery `json:"query"`
	Offset  int                   `json:"offset"`
	Results []model.Business      `json:"results"`
	Demo    bool                  `json:"demo"`
	Notice  string                `json:"notice,omitempty"`
	HasMore bool                  `json:"has_more"`
}

// Session is a single-consumer search session. Overlapping calls are safe:
// each Search takes a new generation and only the latest may publish results.
// LoadMore continues the generation it started from and is discarded once a
// newer Search begins.
type Session struct {
	id          string
	searcher    Searcher
	interpreter Interpreter
	creds       Credentials
	demoData    func() []model.Business
	metrics     *monitoring.Metrics

	searches atomic.Uint64
	loads    atomic.Uint64

	mu         sync.Mutex
	generation uint64
	query      model.StructuredQuery
	offset  int
	results []model.Business
	demo    bool
	notice  string
	hasMore bool
	active  bool
}

// Option configures a Session.
type Option func(*Session)

// WithDemoData overrides the demo dataset source.
func WithDemoData(fn func() []model.Business) Option {
	return func(s *Session) {
		s.demoData = fn
	}
}

// WithMetrics records demo fallbacks.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession creates a session.
func NewSession(searcher Searcher, interpreter Interpreter, creds Credentials, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		searcher:    searcher,
		interpreter: interpreter,
		creds:       creds,
		demoData:    demo.Businesses,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Search interprets text and fetches the first page. Any retrieval failure
// other than cancellation is replaced by demo data with a notice; the
// returned error is then nil.
func (s *Session) Search(ctx context.Context, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.Snapshot(), ErrEmptyQuery
	}

	gen := s.searches.Add(1)
	log := zap.L().With(zap.String("session", s.id), zap.Uint64("generation", gen))

	q := s.interpreter.Interpret(ctx, text, s.creds.LLMKey)
	log.Info("search: interpreted query",
		zap.String("category", q.Category),
		zap.String("location", q.Location),
	)

	results, err := s.searcher.Search(ctx, q, 0, retrieval.Credentials{PlacesKey: s.creds.PlacesKey})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.searches.Load() != gen {
		log.Debug("search: discarding stale result")
		return s.snapshotLocked(), ErrSuperseded
	}
	// The displayed results stay, so LoadMore may keep continuing them.
	s.generation = gen
	if err != nil && ctx.Err() != nil {
		return s.snapshotLocked(), eris.Wrap(ctx.Err(), "search")
	}

	s.query = q
	s.offset = 0

	if err != nil {
		reason, notice := classify(err)
		log.Warn("search: showing demo data", zap.String("reason", reason), zap.Error(err))
		s.metrics.DemoFallback(reason)

		s.results = s.demoData()
		s.demo = true
		s.notice = notice
		s.hasMore = false
		s.active = false
		return s.snapshotLocked(), nil
	}

	s.results = results
	s.demo = false
	s.notice = ""
	s.hasMore = len(results) == retrieval.PageSize
	s.active = true
	return s.snapshotLocked(), nil
}

// LoadMore fetches the next page of the current query at offset+PageSize and
// appends it. On failure the existing results are kept and the error is
// returned; the offset only advances on success.
func (s *Session) LoadMore(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if !s.active {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrNoActiveSearch
	}
	gen := s.generation
	q := s.query
	next := s.offset + retrieval.PageSize
	s.mu.Unlock()

	req := s.loads.Add(1)
	// A Search in flight owns the session; its results replace this query.
	if s.searches.Load() != gen {
		return s.Snapshot(), ErrSuperseded
	}
	results, err := s.searcher.Search(ctx, q, next, retrieval.Credentials{PlacesKey: s.creds.PlacesKey})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.searches.Load() != gen || s.loads.Load() != req {
		return s.snapshotLocked(), ErrSuperseded
	}
	if err != nil {
		zap.L().Warn("search: load more failed",
			zap.String("session", s.id),
			zap.Int("offset", next),
			zap.Error(err),
		)
		return s.snapshotLocked(), err
	}

	s.offset = next
	s.results = append(s.results, results...)
	s.hasMore = len(results) == retrieval.PageSize
	return s.snapshotLocked(), nil
}

// DismissNotice clears the demo notice; the demo flag stays.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	results := make([]model.Business, len(s.results))
	copy(results, s.results)
	return Snapshot{
		ID:      s.id,
		Query:   s.query,
		Offset:  s.offset,
		Results: results,
		Demo:    s.demo,
		Notice:  s.notice,
		HasMore: s.hasMore,
	}
}

func classify(err error) (reason, notice string) {
	var pe *places.ProviderError
	switch {
	case errors.Is(err, retrieval.ErrNoCredential):
		return "no_credential", NoticeNoCredential
	case errors.As(err, &pe):
		return "provider_error", NoticeProvider + pe.Message
	default:
		return "connectivity", NoticeConnectivity
	}
}
