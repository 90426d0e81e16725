// Package api serves the first-party search backend: the primary retrieval
// channel, query interpretation and the lead tracker over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/crm"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/monitoring"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/resilience"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/retrieval"
	"github.com/mohrashard/bizfinder-ai-sub000/pkg/places"
)

// Interpreter turns free text into a structured query.
type Interpreter interface {
	Interpret(ctx context.Context, text, apiKey string) model.StructuredQuery
}

// Deps are the collaborators the router serves.
type Deps struct {
	// PlacesKey is the server's own provider key. When empty, the caller's
	// key header is used instead.
	PlacesKey string
	// NewPlaces builds a provider client for a key.
	NewPlaces func(apiKey string) places.Client
	// Breaker and Retry guard provider calls. Both are optional.
	Breaker *resilience.Breaker
	Retry   resilience.RetryConfig

	Interpreter Interpreter
	LLMKey      string

	Leads *crm.Tracker

	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer

	RateLimit   float64
	Burst       int
	CORSOrigins []string
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", retrieval.KeyHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(withRequestID)
	r.Use(accessLog(d.Metrics))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	h := &handlers{deps: d}
	r.Route("/api", func(r chi.Router) {
		if d.RateLimit > 0 {
			burst := d.Burst
			if burst <= 0 {
				burst = 1
			}
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(d.RateLimit), burst)))
		}
		r.Get("/search", h.search)
		r.Post("/interpret", h.interpret)
		r.Get("/leads", h.listLeads)
		r.Put("/leads", h.saveLead)
		r.Delete("/leads", h.removeLead)
	})

	return r
}

type handlers struct {
	deps Deps
}

// search is the primary retrieval channel. Provider-reported errors are
// relayed in an "error" field with 502; every other failure uses "message"
// so clients fall through to their own channels.
func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeMessage(w, http.StatusBadRequest, "q is required")
		return
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	key := h.deps.PlacesKey
	if key == "" {
		key = r.Header.Get(retrieval.KeyHeader)
	}
	if key == "" || h.deps.NewPlaces == nil {
		writeMessage(w, http.StatusServiceUnavailable, "search is not configured on this server")
		return
	}

	client := h.deps.NewPlaces(key)
	req := places.SearchRequest{Query: q, Offset: offset}
	resp, err := resilience.Call(r.Context(), h.deps.Breaker, func(ctx context.Context) (*places.SearchResponse, error) {
		return resilience.Retry(ctx, h.deps.Retry, func(ctx context.Context) (*places.SearchResponse, error) {
			return client.Search(ctx, req)
		})
	})
	if err != nil {
		var pe *places.ProviderError
		if errors.As(err, &pe) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": pe.Message})
			return
		}
		if errors.Is(err, resilience.ErrCircuitOpen) {
			writeMessage(w, http.StatusServiceUnavailable, "provider temporarily unavailable")
			return
		}
		zap.L().Warn("api: provider unreachable",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeMessage(w, http.StatusServiceUnavailable, "provider unreachable")
		return
	}
	if resp.LocalResults == nil {
		resp.LocalResults = []places.Place{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) interpret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeMessage(w, http.StatusBadRequest, "text is required")
		return
	}
	if h.deps.Interpreter == nil {
		writeMessage(w, http.StatusServiceUnavailable, "interpreter is not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Interpreter.Interpret(r.Context(), req.Text, h.deps.LLMKey))
}

func (h *handlers) listLeads(w http.ResponseWriter, r *http.Request) {
	if !h.leadsEnabled(w) {
		return
	}
	var status crm.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := crm.ParseStatus(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "unknown status")
			return
		}
		status = s
	}
	entries, err := h.deps.Leads.List(r.Context(), status)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type saveLeadRequest struct {
	Business *model.Business `json:"business"`
	Status   string          `json:"status,omitempty"`
	Notes    *string         `json:"notes,omitempty"`
}

// saveLead stores the business snapshot, then applies status and notes
// when given.
func (h *handlers) saveLead(w http.ResponseWriter, r *http.Request) {
	if !h.leadsEnabled(w) {
		return
	}
	var req saveLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Business == nil || strings.TrimSpace(req.Business.Title) == "" {
		writeMessage(w, http.StatusBadRequest, "business.title is required")
		return
	}
	var status crm.Status
	if req.Status != "" {
		s, err := crm.ParseStatus(req.Status)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "unknown status")
			return
		}
		status = s
	}

	ctx := r.Context()
	entry, err := h.deps.Leads.Save(ctx, *req.Business)
	if err == nil && status != "" {
		entry, err = h.deps.Leads.SetStatus(ctx, req.Business.Key(), status)
	}
	if err == nil && req.Notes != nil {
		entry, err = h.deps.Leads.SetNotes(ctx, req.Business.Key(), *req.Notes)
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *handlers) removeLead(w http.ResponseWriter, r *http.Request) {
	if !h.leadsEnabled(w) {
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeMessage(w, http.StatusBadRequest, "key is required")
		return
	}
	err := h.deps.Leads.Remove(r.Context(), key)
	if errors.Is(err, crm.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) leadsEnabled(w http.ResponseWriter) bool {
	if h.deps.Leads == nil {
		writeMessage(w, http.StatusServiceUnavailable, "lead tracking is not configured")
		return false
	}
	return true
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("api: request failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	)
	writeMessage(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
