// Package handler exposes the search engine and index service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/session"
	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/tracing"
)

// SearchEngine is satisfied by *searcher.Engine.
type SearchEngine interface {
	Run(ctx context.Context, req searcher.Request) (searcher.Outcome, error)
	DefaultMode() index.MatchMode
	Cache() *cache.QueryCache
}

// IndexAdmin is satisfied by *indexer.Service.
type IndexAdmin interface {
	Stats() indexer.Stats
	Detach(name string) (int, error)
}

type Handler struct {
	engine     SearchEngine
	index      IndexAdmin
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	timeout    time.Duration
	logger     *slog.Logger
}

// New builds a handler. collector and aggregator may be nil.
func New(engine SearchEngine, idx IndexAdmin, collector *analytics.Collector, aggregator *analytics.Aggregator, timeout time.Duration) *Handler {
	return &Handler{
		engine:     engine,
		index:      idx,
		collector:  collector,
		aggregator: aggregator,
		timeout:    timeout,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/status", h.IndexStatus)
	mux.HandleFunc("DELETE /api/v1/sources/{name}", h.DetachSource)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)
}

type groupResponse struct {
	Type    document.Type `json:"type"`
	Heading string        `json:"heading"`
	IDs     []string      `json:"ids"`
}

type searchResponse struct {
	Query      string             `json:"query"`
	Mode       string             `json:"mode"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	Groups     []groupResponse    `json:"groups"`
	Generation uint64             `json:"generation"`
	NotReady   bool               `json:"not_ready"`
	CacheHit   bool               `json:"cache_hit"`
	LatencyMs  float64            `json:"latency_ms"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Start(r.Context(), "http.search")
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()
	params := r.URL.Query()

	mode := h.engine.DefaultMode()
	if v := params.Get("mode"); v != "" {
		parsed, ok := index.ParseMode(v)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "mode must be strict or suggest")
			return
		}
		mode = parsed
	}

	limit := 0
	if v := params.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	req := searcher.Request{Query: params.Get("q"), Limit: limit, Mode: mode}
	var out searcher.Outcome
	err := resilience.WithTimeout(ctx, h.timeout, "search", func(ctx context.Context) error {
		var err error
		out, err = h.engine.Run(ctx, req)
		return err
	})
	if err != nil {
		log.Error("search execution failed", "query", req.Query, "error", err)
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.New(apperrors.ErrTimeout, http.StatusServiceUnavailable, "search timed out")
		}
		h.writeAppError(w, err)
		return
	}

	resp := searchResponse{
		Query:      out.Query,
		Mode:       out.Mode,
		TotalHits:  out.TotalHits,
		Results:    out.Results,
		Groups:     groupsOf(out.Results),
		Generation: out.Generation,
		NotReady:   out.NotReady,
		CacheHit:   out.CacheHit,
		LatencyMs:  float64(out.Latency.Microseconds()) / 1000,
	}

	if !out.Plan.Empty() {
		log.Info("search completed",
			"query", req.Query,
			"mode", out.Mode,
			"total_hits", out.TotalHits,
			"returned", len(out.Results),
			"cache_hit", out.CacheHit,
			"not_ready", out.NotReady,
			"latency_ms", resp.LatencyMs,
		)
		h.track(ctx, out)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) track(ctx context.Context, out searcher.Outcome) {
	if h.collector == nil {
		return
	}
	eventType := analytics.EventCacheMiss
	switch {
	case out.NotReady:
		eventType = analytics.EventNotReady
	case out.TotalHits == 0:
		eventType = analytics.EventZeroResult
	case out.CacheHit:
		eventType = analytics.EventCacheHit
	}
	h.collector.Track(analytics.SearchEvent{
		Type:      eventType,
		Query:     out.Plan.RawQuery,
		Mode:      out.Mode,
		Terms:     out.Plan.Terms,
		TotalHits: out.TotalHits,
		Returned:  len(out.Results),
		LatencyMs: out.Latency.Milliseconds(),
		CacheHit:  out.CacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
}

func groupsOf(results []ranker.ScoredDoc) []groupResponse {
	docs := make([]document.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	groups := session.GroupDocuments(docs)
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		ids := make([]string, len(g.Docs))
		for j, d := range g.Docs {
			ids[j] = d.ID
		}
		out[i] = groupResponse{Type: g.Type, Heading: g.Heading, IDs: ids}
	}
	return out
}

func (h *Handler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

// DetachSource unsubscribes a source and purges the documents it owns.
func (h *Handler) DetachSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	purged, err := h.index.Detach(name)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.logger.Info("source detached", "source", name, "purged", purged)
	h.writeJSON(w, http.StatusOK, map[string]any{"source": name, "purged": purged})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.engine.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"backend":  c.Backend(),
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.engine.Cache()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := c.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
}
