// Package searcher composes query parsing, execution, ranking and the
// optional result cache into the query surface used by the HTTP handler and
// the palette session.
package searcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/tracing"
)

type Option func(*Engine)

// WithCache enables result caching.
func WithCache(c *cache.QueryCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

type Request struct {
	Query string
	Limit int
	Mode  index.MatchMode
}

// Outcome is a search result together with how it was produced.
type Outcome struct {
	*executor.SearchResult
	Plan     *parser.QueryPlan
	CacheHit bool
	Latency  time.Duration
}

type Engine struct {
	index   executor.Index
	exec    *executor.Executor
	cache   *cache.QueryCache
	cfg     config.SearchConfig
	mode    index.MatchMode
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEngine(idx executor.Index, cfg config.SearchConfig, opts ...Option) *Engine {
	mode, _ := index.ParseMode(cfg.Mode)
	e := &Engine{
		index:  idx,
		cfg:    cfg,
		mode:   mode,
		logger: slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.exec = executor.New(idx, e.metrics)
	return e
}

// DefaultMode is the match mode used by Search.
func (e *Engine) DefaultMode() index.MatchMode {
	return e.mode
}

func (e *Engine) Cache() *cache.QueryCache {
	return e.cache
}

// Search runs q in the default mode. A limit <= 0 selects the configured
// default.
func (e *Engine) Search(ctx context.Context, q string, limit int) (*executor.SearchResult, error) {
	out, err := e.Run(ctx, Request{Query: q, Limit: limit, Mode: e.mode})
	if err != nil {
		return nil, err
	}
	return out.SearchResult, nil
}

// Documents returns only the ranked documents for q.
func (e *Engine) Documents(ctx context.Context, q string, limit int) ([]document.Document, error) {
	res, err := e.Search(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]document.Document, len(res.Results))
	for i, r := range res.Results {
		docs[i] = r.Document
	}
	return docs, nil
}

func (e *Engine) Run(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "search.run")
	defer span.End()

	limit := e.clampLimit(req.Limit)
	plan := parser.Parse(req.Query, req.Mode)
	out := Outcome{Plan: plan}
	span.SetAttr("mode", plan.Mode.String())
	span.SetAttr("terms", len(plan.Terms))

	if plan.Empty() {
		res, err := e.exec.Execute(ctx, plan, limit)
		if err != nil {
			return out, err
		}
		out.SearchResult = res
		out.Latency = time.Since(start)
		e.metrics.ObserveSearch("empty", "none", 0, out.Latency)
		return out, nil
	}

	cacheStatus := "none"
	var (
		res *executor.SearchResult
		err error
	)
	if e.cache != nil {
		res, out.CacheHit, err = e.cache.GetOrCompute(ctx, plan, limit, e.version(), func() (*executor.SearchResult, error) {
			return e.execute(ctx, plan, limit)
		})
		cacheStatus = "miss"
		if out.CacheHit {
			cacheStatus = "hit"
		}
	} else {
		res, err = e.execute(ctx, plan, limit)
	}
	span.SetAttr("cache", cacheStatus)
	out.Latency = time.Since(start)
	if err != nil {
		e.metrics.ObserveSearch("error", cacheStatus, 0, out.Latency)
		return out, err
	}
	out.SearchResult = res
	e.metrics.ObserveSearch(resultType(res), cacheStatus, len(res.Results), out.Latency)
	return out, nil
}

func (e *Engine) version() cache.Version {
	return cache.Version{Instance: e.index.InstanceID(), Generation: e.index.Generation()}
}

func (e *Engine) execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error) {
	ctx, span := tracing.Start(ctx, "search.execute")
	defer span.End()
	res, err := e.exec.Execute(ctx, plan, limit)
	if err == nil {
		span.SetAttr("total_hits", res.TotalHits)
	}
	return res, err
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if e.cfg.MaxResults > 0 && limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}
	return limit
}

func resultType(res *executor.SearchResult) string {
	switch {
	case res.NotReady:
		return "not_ready"
	case len(res.Results) == 0:
		return "zero_result"
	default:
		return "hit"
	}
}
