// Package executor evaluates query plans against the index service and
// resolves the matching ids through its document store.
package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Mode       string             `json:"mode"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	Generation uint64             `json:"generation"`
	NotReady   bool               `json:"not_ready,omitempty"`
}

// Index is the part of the index service the executor reads from.
type Index interface {
	Ready() bool
	Generation() uint64
	InstanceID() string
	View(fn func(indexer.Reader))
}

type Executor struct {
	index   Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(idx Index, m *metrics.Metrics) *Executor {
	return &Executor{
		index:   idx,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// Execute never fails on an empty plan or an index that is not ready; both
// yield an empty result.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := &SearchResult{
		Query:   plan.RawQuery,
		Mode:    plan.Mode.String(),
		Results: []ranker.ScoredDoc{},
	}
	if plan.Empty() {
		return result, nil
	}
	if !e.index.Ready() {
		result.NotReady = true
		return result, nil
	}

	var (
		hits     []ranker.Hit
		dangling []string
	)
	e.index.View(func(r indexer.Reader) {
		result.Generation = e.index.Generation()
		matches := r.Match(plan.Terms, plan.Mode)
		excluded := excludedIDs(r, plan.ExcludeTerms)
		hits = make([]ranker.Hit, 0, len(matches))
		for _, m := range matches {
			if _, skip := excluded[m.ID]; skip {
				continue
			}
			doc, ok := r.Get(m.ID)
			if !ok {
				dangling = append(dangling, m.ID)
				continue
			}
			hits = append(hits, ranker.Hit{Doc: doc, Matched: m.Matched})
		}
	})

	if len(dangling) > 0 {
		e.logger.Error("indexed ids missing from document store",
			"query", plan.RawQuery,
			"ids", dangling,
		)
		e.metrics.ObserveDangling(len(dangling))
	}

	result.TotalHits = len(hits)
	result.Results = ranker.Rank(hits, len(plan.Terms), limit)
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"mode", result.Mode,
		"candidates", len(hits),
		"results", len(result.Results),
	)
	return result, nil
}

func excludedIDs(r indexer.Reader, terms []string) map[string]struct{} {
	if len(terms) == 0 {
		return nil
	}
	out := make(map[string]struct{})
	for _, m := range r.Match(terms, index.MatchAny) {
		out[m.ID] = struct{}{}
	}
	return out
}
