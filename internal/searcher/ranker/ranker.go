// Package ranker orders resolved hits: most matched query terms first, then
// most recently updated, then by id so the order is total.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
)

type Hit struct {
	Doc     document.Document
	Matched int
}

type ScoredDoc struct {
	document.Document
	Score   float64 `json:"score"`
	Matched int     `json:"matched_terms"`
}

// Rank scores hits as the fraction of query terms matched and returns at most
// limit of them (all when limit <= 0).
func Rank(hits []Hit, terms int, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(hits))
	for _, h := range hits {
		result = append(result, ScoredDoc{
			Document: h.Doc,
			Score:    score(h.Matched, terms),
			Matched:  h.Matched,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Matched != b.Matched {
			return a.Matched > b.Matched
		}
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func score(matched, terms int) float64 {
	if terms <= 0 {
		return 0
	}
	return math.Round(float64(matched)/float64(terms)*10000) / 10000
}
