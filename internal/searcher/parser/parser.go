// Package parser turns raw query strings into query plans. Terms are
// tokenized exactly like document text (without prefix expansion) and
// de-duplicated. The upper-case operators AND, OR and NOT switch the match
// mode or exclude the following word.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/tokenizer"
)

type QueryPlan struct {
	Terms        []string
	ExcludeTerms []string
	Mode         index.MatchMode
	RawQuery     string
}

// Empty reports whether the plan has nothing to match.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Normalized is a canonical rendering of the plan used for cache keys.
func (p *QueryPlan) Normalized() string {
	parts := []string{p.Mode.String(), strings.Join(p.Terms, ",")}
	if len(p.ExcludeTerms) > 0 {
		parts = append(parts, "NOT:"+strings.Join(p.ExcludeTerms, ","))
	}
	return strings.Join(parts, "|")
}

// Parse builds a plan for query, starting from mode.
func Parse(query string, mode index.MatchMode) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Mode:         mode,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	seen := make(map[string]struct{})
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch word {
		case "AND":
			plan.Mode = index.MatchAll
			continue
		case "OR":
			plan.Mode = index.MatchAny
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		for _, term := range tokenizer.Terms(word) {
			if excludeNext {
				plan.ExcludeTerms = append(plan.ExcludeTerms, term)
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			plan.Terms = append(plan.Terms, term)
		}
		excludeNext = false
	}
	return plan
}
