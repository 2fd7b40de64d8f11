// Package index implements the incremental inverted index. Every term of a
// document is posted under each of its prefixes so partially typed queries
// match. A reverse map records exactly which keys were posted for an id, and
// removal is driven by that record alone.
//
// Inverted is not safe for concurrent use; the caller owns locking.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/tokenizer"
)

// MatchMode selects how multi-term queries combine.
type MatchMode int

const (
	// MatchAll requires every term to match (AND).
	MatchAll MatchMode = iota
	// MatchAny accepts documents matching at least one term.
	MatchAny
)

func (m MatchMode) String() string {
	if m == MatchAny {
		return "suggest"
	}
	return "strict"
}

// ParseMode maps the user-facing mode names onto a MatchMode.
func ParseMode(s string) (MatchMode, bool) {
	switch s {
	case "", "strict", "all":
		return MatchAll, true
	case "suggest", "any":
		return MatchAny, true
	}
	return MatchAll, false
}

// Match is one query hit: the id and how many query terms it matched.
type Match struct {
	ID      string
	Matched int
}

type postingSet map[string]struct{}

type Inverted struct {
	postings map[string]postingSet
	reverse  map[string][]string
}

func NewInverted() *Inverted {
	return &Inverted{
		postings: make(map[string]postingSet),
		reverse:  make(map[string][]string),
	}
}

// Add posts id under every key derived from text. Adding an id that is
// already present replaces its previous postings.
func (x *Inverted) Add(id, text string) {
	if _, exists := x.reverse[id]; exists {
		x.Remove(id)
	}
	keys := tokenizer.IndexKeys(text)
	recorded := make([]string, 0, len(keys))
	for key := range keys {
		set, ok := x.postings[key]
		if !ok {
			set = make(postingSet)
			x.postings[key] = set
		}
		set[id] = struct{}{}
		recorded = append(recorded, key)
	}
	x.reverse[id] = recorded
}

// Update re-indexes id from scratch.
func (x *Inverted) Update(id, text string) {
	x.Remove(id)
	x.Add(id, text)
}

// Remove deletes every posting recorded for id. It reports whether id was
// indexed.
func (x *Inverted) Remove(id string) bool {
	keys, ok := x.reverse[id]
	if !ok {
		return false
	}
	for _, key := range keys {
		set := x.postings[key]
		delete(set, id)
		if len(set) == 0 {
			delete(x.postings, key)
		}
	}
	delete(x.reverse, id)
	return true
}

// Query evaluates terms against the index. Terms are matched as keys, so a
// term matches any indexed word it is a prefix of. Results are ordered by id.
func (x *Inverted) Query(terms []string, mode MatchMode) []Match {
	if len(terms) == 0 {
		return nil
	}
	if mode == MatchAny {
		return x.union(terms)
	}
	return x.intersect(terms)
}

func (x *Inverted) intersect(terms []string) []Match {
	sets := make([]postingSet, 0, len(terms))
	for _, term := range terms {
		set, ok := x.postings[term]
		if !ok {
			return nil
		}
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })

	matches := make([]Match, 0, len(sets[0]))
outer:
	for id := range sets[0] {
		for _, other := range sets[1:] {
			if _, ok := other[id]; !ok {
				continue outer
			}
		}
		matches = append(matches, Match{ID: id, Matched: len(terms)})
	}
	sortByID(matches)
	return matches
}

func (x *Inverted) union(terms []string) []Match {
	counts := make(map[string]int)
	for _, term := range terms {
		for id := range x.postings[term] {
			counts[id]++
		}
	}
	matches := make([]Match, 0, len(counts))
	for id, n := range counts {
		matches = append(matches, Match{ID: id, Matched: n})
	}
	sortByID(matches)
	return matches
}

// Lookup returns the ids posted under key, sorted.
func (x *Inverted) Lookup(key string) []string {
	set := x.postings[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id has any postings.
func (x *Inverted) Has(id string) bool {
	_, ok := x.reverse[id]
	return ok
}

// Keys returns the keys recorded for id, sorted.
func (x *Inverted) Keys(id string) []string {
	keys := make([]string, len(x.reverse[id]))
	copy(keys, x.reverse[id])
	sort.Strings(keys)
	return keys
}

// Len is the number of indexed ids.
func (x *Inverted) Len() int {
	return len(x.reverse)
}

// TermCount is the number of non-empty posting sets.
func (x *Inverted) TermCount() int {
	return len(x.postings)
}

func sortByID(matches []Match) {
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
}
