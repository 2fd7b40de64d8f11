package session

import "github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"

type Group struct {
	Type    document.Type       `json:"type"`
	Heading string              `json:"heading"`
	Docs    []document.Document `json:"docs"`
}

// GroupDocuments buckets docs by type, keeping their order within each
// bucket. Known types come first in display order; unknown types follow in
// the order they were first seen. Empty buckets are omitted.
func GroupDocuments(docs []document.Document) []Group {
	buckets := make(map[document.Type][]document.Document)
	var extra []document.Type
	for _, d := range docs {
		if _, seen := buckets[d.Type]; !seen && !d.Type.Known() {
			extra = append(extra, d.Type)
		}
		buckets[d.Type] = append(buckets[d.Type], d)
	}
	groups := make([]Group, 0, len(buckets))
	for _, t := range append(document.Types(), extra...) {
		if len(buckets[t]) == 0 {
			continue
		}
		groups = append(groups, Group{Type: t, Heading: t.Heading(), Docs: buckets[t]})
	}
	return groups
}
