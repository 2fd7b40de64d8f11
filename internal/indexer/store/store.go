// Package store holds the authoritative id to document table. It is not safe
// for concurrent use; the index coordinator serialises access.
package store

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
)

type Store struct {
	docs map[string]document.Document
}

func New() *Store {
	return &Store{docs: make(map[string]document.Document)}
}

// Put stores doc, replacing any previous document with the same id wholesale.
func (s *Store) Put(doc document.Document) {
	s.docs[doc.ID] = doc.Clone()
}

func (s *Store) Get(id string) (document.Document, bool) {
	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, false
	}
	return doc.Clone(), true
}

// Delete removes id and reports whether it was present.
func (s *Store) Delete(id string) bool {
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	return true
}

func (s *Store) Len() int {
	return len(s.docs)
}

// IDs returns every stored id, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
