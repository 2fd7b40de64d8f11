// Package indexer owns the document store and the inverted index and is the
// single writer through which every source event is applied.
package indexer

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
)

// State is the coordinator lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateIndexing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Reader is the read-only view handed to View callbacks. It must not be
// retained after the callback returns.
type Reader interface {
	Match(terms []string, mode index.MatchMode) []index.Match
	Get(id string) (document.Document, bool)
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service applies upserts and removals to the store and the index under one
// write lock, so readers see either the state before an event or after it.
type Service struct {
	mu      sync.RWMutex
	store   *store.Store
	index   *index.Inverted
	owners  map[string]map[string]struct{}
	ownerOf map[string]string

	instance   string
	generation atomic.Uint64
	state      atomic.Int32

	subsMu sync.Mutex
	subs   map[string]source.Unsubscribe

	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(opts ...Option) *Service {
	s := &Service{
		store:   store.New(),
		index:   index.NewInverted(),
		owners:  make(map[string]map[string]struct{}),
		ownerOf: make(map[string]string),
		subs:    make(map[string]source.Unsubscribe),
		logger:  slog.Default().With("component", "index-service"),
	}
	s.instance = uuid.NewString()
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetIndexState(int(StateIdle))
	return s
}

// Attach subscribes every adapter concurrently and marks the service Ready
// once the subscriptions are live. An adapter that fails to subscribe is
// logged and skipped.
func (s *Service) Attach(ctx context.Context, adapters ...source.Adapter) error {
	s.setState(StateIndexing)
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range adapters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.subscribe(a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.setState(StateIdle)
		return err
	}
	s.setState(StateReady)
	s.logger.Info("index ready", "sources", len(s.Sources()))
	return nil
}

func (s *Service) subscribe(a source.Adapter) {
	name := a.Name()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, dup := s.subs[name]; dup {
		s.logger.Warn("source already attached, skipping", "source", name)
		return
	}
	unsub, err := a.Subscribe(
		func(doc document.Document) { _ = s.Upsert(name, doc) },
		func(id string) { s.Remove(name, id) },
	)
	if err != nil {
		s.logger.Error("source subscription failed", "source", name, "error", err)
		s.metrics.ObserveSourceError(name)
		return
	}
	s.subs[name] = unsub
	s.logger.Info("source attached", "source", name, "type", string(a.Type()))
}

// Upsert validates doc and replaces any stored document with the same id.
// A document whose type differs from the stored one is rejected.
func (s *Service) Upsert(src string, doc document.Document) error {
	if err := doc.Validate(); err != nil {
		s.logger.Warn("invalid document rejected", "source", src, "id", doc.ID, "error", err)
		s.metrics.ObserveRejected(src, "invalid")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.store.Get(doc.ID); ok && prev.Type != doc.Type {
		s.logger.Error("document type change rejected",
			"source", src,
			"id", doc.ID,
			"stored_type", string(prev.Type),
			"new_type", string(doc.Type),
		)
		s.metrics.ObserveRejected(src, "type_changed")
		return apperrors.Newf(apperrors.ErrTypeChanged, http.StatusConflict,
			"id %s is %s, got %s", doc.ID, prev.Type, doc.Type)
	}

	s.store.Put(doc)
	s.index.Update(doc.ID, doc.Text())
	s.own(src, doc.ID)
	s.generation.Add(1)

	s.metrics.ObserveEvent(src, "upsert")
	s.metrics.SetIndexSize(s.store.Len(), s.index.TermCount())
	s.logger.Debug("document upserted", "source", src, "id", doc.ID)
	return nil
}

// Remove deletes id from the index and then the store. It reports whether
// anything was removed.
func (s *Service) Remove(src, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inIndex := s.index.Remove(id)
	inStore := s.store.Delete(id)
	s.disown(id)
	if !inIndex && !inStore {
		return false
	}
	s.generation.Add(1)

	s.metrics.ObserveEvent(src, "remove")
	s.metrics.SetIndexSize(s.store.Len(), s.index.TermCount())
	s.logger.Debug("document removed", "source", src, "id", id)
	return true
}

// Detach unsubscribes the named source, waiting for its goroutine to exit,
// then removes every document it owns. It returns the number purged.
func (s *Service) Detach(name string) (int, error) {
	s.subsMu.Lock()
	unsub, attached := s.subs[name]
	delete(s.subs, name)
	s.subsMu.Unlock()

	if attached {
		unsub()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned, known := s.owners[name]
	if !attached && !known {
		return 0, apperrors.Newf(apperrors.ErrUnknownSource, http.StatusNotFound, "source %s is not attached", name)
	}
	for id := range owned {
		s.index.Remove(id)
		s.store.Delete(id)
		delete(s.ownerOf, id)
	}
	delete(s.owners, name)
	if len(owned) > 0 {
		s.generation.Add(1)
	}

	s.metrics.SetIndexSize(s.store.Len(), s.index.TermCount())
	s.logger.Info("source detached", "source", name, "purged", len(owned))
	return len(owned), nil
}

// View runs fn with the read lock held.
func (s *Service) View(fn func(Reader)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(reader{s})
}

// Generation increases with every applied mutation.
func (s *Service) Generation() uint64 {
	return s.generation.Load()
}

// InstanceID identifies this service's store. Generations are only
// comparable between reads that report the same instance id.
func (s *Service) InstanceID() string {
	return s.instance
}

func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) Ready() bool {
	return s.State() == StateReady
}

func (s *Service) Indexing() bool {
	return s.State() == StateIndexing
}

// Sources lists the attached source names, sorted.
func (s *Service) Sources() []string {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	names := make([]string, 0, len(s.subs))
	for name := range s.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type SourceStats struct {
	Name      string `json:"name"`
	Attached  bool   `json:"attached"`
	Documents int    `json:"documents"`
}

type Stats struct {
	State      string        `json:"state"`
	Documents  int           `json:"documents"`
	IndexKeys  int           `json:"index_keys"`
	Generation uint64        `json:"generation"`
	Sources    []SourceStats `json:"sources"`
}

func (s *Service) Stats() Stats {
	attached := make(map[string]bool)
	for _, name := range s.Sources() {
		attached[name] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		State:      s.State().String(),
		Documents:  s.store.Len(),
		IndexKeys:  s.index.TermCount(),
		Generation: s.Generation(),
	}
	names := make(map[string]struct{}, len(attached)+len(s.owners))
	for name := range attached {
		names[name] = struct{}{}
	}
	for name := range s.owners {
		names[name] = struct{}{}
	}
	for name := range names {
		st.Sources = append(st.Sources, SourceStats{
			Name:      name,
			Attached:  attached[name],
			Documents: len(s.owners[name]),
		})
	}
	sort.Slice(st.Sources, func(i, j int) bool { return st.Sources[i].Name < st.Sources[j].Name })
	return st
}

// Close unsubscribes every source without purging its documents and returns
// the service to Idle.
func (s *Service) Close() error {
	s.subsMu.Lock()
	subs := s.subs
	s.subs = make(map[string]source.Unsubscribe)
	s.subsMu.Unlock()

	for name, unsub := range subs {
		unsub()
		s.logger.Debug("source unsubscribed", "source", name)
	}
	s.setState(StateIdle)
	return nil
}

func (s *Service) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	s.metrics.SetIndexState(int(st))
	if prev != st {
		s.logger.Info("index state changed", "from", prev.String(), "to", st.String())
	}
}

// own records src as the owner of id. Ownership follows the latest writer.
func (s *Service) own(src, id string) {
	if prev, ok := s.ownerOf[id]; ok {
		if prev == src {
			return
		}
		delete(s.owners[prev], id)
		if len(s.owners[prev]) == 0 {
			delete(s.owners, prev)
		}
	}
	set, ok := s.owners[src]
	if !ok {
		set = make(map[string]struct{})
		s.owners[src] = set
	}
	set[id] = struct{}{}
	s.ownerOf[id] = src
}

func (s *Service) disown(id string) {
	prev, ok := s.ownerOf[id]
	if !ok {
		return
	}
	delete(s.ownerOf, id)
	delete(s.owners[prev], id)
	if len(s.owners[prev]) == 0 {
		delete(s.owners, prev)
	}
}

type reader struct {
	s *Service
}

func (r reader) Match(terms []string, mode index.MatchMode) []index.Match {
	return r.s.index.Query(terms, mode)
}

func (r reader) Get(id string) (document.Document, bool) {
	return r.s.store.Get(id)
}
