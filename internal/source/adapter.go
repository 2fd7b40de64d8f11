// Package source adapts heterogeneous upstream change streams into canonical
// document upserts and removals.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source/feed"
	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
)

// Unsubscribe stops a subscription. It returns once no further callback can
// run and is safe to call more than once. Documents already delivered are
// left in place.
type Unsubscribe func()

// Adapter is a subscribable source of canonical document events.
type Adapter interface {
	Name() string
	Type() document.Type
	Subscribe(onUpsert func(document.Document), onRemove func(id string)) (Unsubscribe, error)
}

type AdapterOption func(*FeedAdapter)

// WithRetry sets the restart policy applied when the feed fails.
func WithRetry(cfg resilience.RetryConfig) AdapterOption {
	return func(a *FeedAdapter) { a.retry = cfg }
}

func WithMetrics(m *metrics.Metrics) AdapterOption {
	return func(a *FeedAdapter) { a.metrics = m }
}

// FeedAdapter drives a feed on its own goroutine and translates every change
// before handing it to the subscriber.
type FeedAdapter struct {
	name       string
	translator Translator
	feed       feed.Feed
	retry      resilience.RetryConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu         sync.Mutex
	subscribed bool

	// ids remembers the document id each source key was last upserted as.
	// Removals often carry no record, and some translators derive the id
	// from record fields.
	idsMu sync.Mutex
	ids   map[string]string
}

func NewFeedAdapter(name string, tr Translator, f feed.Feed, opts ...AdapterOption) *FeedAdapter {
	a := &FeedAdapter{
		name:       name,
		translator: tr,
		feed:       f,
		ids:        make(map[string]string),
		logger:     slog.Default().With("component", "source", "source", name, "type", string(tr.Type())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *FeedAdapter) Name() string { return a.name }

func (a *FeedAdapter) Type() document.Type { return a.translator.Type() }

// Subscribe starts streaming. Only one subscription may be live at a time.
func (a *FeedAdapter) Subscribe(onUpsert func(document.Document), onRemove func(id string)) (Unsubscribe, error) {
	if onUpsert == nil || onRemove == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "subscribe requires both callbacks")
	}
	a.mu.Lock()
	if a.subscribed {
		a.mu.Unlock()
		return nil, apperrors.Newf(apperrors.ErrSourceUnavailable, http.StatusConflict, "source %s already subscribed", a.name)
	}
	a.subscribed = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.run(ctx, onUpsert, onRemove)
	}()
	a.logger.Info("subscribed")

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			a.mu.Lock()
			a.subscribed = false
			a.mu.Unlock()
			a.logger.Info("unsubscribed")
		})
	}, nil
}

func (a *FeedAdapter) run(ctx context.Context, onUpsert func(document.Document), onRemove func(string)) {
	emit := func(c feed.Change) { a.apply(c, onUpsert, onRemove) }
	err := resilience.Retry(ctx, "source "+a.name, a.retry, func() error {
		err := a.feed.Stream(ctx, emit)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return resilience.Permanent(errors.New("feed ended"))
		}
		a.metrics.ObserveSourceError(a.name)
		return err
	})
	if err != nil && ctx.Err() == nil {
		a.logger.Error("source stopped, keeping its documents", "error", err)
	}
}

func (a *FeedAdapter) apply(c feed.Change, onUpsert func(document.Document), onRemove func(string)) {
	if c.Key == "" {
		a.logger.Warn("change without key ignored", "op", string(c.Op))
		return
	}
	switch c.Op {
	case feed.OpAdded, feed.OpModified:
		doc := a.translator.Translate(c.Key, c.Record)
		if prev := a.remember(c.Key, doc.ID); prev != "" && prev != doc.ID {
			onRemove(prev)
		}
		onUpsert(doc)
	case feed.OpRemoved:
		onRemove(a.forget(c.Key, c.Record))
	default:
		a.logger.Warn("unknown change op ignored", "op", string(c.Op), "key", c.Key)
	}
}

var _ Adapter = (*FeedAdapter)(nil)

// String identifies the adapter in logs.
func (a *FeedAdapter) String() string {
	return fmt.Sprintf("%s(%s)", a.name, a.translator.Type())
}

// remember records id for key and returns the id it replaced.
func (a *FeedAdapter) remember(key, id string) string {
	a.idsMu.Lock()
	defer a.idsMu.Unlock()
	prev := a.ids[key]
	a.ids[key] = id
	return prev
}

// forget resolves the id a removal of key refers to. Keys never seen by this
// adapter fall back to the translator.
func (a *FeedAdapter) forget(key string, raw json.RawMessage) string {
	a.idsMu.Lock()
	id, ok := a.ids[key]
	delete(a.ids, key)
	a.idsMu.Unlock()
	if ok {
		return id
	}
	return a.translator.DocumentID(key, raw)
}
