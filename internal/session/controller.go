// Package session implements the command palette state machine: open state,
// debounced search-as-you-type with stale-response suppression, grouping by
// type and navigation. It has no UI dependencies.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
)

const (
	DefaultDebounce = 100 * time.Millisecond
	DefaultLimit    = 50
)

// Searcher is satisfied by *searcher.Engine.
type Searcher interface {
	Documents(ctx context.Context, q string, limit int) ([]document.Document, error)
}

type Option func(*Controller)

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithNavigator sets the callback invoked with a document path on GoTo.
func WithNavigator(fn func(path string)) Option {
	return func(c *Controller) { c.navigate = fn }
}

// WithMac selects Cmd instead of Ctrl as the chord modifier.
func WithMac(mac bool) Option {
	return func(c *Controller) { c.mac = mac }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller is safe for concurrent use. Listeners registered with OnChange
// run synchronously after every state change, outside the controller lock.
type Controller struct {
	searcher Searcher
	debounce time.Duration
	limit    int
	mac      bool
	navigate func(string)
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	open     bool
	query    string
	results  []document.Document
	loading  bool
	err      error
	seq      uint64
	timer    *time.Timer
	cancel   context.CancelFunc
	closed   bool
	nextID   int
	watchers map[int]func()
}

func New(s Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher: s,
		debounce: DefaultDebounce,
		limit:    DefaultLimit,
		logger:   slog.Default().With("component", "session"),
		watchers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetOpen opens or closes the palette. Closing clears the query and results
// and discards any pending or in-flight search.
func (c *Controller) SetOpen(open bool) {
	c.mu.Lock()
	changed := c.setOpenLocked(open)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Toggle flips the open state. Concurrent toggles never collapse into one.
func (c *Controller) Toggle() {
	c.mu.Lock()
	changed := c.setOpenLocked(!c.open)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Controller) setOpenLocked(open bool) bool {
	if c.closed || c.open == open {
		return false
	}
	c.open = open
	if !open {
		c.resetLocked()
	}
	return true
}

// HandleKey toggles the palette on the activation chord unless an editable
// element has focus. It reports whether the event was consumed.
func (c *Controller) HandleKey(ev KeyEvent, focus Focus) bool {
	if !IsToggleChord(ev, c.mac) || focus.Editable() {
		return false
	}
	c.Toggle()
	return true
}

// SetQuery records q and schedules a search after the debounce window. A
// blank query clears the results without searching.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.query = q
	c.invalidateLocked()
	if strings.TrimSpace(q) == "" {
		c.results = nil
		c.loading = false
		c.err = nil
	} else {
		c.loading = true
		seq := c.seq
		c.timer = time.AfterFunc(c.debounce, func() { c.fire(seq) })
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	q := c.query
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	docs, err := c.searcher.Documents(ctx, q, c.limit)
	cancel()

	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		c.metrics.ObserveStale()
		c.logger.Debug("stale search response discarded", "query", q, "seq", seq)
		return
	}
	c.loading = false
	c.err = err
	if err != nil {
		c.results = nil
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("search failed", "query", q, "error", err)
		}
	} else {
		c.results = docs
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Results returns the ranked documents for the latest accepted search.
func (c *Controller) Results() []document.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]document.Document, len(c.results))
	copy(out, c.results)
	return out
}

func (c *Controller) Groups() []Group {
	return GroupDocuments(c.Results())
}

// Loading is true while a search is pending or in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// GoTo closes the palette and navigates to doc.Path when it is set.
func (c *Controller) GoTo(doc document.Document) {
	c.SetOpen(false)
	if doc.Path != "" && c.navigate != nil {
		c.navigate(doc.Path)
	}
}

// OnChange registers fn and returns a function that unregisters it.
func (c *Controller) OnChange(fn func()) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Close stops pending timers and cancels any in-flight search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.invalidateLocked()
	c.closed = true
}

// invalidateLocked makes every outstanding search stale.
func (c *Controller) invalidateLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) resetLocked() {
	c.invalidateLocked()
	c.query = ""
	c.results = nil
	c.loading = false
	c.err = nil
}

func (c *Controller) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
