package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
)

// ErrClosed is returned by a Memory feed after Close.
var ErrClosed = errors.New("feed closed")

type delivery struct {
	change Change
	done   chan struct{}
}

// Memory is an in-process push feed. Publish hands a change to the running
// Stream and returns once emit has processed it.
type Memory struct {
	ch        chan delivery
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMemory() *Memory {
	return &Memory{
		ch:     make(chan delivery),
		closed: make(chan struct{}),
	}
}

// Publish blocks until the change has been emitted, the feed is closed or
// ctx is done.
func (m *Memory) Publish(ctx context.Context, c Change) error {
	select {
	case <-m.closed:
		return ErrClosed
	default:
	}
	d := delivery{change: c, done: make(chan struct{})}
	select {
	case m.ch <- d:
	case <-m.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Stream(ctx context.Context, emit func(Change)) error {
	for {
		select {
		case d := <-m.ch:
			emit(d.change)
			close(d.done)
		case <-m.closed:
			return resilience.Permanent(ErrClosed)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close ends the stream. Pending publishers receive ErrClosed.
func (m *Memory) Close() {
	m.closeOnce.Do(func() { close(m.closed) })
}
