package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/errors"
)

// TimeoutError reports that op outlived its own deadline. It matches both
// apperrors.ErrTimeout and context.DeadlineExceeded under errors.Is.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: exceeded %v", e.Op, e.Limit)
}

func (e *TimeoutError) Unwrap() []error {
	return []error{apperrors.ErrTimeout, context.DeadlineExceeded}
}

// WithTimeout runs fn under a deadline of limit, returning as soon as the
// deadline passes even if fn is still running. fn must not touch shared state
// after its context is done. A limit <= 0 runs fn inline with ctx.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(runCtx) }()

	select {
	case err := <-result:
		// fn noticed its own deadline before the select did.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &TimeoutError{Op: op, Limit: limit}
		}
		return err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: caller gave up: %w", op, ctx.Err())
		}
		return &TimeoutError{Op: op, Limit: limit}
	}
}
