// Package feed provides the transports that deliver raw source changes to a
// source adapter: an in-process channel feed, a Kafka topic and a polled
// Postgres change table.
package feed

import (
	"context"
	"encoding/json"
	"time"
)

type Op string

const (
	OpAdded    Op = "added"
	OpModified Op = "modified"
	OpRemoved  Op = "removed"
)

// Change is one raw change observed on a source. It is also the JSON wire
// shape of records carried on Kafka topics.
type Change struct {
	Op     Op              `json:"op"`
	Key    string          `json:"key"`
	Record json.RawMessage `json:"record,omitempty"`
	At     time.Time       `json:"at"`
}

// Feed streams changes to emit until ctx is cancelled or the transport fails.
// emit is called from a single goroutine, in source order.
type Feed interface {
	Stream(ctx context.Context, emit func(Change)) error
}
