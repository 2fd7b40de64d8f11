package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 500
)

const pollQuery = `SELECT seq, op, key, record, changed_at
FROM source_changes
WHERE source = $1 AND seq > $2
ORDER BY seq
LIMIT $3`

// Postgres polls the source_changes table for rows newer than its
// watermark. The watermark lives on the feed, so a restarted Stream resumes
// where the previous one stopped.
type Postgres struct {
	db        *sql.DB
	source    string
	interval  time.Duration
	batchSize int
	breaker   *resilience.CircuitBreaker
	watermark int64
	logger    *slog.Logger
}

func NewPostgres(db *sql.DB, cfg config.SourceConfig) *Postgres {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Postgres{
		db:        db,
		source:    cfg.Name,
		interval:  interval,
		batchSize: batch,
		breaker: resilience.NewCircuitBreaker("postgres-feed-"+cfg.Name, resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     5 * interval,
		}),
		logger: slog.Default().With("component", "postgres-feed", "source", cfg.Name),
	}
}

// Watermark is the highest sequence number delivered so far.
func (p *Postgres) Watermark() int64 {
	return p.watermark
}

func (p *Postgres) Stream(ctx context.Context, emit func(Change)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.drain(ctx, emit)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain polls until a short batch signals the feed has caught up.
func (p *Postgres) drain(ctx context.Context, emit func(Change)) {
	for ctx.Err() == nil {
		n, err := p.poll(ctx, emit)
		if err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				p.logger.Debug("poll skipped", "error", err)
			} else if ctx.Err() == nil {
				p.logger.Warn("poll failed", "error", err, "watermark", p.watermark)
			}
			return
		}
		if n < p.batchSize {
			return
		}
	}
}

type changeRow struct {
	seq    int64
	change Change
}

func (p *Postgres) poll(ctx context.Context, emit func(Change)) (int, error) {
	var batch []changeRow
	err := p.breaker.Execute(func() error {
		rows, err := p.db.QueryContext(ctx, pollQuery, p.source, p.watermark, p.batchSize)
		if err != nil {
			return fmt.Errorf("querying source_changes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r      changeRow
				op     string
				record []byte
			)
			if err := rows.Scan(&r.seq, &op, &r.change.Key, &record, &r.change.At); err != nil {
				return fmt.Errorf("scanning source_changes row: %w", err)
			}
			r.change.Op = Op(op)
			r.change.Record = record
			batch = append(batch, r)
		}
		return rows.Err()
	})
	if err != nil {
		return 0, err
	}
	for _, r := range batch {
		emit(r.change)
		p.watermark = r.seq
	}
	if len(batch) > 0 {
		p.logger.Debug("changes delivered", "count", len(batch), "watermark", p.watermark)
	}
	return len(batch), nil
}
