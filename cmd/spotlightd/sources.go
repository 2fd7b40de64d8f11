package main

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/document"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source/feed"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/resilience"
)

type builtSources struct {
	adapters []source.Adapter
	memory   map[string]*feed.Memory
}

func (b builtSources) close() {
	for _, mem := range b.memory {
		mem.Close()
	}
}

// buildAdapters creates one adapter per configured source. pg may be nil when
// no source uses the postgres transport.
func buildAdapters(cfg *config.Config, pg *postgres.Client, m *metrics.Metrics) (builtSources, error) {
	built := builtSources{memory: make(map[string]*feed.Memory)}
	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialDelay:   cfg.Retry.InitialDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}

	for _, src := range cfg.Sources {
		tr, err := source.NewTranslator(document.Type(src.Type))
		if err != nil {
			return built, fmt.Errorf("source %s: %w", src.Name, err)
		}

		var f feed.Feed
		switch src.Transport {
		case config.TransportKafka:
			f = feed.NewKafka(cfg.Kafka, src.Name, src.Topic)
		case config.TransportPostgres:
			if pg == nil {
				return built, fmt.Errorf("source %s: postgres client not configured", src.Name)
			}
			f = feed.NewPostgres(pg.DB, src)
		case config.TransportMemory:
			mem := feed.NewMemory()
			built.memory[src.Name] = mem
			f = mem
		default:
			return built, fmt.Errorf("source %s: unknown transport %q", src.Name, src.Transport)
		}

		built.adapters = append(built.adapters, source.NewFeedAdapter(src.Name, tr, f,
			source.WithRetry(retry),
			source.WithMetrics(m),
		))
		slog.Info("source configured", "source", src.Name, "type", src.Type, "transport", src.Transport)
	}
	return built, nil
}
