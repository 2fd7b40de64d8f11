// Command publish reads newline-delimited change records and writes them to
// a source's Kafka topic, keyed by record key so changes to one record stay
// ordered.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/source/feed"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/logger"
)

const batchSize = 100

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	sourceName := flag.String("source", "", "configured source whose topic receives the changes")
	topic := flag.String("topic", "", "explicit topic, overrides -source")
	file := flag.String("file", "-", "NDJSON input file, - for stdin")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	target, err := resolveTopic(cfg, *sourceName, *topic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	in := io.Reader(os.Stdin)
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			slog.Error("failed to open input", "file", *file, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, target)
	defer producer.Close()

	start := time.Now()
	sent, skipped, err := publish(ctx, in, producer.PublishBatch)
	if err != nil {
		slog.Error("publish failed", "topic", target, "sent", sent, "error", err)
		os.Exit(1)
	}
	slog.Info("publish complete", "topic", target, "sent", sent, "skipped", skipped, "elapsed", time.Since(start))
}

func resolveTopic(cfg *config.Config, sourceName, topic string) (string, error) {
	if topic != "" {
		return topic, nil
	}
	for _, src := range cfg.Sources {
		if src.Name != sourceName {
			continue
		}
		if src.Transport != config.TransportKafka {
			return "", fmt.Errorf("source %s uses the %s transport, not kafka", src.Name, src.Transport)
		}
		return src.Topic, nil
	}
	return "", fmt.Errorf("either -topic or a configured kafka -source is required")
}

// publish decodes changes line by line and sends them in batches. Lines that
// do not decode to a change with an op and key are logged and skipped.
func publish(ctx context.Context, in io.Reader, send func(context.Context, []kafka.Event) error) (sent, skipped int, err error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	batch := make([]kafka.Event, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := send(ctx, batch); err != nil {
			return err
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var c feed.Change
		if err := json.Unmarshal(raw, &c); err != nil || c.Op == "" || c.Key == "" {
			slog.Warn("skipping malformed change", "line", line, "error", err)
			skipped++
			continue
		}
		if c.At.IsZero() {
			c.At = time.Now().UTC()
		}
		batch = append(batch, kafka.Event{Key: c.Key, Value: c})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return sent, skipped, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sent, skipped, fmt.Errorf("reading input: %w", err)
	}
	return sent, skipped, flush()
}
