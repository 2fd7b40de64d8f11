package feed

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/kafka"
)

// Kafka consumes JSON Change records from one topic. Each Kafka feed joins
// its own consumer group so a fresh process always replays the retained
// topic into its empty index.
type Kafka struct {
	cfg     config.KafkaConfig
	topic   string
	groupID string
	logger  *slog.Logger
}

func NewKafka(cfg config.KafkaConfig, source, topic string) *Kafka {
	return &Kafka{
		cfg:     cfg,
		topic:   topic,
		groupID: cfg.ConsumerGroup + "-" + source + "-" + uuid.NewString(),
		logger:  slog.Default().With("component", "kafka-feed", "source", source, "topic", topic),
	}
}

func (k *Kafka) Stream(ctx context.Context, emit func(Change)) error {
	consumer := kafka.NewConsumer(k.cfg, k.groupID, k.topic, k.handler(emit))
	k.logger.Info("streaming changes", "group", k.groupID)
	return consumer.Start(ctx)
}

// handler decodes a message into a Change. Undecodable messages are logged
// and skipped so one bad record cannot wedge the partition.
func (k *Kafka) handler(emit func(Change)) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		change, err := kafka.DecodeJSON[Change](value)
		if err != nil {
			k.logger.Error("failed to decode change record",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if change.Key == "" {
			change.Key = string(key)
		}
		emit(change)
		return nil
	}
}
