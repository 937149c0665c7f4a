// Package kafka carries map jobs and map results over Kafka using
// segmentio/kafka-go. Values are JSON-encoded with goccy/go-json.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

// MessageHandler is invoked for each fetched message. Returning an error
// wrapping apperrors.ErrInvalidInput marks the message as poison: it is
// committed and skipped. Any other error is retried in place with backoff,
// so later messages of the partition wait until it succeeds.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
)

// Consumer reads one topic as part of the configured consumer group.
type Consumer struct {
	reader     *kafka.Reader
	logger     *slog.Logger
	handler    MessageHandler
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    50e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader:     r,
		logger:     slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler:    handler,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Start fetches and dispatches messages until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)

		if err := c.dispatch(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping, message left uncommitted",
					"partition", msg.Partition,
					"offset", msg.Offset,
				)
				return c.reader.Close()
			}
			c.logger.Warn("skipping invalid message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// dispatch retries the handler in place until it returns nil or poison.
// It returns nil on success, the poison error, or ctx.Err().
func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) error {
	backoff := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg.Key, msg.Value)
		if err == nil || errors.Is(err, apperrors.ErrInvalidInput) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("failed to process message, retrying",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T. Malformed values are
// reported as apperrors.ErrInvalidInput.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := gojson.Unmarshal(value, &result); err != nil {
		return result, apperrors.Newf(apperrors.ErrInvalidInput, "decoding kafka message: %v", err)
	}
	return result, nil
}

// EncodeJSON is the producer-side counterpart of DecodeJSON.
func EncodeJSON(v any) ([]byte, error) {
	data, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding kafka message: %w", err)
	}
	return data, nil
}
