// Package consumer reads webhook events from Kafka and feeds them to the
// pipeline one batch at a time. Offsets commit only after a whole batch
// succeeds; any failure drops the reader and rejoins the group, so the
// uncommitted batch is redelivered. Dedup is the only guard against the
// duplicate side effects this implies.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
	"github.com/md-rashed-zaman/melinotify/internal/pipeline"
	"github.com/md-rashed-zaman/melinotify/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Processor interface {
	Process(ctx context.Context, event pipeline.Event) error
}

type Config struct {
	Brokers      string
	GroupID      string
	Topic        string
	BatchSize    int
	BatchWait    time.Duration
	RetryBackoff time.Duration
}

type Consumer struct {
	logger    *slog.Logger
	cfg       Config
	processor Processor
}

func New(logger *slog.Logger, cfg Config, processor Processor) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = 1 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Second
	}
	return &Consumer{logger: logger, cfg: cfg, processor: processor}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kafkax.SplitBrokers(c.cfg.Brokers),
			GroupID:  c.cfg.GroupID,
			Topic:    c.cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})

		err := c.consume(ctx, reader)
		_ = reader.Close()

		if ctx.Err() != nil {
			return
		}
		c.logger.Error("batch failed, rejoining group for redelivery",
			"err", err, "retryable", fault.Retryable(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryBackoff):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader) error {
	for {
		msgs, err := c.fetchBatch(ctx, reader)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			continue
		}

		// Strictly sequential: one event at a time, no fan-out.
		for _, msg := range msgs {
			if err := c.processMessage(ctx, msg); err != nil {
				return err
			}
		}

		if err := reader.CommitMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("committing batch: %w", err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	msgCtx := kafkax.ExtractTraceContext(ctx, msg)
	spanCtx, span := otel.Tracer("consumer").Start(msgCtx, "pipeline.process",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	err := c.processor.Process(spanCtx, eventFromMessage(msg))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("processing offset %d: %w", msg.Offset, err)
	}
	return nil
}

// fetchBatch blocks for the first message, then drains up to BatchSize
// messages that arrive within BatchWait of each other.
func (c *Consumer) fetchBatch(ctx context.Context, reader *kafka.Reader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := []kafka.Message{first}

	for len(msgs) < c.cfg.BatchSize {
		waitCtx, cancel := context.WithTimeout(ctx, c.cfg.BatchWait)
		msg, err := reader.FetchMessage(waitCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func eventFromMessage(msg kafka.Message) pipeline.Event {
	transportID := kafkax.EventID(msg)
	if transportID == "" {
		transportID = fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
	}
	return pipeline.Event{
		TransportID: transportID,
		Body:        msg.Value,
		ReceivedAt:  msg.Time,
	}
}
