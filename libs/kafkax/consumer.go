package kafkax

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitstart-app/backend/libs/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// inboxStore is the dedup surface the consumer needs from the inbox table.
type inboxStore interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Consumer reads one topic in a consumer group, deduplicates by event id
// through the inbox table, and hands messages to the handler. On handler
// error the inbox record is deleted again so a later redelivery (or an
// outbox republish) gets another attempt; the message itself is skipped so
// a poisoned payload cannot wedge the partition.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	inbox   inboxStore
	handler Handler
}

type ConsumerConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

func NewConsumer(logger *slog.Logger, inboxRepo *inbox.Repository, cfg ConsumerConfig, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inboxRepo,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		ctxMsg := ExtractTraceContext(ctx, msg)
		ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)
		if err := c.processMessage(ctxSpan, msg); err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	meta := ExtractEventMeta(msg)

	ok, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err)
		return err
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		// Release the dedup record: the event was not applied, and the
		// next delivery of the same id must not be dropped as a duplicate.
		if delErr := c.inbox.Delete(ctx, meta.EventID); delErr != nil {
			c.logger.Error("inbox release failed", "err", delErr, "event_id", meta.EventID)
		}
		return err
	}
	return nil
}
