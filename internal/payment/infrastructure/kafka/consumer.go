package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/payment-service/internal/metrics"
	"github.com/orderflow/payment-service/internal/payment/application"
	"github.com/orderflow/payment-service/internal/payment/domain"
	"github.com/orderflow/payment-service/pkg/idempotency"
	"github.com/orderflow/payment-service/pkg/tracing"
)

// Consumer adapts ORDER_CREATED notifications into create-payment calls.
// Commits are manual: a message is committed only when it is fully handled or
// classified as benign, so anything else is redelivered at-least-once.
type Consumer struct {
	log     *slog.Logger
	reader  *kafka.Reader
	svc     *application.Service
	pub     application.EventPublisher
	dedup   *idempotency.Store
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc *application.Service, pub application.EventPublisher, dedup *idempotency.Store, m *metrics.Metrics) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:     log,
		reader:  r,
		svc:     svc,
		pub:     pub,
		dedup:   dedup,
		metrics: m,
		tracer:  otel.Tracer("payment-consumer"),
	}
}

// Retry pacing for a message whose handling failed. Offsets are committed in
// order, so the worker stays on the failed message instead of letting a later
// commit swallow it.
const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		c.metrics.EventsConsumed.Inc()

		delay := retryBaseDelay
		for !c.handle(ctx, msg) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay + time.Duration(rand.Int64N(int64(delay)/2+1))):
			}
			if delay *= 2; delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "err", err)
			continue
		}
		c.metrics.EventsCommitted.Inc()
	}
}

// handle processes one message and reports whether to acknowledge it.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	var event domain.OrderCreated
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// A poison message can never succeed on redelivery.
		c.log.Error("unmarshal failed, skipping message", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return true
	}

	c.log.Info("received order event",
		"order_id", event.OrderID, "user_id", event.UserID, "amount", event.TotalAmount,
		"partition", msg.Partition, "offset", msg.Offset)

	if c.dedup != nil {
		seen, err := c.dedup.Seen(ctx, event.OrderID)
		if err != nil {
			// Redis is a fast path only; the store's unique constraint decides.
			c.log.Warn("dedup check failed, falling through", "order_id", event.OrderID, "err", err)
		} else if seen {
			c.log.Info("duplicate order event skipped", "order_id", event.OrderID)
			c.metrics.DuplicatesSkipped.Inc()
			return true
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderCreated")
	defer span.End()

	payment, err := c.svc.CreatePayment(msgCtx, event.OrderID, event.UserID, event.TotalAmount)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			c.log.Warn("payment already exists, acknowledging duplicate", "order_id", event.OrderID)
			c.metrics.DuplicatesSkipped.Inc()
			c.markProcessed(msgCtx, event.OrderID)
			return true
		}
		// No ack: the broker redelivers and the next attempt's pre-check or
		// unique constraint catches any row written before the failure.
		c.log.Error("order event processing failed", "order_id", event.OrderID, "err", err)
		return false
	}
	c.metrics.PaymentsCreated.WithLabelValues(string(payment.Status)).Inc()

	if err := c.pub.Publish(msgCtx, domain.NewPaymentEvent(payment)); err != nil {
		// Queueing is the publisher's job; a failure here does not block the ack.
		c.log.Error("payment event publish failed", "order_id", event.OrderID, "err", err)
	}

	c.markProcessed(msgCtx, event.OrderID)
	return true
}

func (c *Consumer) markProcessed(ctx context.Context, orderID int64) {
	if c.dedup == nil {
		return
	}
	if err := c.dedup.Mark(ctx, orderID); err != nil {
		c.log.Warn("dedup mark failed", "order_id", orderID, "err", err)
	}
}
