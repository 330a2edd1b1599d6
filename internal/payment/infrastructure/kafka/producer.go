package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/payment-service/internal/metrics"
	"github.com/orderflow/payment-service/internal/payment/domain"
	"github.com/orderflow/payment-service/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher emits payment events keyed by orderId. Sends are asynchronous:
// WriteMessages queues the message and returns, and the completion callback
// only logs. A broker-side failure is never retried and never reaches the
// caller, so the inbound notification may already be acknowledged when a
// payment event is lost. That trade-off is deliberate.
type Publisher struct {
	log      *slog.Logger
	producer Producer
	topic    string
	metrics  *metrics.Metrics
}

func NewPublisher(log *slog.Logger, brokers []string, topic string, m *metrics.Metrics) *Publisher {
	p := &Publisher{log: log, topic: topic, metrics: m}
	p.producer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion:   p.logCompletion,
	}
	return p
}

// NewPublisherWithProducer wires an explicit producer, used by tests.
func NewPublisherWithProducer(log *slog.Logger, producer Producer, topic string, m *metrics.Metrics) *Publisher {
	return &Publisher{log: log, producer: producer, topic: topic, metrics: m}
}

func (p *Publisher) Publish(ctx context.Context, event domain.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling payment event for order %d: %w", event.OrderID, err)
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(strconv.FormatInt(event.OrderID, 10)),
		Value:   payload,
		Headers: headers,
	}

	p.log.Info("publishing payment event", "order_id", event.OrderID, "status", event.Status)
	return p.producer.WriteMessages(ctx, msg)
}

func (p *Publisher) logCompletion(messages []kafka.Message, err error) {
	for _, msg := range messages {
		if err != nil {
			p.log.Error("payment event send failed", "key", string(msg.Key), "err", err)
			p.metrics.PublishFailures.Inc()
			continue
		}
		p.log.Info("payment event sent", "key", string(msg.Key), "partition", msg.Partition, "offset", msg.Offset)
	}
}

func (p *Publisher) Close() error {
	if c, ok := p.producer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
