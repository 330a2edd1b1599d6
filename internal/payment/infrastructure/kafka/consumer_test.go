package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/orderflow/payment-service/internal/metrics"
	"github.com/orderflow/payment-service/internal/payment/application"
	"github.com/orderflow/payment-service/internal/payment/domain"
	"github.com/orderflow/payment-service/internal/payment/infrastructure/memory"
	"github.com/orderflow/payment-service/pkg/logging"
)

type stubOracle struct {
	n   int
	err error
}

func (s stubOracle) Draw(context.Context) (int, error) {
	return s.n, s.err
}

type capturingPublisher struct {
	events []domain.PaymentEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.PaymentEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newTestConsumer(repo application.PaymentRepository, oracle application.OutcomeClient, pub application.EventPublisher) *Consumer {
	log := logging.New("error")
	return &Consumer{
		log:     log,
		svc:     application.NewService(log, repo, oracle),
		pub:     pub,
		metrics: metrics.New("test"),
		tracer:  otel.Tracer("payment-consumer-test"),
	}
}

func orderMessage(t *testing.T, orderID, userID int64, amount string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(domain.OrderCreated{
		OrderID:     orderID,
		UserID:      userID,
		TotalAmount: decimal.RequireFromString(amount),
		Event:       "ORDER_CREATED",
	})
	require.NoError(t, err)
	return kafka.Message{Topic: "order.events", Value: value}
}

func TestHandleCreatesPaymentAndPublishes(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}
	c := newTestConsumer(repo, stubOracle{n: 42}, pub)

	ack := c.handle(context.Background(), orderMessage(t, 1, 1, "100.00"))
	assert.True(t, ack)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.NotEmpty(t, event.PaymentID)
	assert.Equal(t, int64(1), event.OrderID)
	assert.Equal(t, domain.StatusSuccess, event.Status)
	assert.Equal(t, domain.EventTypeCreatePayment, event.EventType)
	assert.True(t, decimal.RequireFromString("100.00").Equal(event.Amount))
}

func TestHandleOddDrawPublishesFailed(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}
	c := newTestConsumer(repo, stubOracle{n: 13}, pub)

	ack := c.handle(context.Background(), orderMessage(t, 2, 1, "200.00"))
	assert.True(t, ack)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.StatusFailed, pub.events[0].Status)
}

func TestHandleRedeliveredOrderAcksOnce(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}
	c := newTestConsumer(repo, stubOracle{n: 42}, pub)

	msg := orderMessage(t, 3, 1, "50.00")
	assert.True(t, c.handle(context.Background(), msg))
	assert.True(t, c.handle(context.Background(), msg), "duplicate delivery is benign and acknowledged")

	// Exactly one payment, at most one outbound event.
	payments, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Len(t, pub.events, 1)
}

func TestHandleOracleFailureSuppressesAck(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}
	c := newTestConsumer(repo, stubOracle{err: fmt.Errorf("%w: down", domain.ErrExternalService)}, pub)

	ack := c.handle(context.Background(), orderMessage(t, 4, 1, "50.00"))
	assert.False(t, ack, "non-benign failures must trigger redelivery")
	assert.Empty(t, pub.events)

	stored, err := repo.GetByOrderID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestHandleRedeliveryAfterFailureFindsExistingRow(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}

	failing := newTestConsumer(repo, stubOracle{err: fmt.Errorf("%w: down", domain.ErrExternalService)}, pub)
	msg := orderMessage(t, 5, 1, "50.00")
	assert.False(t, failing.handle(context.Background(), msg))

	// The retry hits the pre-check against the row written before the
	// failure and acknowledges without a second payment or any event.
	recovered := newTestConsumer(repo, stubOracle{n: 42}, pub)
	assert.True(t, recovered.handle(context.Background(), msg))

	payments, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Equal(t, domain.StatusProcessing, payments[0].Status)
	assert.Empty(t, pub.events)
}

func TestHandleInvalidInputSuppressesAck(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}
	c := newTestConsumer(repo, stubOracle{n: 42}, pub)

	ack := c.handle(context.Background(), orderMessage(t, 6, 1, "-10.00"))
	assert.False(t, ack)
	assert.Empty(t, pub.events)
}

func TestHandleUndecodablePayloadAcks(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{}
	c := newTestConsumer(repo, stubOracle{n: 42}, pub)

	ack := c.handle(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.True(t, ack, "poison messages are dropped, not redelivered forever")
	assert.Empty(t, pub.events)
}

func TestHandlePublishFailureStillAcks(t *testing.T) {
	repo := memory.NewRepository()
	pub := &capturingPublisher{err: fmt.Errorf("broker gone")}
	c := newTestConsumer(repo, stubOracle{n: 42}, pub)

	ack := c.handle(context.Background(), orderMessage(t, 7, 1, "50.00"))
	assert.True(t, ack, "publish failures are logged and dropped, never bounced to the consumer")

	payments, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}
