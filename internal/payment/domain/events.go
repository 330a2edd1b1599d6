package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventTypeCreatePayment tags every outbound payment event.
const EventTypeCreatePayment = "CREATE_PAYMENT"

// OrderCreated is the inbound notification consumed from the order topic.
type OrderCreated struct {
	OrderID     int64           `json:"orderId"`
	UserID      int64           `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Event       string          `json:"event"`
}

// PaymentEvent is the outbound payment-result notification.
type PaymentEvent struct {
	PaymentID string          `json:"paymentId"`
	OrderID   int64           `json:"orderId"`
	UserID    int64           `json:"userId"`
	Status    Status          `json:"status"`
	Amount    decimal.Decimal `json:"paymentAmount"`
	Timestamp time.Time       `json:"timestamp"`
	EventType string          `json:"eventType"`
}

// NewPaymentEvent derives the outbound notification from a finalized payment.
func NewPaymentEvent(p Payment) PaymentEvent {
	return PaymentEvent{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Status:    p.Status,
		Amount:    p.Amount,
		Timestamp: p.Timestamp,
		EventType: EventTypeCreatePayment,
	}
}
