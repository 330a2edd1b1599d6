package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// ParseStatus maps the wire/path representation onto a known Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

// Payment is the persisted aggregate. ID is assigned by the store on first
// insert. OrderID is globally unique: at most one payment per order. Timestamp
// is set once at creation and never updated.
type Payment struct {
	ID        string
	OrderID   int64
	UserID    int64
	Status    Status
	Amount    decimal.Decimal
	Timestamp time.Time
}

// NewPayment builds the initial record for the create workflow. Every payment
// starts in PROCESSING and is finalized exactly once after the outcome draw.
func NewPayment(orderID, userID int64, amount decimal.Decimal) Payment {
	return Payment{
		OrderID:   orderID,
		UserID:    userID,
		Status:    StatusProcessing,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}
