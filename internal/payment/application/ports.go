package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderflow/payment-service/internal/payment/domain"
)

// PaymentRepository is the document-store surface the orchestrator needs.
// Create must enforce the orderId uniqueness constraint and report a
// violation as domain.ErrAlreadyExists; that constraint, not the pre-check,
// is authoritative under concurrent creates.
type PaymentRepository interface {
	Create(ctx context.Context, p domain.Payment) (domain.Payment, error)
	ExistsByOrderID(ctx context.Context, orderID int64) (bool, error)
	GetByOrderID(ctx context.Context, orderID int64) (domain.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error)
	ListByUserPaged(ctx context.Context, userID int64, page, size int) (PagedPayments, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Payment, error)
	ListByStatusPaged(ctx context.Context, status domain.Status, page, size int) (PagedPayments, error)
	ListAll(ctx context.Context) ([]domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	SumAmountByUserAndRange(ctx context.Context, userID int64, from, to time.Time) (decimal.Decimal, error)
	SumAmountByRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

// OutcomeClient draws one integer from the external outcome oracle. It is the
// only source of nondeterminism in the workflow and must stay substitutable.
type OutcomeClient interface {
	Draw(ctx context.Context) (int, error)
}

// EventPublisher emits outbound payment events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.PaymentEvent) error
}

// PagedPayments is one page of a list query.
type PagedPayments struct {
	Items []domain.Payment `json:"items"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Total int64            `json:"total"`
}

// Summary aggregates payment amounts over a date range. UserID is nil for the
// global variant.
type Summary struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Count       int64           `json:"paymentsCount"`
	From        time.Time       `json:"fromDate"`
	To          time.Time       `json:"toDate"`
	UserID      *int64          `json:"userId,omitempty"`
}
