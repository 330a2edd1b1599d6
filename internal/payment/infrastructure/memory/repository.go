// Package memory provides an in-memory PaymentRepository with the same
// uniqueness and aggregation semantics as the postgres repository. It backs
// unit tests and local experimentation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderflow/payment-service/internal/payment/application"
	"github.com/orderflow/payment-service/internal/payment/domain"
)

type Repository struct {
	mu       sync.RWMutex
	payments map[int64]domain.Payment // keyed by orderId, the unique key
}

func NewRepository() *Repository {
	return &Repository{payments: make(map[int64]domain.Payment)}
}

func (r *Repository) Create(_ context.Context, p domain.Payment) (domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.OrderID]; ok {
		return domain.Payment{}, fmt.Errorf("%w: orderId=%d", domain.ErrAlreadyExists, p.OrderID)
	}
	p.ID = uuid.Must(uuid.NewV7()).String()
	r.payments[p.OrderID] = p
	return p, nil
}

func (r *Repository) ExistsByOrderID(_ context.Context, orderID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.payments[orderID]
	return ok, nil
}

func (r *Repository) GetByOrderID(_ context.Context, orderID int64) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[orderID]
	if !ok {
		return domain.Payment{}, fmt.Errorf("%w: orderId=%d", domain.ErrNotFound, orderID)
	}
	return p, nil
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]domain.Payment, error) {
	return r.list(func(p domain.Payment) bool { return p.UserID == userID }), nil
}

func (r *Repository) ListByUserPaged(ctx context.Context, userID int64, page, size int) (application.PagedPayments, error) {
	all, _ := r.ListByUser(ctx, userID)
	return paginate(all, page, size), nil
}

func (r *Repository) ListByStatus(_ context.Context, status domain.Status) ([]domain.Payment, error) {
	return r.list(func(p domain.Payment) bool { return p.Status == status }), nil
}

func (r *Repository) ListByStatusPaged(ctx context.Context, status domain.Status, page, size int) (application.PagedPayments, error) {
	all, _ := r.ListByStatus(ctx, status)
	return paginate(all, page, size), nil
}

func (r *Repository) ListAll(_ context.Context) ([]domain.Payment, error) {
	return r.list(func(domain.Payment) bool { return true }), nil
}

func (r *Repository) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for orderID, p := range r.payments {
		if p.ID == id {
			p.Status = status
			r.payments[orderID] = p
			return nil
		}
	}
	return fmt.Errorf("%w: id=%s", domain.ErrNotFound, id)
}

func (r *Repository) SumAmountByUserAndRange(_ context.Context, userID int64, from, to time.Time) (decimal.Decimal, error) {
	return r.sum(func(p domain.Payment) bool {
		return p.UserID == userID && inclusiveWithin(p.Timestamp, from, to)
	}), nil
}

func (r *Repository) SumAmountByRange(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	return r.sum(func(p domain.Payment) bool {
		return inclusiveWithin(p.Timestamp, from, to)
	}), nil
}

func (r *Repository) DeleteByOrderID(_ context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, orderID)
	return nil
}

func (r *Repository) list(keep func(domain.Payment) bool) []domain.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Payment
	for _, p := range r.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (r *Repository) sum(keep func(domain.Payment) bool) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, p := range r.payments {
		if keep(p) {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// inclusiveWithin mirrors the store-side aggregation bounds (>= from, <= to).
func inclusiveWithin(ts, from, to time.Time) bool {
	return !ts.Before(from) && !ts.After(to)
}

func paginate(all []domain.Payment, page, size int) application.PagedPayments {
	start := page * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return application.PagedPayments{
		Items: all[start:end],
		Page:  page,
		Size:  size,
		Total: int64(len(all)),
	}
}
