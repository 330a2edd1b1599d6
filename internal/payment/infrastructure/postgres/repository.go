package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/orderflow/payment-service/internal/payment/application"
	"github.com/orderflow/payment-service/internal/payment/domain"
)

// uniqueViolation is the postgres SQLSTATE for a unique constraint breach.
const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Create inserts a new payment and assigns its id. The unique index on
// order_id is the authoritative idempotency guard: a violation maps to
// domain.ErrAlreadyExists so concurrent creates losing the race behave like
// the pre-check.
func (r *Repository) Create(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	p.ID = uuid.Must(uuid.NewV7()).String()
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (id, order_id, user_id, status, amount, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.OrderID, p.UserID, p.Status, p.Amount, p.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Payment{}, fmt.Errorf("%w: orderId=%d", domain.ErrAlreadyExists, p.OrderID)
		}
		return domain.Payment{}, err
	}
	return p, nil
}

func (r *Repository) ExistsByOrderID(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE order_id=$1)`, orderID).Scan(&exists)
	return exists, err
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID int64) (domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, order_id, user_id, status, amount, created_at FROM payments WHERE order_id=$1`, orderID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("%w: orderId=%d", domain.ErrNotFound, orderID)
	}
	return p, err
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, user_id, status, amount, created_at FROM payments WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *Repository) ListByUserPaged(ctx context.Context, userID int64, page, size int) (application.PagedPayments, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payments WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return application.PagedPayments{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, user_id, status, amount, created_at FROM payments WHERE user_id=$1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		userID, size, page*size)
	if err != nil {
		return application.PagedPayments{}, err
	}
	items, err := collectPayments(rows)
	if err != nil {
		return application.PagedPayments{}, err
	}
	return application.PagedPayments{Items: items, Page: page, Size: size, Total: total}, nil
}

func (r *Repository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, user_id, status, amount, created_at FROM payments WHERE status=$1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *Repository) ListByStatusPaged(ctx context.Context, status domain.Status, page, size int) (application.PagedPayments, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payments WHERE status=$1`, status).Scan(&total); err != nil {
		return application.PagedPayments{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, user_id, status, amount, created_at FROM payments WHERE status=$1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		status, size, page*size)
	if err != nil {
		return application.PagedPayments{}, err
	}
	items, err := collectPayments(rows)
	if err != nil {
		return application.PagedPayments{}, err
	}
	return application.PagedPayments{Items: items, Page: page, Size: size, Total: total}, nil
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, user_id, status, amount, created_at FROM payments ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	ct, err := r.pool.Exec(ctx, `UPDATE payments SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%s", domain.ErrNotFound, id)
	}
	return nil
}

// SumAmountByUserAndRange sums a user's payment amounts with inclusive range
// bounds, mirroring the store-side aggregation.
func (r *Repository) SumAmountByUserAndRange(ctx context.Context, userID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE user_id=$1 AND created_at >= $2 AND created_at <= $3`,
		userID, from, to).Scan(&total)
	return total, err
}

func (r *Repository) SumAmountByRange(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE created_at >= $1 AND created_at <= $2`,
		from, to).Scan(&total)
	return total, err
}

// DeleteByOrderID exists for test cleanup; the pipeline never deletes.
func (r *Repository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE order_id=$1`, orderID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Status, &p.Amount, &p.Timestamp); err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()
	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
