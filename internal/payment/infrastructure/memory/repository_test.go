package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/payment-service/internal/payment/domain"
)

func payment(orderID, userID int64, amount int64, ts time.Time) domain.Payment {
	return domain.Payment{
		OrderID:   orderID,
		UserID:    userID,
		Status:    domain.StatusProcessing,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: ts,
	}
}

func TestCreateEnforcesOrderUniqueness(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	ts := time.Now().UTC()

	saved, err := repo.Create(ctx, payment(1, 1, 100, ts))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = repo.Create(ctx, payment(1, 2, 50, ts))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
}

func TestUpdateStatusByID(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	saved, err := repo.Create(ctx, payment(1, 1, 100, time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, saved.ID, domain.StatusFailed))

	got, err := repo.GetByOrderID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)

	err = repo.UpdateStatus(ctx, "missing", domain.StatusSuccess)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSumBoundsAreInclusive(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, payment(1, 1, 10, from))
	require.NoError(t, err)
	_, err = repo.Create(ctx, payment(2, 1, 20, to))
	require.NoError(t, err)
	_, err = repo.Create(ctx, payment(3, 1, 40, to.Add(time.Second)))
	require.NoError(t, err)

	total, err := repo.SumAmountByUserAndRange(ctx, 1, from, to)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(total), "got %s", total)
}

func TestListOrderedByTimestamp(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, payment(2, 1, 10, base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, payment(1, 1, 10, base))
	require.NoError(t, err)

	listed, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, int64(1), listed[0].OrderID)
	assert.Equal(t, int64(2), listed[1].OrderID)
}
