package idempotency_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/payment-service/pkg/idempotency"
	"github.com/orderflow/payment-service/test/integration"
)

func TestStoreIntegration(t *testing.T) {
	if !integration.Enabled() {
		t.Skip("set PAYMENT_TEST_INTEGRATION=1 to run")
	}

	ctx := context.Background()
	env, err := integration.Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	rdb := redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(env.RedisAddr, "redis://")})
	defer rdb.Close()

	store := idempotency.NewStore(rdb, time.Minute)

	seen, err := store.Seen(ctx, 1)
	require.NoError(t, err)
	assert.False(t, seen, "Seen must not mark")

	// Still unseen: only Mark records an order.
	seen, err = store.Seen(ctx, 1)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Mark(ctx, 1))

	seen, err = store.Seen(ctx, 1)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.Seen(ctx, 2)
	require.NoError(t, err)
	assert.False(t, seen, "keys are per order")
}
