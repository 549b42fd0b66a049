package delivery_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/statemachine"
)

func TestLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l, err := delivery.NewLifecycle(5)
	require.NoError(t, err)
	assert.Equal(t, 5, l.MaxAttempts())

	next, err := l.Claim(ctx, delivery.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusProcessing, next)

	next, err = l.Succeed(ctx, delivery.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusSent, next)

	for attempts := 1; attempts < 5; attempts++ {
		next, err = l.Fail(ctx, delivery.StatusProcessing, attempts)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusPending, next, "attempts=%d", attempts)
	}

	next, err = l.Fail(ctx, delivery.StatusProcessing, 5)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusFailed, next)
}

func TestLifecycle_RejectsInvalidTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, err := delivery.NewLifecycle(3)
	require.NoError(t, err)

	_, err = l.Claim(ctx, delivery.StatusProcessing)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))

	_, err = l.Succeed(ctx, delivery.StatusPending)
	assert.Error(t, err)

	_, err = l.Fail(ctx, delivery.StatusSent, 1)
	assert.Error(t, err)

	_, err = l.Claim(ctx, delivery.StatusFailed)
	assert.Error(t, err, "failed is terminal")

	_, err = delivery.NewLifecycle(0)
	assert.ErrorIs(t, err, delivery.ErrInvalidMaxAttempt)
}
