package delivery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func TestMemoryStorage_EnqueueAndFetchDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := delivery.NewMemoryStorage()
	now := time.Now()

	first, err := s.Enqueue(ctx, "n1", notifications.ChannelEmail, now.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusPending, first.Status)
	assert.Zero(t, first.Attempts)
	assert.Nil(t, first.LastError)

	second, err := s.Enqueue(ctx, "n2", notifications.ChannelPush, now)
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, "n3", notifications.ChannelEmail, now.Add(time.Minute))
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, "", notifications.ChannelEmail, now)
	assert.ErrorIs(t, err, delivery.ErrStorage)

	due, err := s.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID)
	assert.Equal(t, second.ID, due[1].ID)

	due, err = s.FetchDue(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, first.ID, due[0].ID)
}

func TestMemoryStorage_ClaimIsCompareAndSwap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := delivery.NewMemoryStorage()
	e, err := s.Enqueue(ctx, "n1", notifications.ChannelEmail, time.Now())
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Claim(ctx, e.ID, time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, delivery.ErrClaimLost):
				losses++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 31, losses)

	_, err = s.Claim(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, delivery.ErrEntryNotFound)
}

func TestMemoryStorage_Resolution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := delivery.NewMemoryStorage()
	now := time.Now()

	e, err := s.Enqueue(ctx, "n1", notifications.ChannelEmail, now)
	require.NoError(t, err)

	err = s.MarkSent(ctx, e.ID, 1, now)
	assert.ErrorIs(t, err, delivery.ErrNotProcessing, "pending entries cannot be resolved")

	claimed, err := s.Claim(ctx, e.ID, now)
	require.NoError(t, err)
	require.NotNil(t, claimed.ClaimedAt)

	err = s.MarkFailed(ctx, e.ID, delivery.FailureUpdate{Status: delivery.StatusSent})
	assert.ErrorIs(t, err, delivery.ErrInvalidStatus)

	retryAt := now.Add(2 * time.Second)
	require.NoError(t, s.MarkFailed(ctx, e.ID, delivery.FailureUpdate{
		Status:      delivery.StatusPending,
		Attempts:    1,
		LastError:   "smtp timeout",
		AvailableAt: retryAt,
		UpdatedAt:   now,
	}))

	entries, err := s.ListByNotification(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, delivery.StatusPending, entries[0].Status)
	assert.Equal(t, 1, entries[0].Attempts)
	require.NotNil(t, entries[0].LastError)
	assert.Equal(t, "smtp timeout", *entries[0].LastError)
	assert.Equal(t, retryAt, entries[0].AvailableAt)

	due, err := s.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "rescheduled entry is not due yet")

	_, err = s.Claim(ctx, e.ID, retryAt)
	require.NoError(t, err)
	require.NoError(t, s.MarkSent(ctx, e.ID, 2, retryAt))

	sent, err := s.ListByStatus(ctx, delivery.StatusSent, 0)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, 2, sent[0].Attempts)

	_, err = s.Claim(ctx, e.ID, retryAt)
	assert.ErrorIs(t, err, delivery.ErrClaimLost, "sent is terminal")
	assert.ErrorIs(t, s.MarkSent(ctx, "missing", 1, now), delivery.ErrEntryNotFound)
}

func TestMemoryStorage_PurgeFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := delivery.NewMemoryStorage()
	now := time.Now()

	fail := func(updatedAt time.Time) string {
		e, err := s.Enqueue(ctx, "n", notifications.ChannelEmail, now)
		require.NoError(t, err)
		_, err = s.Claim(ctx, e.ID, now)
		require.NoError(t, err)
		require.NoError(t, s.MarkFailed(ctx, e.ID, delivery.FailureUpdate{
			Status: delivery.StatusFailed, Attempts: 5, LastError: "x", AvailableAt: now, UpdatedAt: updatedAt,
		}))
		return e.ID
	}
	fail(now.Add(-48 * time.Hour))
	recent := fail(now.Add(-time.Hour))
	_, err := s.Enqueue(ctx, "n", notifications.ChannelEmail, now)
	require.NoError(t, err)

	n, err := s.PurgeFailed(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	failed, err := s.ListByStatus(ctx, delivery.StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, recent, failed[0].ID)

	pending, err := s.ListByStatus(ctx, delivery.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMemoryStorage_ReleaseStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := delivery.NewMemoryStorage()
	now := time.Now()

	stale, err := s.Enqueue(ctx, "n1", notifications.ChannelEmail, now)
	require.NoError(t, err)
	fresh, err := s.Enqueue(ctx, "n2", notifications.ChannelEmail, now)
	require.NoError(t, err)

	_, err = s.Claim(ctx, stale.ID, now.Add(-10*time.Minute))
	require.NoError(t, err)
	_, err = s.Claim(ctx, fresh.ID, now)
	require.NoError(t, err)

	n, err := s.ReleaseStale(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	due, err := s.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, stale.ID, due[0].ID)
	assert.Zero(t, due[0].Attempts, "release does not count as an attempt")
	assert.Nil(t, due[0].ClaimedAt)
}
