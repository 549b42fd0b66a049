package notifications_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func seed(t *testing.T, s notifications.Storage, userID string, n int, base time.Time) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := range n {
		id := fmt.Sprintf("%s-%d", userID, i)
		require.NoError(t, s.Create(context.Background(), notifications.Notification{
			ID:        id,
			UserID:    userID,
			Type:      "test",
			Title:     "title",
			Channel:   notifications.ChannelInApp,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
		ids = append(ids, id)
	}
	return ids
}

func TestMemoryStorage_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()

	payload := map[string]any{"email": "a@b.c"}
	require.NoError(t, s.Create(ctx, notifications.Notification{
		ID: "n1", UserID: "u1", Type: "t", Title: "x", Payload: payload,
	}))

	err := s.Create(ctx, notifications.Notification{ID: "n1", UserID: "u1"})
	assert.Error(t, err, "duplicate id must be rejected")

	err = s.Create(ctx, notifications.Notification{ID: "n2"})
	assert.Error(t, err, "user id is required")

	got, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.False(t, got.Read)
	assert.Nil(t, got.DeliveredAt)

	// returned values must not alias the stored record
	got.Payload["email"] = "changed"
	payload["email"] = "changed too"
	again, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", again.Payload["email"])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
}

func TestMemoryStorage_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := seed(t, s, "u1", 5, base)
	seed(t, s, "u2", 2, base)

	tests := []struct {
		name  string
		page  int
		limit int
		want  []string
	}{
		{"first page newest first", 1, 2, []string{ids[4], ids[3]}},
		{"second page", 2, 2, []string{ids[2], ids[1]}},
		{"partial last page", 3, 2, []string{ids[0]}},
		{"past the end", 4, 2, []string{}},
		{"page below one is first page", 0, 2, []string{ids[4], ids[3]}},
		{"zero limit", 1, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := s.List(ctx, "u1", tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, 5, res.Total)
			assert.Equal(t, max(tt.page, 1), res.Page)

			got := make([]string, 0, len(res.Items))
			for _, n := range res.Items {
				got = append(got, n.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryStorage_ListTiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	at := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, notifications.Notification{ID: id, UserID: "u", CreatedAt: at}))
	}

	res, err := s.List(ctx, "u", 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "c", res.Items[0].ID)
	assert.Equal(t, "a", res.Items[2].ID)
}

func TestMemoryStorage_MarkRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	ids := seed(t, s, "owner", 1, time.Now())

	_, err := s.MarkRead(ctx, ids[0], "intruder")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

	n, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, n.Read, "another user's request must not mutate the record")

	n, err = s.MarkRead(ctx, ids[0], "owner")
	require.NoError(t, err)
	assert.True(t, n.Read)

	_, err = s.MarkRead(ctx, "missing", "owner")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
}

func TestMemoryStorage_MarkAllReadOnlyTouchesOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	now := time.Now()
	aliceIDs := seed(t, s, "alice", 3, now)
	seed(t, s, "bob", 2, now)

	_, err := s.MarkRead(ctx, aliceIDs[0], "alice")
	require.NoError(t, err)

	modified, err := s.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, modified)

	unread, err := s.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = s.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	modified, err = s.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, modified, "second call is a no-op")
}

func TestMemoryStorage_MarkDeliveredSetOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := notifications.NewMemoryStorage()
	ids := seed(t, s, "u", 1, time.Now())

	_, err := s.MarkDelivered(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		set int
	)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkDelivered(ctx, ids[0], first.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				set++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, set)

	n, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, n.DeliveredAt)
	assert.True(t, n.Delivered())
}
