package delivery_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type dispatcherFunc func(ctx context.Context, ch notifications.Channel, n notifications.Notification) error

func (f dispatcherFunc) Send(ctx context.Context, ch notifications.Channel, n notifications.Notification) error {
	return f(ctx, ch, n)
}

var errAlwaysFails = errors.New("smtp unavailable")

func failing(context.Context, notifications.Channel, notifications.Notification) error {
	return errAlwaysFails
}

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) EmitToUser(ctx context.Context, userID, event string, payload any) bool {
	return m.Called(ctx, userID, event, payload).Bool(0)
}

type fixture struct {
	clock  *testClock
	notifs *notifications.MemoryStorage
	queue  *delivery.MemoryStorage
	svc    *notifications.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  newTestClock(),
		notifs: notifications.NewMemoryStorage(),
		queue:  delivery.NewMemoryStorage(),
	}
	f.svc = notifications.NewService(f.notifs,
		notifications.WithEnqueuer(delivery.Enqueuer(f.queue)),
		notifications.WithClock(f.clock.Now),
	)
	return f
}

func (f *fixture) worker(t *testing.T, d delivery.Dispatcher, opts ...delivery.WorkerOption) *delivery.Worker {
	t.Helper()
	w, err := delivery.NewWorker(f.queue, f.notifs, d, append([]delivery.WorkerOption{delivery.WithClock(f.clock.Now)}, opts...)...)
	require.NoError(t, err)
	return w
}

func (f *fixture) create(t *testing.T, userID string, ch notifications.Channel) *notifications.Notification {
	t.Helper()
	n, err := f.svc.CreateNotification(context.Background(), notifications.CreateParams{
		UserID:  userID,
		Type:    "digest",
		Title:   "Weekly digest",
		Body:    "Your weekly summary",
		Channel: ch,
		Payload: map[string]any{"email": userID + "@example.com"},
	})
	require.NoError(t, err)
	return n
}

func (f *fixture) entry(t *testing.T, notificationID string) delivery.Entry {
	t.Helper()
	entries, err := f.queue.ListByNotification(context.Background(), notificationID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func TestNewWorker_RequiresCollaborators(t *testing.T) {
	t.Parallel()
	d := dispatcherFunc(failing)
	notifs := notifications.NewMemoryStorage()
	queue := delivery.NewMemoryStorage()

	_, err := delivery.NewWorker(nil, notifs, d)
	assert.ErrorIs(t, err, delivery.ErrStorageNil)
	_, err = delivery.NewWorker(queue, nil, d)
	assert.ErrorIs(t, err, delivery.ErrNotificationsNil)
	_, err = delivery.NewWorker(queue, notifs, nil)
	assert.ErrorIs(t, err, delivery.ErrDispatcherNil)
}

func TestProducer_QueuesOnlyNonInAppChannels(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	inapp := f.create(t, "u1", notifications.ChannelInApp)
	entries, err := f.queue.ListByNotification(ctx, inapp.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, ch := range []notifications.Channel{notifications.ChannelEmail, notifications.ChannelPush} {
		n := f.create(t, "u1", ch)
		e := f.entry(t, n.ID)
		assert.Equal(t, delivery.StatusPending, e.Status)
		assert.Equal(t, ch, e.Channel)
		assert.Zero(t, e.Attempts)
		assert.False(t, e.AvailableAt.After(n.CreatedAt))
	}
}

func TestProcessBatch_DeliversAndEmits(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	n := f.create(t, "u1", notifications.ChannelEmail)

	em := &mockEmitter{}
	em.On("EmitToUser", mock.Anything, "u1", notifications.EventDelivered,
		notifications.DeliveredEvent{ID: n.ID, Channel: notifications.ChannelEmail}).Return(true).Once()

	var got notifications.Notification
	w := f.worker(t, dispatcherFunc(func(_ context.Context, ch notifications.Channel, n notifications.Notification) error {
		assert.Equal(t, notifications.ChannelEmail, ch)
		got = n
		return nil
	}), delivery.WithEmitter(em))

	res, err := w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, delivery.BatchResult{Fetched: 1, Sent: 1}, res)
	assert.Equal(t, n.ID, got.ID)

	e := f.entry(t, n.ID)
	assert.Equal(t, delivery.StatusSent, e.Status)
	assert.Equal(t, 1, e.Attempts)

	stored, err := f.notifs.Get(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, f.clock.Now(), *stored.DeliveredAt)

	em.AssertExpectations(t)

	res, err = w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Fetched, "sent entries are never fetched again")
}

func TestProcessBatch_RetriesWithBackoff(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, u := range []string{"a", "b", "c"} {
		ids = append(ids, f.create(t, u, notifications.ChannelEmail).ID)
	}

	w := f.worker(t, dispatcherFunc(failing))

	for attempt := 1; attempt <= 3; attempt++ {
		res, err := w.ProcessBatch(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Retried, "batch %d", attempt)

		// not due again until the backoff elapses
		res, err = w.ProcessBatch(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, res.Fetched)

		if attempt < 3 {
			f.clock.Advance(delivery.Backoff(attempt))
		}
	}

	for _, id := range ids {
		e := f.entry(t, id)
		assert.Equal(t, delivery.StatusPending, e.Status)
		assert.Equal(t, 3, e.Attempts)
		assert.Equal(t, f.clock.Now().Add(8*time.Second), e.AvailableAt)
		require.NotNil(t, e.LastError)
		assert.Equal(t, errAlwaysFails.Error(), *e.LastError)
	}
}

func TestProcessBatch_FailsAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	n := f.create(t, "u1", notifications.ChannelPush)

	var calls atomic.Int32
	w := f.worker(t, dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		calls.Add(1)
		return errAlwaysFails
	}))

	for attempt := 1; attempt <= delivery.DefaultMaxAttempts; attempt++ {
		res, err := w.ProcessBatch(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, 1, res.Fetched, "batch %d", attempt)
		f.clock.Advance(delivery.Backoff(attempt))
	}

	e := f.entry(t, n.ID)
	assert.Equal(t, delivery.StatusFailed, e.Status)
	assert.Equal(t, 5, e.Attempts)

	f.clock.Advance(24 * time.Hour)
	res, err := w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Fetched)
	assert.EqualValues(t, 5, calls.Load())

	after := f.entry(t, n.ID)
	assert.Equal(t, e, after, "a sixth batch leaves the failed entry unchanged")

	stored, err := f.notifs.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DeliveredAt)
}

func TestProcessBatch_MissingNotificationFailsImmediately(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.queue.Enqueue(ctx, "ghost", notifications.ChannelEmail, f.clock.Now())
	require.NoError(t, err)

	var called atomic.Bool
	w := f.worker(t, dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		called.Store(true)
		return nil
	}))

	res, err := w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, called.Load())

	got := f.entry(t, e.NotificationID)
	assert.Equal(t, delivery.StatusFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "notification missing", *got.LastError)
}

func TestProcessBatch_SenderPanicIsAFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	n := f.create(t, "u1", notifications.ChannelEmail)

	w := f.worker(t, dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		panic("nil transport")
	}))

	res, err := w.ProcessBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	e := f.entry(t, n.ID)
	assert.Equal(t, delivery.StatusPending, e.Status)
	assert.Equal(t, 1, e.Attempts)
	require.NotNil(t, e.LastError)
	assert.Contains(t, *e.LastError, "nil transport")
}

func TestProcessBatch_OneFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	good := f.create(t, "good", notifications.ChannelEmail)
	bad := f.create(t, "bad", notifications.ChannelEmail)

	w := f.worker(t, dispatcherFunc(func(_ context.Context, _ notifications.Channel, n notifications.Notification) error {
		if n.UserID == "bad" {
			return errAlwaysFails
		}
		return nil
	}))

	res, err := w.ProcessBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, delivery.StatusSent, f.entry(t, good.ID).Status)
	assert.Equal(t, delivery.StatusPending, f.entry(t, bad.ID).Status)
}

func TestProcessBatch_DispatchesConcurrently(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	for _, u := range []string{"a", "b", "c", "d"} {
		f.create(t, u, notifications.ChannelEmail)
	}

	const delay = 100 * time.Millisecond
	w := f.worker(t, dispatcherFunc(func(ctx context.Context, _ notifications.Channel, _ notifications.Notification) error {
		time.Sleep(delay)
		return nil
	}))

	start := time.Now()
	res, err := w.ProcessBatch(context.Background(), 10)
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Equal(t, 4, res.Sent)
	assert.Less(t, elapsed, 3*delay, "batch latency follows the slowest entry")
}

var errStoreDown = errors.New("store unavailable")

// flakyNotifications fails every MarkDelivered call.
type flakyNotifications struct {
	*notifications.MemoryStorage
}

func (flakyNotifications) MarkDelivered(context.Context, string, time.Time) (bool, error) {
	return false, errStoreDown
}

// flakyQueue fails every MarkSent call.
type flakyQueue struct {
	*delivery.MemoryStorage
}

func (flakyQueue) MarkSent(context.Context, string, int, time.Time) error {
	return errStoreDown
}

func TestProcessBatch_MarkDeliveredErrorRetries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	n := f.create(t, "u1", notifications.ChannelEmail)

	var sends atomic.Int32
	d := dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		sends.Add(1)
		return nil
	})
	w, err := delivery.NewWorker(f.queue, flakyNotifications{f.notifs}, d, delivery.WithClock(f.clock.Now))
	require.NoError(t, err)

	res, err := w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, delivery.BatchResult{Fetched: 1, Retried: 1}, res)

	e := f.entry(t, n.ID)
	assert.Equal(t, delivery.StatusPending, e.Status)
	assert.Equal(t, 1, e.Attempts)
	assert.Equal(t, f.clock.Now().Add(delivery.Backoff(1)), e.AvailableAt)
	require.NotNil(t, e.LastError)
	assert.Contains(t, *e.LastError, errStoreDown.Error())

	f.clock.Advance(delivery.Backoff(1))
	res, err = w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched, "the entry is attempted again")
	assert.EqualValues(t, 2, sends.Load())
}

func TestProcessBatch_MarkSentErrorRetries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	n := f.create(t, "u1", notifications.ChannelEmail)

	w, err := delivery.NewWorker(flakyQueue{f.queue}, f.notifs, dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		return nil
	}), delivery.WithClock(f.clock.Now))
	require.NoError(t, err)

	res, err := w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, delivery.BatchResult{Fetched: 1, Retried: 1}, res)

	e := f.entry(t, n.ID)
	assert.Equal(t, delivery.StatusPending, e.Status, "the entry is not left in processing")
	assert.Equal(t, 1, e.Attempts)
	assert.Equal(t, f.clock.Now().Add(delivery.Backoff(1)), e.AvailableAt)

	f.clock.Advance(24 * time.Hour)
	res, err = w.ProcessBatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
}

// racingStorage makes every concurrent FetchDue return only after all
// racers have fetched, so they all see the same pending entries.
type racingStorage struct {
	*delivery.MemoryStorage
	barrier *sync.WaitGroup
}

func (r *racingStorage) FetchDue(ctx context.Context, now time.Time, limit int) ([]delivery.Entry, error) {
	entries, err := r.MemoryStorage.FetchDue(ctx, now, limit)
	r.barrier.Done()
	r.barrier.Wait()
	return entries, err
}

func TestProcessBatch_ConcurrentWorkersNeverDoubleClaim(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	n := f.create(t, "u1", notifications.ChannelEmail)

	const racers = 4
	barrier := &sync.WaitGroup{}
	barrier.Add(racers)
	store := &racingStorage{MemoryStorage: f.queue, barrier: barrier}

	var sends atomic.Int32
	d := dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		sends.Add(1)
		return nil
	})

	results := make([]delivery.BatchResult, racers)
	var wg sync.WaitGroup
	for i := range racers {
		w, err := delivery.NewWorker(store, f.notifs, d, delivery.WithClock(f.clock.Now))
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := w.ProcessBatch(context.Background(), 10)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	var total delivery.BatchResult
	for _, r := range results {
		assert.Equal(t, 1, r.Fetched, "every racer saw the entry")
		total.Sent += r.Sent
		total.ClaimLost += r.ClaimLost
	}
	assert.Equal(t, 1, total.Sent)
	assert.Equal(t, racers-1, total.ClaimLost)
	assert.EqualValues(t, 1, sends.Load())

	e := f.entry(t, n.ID)
	assert.Equal(t, delivery.StatusSent, e.Status)
	assert.Equal(t, 1, e.Attempts)
}

func TestWorker_StartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	n := f.create(t, "u1", notifications.ChannelEmail)

	delivered := make(chan struct{})
	var once sync.Once
	w, err := delivery.NewWorker(f.queue, f.notifs, dispatcherFunc(func(context.Context, notifications.Channel, notifications.Notification) error {
		once.Do(func() { close(delivered) })
		return nil
	}), delivery.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Stop(), delivery.ErrWorkerNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	run := w.Run(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not deliver the queued entry")
	}

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Eventually(t, func() bool {
		entries, err := f.queue.ListByNotification(context.Background(), n.ID)
		return err == nil && len(entries) == 1 && entries[0].Status == delivery.StatusSent
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), delivery.ErrWorkerStarted)
	require.NoError(t, w.Stop())
}
