package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/async"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

type outcome int

const (
	outcomeError outcome = iota
	outcomeSent
	outcomeRetried
	outcomeFailed
	outcomeClaimLost
)

// Worker drains due delivery entries on a fixed interval.
type Worker struct {
	store      Storage
	notifs     NotificationStore
	dispatcher Dispatcher
	emitter    notifications.Emitter
	lifecycle  *Lifecycle
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time
	workerID   string

	pollInterval      time.Duration
	batchSize         int
	sendTimeout       time.Duration
	staleAfter        time.Duration
	failedRetention   time.Duration
	retentionInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a delivery worker.
func NewWorker(store Storage, notifs NotificationStore, dispatcher Dispatcher, opts ...WorkerOption) (*Worker, error) {
	switch {
	case store == nil:
		return nil, ErrStorageNil
	case notifs == nil:
		return nil, ErrNotificationsNil
	case dispatcher == nil:
		return nil, ErrDispatcherNil
	}

	options := &workerOptions{
		pollInterval:      5 * time.Second,
		batchSize:         50,
		maxAttempts:       DefaultMaxAttempts,
		sendTimeout:       30 * time.Second,
		retentionInterval: time.Hour,
		logger:            slog.Default(),
		metrics:           noopMetrics{},
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}

	lifecycle, err := NewLifecycle(options.maxAttempts)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &Worker{
		store:             store,
		notifs:            notifs,
		dispatcher:        dispatcher,
		emitter:           options.emitter,
		lifecycle:         lifecycle,
		metrics:           options.metrics,
		logger:            options.logger.With(logger.Component("delivery"), slog.String("worker_id", id)),
		now:               options.now,
		workerID:          id,
		pollInterval:      options.pollInterval,
		batchSize:         options.batchSize,
		sendTimeout:       options.sendTimeout,
		staleAfter:        options.staleAfter,
		failedRetention:   options.failedRetention,
		retentionInterval: options.retentionInterval,
	}, nil
}

// Start begins processing in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, w.done)

	w.logger.Info("delivery worker started",
		slog.Duration("poll_interval", w.pollInterval),
		slog.Int("batch_size", w.batchSize),
		slog.Int("max_attempts", w.lifecycle.MaxAttempts()))

	return nil
}

// Stop cancels polling and waits for the in-flight batch to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	cancel()
	w.logger.Info("delivery worker stopping, waiting for in-flight batch")
	<-done
	w.logger.Info("delivery worker stopped")

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var retention <-chan time.Time
	if w.failedRetention > 0 {
		t := time.NewTicker(w.retentionInterval)
		defer t.Stop()
		retention = t.C
	}

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		case <-retention:
			w.purge(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if w.staleAfter > 0 {
		n, err := w.store.ReleaseStale(ctx, w.now().Add(-w.staleAfter))
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to release stale entries", logger.Error(err))
		} else if n > 0 {
			w.logger.WarnContext(ctx, "released stale processing entries", slog.Int("count", n))
		}
	}

	if _, err := w.ProcessBatch(ctx, w.batchSize); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "delivery batch failed", logger.Error(err))
	}
}

func (w *Worker) purge(ctx context.Context) {
	n, err := w.store.PurgeFailed(ctx, w.now().Add(-w.failedRetention))
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to purge failed entries", logger.Error(err))
		return
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "purged failed entries", slog.Int("count", n))
	}
}

// ProcessBatch fetches up to limit due entries and attempts each of them
// concurrently, returning once every attempt has been resolved. Per-entry
// errors are logged and counted; only a failure to fetch is returned.
func (w *Worker) ProcessBatch(ctx context.Context, limit int) (BatchResult, error) {
	start := time.Now()
	defer func() { w.metrics.BatchDuration(time.Since(start)) }()

	if limit <= 0 {
		limit = w.batchSize
	}

	var res BatchResult
	entries, err := w.store.FetchDue(ctx, w.now(), limit)
	if err != nil {
		return res, fmt.Errorf("fetch due entries: %w", err)
	}
	res.Fetched = len(entries)
	if len(entries) == 0 {
		return res, nil
	}

	// Attempts outlive worker cancellation so a shutdown does not leave
	// entries stuck in processing.
	attemptCtx := context.WithoutCancel(ctx)

	futures := make([]*async.Future[outcome], 0, len(entries))
	for _, e := range entries {
		futures = append(futures, async.Async(attemptCtx, e, w.processEntry))
	}

	outcomes, err := async.WaitAll(futures...)
	if err != nil {
		w.logger.ErrorContext(ctx, "delivery attempt errors", logger.Error(err))
	}
	for _, out := range outcomes {
		switch out {
		case outcomeSent:
			res.Sent++
		case outcomeRetried:
			res.Retried++
		case outcomeFailed:
			res.Failed++
		case outcomeClaimLost:
			res.ClaimLost++
		default:
			res.Errors++
		}
	}

	w.logger.DebugContext(ctx, "delivery batch processed",
		slog.Int("fetched", res.Fetched),
		slog.Int("sent", res.Sent),
		slog.Int("retried", res.Retried),
		slog.Int("failed", res.Failed),
		slog.Int("claim_lost", res.ClaimLost),
		slog.Int("errors", res.Errors),
		logger.Duration(time.Since(start)))

	return res, nil
}

func (w *Worker) processEntry(ctx context.Context, e Entry) (outcome, error) {
	// A fetched entry that is no longer pending was resolved elsewhere.
	if _, err := w.lifecycle.Claim(ctx, e.Status); err != nil {
		w.metrics.ClaimLost()
		return outcomeClaimLost, nil
	}

	claimed, err := w.store.Claim(ctx, e.ID, w.now())
	if errors.Is(err, ErrClaimLost) {
		w.metrics.ClaimLost()
		return outcomeClaimLost, nil
	}
	if err != nil {
		return outcomeError, fmt.Errorf("claim entry %s: %w", e.ID, err)
	}

	attempts := claimed.Attempts + 1
	log := w.logger.With(
		logger.EntryID(claimed.ID),
		logger.NotificationID(claimed.NotificationID),
		logger.Channel(claimed.Channel),
		logger.Attempts(attempts),
	)

	notif, err := w.notifs.Get(ctx, claimed.NotificationID)
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		return w.fail(ctx, log, claimed, attempts, ErrNotificationGone, true)
	}
	if err != nil {
		return w.fail(ctx, log, claimed, attempts, fmt.Errorf("load notification: %w", err), false)
	}

	sendCtx := logger.ContextWith(ctx, logger.EntryID(claimed.ID), logger.Attempts(attempts))
	if err := w.send(sendCtx, claimed.Channel, *notif); err != nil {
		return w.fail(ctx, log, claimed, attempts, err, false)
	}

	return w.succeed(ctx, log, claimed, notif, attempts)
}

// send invokes the dispatcher, converting a panic into an error.
func (w *Worker) send(ctx context.Context, channel notifications.Channel, n notifications.Notification) (err error) {
	ctx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in sender: %v", r)
		}
	}()

	return w.dispatcher.Send(ctx, channel, n)
}

func (w *Worker) succeed(ctx context.Context, log *slog.Logger, e *Entry, n *notifications.Notification, attempts int) (outcome, error) {
	if _, err := w.lifecycle.Succeed(ctx, e.Status); err != nil {
		return outcomeError, err
	}

	// Until both writes land the entry goes back through fail, so the
	// notification may be sent again.
	now := w.now()
	if _, err := w.notifs.MarkDelivered(ctx, n.ID, now); err != nil {
		return w.fail(ctx, log, e, attempts, fmt.Errorf("mark notification delivered: %w", err), false)
	}
	if err := w.store.MarkSent(ctx, e.ID, attempts, now); err != nil {
		return w.fail(ctx, log, e, attempts, fmt.Errorf("mark entry sent: %w", err), false)
	}
	w.metrics.Sent(e.Channel)
	log.InfoContext(ctx, "notification delivered")

	if w.emitter != nil {
		w.emitter.EmitToUser(ctx, n.UserID, notifications.EventDelivered, notifications.DeliveredEvent{
			ID:      n.ID,
			Channel: e.Channel,
		})
	}

	return outcomeSent, nil
}

// fail records a failed attempt. Permanent failures skip the remaining attempts.
func (w *Worker) fail(ctx context.Context, log *slog.Logger, e *Entry, attempts int, cause error, permanent bool) (outcome, error) {
	guard := attempts
	if permanent {
		guard = max(attempts, w.lifecycle.MaxAttempts())
	}

	status, err := w.lifecycle.Fail(ctx, e.Status, guard)
	if err != nil {
		return outcomeError, err
	}

	now := w.now()
	upd := FailureUpdate{
		Status:      status,
		Attempts:    attempts,
		LastError:   cause.Error(),
		AvailableAt: now.Add(Backoff(attempts)),
		UpdatedAt:   now,
	}
	if err := w.store.MarkFailed(ctx, e.ID, upd); err != nil {
		return outcomeError, fmt.Errorf("mark entry %s failed: %w", e.ID, err)
	}

	final := status == StatusFailed
	w.metrics.Failure(e.Channel, final)

	if final {
		log.ErrorContext(ctx, "delivery failed permanently", logger.Error(cause))
		return outcomeFailed, nil
	}

	log.WarnContext(ctx, "delivery attempt failed, will retry",
		slog.Time("available_at", upd.AvailableAt),
		logger.Error(cause))
	return outcomeRetried, nil
}

// ID returns the worker's generated identifier.
func (w *Worker) ID() string {
	return w.workerID
}
