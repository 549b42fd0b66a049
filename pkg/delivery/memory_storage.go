package delivery

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// MemoryStorage is an in-memory Storage for tests and local development.
// Every conditional update is a compare-and-swap under one mutex.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	seq     uint64
	now     func() time.Time
}

type memoryEntry struct {
	entry Entry
	seq   uint64
}

// NewMemoryStorage creates an empty in-memory delivery queue.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStorage) Enqueue(ctx context.Context, notificationID string, channel notifications.Channel, availableAt time.Time) (*Entry, error) {
	if notificationID == "" {
		return nil, fmt.Errorf("%w: notification id is required", ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	e := Entry{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Channel:        channel,
		Status:         StatusPending,
		AvailableAt:    availableAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.seq++
	s.entries[e.ID] = &memoryEntry{entry: e, seq: s.seq}

	out := cloneEntry(e)
	return &out, nil
}

func (s *MemoryStorage) FetchDue(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collect(limit, func(e *Entry) bool {
		return e.Status == StatusPending && !e.AvailableAt.After(now)
	}), nil
}

func (s *MemoryStorage) Claim(ctx context.Context, id string, now time.Time) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	if rec.entry.Status != StatusPending {
		return nil, ErrClaimLost
	}

	rec.entry.Status = StatusProcessing
	rec.entry.ClaimedAt = &now
	rec.entry.UpdatedAt = now

	out := cloneEntry(rec.entry)
	return &out, nil
}

func (s *MemoryStorage) MarkSent(ctx context.Context, id string, attempts int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.processing(id)
	if err != nil {
		return err
	}

	rec.entry.Status = StatusSent
	rec.entry.Attempts = attempts
	rec.entry.UpdatedAt = now
	return nil
}

func (s *MemoryStorage) MarkFailed(ctx context.Context, id string, upd FailureUpdate) error {
	if upd.Status != StatusPending && upd.Status != StatusFailed {
		return fmt.Errorf("%w: %q after failure", ErrInvalidStatus, upd.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.processing(id)
	if err != nil {
		return err
	}

	msg := upd.LastError
	rec.entry.Status = upd.Status
	rec.entry.Attempts = upd.Attempts
	rec.entry.LastError = &msg
	rec.entry.AvailableAt = upd.AvailableAt
	rec.entry.UpdatedAt = upd.UpdatedAt
	return nil
}

func (s *MemoryStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collect(limit, func(e *Entry) bool { return e.Status == status }), nil
}

func (s *MemoryStorage) ListByNotification(ctx context.Context, notificationID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collect(0, func(e *Entry) bool { return e.NotificationID == notificationID }), nil
}

func (s *MemoryStorage) PurgeFailed(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, rec := range s.entries {
		if rec.entry.Status == StatusFailed && rec.entry.UpdatedAt.Before(olderThan) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	n := 0
	for _, rec := range s.entries {
		e := &rec.entry
		if e.Status == StatusProcessing && e.ClaimedAt != nil && e.ClaimedAt.Before(olderThan) {
			e.Status = StatusPending
			e.ClaimedAt = nil
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// processing returns the record of id if it is processing. Caller holds mu.
func (s *MemoryStorage) processing(id string) (*memoryEntry, error) {
	rec, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	if rec.entry.Status != StatusProcessing {
		return nil, fmt.Errorf("%w: entry %s is %s", ErrNotProcessing, id, rec.entry.Status)
	}
	return rec, nil
}

// collect returns matching entries oldest first. limit <= 0 means no limit.
// Caller holds mu.
func (s *MemoryStorage) collect(limit int, match func(*Entry) bool) []Entry {
	recs := make([]*memoryEntry, 0)
	for _, rec := range s.entries {
		if match(&rec.entry) {
			recs = append(recs, rec)
		}
	}

	slices.SortFunc(recs, func(a, b *memoryEntry) int {
		if c := a.entry.CreatedAt.Compare(b.entry.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneEntry(rec.entry))
	}
	return out
}

func cloneEntry(e Entry) Entry {
	if e.LastError != nil {
		msg := *e.LastError
		e.LastError = &msg
	}
	if e.ClaimedAt != nil {
		at := *e.ClaimedAt
		e.ClaimedAt = &at
	}
	return e
}
