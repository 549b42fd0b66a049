package notifications

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	mu     sync.RWMutex
	byID   map[string]*memoryRecord
	byUser map[string][]string // userID -> notification ids in insertion order
	seq    uint64
}

type memoryRecord struct {
	notif Notification
	seq   uint64
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:   make(map[string]*memoryRecord),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" {
		return errors.New("notification ID is required")
	}
	if notif.UserID == "" {
		return errors.New("user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[notif.ID]; exists {
		return errors.New("notification already exists: " + notif.ID)
	}

	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	s.seq++
	s.byID[notif.ID] = &memoryRecord{notif: clone(notif), seq: s.seq}
	s.byUser[notif.UserID] = append(s.byUser[notif.UserID], notif.ID)

	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	n := clone(rec.notif)
	return &n, nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, page, limit int) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*memoryRecord, 0, len(s.byUser[userID]))
	for _, id := range s.byUser[userID] {
		records = append(records, s.byID[id])
	}

	// newest first; insertion order breaks ties between equal timestamps
	slices.SortFunc(records, func(a, b *memoryRecord) int {
		if c := b.notif.CreatedAt.Compare(a.notif.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	page, skip := offset(page, limit)
	result := &Page{
		Items: []Notification{},
		Page:  page,
		Limit: limit,
		Total: len(records),
	}
	if skip >= len(records) || limit <= 0 {
		return result, nil
	}

	end := min(skip+limit, len(records))
	for _, rec := range records[skip:end] {
		result.Items = append(result.Items, clone(rec.notif))
	}

	return result, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, id, userID string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.notif.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	rec.notif.Read = true

	n := clone(rec.notif)
	return &n, nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, id := range s.byUser[userID] {
		rec := s.byID[id]
		if !rec.notif.Read {
			rec.notif.Read = true
			count++
		}
	}

	return count, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[userID] {
		if !s.byID[id].notif.Read {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStorage) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return false, ErrNotificationNotFound
	}
	if rec.notif.DeliveredAt != nil {
		return false, nil
	}
	rec.notif.DeliveredAt = &at

	return true, nil
}

// clone copies the mutable parts of n so callers never share state with the store.
func clone(n Notification) Notification {
	if n.Payload != nil {
		n.Payload = maps.Clone(n.Payload)
	}
	if n.DeliveredAt != nil {
		at := *n.DeliveredAt
		n.DeliveredAt = &at
	}
	return n
}
