package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imrishuroy/go-table-orders/internal/store"
)

// ErrUnknownKey is returned when a key was never reserved or has expired.
var ErrUnknownKey = errors.New("unknown idempotency key")

// Store remembers the outcome of order submissions per Idempotency-Key.
type Store struct {
	mu        sync.Mutex
	records   map[string]Record
	persist   store.Persister
	ttlWindow time.Duration // default TTL window when creating entries
	lease     time.Duration
	nowFunc   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithInProgressLease sets how long an IN_PROGRESS key blocks retries
// before it may be reserved again.
func WithInProgressLease(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lease = d
		}
	}
}

// NewStore loads existing entries from p.
// ttlWindow: how long keys are kept (e.g., 48*time.Hour)
func NewStore(p store.Persister, ttlWindow time.Duration, opts ...Option) (*Store, error) {
	if ttlWindow <= 0 {
		ttlWindow = DefaultTTL
	}
	records := map[string]Record{}
	if err := p.Load(CollectionName, map[string]Record{}, &records); err != nil {
		return nil, fmt.Errorf("load idempotency keys: %w", err)
	}
	if records == nil {
		records = map[string]Record{}
	}
	s := &Store{
		records:   records,
		persist:   p,
		ttlWindow: ttlWindow,
		lease:     DefaultLease,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lease returns how long an IN_PROGRESS key blocks retries.
func (s *Store) Lease() time.Duration {
	return s.lease
}

// CreateIfNotExists reserves key with status IN_PROGRESS.
// Returns (true, nil) if the key was free, expired, previously FAILED or
// IN_PROGRESS for longer than the lease.
// Returns (false, nil) if a live record exists (caller should Get to inspect).
func (s *Store) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	var note string
	if prev, ok := s.records[key]; ok && !prev.expired(now) {
		switch {
		case prev.Status == StatusFailed:
		case prev.stale(now, s.lease):
			note = "reclaimed after in-progress lease expired"
		default:
			return false, nil
		}
	}
	rec := Record{
		Key:       key,
		Status:    StatusInProgress,
		OrderID:   orderID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow).Unix(),
		Note:      note,
	}
	if err := s.commit(now, key, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Get retrieves a live record by key. If not found or expired, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.expired(s.nowFunc()) {
		return nil, nil
	}
	return &rec, nil
}

// MarkDone sets status to DONE and stores the response to replay.
func (s *Store) MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error {
	return s.update(ctx, key, func(rec *Record) {
		rec.Status = StatusDone
		rec.OrderID = orderID
		rec.ResponseBody = responseBody
		rec.ResponseStatus = responseStatus
	})
}

// MarkFailed marks the record as FAILED so the key can be retried, keeping note.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	return s.update(ctx, key, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Note = note
	})
}

func (s *Store) update(ctx context.Context, key string, fn func(*Record)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	rec, ok := s.records[key]
	if !ok || rec.expired(now) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	fn(&rec)
	rec.UpdatedAt = now
	return s.commit(now, key, rec)
}

// commit writes the record set with rec applied and expired entries pruned.
// Memory is only updated once the write succeeded.
func (s *Store) commit(now time.Time, key string, rec Record) error {
	next := make(map[string]Record, len(s.records)+1)
	for k, r := range s.records {
		if !r.expired(now) {
			next[k] = r
		}
	}
	next[key] = rec
	if err := s.persist.Save(CollectionName, next); err != nil {
		return fmt.Errorf("save idempotency keys: %w", err)
	}
	s.records = next
	return nil
}
