package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-table-orders/internal/store"
)

// memPersister keeps saved collections in memory and can be told to fail.
type memPersister struct {
	saved map[string]map[string]Record
	fail  error
}

func newMemPersister() *memPersister {
	return &memPersister{saved: map[string]map[string]Record{}}
}

func (m *memPersister) Load(name string, def, out any) error {
	dst := out.(*map[string]Record)
	if got, ok := m.saved[name]; ok {
		*dst = got
		return nil
	}
	*dst = def.(map[string]Record)
	return nil
}

func (m *memPersister) Save(name string, value any) error {
	if m.fail != nil {
		return m.fail
	}
	m.saved[name] = value.(map[string]Record)
	return nil
}

func newTestStore(t *testing.T, p store.Persister, now *time.Time) *Store {
	t.Helper()
	s, err := NewStore(p, 48*time.Hour)
	require.NoError(t, err)
	s.nowFunc = func() time.Time { return *now }
	return s
}

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mem := newMemPersister()
	s := newTestStore(t, mem, &now)

	ctx := context.Background()
	key := "test-key-1"

	created, err := s.CreateIfNotExists(ctx, key, "")
	require.NoError(t, err)
	require.True(t, created)

	// second create should return created=false (exists)
	created2, err := s.CreateIfNotExists(ctx, key, "")
	require.NoError(t, err)
	require.False(t, created2, "expected created=false on duplicate create")

	rec, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, now.Add(48*time.Hour).Unix(), rec.ExpiresAt)

	require.NoError(t, s.MarkDone(ctx, key, "order-123", `{"success":true}`, 201))

	raw := mem.saved[CollectionName][key]
	assert.Equal(t, StatusDone, raw.Status)
	assert.Equal(t, "order-123", raw.OrderID)
	assert.Equal(t, `{"success":true}`, raw.ResponseBody)
	assert.Equal(t, 201, raw.ResponseStatus)

	// DONE keys are not reusable
	created3, err := s.CreateIfNotExists(ctx, key, "")
	require.NoError(t, err)
	assert.False(t, created3)

	// a failed attempt frees the key for a retry
	key2 := "test-key-2"
	_, err = s.CreateIfNotExists(ctx, key2, "")
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, key2, "persist failed"))
	assert.Equal(t, "persist failed", mem.saved[CollectionName][key2].Note)

	retried, err := s.CreateIfNotExists(ctx, key2, "")
	require.NoError(t, err)
	assert.True(t, retried)
}

func TestExpiredKeysArePrunedAndReusable(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mem := newMemPersister()
	s := newTestStore(t, mem, &now)
	ctx := context.Background()

	_, err := s.CreateIfNotExists(ctx, "old", "")
	require.NoError(t, err)
	require.NoError(t, s.MarkDone(ctx, "old", "o1", "{}", 201))

	now = now.Add(49 * time.Hour)
	rec, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, rec)

	err = s.MarkDone(ctx, "old", "o1", "{}", 201)
	require.ErrorIs(t, err, ErrUnknownKey)

	_, err = s.CreateIfNotExists(ctx, "new", "")
	require.NoError(t, err)
	_, stillThere := mem.saved[CollectionName]["old"]
	assert.False(t, stillThere, "expired entry should be pruned on write")

	reused, err := s.CreateIfNotExists(ctx, "old", "")
	require.NoError(t, err)
	assert.True(t, reused)
}

func TestInProgressLease(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mem := newMemPersister()
	s, err := NewStore(mem, 48*time.Hour, WithInProgressLease(time.Minute))
	require.NoError(t, err)
	s.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	assert.Equal(t, time.Minute, s.Lease())

	created, err := s.CreateIfNotExists(ctx, "k", "")
	require.NoError(t, err)
	require.True(t, created)

	now = now.Add(59 * time.Second)
	created, err = s.CreateIfNotExists(ctx, "k", "")
	require.NoError(t, err)
	assert.False(t, created, "lease still held")

	now = now.Add(time.Second)
	created, err = s.CreateIfNotExists(ctx, "k", "")
	require.NoError(t, err)
	require.True(t, created, "stale reservation is reclaimed")

	rec := mem.saved[CollectionName]["k"]
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.NotEmpty(t, rec.Note)

	// DONE keys never lapse into reclaimable
	require.NoError(t, s.MarkDone(ctx, "k", "o1", "{}", 201))
	now = now.Add(time.Hour)
	created, err = s.CreateIfNotExists(ctx, "k", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSaveFailureLeavesKeyFree(t *testing.T) {
	now := time.Now()
	mem := newMemPersister()
	s := newTestStore(t, mem, &now)
	ctx := context.Background()

	mem.fail = errors.New("disk full")
	_, err := s.CreateIfNotExists(ctx, "k", "")
	require.Error(t, err)

	mem.fail = nil
	rec, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCanceledContext(t *testing.T) {
	now := time.Now()
	s := newTestStore(t, newMemPersister(), &now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateIfNotExists(ctx, "k", "")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecordsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.Open(dir, nil)
	require.NoError(t, err)

	now := time.Now()
	s := newTestStore(t, fs, &now)
	ctx := context.Background()
	_, err = s.CreateIfNotExists(ctx, "persisted", "")
	require.NoError(t, err)
	require.NoError(t, s.MarkDone(ctx, "persisted", "o7", `{"ok":true}`, 201))

	reopened := newTestStore(t, fs, &now)
	rec, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, `{"ok":true}`, rec.ResponseBody)
}
