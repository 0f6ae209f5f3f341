package accesscache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn func(ctx context.Context, key string) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func newTestCache(t *testing.T) (*Cache, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	return New(ms, 60*time.Second, nil, zap.NewNop()), ms
}

func TestGet_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := c.Get(context.Background(), "alice"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestGet_StoreErrorIsMiss(t *testing.T) {
	c, ms := newTestCache(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	if _, ok := c.Get(context.Background(), "alice"); ok {
		t.Fatal("store failure must read as a miss")
	}
}

func TestGet_CorruptEntryIsMiss(t *testing.T) {
	c, ms := newTestCache(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("{not json"), nil
	}

	if _, ok := c.Get(context.Background(), "alice"); ok {
		t.Fatal("corrupt entry must read as a miss")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c, ms := newTestCache(t)

	stored := map[string][]byte{}
	ms.setFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		if ttl != 60*time.Second {
			t.Errorf("expected ttl=60s, got %v", ttl)
		}
		stored[key] = value
		return nil
	}
	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if v, ok := stored[key]; ok {
			return v, nil
		}
		return nil, db.ErrKeyNotFound
	}

	ctx := context.Background()
	c.Put(ctx, "alice", domain.PartitionSubset("p1", "p2"))

	set, ok := c.Get(ctx, "alice")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if set.All() || !set.Contains("p1") || !set.Contains("p2") || set.Contains("p3") {
		t.Fatalf("unexpected set: %+v", set)
	}
}

func TestPutGet_AllPartitions(t *testing.T) {
	c, ms := newTestCache(t)

	var stored []byte
	ms.setFn = func(_ context.Context, _ string, value []byte, _ time.Duration) error {
		stored = value
		return nil
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return stored, nil
	}

	ctx := context.Background()
	c.Put(ctx, "root", domain.AllPartitions())

	var e entry
	if err := json.Unmarshal(stored, &e); err != nil {
		t.Fatalf("entry is not valid JSON: %v", err)
	}
	if !e.All {
		t.Fatalf("expected all=true entry, got %s", stored)
	}

	set, ok := c.Get(ctx, "root")
	if !ok || !set.All() {
		t.Fatalf("expected admin set back, got ok=%v set=%+v", ok, set)
	}
}

func TestPut_StoreFailureIsBestEffort(t *testing.T) {
	c, ms := newTestCache(t)
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("store down")
	}

	// Must not panic or propagate; the next Get just misses.
	c.Put(context.Background(), "alice", domain.PartitionSubset("p1"))
}

func TestInvalidate(t *testing.T) {
	c, ms := newTestCache(t)

	var deleted string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}

	if err := c.Invalidate(context.Background(), "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != cacheKey("alice") {
		t.Fatalf("expected delete of %q, got %q", cacheKey("alice"), deleted)
	}
}

func TestInvalidate_FailureSurfaces(t *testing.T) {
	c, ms := newTestCache(t)
	ms.delFn = func(_ context.Context, _ string) error {
		return errors.New("store down")
	}

	if err := c.Invalidate(context.Background(), "alice"); err == nil {
		t.Fatal("invalidation failure must surface to the caller")
	}
}
