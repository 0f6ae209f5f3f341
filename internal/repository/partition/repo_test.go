package partition

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
)

// mockJSONStore implements the consumer interface for tests.
type mockJSONStore struct {
	docs map[string][]byte
}

func newMockJSONStore() *mockJSONStore {
	return &mockJSONStore{docs: map[string][]byte{}}
}

func (m *mockJSONStore) JSONSet(_ context.Context, key, _ string, data []byte) error {
	m.docs[key] = data
	return nil
}

func (m *mockJSONStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	data, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	// JSON.GET with a $ path wraps the value in an array.
	return append(append([]byte("["), data...), ']'), nil
}

func (m *mockJSONStore) Scan(_ context.Context, _ string) ([]string, error) {
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	return keys, nil
}

func TestPutGetRoundTrip(t *testing.T) {
	repo := New(newMockJSONStore())
	ctx := context.Background()

	want := domain.Partition{ID: "p1", Name: "ACME Corp", Region: "eu"}
	if err := repo.Put(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestPut_MissingID(t *testing.T) {
	repo := New(newMockJSONStore())

	err := repo.Put(context.Background(), domain.Partition{Name: "no id"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(newMockJSONStore())

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	ms := newMockJSONStore()
	repo := New(ms)
	ctx := context.Background()

	for _, p := range []domain.Partition{
		{ID: "p1", Name: "one"},
		{ID: "p2", Name: "two"},
	} {
		if err := repo.Put(ctx, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(got))
	}
}

func TestDTO_OmitsEmptyRegion(t *testing.T) {
	data, err := json.Marshal(dto{ID: "p1", Name: "one"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"id":"p1","name":"one"}` {
		t.Fatalf("unexpected JSON: %s", data)
	}
}
