package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// mockHashStore implements the consumer interface for tests.
type mockHashStore struct {
	hsetFn    func(ctx context.Context, key string, fields map[string]string) error
	hgetallFn func(ctx context.Context, key string) (map[string]string, error)
	hdelFn    func(ctx context.Context, key string, fields ...string) error
}

func (m *mockHashStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockHashStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetallFn != nil {
		return m.hgetallFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockHashStore) HDel(ctx context.Context, key string, fields ...string) error {
	if m.hdelFn != nil {
		return m.hdelFn(ctx, key, fields...)
	}
	return nil
}

func TestListGrants(t *testing.T) {
	ms := &mockHashStore{
		hgetallFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != grantsKey("alice") {
				t.Errorf("unexpected key: %s", key)
			}
			return map[string]string{
				"p1": "read",
				"p2": "admin",
			}, nil
		},
	}

	grants, err := New(ms).ListGrants(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	for _, g := range grants {
		if g.Identity != "alice" {
			t.Errorf("grant identity = %q", g.Identity)
		}
	}
}

func TestListGrants_Empty(t *testing.T) {
	grants, err := New(&mockHashStore{}).ListGrants(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grants) != 0 {
		t.Fatalf("expected no grants, got %d", len(grants))
	}
}

func TestListGrants_CorruptLevelSkipped(t *testing.T) {
	ms := &mockHashStore{
		hgetallFn: func(_ context.Context, _ string) (map[string]string, error) {
			return map[string]string{
				"p1": "read",
				"p2": "superuser",
			}, nil
		},
	}

	grants, err := New(ms).ListGrants(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grants) != 1 || grants[0].PartitionID != "p1" {
		t.Fatalf("corrupt level must narrow access, got %+v", grants)
	}
}

func TestListGrants_StoreFailure(t *testing.T) {
	ms := &mockHashStore{
		hgetallFn: func(_ context.Context, _ string) (map[string]string, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := New(ms).ListGrants(context.Background(), "alice")
	if !errors.Is(err, domain.ErrPolicyStoreUnavailable) {
		t.Fatalf("expected ErrPolicyStoreUnavailable, got %v", err)
	}
}

func TestIsAdmin(t *testing.T) {
	ms := &mockHashStore{
		hgetallFn: func(_ context.Context, key string) (map[string]string, error) {
			if key == identityKey("root") {
				return map[string]string{roleField: RoleAdmin}, nil
			}
			return map[string]string{}, nil
		},
	}
	repo := New(ms)

	isAdmin, err := repo.IsAdmin(context.Background(), "root")
	if err != nil || !isAdmin {
		t.Fatalf("expected admin, got %v/%v", isAdmin, err)
	}

	isAdmin, err = repo.IsAdmin(context.Background(), "alice")
	if err != nil || isAdmin {
		t.Fatalf("expected non-admin, got %v/%v", isAdmin, err)
	}
}

func TestPutGrant(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	ms := &mockHashStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey = key
			gotFields = fields
			return nil
		},
	}

	err := New(ms).PutGrant(context.Background(), domain.Grant{
		Identity:    "alice",
		PartitionID: "p1",
		Level:       domain.AccessWrite,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != grantsKey("alice") {
		t.Errorf("unexpected key: %s", gotKey)
	}
	if gotFields["p1"] != "write" {
		t.Errorf("unexpected fields: %v", gotFields)
	}
}

func TestPutGrant_Invalid(t *testing.T) {
	repo := New(&mockHashStore{
		hsetFn: func(_ context.Context, _ string, _ map[string]string) error {
			t.Fatal("invalid grant must not reach the store")
			return nil
		},
	})

	cases := []domain.Grant{
		{Identity: "", PartitionID: "p1", Level: domain.AccessRead},
		{Identity: "alice", PartitionID: "", Level: domain.AccessRead},
		{Identity: "alice", PartitionID: "p1", Level: "owner"},
	}
	for _, g := range cases {
		if err := repo.PutGrant(context.Background(), g); !errors.Is(err, domain.ErrInvalidGrant) {
			t.Errorf("grant %+v: expected ErrInvalidGrant, got %v", g, err)
		}
	}
}

func TestRevokeGrant(t *testing.T) {
	var gotFields []string
	ms := &mockHashStore{
		hdelFn: func(_ context.Context, key string, fields ...string) error {
			if key != grantsKey("alice") {
				t.Errorf("unexpected key: %s", key)
			}
			gotFields = fields
			return nil
		},
	}

	if err := New(ms).RevokeGrant(context.Background(), "alice", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotFields) != 1 || gotFields[0] != "p1" {
		t.Fatalf("unexpected fields: %v", gotFields)
	}
}

func TestSetRole(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	ms := &mockHashStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey = key
			gotFields = fields
			return nil
		},
	}

	if err := New(ms).SetRole(context.Background(), "root", RoleAdmin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != identityKey("root") {
		t.Errorf("unexpected key: %s", gotKey)
	}
	if gotFields[roleField] != RoleAdmin {
		t.Errorf("unexpected fields: %v", gotFields)
	}
}
