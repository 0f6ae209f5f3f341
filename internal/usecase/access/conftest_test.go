package access

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// mockPolicy implements PolicyReader and PolicyWriter for tests.
type mockPolicy struct {
	grants  map[string][]domain.Grant
	admins  map[string]bool
	listErr error
	isErr   error

	putGrantFn    func(ctx context.Context, g domain.Grant) error
	revokeGrantFn func(ctx context.Context, identity, partitionID string) error
	setRoleFn     func(ctx context.Context, identity, role string) error
}

func (m *mockPolicy) ListGrants(_ context.Context, identity string) ([]domain.Grant, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.grants[identity], nil
}

func (m *mockPolicy) IsAdmin(_ context.Context, identity string) (bool, error) {
	if m.isErr != nil {
		return false, m.isErr
	}
	return m.admins[identity], nil
}

func (m *mockPolicy) PutGrant(ctx context.Context, g domain.Grant) error {
	if m.putGrantFn != nil {
		return m.putGrantFn(ctx, g)
	}
	return nil
}

func (m *mockPolicy) RevokeGrant(ctx context.Context, identity, partitionID string) error {
	if m.revokeGrantFn != nil {
		return m.revokeGrantFn(ctx, identity, partitionID)
	}
	return nil
}

func (m *mockPolicy) SetRole(ctx context.Context, identity, role string) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, identity, role)
	}
	return nil
}

// mockCache implements SetCache for tests.
type mockCache struct {
	entries       map[string]domain.AuthorizedSet
	puts          int
	invalidations []string
	invalidateErr error
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.AuthorizedSet)}
}

func (m *mockCache) Get(_ context.Context, identity string) (domain.AuthorizedSet, bool) {
	set, ok := m.entries[identity]
	return set, ok
}

func (m *mockCache) Put(_ context.Context, identity string, set domain.AuthorizedSet) {
	m.puts++
	m.entries[identity] = set
}

func (m *mockCache) Invalidate(_ context.Context, identity string) error {
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	m.invalidations = append(m.invalidations, identity)
	delete(m.entries, identity)
	return nil
}

func newTestResolver(t *testing.T, policy *mockPolicy, cache SetCache) *Resolver {
	t.Helper()
	return NewResolver(policy, cache, zap.NewNop())
}

func zapNop() *zap.Logger { return zap.NewNop() }
