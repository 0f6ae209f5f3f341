package access

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// PolicyReader reads grants and roles from the policy store.
type PolicyReader interface {
	ListGrants(ctx context.Context, identity string) ([]domain.Grant, error)
	IsAdmin(ctx context.Context, identity string) (bool, error)
}

// SetCache caches resolved authorized sets with a TTL bound.
type SetCache interface {
	Get(ctx context.Context, identity string) (domain.AuthorizedSet, bool)
	Put(ctx context.Context, identity string, set domain.AuthorizedSet)
	Invalidate(ctx context.Context, identity string) error
}
