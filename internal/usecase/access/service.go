// Package access resolves identities to the set of partitions they may read.
// Resolution fails closed: a policy store failure yields the empty set, never
// a wider one.
package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/metrics"
)

// Resolver maps a requesting identity to its authorized partition set.
type Resolver struct {
	policy PolicyReader
	cache  SetCache
	logger *zap.Logger
}

// NewResolver creates an access resolver.
func NewResolver(policy PolicyReader, cache SetCache, logger *zap.Logger) *Resolver {
	return &Resolver{policy: policy, cache: cache, logger: logger}
}

// Resolve returns the authorized set for an identity.
//
// Admin identities resolve to the full corpus. Everyone else resolves to the
// union of partitions named by read-or-higher grants. A policy store failure
// returns the empty set and is never cached, so the next request retries the
// store instead of pinning the caller out for a TTL.
func (r *Resolver) Resolve(ctx context.Context, identity string) domain.AuthorizedSet {
	if identity == "" {
		return domain.PartitionSubset()
	}

	if r.cache != nil {
		if set, ok := r.cache.Get(ctx, identity); ok {
			return set
		}
	}

	set, err := r.resolveFromPolicy(ctx, identity)
	if err != nil {
		metrics.AccessFailClosedTotal.Inc()
		r.logger.Error("Access resolution failed, denying access",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return domain.PartitionSubset()
	}

	if r.cache != nil {
		r.cache.Put(ctx, identity, set)
	}
	return set
}

// Invalidate drops the cached set for an identity. Callers mutating grants
// must invoke this before acknowledging the mutation.
func (r *Resolver) Invalidate(ctx context.Context, identity string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Invalidate(ctx, identity); err != nil {
		return fmt.Errorf("invalidate access cache for %s: %w", identity, err)
	}
	return nil
}

func (r *Resolver) resolveFromPolicy(ctx context.Context, identity string) (domain.AuthorizedSet, error) {
	admin, err := r.policy.IsAdmin(ctx, identity)
	if err != nil {
		return domain.AuthorizedSet{}, fmt.Errorf("check admin role: %w", err)
	}
	if admin {
		return domain.AllPartitions(), nil
	}

	grants, err := r.policy.ListGrants(ctx, identity)
	if err != nil {
		return domain.AuthorizedSet{}, fmt.Errorf("list grants: %w", err)
	}

	partitions := make([]string, 0, len(grants))
	for _, g := range grants {
		if g.Level.AtLeast(domain.AccessRead) {
			partitions = append(partitions, g.PartitionID)
		}
	}
	return domain.PartitionSubset(partitions...), nil
}
