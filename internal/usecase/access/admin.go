package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// PolicyWriter mutates grants and roles in the policy store.
type PolicyWriter interface {
	PutGrant(ctx context.Context, g domain.Grant) error
	RevokeGrant(ctx context.Context, identity, partitionID string) error
	SetRole(ctx context.Context, identity, role string) error
}

// Admin applies grant mutations. Every mutation invalidates the cached
// authorized set before returning, so a revocation is never masked by a
// stale cache entry once the call is acknowledged.
type Admin struct {
	policy   PolicyWriter
	resolver *Resolver
	logger   *zap.Logger
}

// NewAdmin creates a grant administration service.
func NewAdmin(policy PolicyWriter, resolver *Resolver, logger *zap.Logger) *Admin {
	return &Admin{policy: policy, resolver: resolver, logger: logger}
}

// PutGrant creates or overwrites a grant for (identity, partition).
func (a *Admin) PutGrant(ctx context.Context, g domain.Grant) error {
	if g.Identity == "" || g.PartitionID == "" {
		return fmt.Errorf("identity and partition are required: %w", domain.ErrInvalidGrant)
	}
	if _, err := domain.ParseAccessLevel(string(g.Level)); err != nil {
		return err
	}

	if err := a.policy.PutGrant(ctx, g); err != nil {
		return fmt.Errorf("put grant: %w", err)
	}
	return a.invalidate(ctx, g.Identity)
}

// RevokeGrant removes a grant. Revoking an absent grant is a no-op.
func (a *Admin) RevokeGrant(ctx context.Context, identity, partitionID string) error {
	if identity == "" || partitionID == "" {
		return fmt.Errorf("identity and partition are required: %w", domain.ErrInvalidGrant)
	}

	if err := a.policy.RevokeGrant(ctx, identity, partitionID); err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	return a.invalidate(ctx, identity)
}

// SetRole assigns the identity's role ("admin" or empty to clear).
func (a *Admin) SetRole(ctx context.Context, identity, role string) error {
	if identity == "" {
		return fmt.Errorf("identity is required: %w", domain.ErrInvalidGrant)
	}

	if err := a.policy.SetRole(ctx, identity, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return a.invalidate(ctx, identity)
}

func (a *Admin) invalidate(ctx context.Context, identity string) error {
	if err := a.resolver.Invalidate(ctx, identity); err != nil {
		a.logger.Error("Grant mutation applied but cache invalidation failed",
			zap.String("identity", identity),
			zap.Error(err),
		)
		return err
	}
	return nil
}
