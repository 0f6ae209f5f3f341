// Package policy persists identity→partition grants and identity roles.
// Pure lookup: absence of rows is a valid empty answer, never an error.
package policy

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/simdex/internal/domain"
)

const (
	grantsKeyPrefix   = domain.KeyPrefix + "grants:"
	identityKeyPrefix = domain.KeyPrefix + "identity:"

	roleField = "role"
	// RoleAdmin bypasses partition filtering entirely. A property of the
	// identity, not of any grant row.
	RoleAdmin = "admin"
)

// store is the consumer interface for the policy store (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
}

// Repo implements the access policy store on Redis hashes: one grants hash
// per identity (field=partition, value=level) and one identity record.
type Repo struct {
	store store
}

// New creates an access policy repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// ListGrants returns every grant held by an identity. An identity with no
// grants yields an empty slice.
func (r *Repo) ListGrants(ctx context.Context, identity string) ([]domain.Grant, error) {
	fields, err := r.store.HGetAll(ctx, grantsKey(identity))
	if err != nil {
		return nil, fmt.Errorf("hgetall grants %s: %w", identity, policyErr(err))
	}

	grants := make([]domain.Grant, 0, len(fields))
	for partition, level := range fields {
		lvl, err := domain.ParseAccessLevel(level)
		if err != nil {
			// A corrupt level narrows access (the grant is skipped),
			// never widens it.
			continue
		}
		grants = append(grants, domain.Grant{
			Identity:    identity,
			PartitionID: partition,
			Level:       lvl,
		})
	}
	return grants, nil
}

// IsAdmin reports whether the identity carries the admin role.
func (r *Repo) IsAdmin(ctx context.Context, identity string) (bool, error) {
	rec, err := r.store.HGetAll(ctx, identityKey(identity))
	if err != nil {
		return false, fmt.Errorf("hgetall identity %s: %w", identity, policyErr(err))
	}
	return rec[roleField] == RoleAdmin, nil
}

// PutGrant stores a grant, overwriting any existing level for the same
// (identity, partition) pair.
func (r *Repo) PutGrant(ctx context.Context, g domain.Grant) error {
	if g.Identity == "" || g.PartitionID == "" {
		return fmt.Errorf("identity and partition are required: %w", domain.ErrInvalidGrant)
	}
	if _, err := domain.ParseAccessLevel(string(g.Level)); err != nil {
		return err
	}

	err := r.store.HSet(ctx, grantsKey(g.Identity), map[string]string{
		g.PartitionID: string(g.Level),
	})
	if err != nil {
		return fmt.Errorf("hset grant %s/%s: %w", g.Identity, g.PartitionID, policyErr(err))
	}
	return nil
}

// RevokeGrant removes an identity's grant on a partition. Revoking a grant
// that does not exist is a no-op.
func (r *Repo) RevokeGrant(ctx context.Context, identity, partitionID string) error {
	if err := r.store.HDel(ctx, grantsKey(identity), partitionID); err != nil {
		return fmt.Errorf("hdel grant %s/%s: %w", identity, partitionID, policyErr(err))
	}
	return nil
}

// SetRole records an identity's role.
func (r *Repo) SetRole(ctx context.Context, identity, role string) error {
	if err := r.store.HSet(ctx, identityKey(identity), map[string]string{roleField: role}); err != nil {
		return fmt.Errorf("hset role %s: %w", identity, policyErr(err))
	}
	return nil
}

func grantsKey(identity string) string {
	return grantsKeyPrefix + identity
}

func identityKey(identity string) string {
	return identityKeyPrefix + identity
}

func policyErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrPolicyStoreUnavailable, err)
}
