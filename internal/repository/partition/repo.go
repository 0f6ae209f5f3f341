// Package partition persists tenancy boundary records. Pure grouping keys;
// no lifecycle beyond existence.
package partition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "partition:"

// store is the consumer interface for partitions (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements partition storage on JSON keys.
type Repo struct {
	store store
}

// New creates a partition repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

type dto struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// Put upserts a partition record.
func (r *Repo) Put(ctx context.Context, p domain.Partition) error {
	if p.ID == "" {
		return fmt.Errorf("partition id is required: %w", domain.ErrInvalidDocument)
	}

	data, err := json.Marshal(dto{ID: p.ID, Name: p.Name, Region: p.Region})
	if err != nil {
		return fmt.Errorf("marshal partition: %w", err)
	}
	if err := r.store.JSONSet(ctx, keyPrefix+p.ID, "$", data); err != nil {
		return fmt.Errorf("json.set partition %s: %w: %w", p.ID, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns a partition by id.
func (r *Repo) Get(ctx context.Context, id string) (domain.Partition, error) {
	raw, err := r.store.JSONGet(ctx, keyPrefix+id, "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Partition{}, domain.ErrNotFound
		}
		return domain.Partition{}, fmt.Errorf("json.get partition %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}

	var arr []dto
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
		return domain.Partition{}, fmt.Errorf("decode partition %s: %w", id, err)
	}
	return domain.Partition{ID: arr[0].ID, Name: arr[0].Name, Region: arr[0].Region}, nil
}

// List returns every partition record.
func (r *Repo) List(ctx context.Context) ([]domain.Partition, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan partitions: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]domain.Partition, 0, len(keys))
	for _, k := range keys {
		p, err := r.Get(ctx, strings.TrimPrefix(k, keyPrefix))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
