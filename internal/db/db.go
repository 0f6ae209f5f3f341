package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces. Consumers depend
// on the narrow sub-interfaces, not on Store.
type Store interface {
	Pinger
	JSONStore
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONStore provides JSON document operations. A JSONSet of a full document
// value is atomic: readers observe the old value or the new one, never a mix.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides structural queries over FT indexes.
type Searcher interface {
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// SearchEntry is a single FT.SEARCH hit.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// SearchResult holds FT.SEARCH output.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// IndexFieldType is an FT schema field type.
type IndexFieldType string

const (
	IndexFieldTag     IndexFieldType = "TAG"
	IndexFieldNumeric IndexFieldType = "NUMERIC"
	IndexFieldText    IndexFieldType = "TEXT"
)

// IndexField describes one FT schema field.
type IndexField struct {
	Name  string
	Alias string
	Type  IndexFieldType
}

// IndexDefinition describes an FT index over JSON documents.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}
