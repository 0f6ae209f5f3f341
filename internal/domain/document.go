package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "simdex:"

// Kind distinguishes the two embeddable record types.
type Kind string

const (
	KindReport  Kind = "report"
	KindFinding Kind = "finding"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindReport, KindFinding:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown document kind %q: %w", s, ErrInvalidDocument)
	}
}

// Status is the publication lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusInReview  Status = "in_review"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusInReview, StatusPublished, StatusArchived:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown document status %q: %w", s, ErrInvalidDocument)
	}
}

// Document is a report or finding with optional embedding.
// The embedding and its metadata commit atomically with the rest of the record.
type Document struct {
	ID          string
	Kind        Kind
	Title       string
	Description string

	// Report context.
	ClusterID string
	// Finding context.
	Category string
	Severity string

	PartitionID string // empty until assigned to a tenant
	Status      Status
	PII         bool

	// Embedding is nil when the provider call failed or was never made.
	Embedding []float32
	// EmbeddedHash is the SHA-256 of the exact text Embedding was derived
	// from. Empty when Embedding is nil.
	EmbeddedHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks structural invariants before a write.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required: %w", ErrInvalidDocument)
	}
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document title is required: %w", ErrInvalidDocument)
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	return nil
}

// EmbeddingText derives the text the embedding is computed from.
// Reports weight the title first and append cluster context; findings append
// category and severity.
func (d *Document) EmbeddingText() string {
	parts := []string{d.Title}
	if d.Description != "" {
		parts = append(parts, d.Description)
	}
	switch d.Kind {
	case KindReport:
		if d.ClusterID != "" {
			parts = append(parts, "Cluster: "+d.ClusterID)
		}
	case KindFinding:
		if d.Category != "" {
			parts = append(parts, "Category: "+d.Category)
		}
		if d.Severity != "" {
			parts = append(parts, "Severity: "+d.Severity)
		}
	}
	return strings.Join(parts, "\n")
}

// SetEmbedding records a freshly generated embedding for the current text.
func (d *Document) SetEmbedding(vec []float32) {
	d.Embedding = vec
	d.EmbeddedHash = HashText(d.EmbeddingText())
}

// HasEmbedding reports whether the document can participate in retrieval.
func (d *Document) HasEmbedding() bool {
	return len(d.Embedding) > 0
}

// NeedsReembedding reports whether the stored embedding is stale relative to
// the current text. A document without an embedding always needs one.
// Stale-but-valid is accepted, not an error; this flag makes it observable.
func (d *Document) NeedsReembedding() bool {
	if !d.HasEmbedding() {
		return true
	}
	return d.EmbeddedHash != HashText(d.EmbeddingText())
}

// HashText returns the hex SHA-256 of text, used to detect stale embeddings.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Partition is a tenancy boundary (customer/workspace). Pure grouping key.
type Partition struct {
	ID     string
	Name   string
	Region string
}
