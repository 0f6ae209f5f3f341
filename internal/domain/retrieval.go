package domain

import (
	"fmt"
	"time"
)

// RetrievalQuery is a single similarity lookup. Ephemeral, never persisted.
type RetrievalQuery struct {
	SourceDocumentID   string
	RequestingIdentity string
	Limit              int
	// EnforceAccess disables partition filtering when false. Operator
	// tooling only; every public path constructs queries with it true.
	EnforceAccess bool
}

// Validate checks the query before execution.
func (q *RetrievalQuery) Validate() error {
	if q.SourceDocumentID == "" {
		return fmt.Errorf("source document id is required: %w", ErrInvalidQuery)
	}
	if q.RequestingIdentity == "" {
		return fmt.Errorf("requesting identity is required: %w", ErrInvalidQuery)
	}
	if q.Limit < 1 {
		return fmt.Errorf("limit must be >= 1, got %d: %w", q.Limit, ErrInvalidQuery)
	}
	return nil
}

// Match is a single retrieval hit with its bounded similarity score and the
// brief metadata echoed to callers.
type Match struct {
	DocumentID  string
	Score       float64
	Title       string
	Kind        Kind
	Status      Status
	PartitionID string
	CreatedAt   time.Time
}

// RetrievalResult is the ordered outcome of a similarity lookup. Identity and
// Enforced are echoed for auditability; an empty Matches slice is a valid,
// non-error outcome.
type RetrievalResult struct {
	Matches  []Match
	Identity string
	Enforced bool
}

// CandidateFilter is the structural predicate the corpus store applies
// before any candidate reaches the retrieval engine: partition membership,
// guardrail statuses, PII exclusion, embedding presence, self-exclusion.
type CandidateFilter struct {
	// AllPartitions skips partition filtering (admin or enforcement off).
	AllPartitions bool
	// Partitions is the explicit membership set; ignored when AllPartitions.
	Partitions []string
	Statuses   []Status
	ExcludePII bool
	// RequireEmbedding admits only documents with a stored embedding.
	RequireEmbedding bool
	// ExcludeID removes the source document from candidacy.
	ExcludeID string
}

// Candidate is a document that passed the structural prefilter and is
// eligible for distance computation.
type Candidate struct {
	ID          string
	Embedding   []float32
	Title       string
	Kind        Kind
	Status      Status
	PartitionID string
	PII         bool
	CreatedAt   time.Time
}
