package retrieval

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// CorpusReader reads embeddings and prefiltered candidates from the corpus.
type CorpusReader interface {
	GetEmbedding(ctx context.Context, id string) ([]float32, error)
	ScanCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error)
}

// AccessResolver maps an identity to its authorized partition set.
type AccessResolver interface {
	Resolve(ctx context.Context, identity string) domain.AuthorizedSet
}
