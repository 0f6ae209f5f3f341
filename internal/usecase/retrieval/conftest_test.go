package retrieval

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// mockCorpus implements CorpusReader for tests.
type mockCorpus struct {
	getEmbeddingFn   func(ctx context.Context, id string) ([]float32, error)
	scanCandidatesFn func(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error)
	getCalls         int
	scanCalls        int
	lastFilter       domain.CandidateFilter
}

func (m *mockCorpus) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	m.getCalls++
	if m.getEmbeddingFn != nil {
		return m.getEmbeddingFn(ctx, id)
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *mockCorpus) ScanCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error) {
	m.scanCalls++
	m.lastFilter = f
	if m.scanCandidatesFn != nil {
		return m.scanCandidatesFn(ctx, f)
	}
	return nil, nil
}

// mockResolver implements AccessResolver for tests.
type mockResolver struct {
	sets  map[string]domain.AuthorizedSet
	calls int
}

func (m *mockResolver) Resolve(_ context.Context, identity string) domain.AuthorizedSet {
	m.calls++
	if set, ok := m.sets[identity]; ok {
		return set
	}
	return domain.PartitionSubset()
}

func newTestEngine(t *testing.T, corpus *mockCorpus, resolver *mockResolver) *Engine {
	t.Helper()
	return NewEngine(
		corpus, resolver, domain.DefaultGuardrail(),
		Limits{DefaultLimit: 5, MaxLimit: 50},
		zap.NewNop(),
	)
}

func candidate(id, partition string, status domain.Status, pii bool, vec []float32, createdAt time.Time) domain.Candidate {
	return domain.Candidate{
		ID:          id,
		Embedding:   vec,
		Title:       "title " + id,
		Kind:        domain.KindReport,
		Status:      status,
		PartitionID: partition,
		PII:         pii,
		CreatedAt:   createdAt,
	}
}
