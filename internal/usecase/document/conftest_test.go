package document

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	docs   map[string]domain.Document
	putErr error
	getErr error
	puts   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: make(map[string]domain.Document)}
}

func (m *mockRepo) PutDocument(_ context.Context, doc *domain.Document) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockRepo) GetDocument(_ context.Context, id string) (domain.Document, error) {
	if m.getErr != nil {
		return domain.Document{}, m.getErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) {
	return len(m.docs), nil
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return m.result, nil
}

func newTestService(t *testing.T, repo *mockRepo, embedder *mockEmbedder) *Service {
	t.Helper()
	return New(repo, embedder, zap.NewNop())
}

func validReport(id string) domain.Document {
	return domain.Document{
		ID:          id,
		Kind:        domain.KindReport,
		Title:       "tuning report",
		Description: "throughput regression on ingest",
		ClusterID:   "c-7",
		PartitionID: "X",
		Status:      domain.StatusPublished,
	}
}
