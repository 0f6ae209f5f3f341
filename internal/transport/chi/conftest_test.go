package chi

import (
	"context"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	documentuc "github.com/kailas-cloud/simdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

// mockDocuments implements DocumentService for tests.
type mockDocuments struct {
	putFn      func(ctx context.Context, doc *domain.Document) (bool, error)
	getFn      func(ctx context.Context, id string) (domain.Document, error)
	deleteFn   func(ctx context.Context, id string) error
	backfillFn func(ctx context.Context) (documentuc.BackfillReport, error)
}

func (m *mockDocuments) Put(ctx context.Context, doc *domain.Document) (bool, error) {
	if m.putFn != nil {
		return m.putFn(ctx, doc)
	}
	return true, nil
}

func (m *mockDocuments) Get(ctx context.Context, id string) (domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Document{}, domain.ErrDocumentNotFound
}

func (m *mockDocuments) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDocuments) Backfill(ctx context.Context) (documentuc.BackfillReport, error) {
	if m.backfillFn != nil {
		return m.backfillFn(ctx)
	}
	return documentuc.BackfillReport{}, nil
}

// mockRetrieval implements RetrievalService for tests.
type mockRetrieval struct {
	findFn    func(ctx context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error)
	lastQuery domain.RetrievalQuery
}

func (m *mockRetrieval) FindSimilar(ctx context.Context, q domain.RetrievalQuery) (domain.RetrievalResult, error) {
	m.lastQuery = q
	if m.findFn != nil {
		return m.findFn(ctx, q)
	}
	return domain.RetrievalResult{Matches: []domain.Match{}, Identity: q.RequestingIdentity, Enforced: q.EnforceAccess}, nil
}

// mockAccess implements AccessAdmin for tests.
type mockAccess struct {
	putGrants []domain.Grant
	revokes   [][2]string
	roles     map[string]string
	err       error
}

func (m *mockAccess) PutGrant(_ context.Context, g domain.Grant) error {
	if m.err != nil {
		return m.err
	}
	m.putGrants = append(m.putGrants, g)
	return nil
}

func (m *mockAccess) RevokeGrant(_ context.Context, identity, partitionID string) error {
	if m.err != nil {
		return m.err
	}
	m.revokes = append(m.revokes, [2]string{identity, partitionID})
	return nil
}

func (m *mockAccess) SetRole(_ context.Context, identity, role string) error {
	if m.err != nil {
		return m.err
	}
	if m.roles == nil {
		m.roles = make(map[string]string)
	}
	m.roles[identity] = role
	return nil
}

// mockPartitions implements PartitionStore for tests.
type mockPartitions struct {
	parts map[string]domain.Partition
}

func (m *mockPartitions) Put(_ context.Context, p domain.Partition) error {
	if m.parts == nil {
		m.parts = make(map[string]domain.Partition)
	}
	m.parts[p.ID] = p
	return nil
}

func (m *mockPartitions) Get(_ context.Context, id string) (domain.Partition, error) {
	p, ok := m.parts[id]
	if !ok {
		return domain.Partition{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPartitions) List(_ context.Context) ([]domain.Partition, error) {
	out := make([]domain.Partition, 0, len(m.parts))
	for _, p := range m.parts {
		out = append(out, p)
	}
	return out, nil
}

// mockHealth implements HealthService for tests.
type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	if m.report.Status == "" {
		return healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}
	}
	return m.report
}

func healthReport503() healthuc.Report {
	return healthuc.Report{
		Status: healthuc.Unhealthy,
		Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckError},
	}
}

type testServer struct {
	documents  *mockDocuments
	retrieval  *mockRetrieval
	access     *mockAccess
	partitions *mockPartitions
	health     *mockHealth
	ts         *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		documents:  &mockDocuments{},
		retrieval:  &mockRetrieval{},
		access:     &mockAccess{},
		partitions: &mockPartitions{},
		health:     &mockHealth{},
	}
	server := NewServer(s.documents, s.retrieval, s.access, s.partitions, s.health, zap.NewNop())
	r := chirouter.NewRouter()
	server.Mount(r)
	s.ts = httptest.NewServer(r)
	t.Cleanup(s.ts.Close)
	return s
}
