// Package document handles document writes with automatic vectorization.
// The embedding is generated before the write so the record and its vector
// commit in a single store operation.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// Service handles document CRUD with embed-before-write semantics.
type Service struct {
	repo     Repository
	embedder Embedder
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a document service.
func New(repo Repository, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// Put creates or updates a document. Returns true if created.
//
// The embedding is computed first and written together with the metadata,
// so no reader ever observes a vector derived from different text than the
// stored fields. A provider failure does not block the write: on create the
// document lands without an embedding, on update it keeps the previous one.
// Either way the record stays stale-but-valid and a later backfill repairs it.
func (s *Service) Put(ctx context.Context, doc *domain.Document) (bool, error) {
	if err := doc.Validate(); err != nil {
		return false, err
	}

	prev, err := s.repo.GetDocument(ctx, doc.ID)
	created := false
	switch {
	case err == nil:
		doc.CreatedAt = prev.CreatedAt
	case errors.Is(err, domain.ErrDocumentNotFound):
		created = true
		doc.CreatedAt = s.now().UTC()
	default:
		return false, fmt.Errorf("get existing document: %w", err)
	}
	doc.UpdatedAt = s.now().UTC()

	result, embedErr := s.embedder.Embed(ctx, doc.EmbeddingText())
	if embedErr != nil {
		s.logger.Warn("Embedding failed, writing document without fresh vector",
			zap.String("document_id", doc.ID),
			zap.Bool("created", created),
			zap.Error(embedErr),
		)
		if !created {
			doc.Embedding = prev.Embedding
			doc.EmbeddedHash = prev.EmbeddedHash
		}
	} else {
		doc.SetEmbedding(result.Embedding)
	}

	if err := s.repo.PutDocument(ctx, doc); err != nil {
		return false, fmt.Errorf("put document: %w", err)
	}
	return created, nil
}

// Get retrieves a document by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete removes a document. Missing documents are reported as not found.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// BackfillReport summarizes a backfill sweep.
type BackfillReport struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Backfill sweeps the corpus and re-embeds every document whose embedding is
// missing or stale. Per-document failures are counted and skipped so one bad
// record never aborts the sweep.
func (s *Service) Backfill(ctx context.Context) (BackfillReport, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("list documents: %w", err)
	}

	var report BackfillReport
	for _, id := range ids {
		if ctx.Err() != nil {
			return report, fmt.Errorf("backfill interrupted: %w", ctx.Err())
		}
		report.Scanned++

		doc, err := s.repo.GetDocument(ctx, id)
		if err != nil {
			report.Failed++
			s.logger.Warn("Backfill: get failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		if !doc.NeedsReembedding() {
			continue
		}

		result, err := s.embedder.Embed(ctx, doc.EmbeddingText())
		if err != nil {
			report.Failed++
			s.logger.Warn("Backfill: embed failed", zap.String("document_id", id), zap.Error(err))
			continue
		}

		doc.SetEmbedding(result.Embedding)
		doc.UpdatedAt = s.now().UTC()
		if err := s.repo.PutDocument(ctx, &doc); err != nil {
			report.Failed++
			s.logger.Warn("Backfill: write failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		report.Repaired++
	}

	s.logger.Info("Backfill completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("repaired", report.Repaired),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
