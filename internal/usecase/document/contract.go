package document

import (
	"context"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// Repository defines the storage contract for documents.
type Repository interface {
	PutDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
