package chi

import (
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// Error response codes. Stable strings; clients switch on them.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeOperatorRequired = "operator_required"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeDocumentNotFound = "document_not_found"
	codeNoEmbedding      = "source_has_no_embedding"
	codeRateLimited      = "rate_limited"
	codeProviderError    = "embedding_provider_error"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type documentRequest struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ClusterID   string `json:"cluster_id,omitempty"`
	Category    string `json:"category,omitempty"`
	Severity    string `json:"severity,omitempty"`
	PartitionID string `json:"partition_id,omitempty"`
	Status      string `json:"status"`
	PII         bool   `json:"pii"`
}

type documentResponse struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	ClusterID        string    `json:"cluster_id,omitempty"`
	Category         string    `json:"category,omitempty"`
	Severity         string    `json:"severity,omitempty"`
	PartitionID      string    `json:"partition_id,omitempty"`
	Status           string    `json:"status"`
	PII              bool      `json:"pii"`
	Embedded         bool      `json:"embedded"`
	EmbeddingCurrent bool      `json:"embedding_current"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func documentToResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID:               d.ID,
		Kind:             string(d.Kind),
		Title:            d.Title,
		Description:      d.Description,
		ClusterID:        d.ClusterID,
		Category:         d.Category,
		Severity:         d.Severity,
		PartitionID:      d.PartitionID,
		Status:           string(d.Status),
		PII:              d.PII,
		Embedded:         d.HasEmbedding(),
		EmbeddingCurrent: !d.NeedsReembedding(),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

type matchResponse struct {
	DocumentID      string    `json:"document_id"`
	SimilarityScore float64   `json:"similarity_score"`
	Title           string    `json:"title"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	PartitionID     string    `json:"partition_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type retrievalResponse struct {
	Status   string          `json:"status"`
	Matches  []matchResponse `json:"matches"`
	Identity string          `json:"identity"`
	Enforced bool            `json:"access_enforced"`
}

func retrievalToResponse(res domain.RetrievalResult) retrievalResponse {
	matches := make([]matchResponse, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, matchResponse{
			DocumentID:      m.DocumentID,
			SimilarityScore: m.Score,
			Title:           m.Title,
			Kind:            string(m.Kind),
			Status:          string(m.Status),
			PartitionID:     m.PartitionID,
			CreatedAt:       m.CreatedAt.UTC(),
		})
	}
	return retrievalResponse{
		Status:   "ok",
		Matches:  matches,
		Identity: res.Identity,
		Enforced: res.Enforced,
	}
}

type grantRequest struct {
	Level string `json:"level"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type partitionRequest struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

type partitionResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}
