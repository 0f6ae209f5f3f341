package corpus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/simdex/internal/domain"
)

// docDTO is the JSON shape stored at simdex:doc:<id>. Flags the prefilter
// matches on (pii, has_embedding) are stored as tag strings so the FT index
// can treat them uniformly as TAG fields.
type docDTO struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ClusterID    string    `json:"cluster_id,omitempty"`
	Category     string    `json:"category,omitempty"`
	Severity     string    `json:"severity,omitempty"`
	PartitionID  string    `json:"partition_id,omitempty"`
	Status       string    `json:"status"`
	PII          string    `json:"pii"`
	HasEmbedding string    `json:"has_embedding"`
	Embedding    []float32 `json:"embedding,omitempty"`
	EmbeddedHash string    `json:"embedded_hash,omitempty"`
	CreatedAt    int64     `json:"created_at"`
	UpdatedAt    int64     `json:"updated_at"`
}

const (
	tagTrue  = "true"
	tagFalse = "false"
)

func boolTag(b bool) string {
	if b {
		return tagTrue
	}
	return tagFalse
}

func toDTO(d *domain.Document) docDTO {
	return docDTO{
		ID:           d.ID,
		Kind:         string(d.Kind),
		Title:        d.Title,
		Description:  d.Description,
		ClusterID:    d.ClusterID,
		Category:     d.Category,
		Severity:     d.Severity,
		PartitionID:  d.PartitionID,
		Status:       string(d.Status),
		PII:          boolTag(d.PII),
		HasEmbedding: boolTag(d.HasEmbedding()),
		Embedding:    d.Embedding,
		EmbeddedHash: d.EmbeddedHash,
		CreatedAt:    d.CreatedAt.UnixNano(),
		UpdatedAt:    d.UpdatedAt.UnixNano(),
	}
}

func fromDTO(dto *docDTO) domain.Document {
	return domain.Document{
		ID:           dto.ID,
		Kind:         domain.Kind(dto.Kind),
		Title:        dto.Title,
		Description:  dto.Description,
		ClusterID:    dto.ClusterID,
		Category:     dto.Category,
		Severity:     dto.Severity,
		PartitionID:  dto.PartitionID,
		Status:       domain.Status(dto.Status),
		PII:          dto.PII == tagTrue,
		Embedding:    dto.Embedding,
		EmbeddedHash: dto.EmbeddedHash,
		CreatedAt:    time.Unix(0, dto.CreatedAt),
		UpdatedAt:    time.Unix(0, dto.UpdatedAt),
	}
}

// parseDocJSON decodes a JSON.GET "$" reply, which wraps the value in a
// one-element array.
func parseDocJSON(raw []byte) (docDTO, error) {
	var arr []docDTO
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 {
		return arr[0], nil
	}

	var dto docDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return docDTO{}, fmt.Errorf("decode document json: %w", err)
	}
	return dto, nil
}
