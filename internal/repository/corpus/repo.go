package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/simdex/internal/db"
	"github.com/kailas-cloud/simdex/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "doc:"
	indexName = domain.KeyPrefix + "doc_idx"
)

// store is the consumer interface for the corpus (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the corpus store: atomic document writes and structurally
// prefiltered candidate scans.
type Repo struct {
	store    store
	pageSize int
}

// New creates a corpus repository.
func New(s store, scanPageSize int) *Repo {
	if scanPageSize <= 0 {
		scanPageSize = 500
	}
	return &Repo{store: s, pageSize: scanPageSize}
}

// EnsureIndex creates the document FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe index: %w", storeErr(err))
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: "$.id", Alias: "id", Type: db.IndexFieldTag},
			{Name: "$.partition_id", Alias: "partition", Type: db.IndexFieldTag},
			{Name: "$.status", Alias: "status", Type: db.IndexFieldTag},
			{Name: "$.pii", Alias: "pii", Type: db.IndexFieldTag},
			{Name: "$.has_embedding", Alias: "has_embedding", Type: db.IndexFieldTag},
			{Name: "$.created_at", Alias: "created_at", Type: db.IndexFieldNumeric},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", storeErr(err))
	}
	return nil
}

// PutDocument upserts the full record — metadata and embedding — as a single
// JSON.SET of the root path. Readers observe the previous record or this one,
// never a mix.
func (r *Repo) PutDocument(ctx context.Context, doc *domain.Document) error {
	dto := toDTO(doc)
	data, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if err := r.store.JSONSet(ctx, docKey(doc.ID), "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", docKey(doc.ID), storeErr(err))
	}
	return nil
}

// GetDocument returns a document by id.
func (r *Repo) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	raw, err := r.store.JSONGet(ctx, docKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrDocumentNotFound
		}
		return domain.Document{}, fmt.Errorf("json.get %s: %w", docKey(id), storeErr(err))
	}

	dto, err := parseDocJSON(raw)
	if err != nil {
		return domain.Document{}, err
	}
	return fromDTO(&dto), nil
}

// GetEmbedding returns the stored embedding for a document. A nil vector with
// a nil error means the document exists but carries no embedding.
func (r *Repo) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	doc, err := r.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Embedding, nil
}

// Delete removes a document and its embedding together; no orphaned
// embeddings survive a delete.
func (r *Repo) Delete(ctx context.Context, id string) error {
	exists, err := r.store.Exists(ctx, docKey(id))
	if err != nil {
		return fmt.Errorf("check exists %s: %w", docKey(id), storeErr(err))
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return fmt.Errorf("del %s: %w", docKey(id), storeErr(err))
	}
	return nil
}

// ScanCandidates evaluates the structural predicate inside the store via
// FT.SEARCH and returns every matching document with its embedding. The
// result order is unspecified; callers must not rely on it.
func (r *Repo) ScanCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error) {
	// An explicitly empty partition subset matches nothing. Short-circuit
	// instead of building an unsatisfiable query.
	if !f.AllPartitions && len(f.Partitions) == 0 {
		return nil, nil
	}

	query := buildCandidateQuery(f)

	var out []domain.Candidate
	offset := 0
	for {
		page, err := r.store.SearchList(ctx, indexName, query, offset, r.pageSize, []string{"$"})
		if err != nil {
			return nil, fmt.Errorf("scan candidates: %w", storeErr(err))
		}

		for _, entry := range page.Entries {
			dto, err := parseDocJSON([]byte(entry.Fields["$"]))
			if err != nil {
				continue
			}
			doc := fromDTO(&dto)
			out = append(out, domain.Candidate{
				ID:          doc.ID,
				Embedding:   doc.Embedding,
				Title:       doc.Title,
				Kind:        doc.Kind,
				Status:      doc.Status,
				PartitionID: doc.PartitionID,
				PII:         doc.PII,
				CreatedAt:   doc.CreatedAt,
			})
		}

		if len(page.Entries) < r.pageSize {
			break
		}
		offset += r.pageSize
	}

	return out, nil
}

// ListIDs returns every document id in the corpus, for backfill sweeps.
func (r *Repo) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", storeErr(err))
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, keyPrefix))
	}
	return ids, nil
}

// Count returns the number of documents in the corpus.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", storeErr(err))
	}
	return n, nil
}

func docKey(id string) string {
	return keyPrefix + id
}

// buildCandidateQuery renders the structural predicate as an FT.SEARCH query.
// The predicate runs inside the store, so excluded documents never leave it.
func buildCandidateQuery(f domain.CandidateFilter) string {
	var sb strings.Builder

	if !f.AllPartitions {
		sb.WriteString("@partition:{")
		for i, p := range f.Partitions {
			if i > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(escapeTag(p))
		}
		sb.WriteString("} ")
	}

	if len(f.Statuses) > 0 {
		sb.WriteString("@status:{")
		for i, st := range f.Statuses {
			if i > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(escapeTag(string(st)))
		}
		sb.WriteString("} ")
	}

	if f.ExcludePII {
		sb.WriteString("@pii:{" + tagFalse + "} ")
	}
	if f.RequireEmbedding {
		sb.WriteString("@has_embedding:{" + tagTrue + "} ")
	}
	if f.ExcludeID != "" {
		sb.WriteString("-@id:{" + escapeTag(f.ExcludeID) + "} ")
	}

	q := strings.TrimSpace(sb.String())
	if q == "" {
		return "*"
	}
	return q
}

// escapeTag escapes FT.SEARCH tag syntax characters (uuids carry hyphens).
var tagEscaper = strings.NewReplacer(
	"-", "\\-", ".", "\\.", ",", "\\,", " ", "\\ ",
	"{", "\\{", "}", "\\}", "|", "\\|", ":", "\\:",
	"@", "\\@", "(", "\\(", ")", "\\)",
)

func escapeTag(v string) string {
	return tagEscaper.Replace(v)
}

// storeErr maps infrastructure failures to the domain sentinel while
// preserving the underlying cause.
func storeErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
