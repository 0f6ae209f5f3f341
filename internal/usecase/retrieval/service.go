// Package retrieval ranks corpus documents by similarity to a source
// document, after access and guardrail filtering. Filtering is a prefilter:
// no distance is ever computed for a document the caller may not see.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/metrics"
)

// Limits bounds result sizes.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Engine executes similarity retrievals.
type Engine struct {
	corpus    CorpusReader
	access    AccessResolver
	guardrail domain.Guardrail
	limits    Limits
	logger    *zap.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(
	corpus CorpusReader, access AccessResolver,
	guardrail domain.Guardrail, limits Limits, logger *zap.Logger,
) *Engine {
	if limits.DefaultLimit < 1 {
		limits.DefaultLimit = 5
	}
	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = limits.DefaultLimit
	}
	return &Engine{
		corpus:    corpus,
		access:    access,
		guardrail: guardrail,
		limits:    limits,
		logger:    logger,
	}
}

// ranked pairs a candidate with its distance to the source vector.
type ranked struct {
	candidate domain.Candidate
	distance  float64
}

// FindSimilar returns up to query.Limit documents ordered by ascending
// distance to the source document's embedding. Only documents inside the
// identity's authorized partition set that pass the content guardrail are
// considered; everything else is invisible, not merely down-ranked.
//
// An empty result is a valid outcome. Errors are reserved for a missing or
// unembedded source and for infrastructure failures.
func (e *Engine) FindSimilar(ctx context.Context, query domain.RetrievalQuery) (domain.RetrievalResult, error) {
	start := time.Now()

	result, err := e.findSimilar(ctx, query)

	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return domain.RetrievalResult{}, err
	}
	metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

func (e *Engine) findSimilar(ctx context.Context, query domain.RetrievalQuery) (domain.RetrievalResult, error) {
	query.Limit = e.normalizeLimit(query.Limit)
	if err := query.Validate(); err != nil {
		return domain.RetrievalResult{}, err
	}

	result := domain.RetrievalResult{
		Matches:  []domain.Match{},
		Identity: query.RequestingIdentity,
		Enforced: query.EnforceAccess,
	}

	srcVec, err := e.sourceEmbedding(ctx, query.SourceDocumentID)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	authorized := domain.AllPartitions()
	if query.EnforceAccess {
		authorized = e.access.Resolve(ctx, query.RequestingIdentity)
		if authorized.Empty() {
			return result, nil
		}
	}

	candidates, err := e.scanCandidates(ctx, domain.CandidateFilter{
		AllPartitions:    authorized.All(),
		Partitions:       authorized.Partitions(),
		Statuses:         domain.SafeStatuses(),
		ExcludePII:       true,
		RequireEmbedding: true,
		ExcludeID:        query.SourceDocumentID,
	})
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	rankedAll := e.rank(srcVec, candidates, authorized)
	metrics.RetrievalCandidatesScanned.Observe(float64(len(rankedAll)))

	if len(rankedAll) > query.Limit {
		rankedAll = rankedAll[:query.Limit]
	}

	for _, r := range rankedAll {
		result.Matches = append(result.Matches, domain.Match{
			DocumentID:  r.candidate.ID,
			Score:       score(r.distance),
			Title:       r.candidate.Title,
			Kind:        r.candidate.Kind,
			Status:      r.candidate.Status,
			PartitionID: r.candidate.PartitionID,
			CreatedAt:   r.candidate.CreatedAt,
		})
	}
	return result, nil
}

func (e *Engine) normalizeLimit(limit int) int {
	if limit == 0 {
		return e.limits.DefaultLimit
	}
	if limit > e.limits.MaxLimit {
		return e.limits.MaxLimit
	}
	return limit
}

// sourceEmbedding fetches the source vector, retrying once on store failure.
// A stored document without an embedding is a precondition failure, not an
// infrastructure one.
func (e *Engine) sourceEmbedding(ctx context.Context, id string) ([]float32, error) {
	vec, err := e.corpus.GetEmbedding(ctx, id)
	if errors.Is(err, domain.ErrStoreUnavailable) {
		vec, err = e.corpus.GetEmbedding(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("source embedding: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrSourceHasNoEmbedding)
	}
	return vec, nil
}

func (e *Engine) scanCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error) {
	candidates, err := e.corpus.ScanCandidates(ctx, f)
	if errors.Is(err, domain.ErrStoreUnavailable) {
		candidates, err = e.corpus.ScanCandidates(ctx, f)
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}
	return candidates, nil
}

// rank recomputes the admission predicate per candidate before any distance.
// The store-level prefilter does the heavy lifting; re-checking here keeps a
// stale index entry from leaking a document past the partition or guardrail
// boundary.
func (e *Engine) rank(srcVec []float32, candidates []domain.Candidate, authorized domain.AuthorizedSet) []ranked {
	out := make([]ranked, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if !authorized.Contains(c.PartitionID) {
			continue
		}
		if !e.guardrail.IsSafe(&domain.Document{Status: c.Status, PII: c.PII}) {
			continue
		}
		if len(c.Embedding) != len(srcVec) {
			e.logger.Warn("Skipping candidate with mismatched embedding dimensions",
				zap.String("document_id", c.ID),
				zap.Int("got", len(c.Embedding)),
				zap.Int("want", len(srcVec)),
			)
			continue
		}
		out = append(out, ranked{candidate: *c, distance: euclidean(srcVec, c.Embedding)})
	}

	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].distance, out[j].distance
		if math.Float64bits(di) != math.Float64bits(dj) {
			return di < dj
		}
		ci, cj := out[i].candidate.CreatedAt, out[j].candidate.CreatedAt
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return out[i].candidate.ID < out[j].candidate.ID
	})
	return out
}
