// Package chi exposes the HTTP API: document writes, similarity retrieval,
// grant administration, partitions, backfill, and health.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	documentuc "github.com/kailas-cloud/simdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/simdex/internal/usecase/health"
)

// DocumentService handles document writes and the backfill sweep.
type DocumentService interface {
	Put(ctx context.Context, doc *domain.Document) (created bool, err error)
	Get(ctx context.Context, id string) (domain.Document, error)
	Delete(ctx context.Context, id string) error
	Backfill(ctx context.Context) (documentuc.BackfillReport, error)
}

// RetrievalService executes similarity lookups.
type RetrievalService interface {
	FindSimilar(ctx context.Context, query domain.RetrievalQuery) (domain.RetrievalResult, error)
}

// AccessAdmin mutates grants and roles with cache invalidation.
type AccessAdmin interface {
	PutGrant(ctx context.Context, g domain.Grant) error
	RevokeGrant(ctx context.Context, identity, partitionID string) error
	SetRole(ctx context.Context, identity, role string) error
}

// PartitionStore persists partition records.
type PartitionStore interface {
	Put(ctx context.Context, p domain.Partition) error
	Get(ctx context.Context, id string) (domain.Partition, error)
	List(ctx context.Context) ([]domain.Partition, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the HTTP handlers.
type Server struct {
	documents     DocumentService
	retrieval     RetrievalService
	access        AccessAdmin
	partitions    PartitionStore
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	documents DocumentService,
	retrieval RetrievalService,
	access AccessAdmin,
	partitions PartitionStore,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		documents:  documents,
		retrieval:  retrieval,
		access:     access,
		partitions: partitions,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrSourceHasNoEmbedding, http.StatusUnprocessableEntity, codeNoEmbedding),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidGrant, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrOperatorRequired, http.StatusForbidden, codeOperatorRequired),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrInvalidEmbeddingInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderUnavailable, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
		sentinelHandler(domain.ErrPolicyStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Mount registers all routes on the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.createDocument)
		r.Put("/documents/{id}", s.upsertDocument)
		r.Get("/documents/{id}", s.getDocument)
		r.Delete("/documents/{id}", s.deleteDocument)
		r.Get("/documents/{id}/similar", s.findSimilar)

		r.Put("/access/identities/{identity}/grants/{partition}", s.putGrant)
		r.Delete("/access/identities/{identity}/grants/{partition}", s.revokeGrant)
		r.Put("/access/identities/{identity}/role", s.setRole)

		r.Put("/partitions/{id}", s.putPartition)
		r.Get("/partitions/{id}", s.getPartition)
		r.Get("/partitions", s.listPartitions)
	})

	r.Post("/admin/backfill", s.backfill)
}

// createDocument handles POST /api/v1/documents. The id is server-generated
// when the body omits one.
func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	s.putDocument(w, r, req)
}

// upsertDocument handles PUT /api/v1/documents/{id}.
func (s *Server) upsertDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "body id does not match path id")
		return
	}
	req.ID = id
	s.putDocument(w, r, req)
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request, req documentRequest) {
	doc := domain.Document{
		ID:          req.ID,
		Kind:        domain.Kind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		ClusterID:   req.ClusterID,
		Category:    req.Category,
		Severity:    req.Severity,
		PartitionID: req.PartitionID,
		Status:      domain.Status(req.Status),
		PII:         req.PII,
	}

	created, err := s.documents.Put(r.Context(), &doc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/api/v1/documents/%s", doc.ID))
	}
	writeJSON(w, status, documentToResponse(&doc))
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// deleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findSimilar handles GET /api/v1/documents/{id}/similar.
func (s *Server) findSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	identity := q.Get("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "identity query parameter is required")
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	enforce := true
	if raw := q.Get("enforce_access"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "enforce_access must be a boolean")
			return
		}
		if !v && !IsOperator(r.Context()) {
			s.handleDomainError(w, fmt.Errorf("enforce_access=false: %w", domain.ErrOperatorRequired))
			return
		}
		enforce = v
	}

	result, err := s.retrieval.FindSimilar(r.Context(), domain.RetrievalQuery{
		SourceDocumentID:   chi.URLParam(r, "id"),
		RequestingIdentity: identity,
		Limit:              limit,
		EnforceAccess:      enforce,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, retrievalToResponse(result))
}

// putGrant handles PUT /api/v1/access/identities/{identity}/grants/{partition}.
func (s *Server) putGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	err := s.access.PutGrant(r.Context(), domain.Grant{
		Identity:    chi.URLParam(r, "identity"),
		PartitionID: chi.URLParam(r, "partition"),
		Level:       domain.AccessLevel(req.Level),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// revokeGrant handles DELETE /api/v1/access/identities/{identity}/grants/{partition}.
func (s *Server) revokeGrant(w http.ResponseWriter, r *http.Request) {
	err := s.access.RevokeGrant(r.Context(), chi.URLParam(r, "identity"), chi.URLParam(r, "partition"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setRole handles PUT /api/v1/access/identities/{identity}/role.
func (s *Server) setRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.access.SetRole(r.Context(), chi.URLParam(r, "identity"), req.Role); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putPartition handles PUT /api/v1/partitions/{id}.
func (s *Server) putPartition(w http.ResponseWriter, r *http.Request) {
	var req partitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p := domain.Partition{ID: chi.URLParam(r, "id"), Name: req.Name, Region: req.Region}
	if err := s.partitions.Put(r.Context(), p); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, partitionResponse{ID: p.ID, Name: p.Name, Region: p.Region})
}

// getPartition handles GET /api/v1/partitions/{id}.
func (s *Server) getPartition(w http.ResponseWriter, r *http.Request) {
	p, err := s.partitions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, partitionResponse{ID: p.ID, Name: p.Name, Region: p.Region})
}

// listPartitions handles GET /api/v1/partitions.
func (s *Server) listPartitions(w http.ResponseWriter, r *http.Request) {
	ps, err := s.partitions.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]partitionResponse, len(ps))
	for i, p := range ps {
		items[i] = partitionResponse{ID: p.ID, Name: p.Name, Region: p.Region}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// backfill handles POST /admin/backfill. Operator key required.
func (s *Server) backfill(w http.ResponseWriter, r *http.Request) {
	if !IsOperator(r.Context()) {
		s.handleDomainError(w, fmt.Errorf("backfill: %w", domain.ErrOperatorRequired))
		return
	}

	report, err := s.documents.Backfill(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// metricsHandler handles GET /metrics.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrSourceHasNoEmbedding,
		domain.ErrInvalidDocument,
		domain.ErrInvalidGrant,
		domain.ErrInvalidQuery,
		domain.ErrOperatorRequired,
		domain.ErrRateLimited,
		domain.ErrInvalidEmbeddingInput,
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrStoreUnavailable,
		domain.ErrPolicyStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
