package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals a structurally invalid document.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidGrant signals a malformed access grant.
	ErrInvalidGrant = errors.New("invalid grant")
	// ErrInvalidQuery signals a malformed retrieval query.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSourceHasNoEmbedding signals a retrieval precondition failure:
	// the source document exists but was stored without an embedding.
	// Not transient, never retried.
	ErrSourceHasNoEmbedding = errors.New("source document has no embedding")

	// ErrStoreUnavailable signals corpus store infrastructure failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrPolicyStoreUnavailable signals access policy store failure.
	// Resolution treats it as an empty authorized set — fail closed.
	ErrPolicyStoreUnavailable = errors.New("policy store unavailable")

	// ErrEmbeddingProviderUnavailable signals a transient provider failure.
	ErrEmbeddingProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrRateLimited signals a provider rate limit hit. Transient.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidEmbeddingInput signals text the provider rejects. Not retried.
	ErrInvalidEmbeddingInput = errors.New("invalid embedding input")

	// ErrOperatorRequired signals an operator-only surface hit with an
	// ordinary credential.
	ErrOperatorRequired = errors.New("operator credential required")
)
