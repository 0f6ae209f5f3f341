// Package embedding provides decorators around the embedding provider:
// retry on transient failures and request-level instrumentation.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/metrics"
)

// RetryConfig controls the backoff schedule.
type RetryConfig struct {
	Attempts int
	Base     time.Duration
	MaxWait  time.Duration
}

// RetryingEmbedder retries transient provider failures with exponential
// backoff. Invalid input is never retried; the provider will not change
// its mind about a malformed request.
type RetryingEmbedder struct {
	inner    domain.Embedder
	provider string
	cfg      RetryConfig
	logger   *zap.Logger
}

// NewRetryingEmbedder wraps an embedder with retry.
func NewRetryingEmbedder(inner domain.Embedder, provider string, cfg RetryConfig, logger *zap.Logger) *RetryingEmbedder {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Base <= 0 {
		cfg.Base = 200 * time.Millisecond
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Second
	}
	return &RetryingEmbedder{inner: inner, provider: provider, cfg: cfg, logger: logger}
}

// Embed delegates to the inner embedder, retrying transient errors.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		attempts = attempt

		result, err := r.inner.Embed(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == r.cfg.Attempts {
			break
		}

		wait := r.backoff(attempt)
		metrics.EmbeddingRetriesTotal.WithLabelValues(r.provider).Inc()
		r.logger.Warn("Retrying embedding request",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return domain.EmbeddingResult{}, fmt.Errorf("embed retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	return domain.EmbeddingResult{}, fmt.Errorf("embed after %d attempts: %w", attempts, lastErr)
}

func (r *RetryingEmbedder) backoff(attempt int) time.Duration {
	wait := r.cfg.Base << (attempt - 1)
	if wait > r.cfg.MaxWait {
		wait = r.cfg.MaxWait
	}
	return wait
}

func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingProviderUnavailable) ||
		errors.Is(err, domain.ErrRateLimited)
}
