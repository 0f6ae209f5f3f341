package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/simdex/internal/domain"
	"github.com/kailas-cloud/simdex/internal/metrics"
)

// mockEmbedder implements domain.Embedder for tests.
type mockEmbedder struct {
	results []domain.EmbeddingResult
	errs    []error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return domain.EmbeddingResult{}, m.errs[i]
	}
	if i < len(m.results) {
		return m.results[i], nil
	}
	return domain.EmbeddingResult{Embedding: []float32{1}}, nil
}

func fastRetry(inner domain.Embedder) *RetryingEmbedder {
	return NewRetryingEmbedder(inner, "test", RetryConfig{
		Attempts: 3,
		Base:     time.Millisecond,
		MaxWait:  2 * time.Millisecond,
	}, zap.NewNop())
}

func TestRetry_TransientErrorRecovered(t *testing.T) {
	inner := &mockEmbedder{errs: []error{domain.ErrEmbeddingProviderUnavailable, nil}}
	re := fastRetry(inner)

	result, err := re.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected recovery after retry, got %v", err)
	}
	if len(result.Embedding) == 0 {
		t.Fatal("expected embedding from second attempt")
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestRetry_RateLimitedIsRetried(t *testing.T) {
	inner := &mockEmbedder{errs: []error{domain.ErrRateLimited, nil}}
	re := fastRetry(inner)

	if _, err := re.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestRetry_InvalidInputNotRetried(t *testing.T) {
	inner := &mockEmbedder{errs: []error{domain.ErrInvalidEmbeddingInput}}
	re := fastRetry(inner)

	_, err := re.Embed(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidEmbeddingInput) {
		t.Fatalf("expected ErrInvalidEmbeddingInput, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("invalid input must not be retried, got %d attempts", inner.calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	inner := &mockEmbedder{errs: []error{
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrEmbeddingProviderUnavailable,
	}}
	re := fastRetry(inner)

	_, err := re.Embed(context.Background(), "text")
	if !errors.Is(err, domain.ErrEmbeddingProviderUnavailable) {
		t.Fatalf("expected last error surfaced, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetry_CountsRetriesPerProvider(t *testing.T) {
	inner := &mockEmbedder{errs: []error{
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrEmbeddingProviderUnavailable,
		nil,
	}}
	re := fastRetry(inner)

	before := testutil.ToFloat64(metrics.EmbeddingRetriesTotal.WithLabelValues("test"))
	if _, err := re.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	after := testutil.ToFloat64(metrics.EmbeddingRetriesTotal.WithLabelValues("test"))

	if after-before != 2 {
		t.Fatalf("expected 2 retries counted, got %v", after-before)
	}
}

func TestRetry_ErrorReportsActualAttempts(t *testing.T) {
	inner := &mockEmbedder{errs: []error{domain.ErrInvalidEmbeddingInput}}
	re := fastRetry(inner)

	_, err := re.Embed(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "after 1 attempts") {
		t.Fatalf("expected attempt count 1 in error, got %q", err.Error())
	}

	inner = &mockEmbedder{errs: []error{
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrEmbeddingProviderUnavailable,
	}}
	re = fastRetry(inner)

	_, err = re.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("expected attempt count 3 in error, got %q", err.Error())
	}
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	inner := &mockEmbedder{errs: []error{
		domain.ErrEmbeddingProviderUnavailable,
		domain.ErrEmbeddingProviderUnavailable,
	}}
	re := NewRetryingEmbedder(inner, "test", RetryConfig{
		Attempts: 3,
		Base:     time.Minute,
		MaxWait:  time.Minute,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := re.Embed(ctx, "text")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation to abort backoff, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected no further attempts after cancellation, got %d", inner.calls)
	}
}
