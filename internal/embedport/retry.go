package embedport

import (
	"context"
	"errors"
	"time"

	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
)

// RetryConfig configures WithRetry's exponential backoff, grounded on
// embed.RetryConfig / embed.DefaultRetryConfig.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig mirrors embed.DefaultRetryConfig's shape.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 16 * time.Second, Multiplier: 2}
}

// retrying wraps an Embedder so FailureTransient errors are retried with
// exponential backoff before propagating, and a CircuitBreaker trips after
// repeated failures so a flapping endpoint fails fast (spec section 4.A:
// "no retries are required at this layer; retries happen in the external
// collaborator wrapper" — this is that wrapper).
type retrying struct {
	Embedder
	cfg     RetryConfig
	breaker *amerrors.CircuitBreaker
}

// WithRetry wraps inner with retry-on-transient-failure and a circuit
// breaker, reusing the teacher's CircuitBreaker verbatim (its only home in
// the expanded spec, per SPEC_FULL.md section 4.A).
func WithRetry(inner Embedder, cfg RetryConfig) Embedder {
	return &retrying{
		Embedder: inner,
		cfg:      cfg,
		breaker:  amerrors.NewCircuitBreaker("embedport." + inner.ModelName()),
	}
}

func (r *retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	return amerrors.CircuitExecuteWithResult(r.breaker, func() ([]float32, error) {
		return retryTransient(ctx, r.cfg, func() ([]float32, error) {
			return r.Embedder.Embed(ctx, text)
		})
	}, func() ([]float32, error) {
		return nil, &Error{Class: FailureUnreachable, Err: amerrors.ErrCircuitOpen}
	})
}

func (r *retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return amerrors.CircuitExecuteWithResult(r.breaker, func() ([][]float32, error) {
		return retryTransient(ctx, r.cfg, func() ([][]float32, error) {
			return r.Embedder.EmbedBatch(ctx, texts)
		})
	}, func() ([][]float32, error) {
		return nil, &Error{Class: FailureUnreachable, Err: amerrors.ErrCircuitOpen}
	})
}

func retryTransient[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	delay := cfg.InitialDelay
	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		var pe *Error
		if !errors.As(err, &pe) || pe.Class != FailureTransient || attempt >= cfg.MaxRetries {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return zero, lastErr
}
