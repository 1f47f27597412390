// Package embedport is the Embedding Port: the abstract text-to-vector
// capability consumed by docsync and the retrieval pipeline (document index
// component 4.A). It is deliberately the only place in docgraph that is
// allowed to talk to a network-backed model provider.
package embedport

import (
	"context"
	"fmt"
)

// Embedder generates dense vectors for text. d (Dimensions) is stable for
// the lifetime of the process and never exceeds vectorindex.DMax. The
// caller treats Embed as pure for identical input and identical provider
// configuration; this layer does not retry on its own (see WithRetry).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// Provider selects among the backends spec section 6 enumerates.
type Provider string

const (
	ProviderMock       Provider = "mock"
	ProviderOpenAILike Provider = "openaiLike"
	ProviderOllamaLike Provider = "ollamaLike"
)

// FailureClass distinguishes retryable failures from ones that will never
// succeed without operator intervention, per spec section 4.A.
type FailureClass string

const (
	FailureTransient     FailureClass = "transient"     // network blip, safe to retry
	FailureConfiguration FailureClass = "configuration"  // missing credential, retrying won't help
	FailureUnreachable   FailureClass = "unreachable"    // provider down for the whole session
)

// Error is the error type every backend returns, classifying the failure so
// WithRetry can retry only FailureTransient errors. docsync does not inspect
// the class: Sync returns the embedding error to its caller.
type Error struct {
	Provider Provider
	Class    FailureClass
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedport[%s]: %s: %v", e.Provider, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config configures a Factory-built Embedder.
type Config struct {
	Provider   Provider
	Endpoint   string
	Credential string
	Model      string
	Dimensions int // required for mock; inferred from the provider's response for live backends
}
