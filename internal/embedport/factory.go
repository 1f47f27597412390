package embedport

import (
	"context"
	"fmt"
	"sync"
)

// dimCaching wraps an Embedder whose dimension is only known after the first
// real call (the HTTP-backed providers), caching it so Dimensions() is
// stable for the rest of the process per spec section 4.A.
type dimCaching struct {
	Embedder
	mu   sync.Mutex
	dims int
}

func (d *dimCaching) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := d.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	d.recordDims(len(v))
	return v, nil
}

func (d *dimCaching) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vs, err := d.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vs) > 0 {
		d.recordDims(len(vs[0]))
	}
	return vs, nil
}

func (d *dimCaching) recordDims(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dims == 0 {
		d.dims = n
	}
}

func (d *dimCaching) Dimensions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dims
}

// Factory builds an Embedder for the configured provider, per spec section
// 6's `embeddingProvider ∈ {mock, openaiLike, ollamaLike}` enum.
func Factory(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	case ProviderOpenAILike, ProviderOllamaLike:
		if cfg.Endpoint == "" {
			return nil, &Error{Provider: cfg.Provider, Class: FailureConfiguration, Err: fmt.Errorf("endpoint is required for provider %q", cfg.Provider)}
		}
		base := newHTTPEmbedder(cfg)
		if cfg.Dimensions > 0 {
			return &dimCaching{Embedder: base, dims: cfg.Dimensions}, nil
		}
		return &dimCaching{Embedder: base}, nil
	default:
		return nil, &Error{Provider: cfg.Provider, Class: FailureConfiguration, Err: fmt.Errorf("unknown embedding provider %q", cfg.Provider)}
	}
}
