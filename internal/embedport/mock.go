package embedport

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder is a deterministic, network-free embedder: a pure function of
// text used as the default provider and throughout the test suite, per spec
// section 6's `mock` provider enum value. It is grounded on the teacher's
// embed.StaticEmbedder (hash-based, no model download) but simplified to the
// narrower embedport.Embedder contract.
type MockEmbedder struct {
	dims  int
	model string
}

// NewMockEmbedder returns a mock embedder producing vectors of length dims.
// dims defaults to 256 (embed.StaticDimensions) if non-positive.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &MockEmbedder{dims: dims, model: "mock"}
}

// Embed hashes each lowercased whitespace-separated token into a bucket of
// a fixed-length vector, then L2-normalizes. Identical text always yields an identical
// vector; no two calls observe any shared state.
func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dims)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32()) % e.dims
		if bucket < 0 {
			bucket += e.dims
		}
		v[bucket] += 1
	}
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v, nil
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= norm
	}
	return v, nil
}

// EmbedBatch embeds each text in input order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *MockEmbedder) Dimensions() int                     { return e.dims }
func (e *MockEmbedder) ModelName() string                   { return e.model }
func (e *MockEmbedder) Available(_ context.Context) bool    { return true }
func (e *MockEmbedder) Close() error                        { return nil }

var _ Embedder = (*MockEmbedder)(nil)
