package embedport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpEmbedder speaks a minimal JSON HTTP embedding protocol, following
// embed.OllamaEmbedder's request/response shape: POST a model name plus one
// or many input strings, get back one vector per input. openaiLike and
// ollamaLike differ only in request/response field names, so one struct
// serves both behind a requestBuilder/responseParser pair.
type httpEmbedder struct {
	client   *http.Client
	endpoint string
	model    string
	provider Provider

	buildRequest  func(model string, texts []string) any
	parseResponse func(body []byte) ([][]float32, error)
}

func newHTTPEmbedder(cfg Config) *httpEmbedder {
	e := &httpEmbedder{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		provider: cfg.Provider,
	}
	switch cfg.Provider {
	case ProviderOllamaLike:
		e.buildRequest = func(model string, texts []string) any {
			var input any = texts
			if len(texts) == 1 {
				input = texts[0]
			}
			return ollamaRequest{Model: model, Input: input}
		}
		e.parseResponse = func(body []byte) ([][]float32, error) {
			var resp ollamaResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return resp.vectors(), nil
		}
	default: // ProviderOpenAILike
		e.buildRequest = func(model string, texts []string) any {
			return openAIRequest{Model: model, Input: texts}
		}
		e.parseResponse = func(body []byte) ([][]float32, error) {
			var resp openAIResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return resp.vectors(), nil
		}
	}
	return e
}

type ollamaRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

func (r ollamaResponse) vectors() [][]float32 {
	out := make([][]float32, len(r.Embeddings))
	for i, e := range r.Embeddings {
		v := make([]float32, len(e))
		for j, x := range e {
			v[j] = float32(x)
		}
		out[i] = v
	}
	return out
}

type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (r openAIResponse) vectors() [][]float32 {
	out := make([][]float32, len(r.Data))
	for _, d := range r.Data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = v
		}
	}
	return out
}

func (e *httpEmbedder) do(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(e.buildRequest(e.model, texts))
	if err != nil {
		return nil, &Error{Provider: e.provider, Class: FailureConfiguration, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Provider: e.provider, Class: FailureConfiguration, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: e.provider, Class: FailureTransient, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: e.provider, Class: FailureTransient, Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &Error{Provider: e.provider, Class: FailureUnreachable, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{Provider: e.provider, Class: FailureConfiguration, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	vectors, err := e.parseResponse(body)
	if err != nil {
		return nil, &Error{Provider: e.provider, Class: FailureUnreachable, Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &Error{Provider: e.provider, Class: FailureUnreachable, Err: fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors))}
	}
	return vectors, nil
}

func (e *httpEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.do(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.do(ctx, texts)
}

func (e *httpEmbedder) Dimensions() int { return 0 } // discovered lazily by the factory's first Embed call

func (e *httpEmbedder) ModelName() string { return e.model }

func (e *httpEmbedder) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func (e *httpEmbedder) Close() error { return nil }

var _ Embedder = (*httpEmbedder)(nil)
