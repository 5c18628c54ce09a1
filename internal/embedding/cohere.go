package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
)

// DefaultCohereModel is the Cohere English embedding model.
const DefaultCohereModel = "embed-english-v3.0"

// cohereBatch is the most texts the Embed API accepts per request.
const cohereBatch = 96

// Cohere embeds texts with the Cohere Embed API (v2).
type Cohere struct {
	client *cohereclient.Client
	model  string
}

// NewCohere creates a Cohere embedder. An empty baseURL uses the public API.
func NewCohere(apiKey, model, baseURL string) (*Cohere, error) {
	if apiKey == "" {
		return nil, errors.New("cohere API key is required")
	}
	if model == "" {
		model = DefaultCohereModel
	}
	opts := []option.RequestOption{
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	}
	if baseURL != "" {
		opts = append(opts, cohereclient.WithBaseURL(baseURL))
	}
	client := cohereclient.NewClient(opts...)
	return &Cohere{client: client, model: model}, nil
}

// Model returns the Cohere model name.
func (c *Cohere) Model() string { return c.model }

// Embed embeds texts as search documents, batching to the API limit.
func (c *Cohere) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += cohereBatch {
		end := min(start+cohereBatch, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Cohere) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, fmt.Errorf("cohere embed returned %d vectors for %d texts", len(floats), len(texts))
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
