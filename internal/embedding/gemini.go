package embedding

import (
	"context"

	"github.com/NathanBvumbwe/peza-ganyu/internal/llm"
)

// Gemini embeds texts through an llm.Client.
type Gemini struct {
	client llm.Client
}

// NewGemini wraps client. The client's embedding model names the space.
func NewGemini(client llm.Client) *Gemini {
	return &Gemini{client: client}
}

// Model returns the client's embedding model.
func (g *Gemini) Model() string { return g.client.EmbeddingModel() }

// Embed delegates to the client.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return g.client.Embed(ctx, texts)
}
