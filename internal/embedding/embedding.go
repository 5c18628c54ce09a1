// Package embedding turns profile and job texts into vectors. Providers are
// interchangeable behind Embedder; the configured one is built lazily and
// shared by every caller in the process.
package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/NathanBvumbwe/peza-ganyu/internal/config"
	"github.com/NathanBvumbwe/peza-ganyu/internal/llm"
	"go.uber.org/zap"
)

// Embedder maps texts to vectors, one per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model names the embedding space; vectors from different models are
	// not comparable.
	Model() string
}

// Lazy builds its Embedder on first use. A failed build is retried on the
// next call; a successful one is kept for the life of the process.
type Lazy struct {
	model string
	build func(ctx context.Context) (Embedder, error)

	mu       sync.Mutex
	embedder Embedder
}

// NewLazy creates a Lazy embedder. model must match what build produces.
func NewLazy(model string, build func(ctx context.Context) (Embedder, error)) *Lazy {
	return &Lazy{model: model, build: build}
}

// Model returns the configured model name without building the embedder.
func (l *Lazy) Model() string { return l.model }

// Embed builds the embedder if needed and delegates to it.
func (l *Lazy) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, texts)
}

func (l *Lazy) get(ctx context.Context) (Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.embedder != nil {
		return l.embedder, nil
	}
	e, err := l.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s embedder: %w", l.model, err)
	}
	l.embedder = e
	return e, nil
}

// FromConfig returns a Lazy embedder for the configured provider.
func FromConfig(cfg config.EmbeddingConfig, logger *zap.Logger) (*Lazy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case config.ProviderHashing:
		h := NewHashing(cfg.Dimensions)
		return NewLazy(h.Model(), func(context.Context) (Embedder, error) { return h, nil }), nil

	case config.ProviderGemini:
		llmCfg := llm.DefaultGeminiConfig().WithEmbeddingModel(cfg.Model)
		return NewLazy(llmCfg.EmbeddingModel, func(ctx context.Context) (Embedder, error) {
			client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
			if err != nil {
				return nil, err
			}
			logger.Info("initialized embedder", zap.String("provider", cfg.Provider), zap.String("model", llmCfg.EmbeddingModel))
			return NewGemini(client), nil
		}), nil

	case config.ProviderCohere:
		model := cfg.Model
		if model == "" {
			model = DefaultCohereModel
		}
		return NewLazy(model, func(context.Context) (Embedder, error) {
			c, err := NewCohere(cfg.CohereAPIKey, model, "")
			if err != nil {
				return nil, err
			}
			logger.Info("initialized embedder", zap.String("provider", cfg.Provider), zap.String("model", model))
			return c, nil
		}), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
