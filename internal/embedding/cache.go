package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// VectorStore persists vectors by key. Missing keys are absent from the
// returned map.
type VectorStore interface {
	GetVectors(ctx context.Context, keys []string) (map[string][]float32, error)
	PutVectors(ctx context.Context, vectors map[string][]float32) error
}

// Cached memoizes an Embedder's vectors in a VectorStore keyed by model
// and text hash. Cache failures fall through to the inner embedder.
type Cached struct {
	inner  Embedder
	store  VectorStore
	logger *zap.Logger
}

// NewCached wraps inner with store.
func NewCached(inner Embedder, store VectorStore, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, store: store, logger: logger}
}

// Model returns the inner model.
func (c *Cached) Model() string { return c.inner.Model() }

// CacheKey is the store key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// Embed serves what it can from the store and embeds the rest in one call.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	model := c.inner.Model()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(model, t)
	}

	hits, err := c.store.GetVectors(ctx, keys)
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.Error(err))
		hits = nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	missIdx := make(map[string][]int)
	for i, k := range keys {
		if v, ok := hits[k]; ok {
			out[i] = v
			continue
		}
		if _, seen := missIdx[k]; !seen {
			missTexts = append(missTexts, texts[i])
		}
		missIdx[k] = append(missIdx[k], i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	fresh := make(map[string][]float32, len(vecs))
	for j, t := range missTexts {
		k := CacheKey(model, t)
		fresh[k] = vecs[j]
		for _, i := range missIdx[k] {
			out[i] = vecs[j]
		}
	}
	if err := c.store.PutVectors(ctx, fresh); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}

	c.logger.Debug("embedded texts",
		zap.Int("requested", len(texts)), zap.Int("cached", len(texts)-countIndices(missIdx)))
	return out, nil
}

func countIndices(m map[string][]int) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

// RedisStore keeps vectors in Redis as little-endian float32 bytes.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a store writing keys with ttl (0 keeps them forever).
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient connects to the Redis server at url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// GetVectors fetches keys with a single MGET.
func (s *RedisStore) GetVectors(ctx context.Context, keys []string) (map[string][]float32, error) {
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make(map[string][]float32, len(keys))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := decodeVector([]byte(str))
		if err != nil {
			continue
		}
		out[keys[i]] = vec
	}
	return out, nil
}

// PutVectors writes vectors in one pipeline.
func (s *RedisStore) PutVectors(ctx context.Context, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range vectors {
			p.Set(ctx, k, encodeVector(v), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis pipeline set: %w", err)
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("corrupt vector encoding")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
