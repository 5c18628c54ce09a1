package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// DefaultDimensions is the hashing embedder's default vector size.
const DefaultDimensions = 384

// Hashing is a deterministic feature-hashing embedder. Texts sharing
// words get similar vectors; it needs no model or network.
type Hashing struct {
	dims int
}

// NewHashing creates a hashing embedder with dims dimensions.
func NewHashing(dims int) *Hashing {
	if dims < 1 {
		dims = DefaultDimensions
	}
	return &Hashing{dims: dims}
}

// Model names the space, including its size.
func (h *Hashing) Model() string { return "hashing-" + strconv.Itoa(h.dims) }

// Embed returns an L2-normalized vector per text. Text without words maps
// to the zero vector.
func (h *Hashing) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	vec := make([]float32, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		hs := fnv.New64a()
		_, _ = hs.Write([]byte(tok))
		sum := hs.Sum64()
		idx := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
