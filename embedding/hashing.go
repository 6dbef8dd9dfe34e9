package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hashing is a deterministic feature-hashing embedder: tokens are hashed
// into a fixed number of buckets with a hash-derived sign, and the result
// is L2-normalized so identical content has cosine similarity 1.0.
//
// It needs no model or network and is intended for tests and local
// deployments; production systems plug in a real embedding service.
type Hashing struct {
	dim int
}

// NewHashing creates a Hashing embedder producing vectors of the given
// dimension.
func NewHashing(dim int) (*Hashing, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}
	return &Hashing{dim: dim}, nil
}

// Dimension returns the vector dimension.
func (h *Hashing) Dimension() int { return h.dim }

// Embed implements Embedder.
func (h *Hashing) Embed(_ context.Context, content string) ([]float32, error) {
	vec := make([]float32, h.dim)

	tokens := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()

		idx := int(sum % uint64(h.dim))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}
