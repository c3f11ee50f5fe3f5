package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Local is a deterministic feature-hashing embedder that needs no network.
// Tokens (and their bigrams, for a little word-order signal) are hashed into
// a fixed-size bucket vector which is then L2-normalized. The vectors are far
// weaker than a real embedding model's but preserve the property tests care
// about: identical text embeds identically and overlapping text scores higher
// than unrelated text.
type Local struct {
	dim int
}

var _ Embedder = (*Local)(nil)

// NewLocal creates a feature-hashing embedder with the given dimension.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = 256
	}
	return &Local{dim: dim}
}

// Embed implements Embedder. It never fails.
func (e *Local) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		vec[e.bucket(tok)]++
		if i > 0 {
			vec[e.bucket(tokens[i-1]+" "+tok)] += 0.5
		}
	}
	normalize(vec)
	return vec, nil
}

// Dimension implements Embedder.
func (e *Local) Dimension() int { return e.dim }

func (e *Local) bucket(token string) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dim))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
