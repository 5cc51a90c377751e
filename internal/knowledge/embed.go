package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a fixed-dimension vector. The engine treats the
// embedding function as a black box; implementations may call out to a
// model server or compute vectors locally.
type Embedder interface {
	// Embed returns the embedding for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the vector dimension produced by Embed.
	Dimension() int
}

// DefaultEmbeddingDim is the dimension used by the hashing embedder.
const DefaultEmbeddingDim = 256

// HashingEmbedder is a deterministic, dependency-free embedder that hashes
// tokens into a fixed number of buckets and L2-normalizes the counts. Two
// texts sharing vocabulary land near each other, which is enough signal
// for rule retrieval over short documents while keeping the engine fully
// offline and its tests reproducible.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder with the given dimension.
// A dimension of 0 selects DefaultEmbeddingDim.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}

	return &HashingEmbedder{dim: dim}
}

// Dimension returns the configured vector dimension.
func (e *HashingEmbedder) Dimension() int {
	return e.dim
}

// Embed implements Embedder.
func (e *HashingEmbedder) Embed(_ context.Context,
	text string,
) ([]float64, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	vec := make([]float64, e.dim)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dim]++
	}

	// L2-normalize so cosine similarity reduces to a dot product.
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}

	return vec, nil
}

// tokenize splits text into lowercased alphanumeric runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
