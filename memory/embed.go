package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimensions is the vector size produced by NewHashEmbedder(0).
const DefaultDimensions = 128

// HashEmbedder maps text to a fixed-size vector by feature hashing its
// lowercase word tokens. Vectors are L2-normalized, so the dot product of two
// embeddings is their cosine similarity. No remote service is involved.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates an embedder with dims dimensions (DefaultDimensions if <= 0).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Tokenize splits text into lowercase alphanumeric tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Embed implements a chromem-compatible embedding function.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		// zero vectors cannot be normalized
		vec[0] = 1
		return vec, nil
	}
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[int(sum%uint32(e.dims))] += sign
	}
	normalize(vec)
	return vec, nil
}

func normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
}

// Cosine returns the cosine similarity of two normalized vectors.
func Cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
