package embedding

import (
	"encoding/binary"
	"math"

	"github.com/go-crypt/x/blake2b"
)

// Normalize forces v to exactly dims elements: truncate if longer,
// zero-pad if shorter. This is a lossy compatibility shim for vendors
// whose models disagree with the store's configured dimension, not a
// semantic operation; callers log it distinctly from real embeddings.
func Normalize(v []float32, dims int) []float32 {
	if dims <= 0 || len(v) == dims {
		return v
	}

	out := make([]float32, dims)
	copy(out, v)
	return out
}

// UnitNorm normalizes a vector to unit length so cosine similarity
// reduces to a dot product. Returns a new vector; a zero vector stays
// a zero vector.
func UnitNorm(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// Dot returns the dot product of two equal-dimension vectors.
// Extra elements of the longer vector are ignored.
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// placeholderVector derives a deterministic pseudo-embedding from the
// text via BLAKE2b, for degraded mode when every provider is down.
// Identical text always yields the identical placeholder, so repeated
// degraded ingests stay stable.
func placeholderVector(text string, dims int) []float32 {
	out := make([]float32, dims)

	var block [8]byte
	for i := 0; i < dims; i += 16 {
		binary.LittleEndian.PutUint64(block[:], uint64(i))

		h, _ := blake2b.New(64, nil)
		h.Write([]byte(text))
		h.Write(block[:])
		sum := h.Sum(nil)

		for j := 0; j < 16 && i+j < dims; j++ {
			u := binary.LittleEndian.Uint32(sum[j*4 : j*4+4])
			// Map to [-1, 1].
			out[i+j] = float32(float64(u)/float64(math.MaxUint32)*2 - 1)
		}
	}

	return UnitNorm(out)
}
