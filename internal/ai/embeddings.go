package ai

import (
	"context"
	"math"
)

// Embedder maps batches of text to fixed-dimension, unit-normalized vectors.
// The index treats it as a pure batchable capability: no caching, no retries
// beyond what the implementation's breaker allows.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Normalize scales a vector to unit length in place and returns it. Zero
// vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
