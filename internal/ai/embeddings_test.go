package ai

import (
	"context"
	"math"
	"os"
	"testing"

	"pdf-insight-backend/internal/config"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("Normalize(3,4) = %v, want (0.6, 0.8)", v)
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Fatalf("norm = %f, want 1.0", norm)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for i, x := range v {
		if x != 0 {
			t.Fatalf("zero vector changed at %d: %f", i, x)
		}
	}
}

func TestGeminiEmbedBatch(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}
	e, err := NewGeminiEmbedder(context.Background(), cfg)
	if err != nil {
		t.Fatalf("embedder init: %v", err)
	}
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"hello world", "transfer learning"})
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != e.Dimension() {
			t.Fatalf("vector %d has %d dims, want %d", i, len(v), e.Dimension())
		}
	}
}
