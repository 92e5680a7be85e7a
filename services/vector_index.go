package services

import (
	"fmt"
	"sort"
)

// VectorHit is one (slot, score) pair returned from a similarity query. The
// slot is the vector's append position and maps one-to-one onto the metadata
// table row at the same index.
type VectorHit struct {
	Slot  int
	Score float64
}

// VectorIndex is a flat in-memory nearest-neighbor structure over
// unit-normalized float32 vectors, ranked by inner product (equal to cosine
// similarity on normalized input). It has no stable logical key, only
// positional slots; deleting anything means rebuilding from the survivors.
//
// VectorIndex is not safe for concurrent use on its own. SemanticIndex guards
// it together with the metadata table under a single lock so that slots and
// rows never diverge.
type VectorIndex struct {
	dim     int
	vectors [][]float32
}

// NewVectorIndex creates an empty index for vectors of the given dimension.
func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim}
}

// Dimension returns the configured vector dimension.
func (vi *VectorIndex) Dimension() int { return vi.dim }

// Len returns the number of stored vectors.
func (vi *VectorIndex) Len() int { return len(vi.vectors) }

// Vectors exposes the stored vectors in slot order for persistence. The
// returned slice must be treated as read-only.
func (vi *VectorIndex) Vectors() [][]float32 { return vi.vectors }

// Add appends vectors, preserving order. All vectors must match the index
// dimension; nothing is added when any of them does not.
func (vi *VectorIndex) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != vi.dim {
			return fmt.Errorf("%w: vector %d has %d dims, index has %d", ErrDimensionMismatch, i, len(v), vi.dim)
		}
	}
	vi.vectors = append(vi.vectors, vectors...)
	return nil
}

// Rebuild replaces the index contents wholesale. Used after document
// deletion, when surviving sections' retained embeddings are re-added.
func (vi *VectorIndex) Rebuild(vectors [][]float32) error {
	vi.vectors = nil
	return vi.Add(vectors)
}

// Search returns up to k slots ranked by inner product with the query
// vector, highest first. k larger than the index is clamped; an empty index
// yields an empty result. Ties keep insertion order so identical inputs
// produce identical rankings.
func (vi *VectorIndex) Search(query []float32, k int) ([]VectorHit, error) {
	if len(query) != vi.dim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", ErrDimensionMismatch, len(query), vi.dim)
	}
	if k <= 0 || len(vi.vectors) == 0 {
		return nil, nil
	}
	if k > len(vi.vectors) {
		k = len(vi.vectors)
	}

	hits := make([]VectorHit, len(vi.vectors))
	for i, v := range vi.vectors {
		hits[i] = VectorHit{Slot: i, Score: innerProduct(query, v)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits[:k], nil
}

func innerProduct(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
