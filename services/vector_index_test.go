package services

import (
	"errors"
	"math"
	"testing"
)

func TestVectorIndexSearchOrdering(t *testing.T) {
	vi := NewVectorIndex(3)
	err := vi.Add([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0, 0.8, 0.6},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := vi.Search([]float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Slot != 1 {
		t.Errorf("top hit slot = %d, want 1", hits[0].Slot)
	}
	if hits[1].Slot != 3 {
		t.Errorf("second hit slot = %d, want 3", hits[1].Slot)
	}
	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Errorf("top score = %f, want 1.0", hits[0].Score)
	}
}

func TestVectorIndexSearchClampsK(t *testing.T) {
	vi := NewVectorIndex(2)
	if err := vi.Add([][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, err := vi.Search([]float32{1, 0}, 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
}

func TestVectorIndexSearchEmpty(t *testing.T) {
	vi := NewVectorIndex(4)
	hits, err := vi.Search(make([]float32, 4), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("empty index returned %d hits", len(hits))
	}
}

func TestVectorIndexDimensionMismatch(t *testing.T) {
	vi := NewVectorIndex(3)
	if err := vi.Add([][]float32{{1, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Add mismatch err = %v, want ErrDimensionMismatch", err)
	}
	if vi.Len() != 0 {
		t.Fatalf("failed Add still stored %d vectors", vi.Len())
	}
	if _, err := vi.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Search mismatch err = %v, want ErrDimensionMismatch", err)
	}
}

func TestVectorIndexAddAllOrNothing(t *testing.T) {
	vi := NewVectorIndex(2)
	err := vi.Add([][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if vi.Len() != 0 {
		t.Fatalf("partial batch stored %d vectors, want 0", vi.Len())
	}
}

func TestVectorIndexRebuild(t *testing.T) {
	vi := NewVectorIndex(2)
	if err := vi.Add([][]float32{{1, 0}, {0, 1}, {1, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := vi.Rebuild([][]float32{{0, 1}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if vi.Len() != 1 {
		t.Fatalf("after rebuild Len = %d, want 1", vi.Len())
	}
	hits, err := vi.Search([]float32{0, 1}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Slot != 0 {
		t.Fatalf("after rebuild hits = %+v, want single slot 0", hits)
	}
}
