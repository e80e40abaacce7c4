package vector

import (
	"errors"
	"math"
	"testing"
)

func TestStore_AddFixesDimension(t *testing.T) {
	s := NewStore()
	if err := s.Add([]float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if s.Dimension() != 3 {
		t.Errorf("Dimension=%d, want 3", s.Dimension())
	}
	err := s.Add([]float32{1, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len=%d after rejected insert, want 1", s.Len())
	}
}

func TestStore_AddEmptyVector(t *testing.T) {
	s := NewStore()
	if err := s.Add(nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty vector, got %v", err)
	}
}

func TestStore_SearchRanking(t *testing.T) {
	s := NewStore()
	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.43589, 0}, // unit norm, close to the first
		{0, 1, 0},
	}
	for _, v := range vecs {
		if err := s.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	results, err := s.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 0 {
		t.Errorf("top result index = %d, want 0", results[0].Index)
	}
	if results[1].Index != 1 {
		t.Errorf("second result index = %d, want 1", results[1].Index)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by descending score")
	}
}

func TestStore_SearchTieBreaksByIndex(t *testing.T) {
	s := NewStore()
	// Two identical vectors tie exactly; ascending index decides.
	for i := 0; i < 3; i++ {
		if err := s.Add([]float32{0, 1}); err != nil {
			t.Fatal(err)
		}
	}
	results, err := s.Search([]float32{0, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d: index %d, want %d", i, r.Index, i)
		}
	}
}

func TestStore_SearchKLargerThanStore(t *testing.T) {
	s := NewStore()
	_ = s.Add([]float32{1, 0})
	_ = s.Add([]float32{0, 1})
	results, err := s.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected all 2 results for k=3, got %d", len(results))
	}
}

func TestStore_SearchEmpty(t *testing.T) {
	s := NewStore()
	if _, err := s.Search([]float32{1}, 1); !errors.Is(err, ErrEmptyStore) {
		t.Errorf("expected ErrEmptyStore, got %v", err)
	}
}

func TestStore_SearchDimensionMismatch(t *testing.T) {
	s := NewStore()
	_ = s.Add([]float32{1, 0, 0})
	if _, err := s.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	if err := Normalize(v); err != nil {
		t.Fatal(err)
	}
	if norm := L2Norm(v); math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("norm after Normalize = %f, want 1", norm)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v, want [0.6 0.8]", v)
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	if err := Normalize([]float32{0, 0, 0}); !errors.Is(err, ErrDegenerateVector) {
		t.Errorf("expected ErrDegenerateVector, got %v", err)
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("identical unit vectors: got %f, want 1", got)
	}
	if got := InnerProduct([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %f, want 0", got)
	}
	if got := InnerProduct([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("length mismatch: got %f, want 0", got)
	}
}
