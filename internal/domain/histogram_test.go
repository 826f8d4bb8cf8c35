package domain

import (
	"math"
	"testing"
	"time"
)

// TestBinFractions tests per-cell fractions against hand-counted samples
func TestBinFractions(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 4), []float64{0, 1}, []float64{10, 11})

	// Cell (0,0): speeds 1, 1, 3, 5 against edges {0, 2, 4, 6}
	// -> bins hold 2, 1 and 1 samples.
	speeds := []float64{1, 1, 3, 5}
	for ti, v := range speeds {
		c.Set(ti, 0, 0, v)
	}
	// Cell (0,1): one valid sample and three missing.
	c.Set(0, 0, 1, 2.5)

	h, err := BinFractions(nil, c, []float64{0, 2, 4, 6})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if h.NumBins() != 3 {
		t.Fatalf("Expected 3 bins, got %d", h.NumBins())
	}

	expected := []float64{0.5, 0.25, 0.25}
	for b, want := range expected {
		if got := h.At(b, 0, 0); math.Abs(got-want) > 1e-9 {
			t.Errorf("Bin %d cell (0,0): expected %.2f, got %.2f", b, want, got)
		}
	}

	// The single-sample cell puts all weight in the middle bin.
	if got := h.At(1, 0, 1); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Bin 1 cell (0,1): expected 1.0, got %.2f", got)
	}
}

// TestBinFractions_SumToOne tests that per-cell fractions sum to 1 for
// observed cells and are all NaN for unobserved ones.
func TestBinFractions_SumToOne(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 12), []float64{0, 1, 2}, []float64{10, 11, 12})

	// Pseudo-random but deterministic speeds; cell (2,2) stays NaN.
	for ti := 0; ti < 12; ti++ {
		for j := 0; j < 3; j++ {
			for i := 0; i < 3; i++ {
				if j == 2 && i == 2 {
					continue
				}
				c.Set(ti, j, i, math.Mod(float64(ti*7+j*3+i), 11.0))
			}
		}
	}

	edges := []float64{0, 2, 5, 11}
	h, err := BinFractions(nil, c, edges)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			sum := 0.0
			nanBins := 0
			for b := 0; b < h.NumBins(); b++ {
				v := h.At(b, j, i)
				if math.IsNaN(v) {
					nanBins++
					continue
				}
				sum += v
			}
			if j == 2 && i == 2 {
				if nanBins != h.NumBins() {
					t.Errorf("Unobserved cell (%d,%d): expected all-NaN bins, got %d NaN", j, i, nanBins)
				}
				continue
			}
			if nanBins != 0 {
				t.Errorf("Cell (%d,%d): unexpected NaN bins", j, i)
			}
			if math.Abs(sum-1.0) > 1e-9 {
				t.Errorf("Cell (%d,%d): fractions sum to %.6f, expected 1", j, i, sum)
			}
		}
	}
}

// TestBinIndex tests edge placement
func TestBinIndex(t *testing.T) {
	edges := []float64{0, 2, 1000}

	tests := []struct {
		v        float64
		expected int
		name     string
	}{
		{-0.5, -1, "below all bins"},
		{0, 0, "left edge of first bin"},
		{1.9, 0, "inside first bin"},
		{2, 1, "interior edge opens its bin"},
		{999, 1, "inside last bin"},
		{1000, 1, "right edge of last bin is closed"},
		{1000.5, -1, "above all bins"},
	}

	for _, tt := range tests {
		if got := binIndex(edges, tt.v); got != tt.expected {
			t.Errorf("%s: binIndex(%.1f) = %d, expected %d", tt.name, tt.v, got, tt.expected)
		}
	}
}

// TestBinFractions_InvalidEdges tests edge validation
func TestBinFractions_InvalidEdges(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 1), []float64{0, 1}, []float64{10, 11})

	for _, edges := range [][]float64{{1}, {}, {0, 0}, {2, 1}} {
		if _, err := BinFractions(nil, c, edges); err == nil {
			t.Errorf("Expected error for edges %v, got nil", edges)
		}
	}
}

// TestHistogramField_Masked tests re-masking of bin fractions
func TestHistogramField_Masked(t *testing.T) {
	h := &HistogramField{
		Bins: []float64{0, 2, 1000},
		Lats: []float64{0, 1},
		Lons: []float64{10, 11},
		Data: []float64{0.25, 0.5, 0.75, 1.0, 0.75, 0.5, 0.25, 0.0},
	}

	mask := &Mask{
		Policy: MaskLand,
		Lats:   []float64{0, 1},
		Lons:   []float64{10, 11},
		Valid:  []bool{true, false, true, true},
	}

	masked, err := h.Masked(mask)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Cell 1 is invalid in every bin, others keep their fractions.
	for b := 0; b < 2; b++ {
		if !math.IsNaN(masked.Data[b*4+1]) {
			t.Errorf("Bin %d cell 1: expected NaN, got %.2f", b, masked.Data[b*4+1])
		}
		if masked.Data[b*4] != h.Data[b*4] {
			t.Errorf("Bin %d cell 0 changed: %.2f vs %.2f", b, masked.Data[b*4], h.Data[b*4])
		}
	}

	// A time-varying mask must be rejected.
	timeVarying := &Mask{
		Policy: MaskDaily,
		Times:  sixHourly(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), 2),
		Lats:   mask.Lats,
		Lons:   mask.Lons,
		Valid:  make([]bool, 8),
	}
	if _, err := h.Masked(timeVarying); err == nil {
		t.Error("Expected error for time-varying mask, got nil")
	}
}
