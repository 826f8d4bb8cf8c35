package domain

import (
	"fmt"
	"math"
	"sort"

	"go.ccmp.io/winds-api/internal/compute"
)

// HistogramField holds per-cell bin fractions: for every grid cell, the
// fraction of time samples whose value fell in each bin. Fractions are
// stored in [bin][lat][lon] order and sum to 1 per cell, or are all NaN
// for cells with no observations.
type HistogramField struct {
	Bins []float64 // Bin edges, length NumBins()+1.
	Lats []float64
	Lons []float64
	Data []float64
}

// NumBins returns the number of histogram bins.
func (h *HistogramField) NumBins() int { return len(h.Bins) - 1 }

// At returns the fraction for bin b at latitude index j, longitude index i.
func (h *HistogramField) At(b, j, i int) float64 {
	return h.Data[(b*len(h.Lats)+j)*len(h.Lons)+i]
}

// BinFractions computes the fraction of samples within each value bin
// per grid cell over the cube's time extent. Edges must be strictly
// increasing; a sample lands in bin b when edges[b] <= v < edges[b+1],
// with the last bin closed on the right. Samples outside all bins are
// ignored, NaN samples do not count as observations.
func BinFractions(ec *compute.Context, c *Cube, edges []float64) (*HistogramField, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cube: %w", err)
	}
	if len(edges) < 2 {
		return nil, fmt.Errorf("need at least 2 bin edges, got %d", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return nil, fmt.Errorf("bin edges must be strictly increasing")
		}
	}

	nBins := len(edges) - 1
	cells := c.NumCells()
	out := &HistogramField{
		Bins: edges,
		Lats: c.Lats,
		Lons: c.Lons,
		Data: make([]float64, nBins*cells),
	}

	err := forEachCell(ec, cells, func(cell int) error {
		counts := make([]float64, nBins)
		total := 0.0
		for t := 0; t < len(c.Times); t++ {
			v := c.Data[t*cells+cell]
			if math.IsNaN(v) {
				continue
			}
			b := binIndex(edges, v)
			if b < 0 {
				continue
			}
			counts[b]++
			total++
		}
		for b := 0; b < nBins; b++ {
			idx := b*cells + cell
			if total == 0 {
				out.Data[idx] = math.NaN()
			} else {
				out.Data[idx] = counts[b] / total
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// binIndex places v into a bin, returning -1 when v is outside all
// edges. The last bin includes its right edge.
func binIndex(edges []float64, v float64) int {
	if v < edges[0] || v > edges[len(edges)-1] {
		return -1
	}
	if v == edges[len(edges)-1] {
		return len(edges) - 2
	}
	// SearchFloat64s returns the first edge >= v. When v sits exactly on
	// an edge it opens that bin, otherwise it falls in the bin before.
	i := sort.SearchFloat64s(edges, v)
	if i < len(edges) && edges[i] == v {
		return i
	}
	return i - 1
}

// Masked returns a copy of the histogram with non-qualifying cells
// replaced by NaN, for re-masking bin fractions by an ocean mask before
// reporting spatial statistics. Only static masks apply.
func (h *HistogramField) Masked(m *Mask) (*HistogramField, error) {
	if m.Times != nil {
		return nil, fmt.Errorf("histogram re-masking requires a static mask, got %s", m.Policy)
	}
	if len(m.Lats) != len(h.Lats) || len(m.Lons) != len(h.Lons) {
		return nil, fmt.Errorf("mask grid %dx%d does not match histogram grid %dx%d",
			len(m.Lats), len(m.Lons), len(h.Lats), len(h.Lons))
	}

	cells := len(h.Lats) * len(h.Lons)
	out := &HistogramField{Bins: h.Bins, Lats: h.Lats, Lons: h.Lons, Data: make([]float64, len(h.Data))}
	for b := 0; b < h.NumBins(); b++ {
		for cell := 0; cell < cells; cell++ {
			idx := b*cells + cell
			if m.Valid[cell] {
				out.Data[idx] = h.Data[idx]
			} else {
				out.Data[idx] = math.NaN()
			}
		}
	}
	return out, nil
}
