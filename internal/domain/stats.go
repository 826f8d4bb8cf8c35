package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// PairedStats summarizes the agreement between two series sampled on a
// common timestamp grid.
type PairedStats struct {
	N           int     `json:"n"`
	MeanA       float64 `json:"mean_a"`
	MeanB       float64 `json:"mean_b"`
	Bias        float64 `json:"bias"` // mean(a - b)
	RMSE        float64 `json:"rmse"` // around the bias
	Correlation float64 `json:"correlation"`
}

// ComputePairedStats compares two series over their shared timestamps,
// skipping pairs where either side is missing. The series must already
// be on the same timestamp grid (see Align and Resample).
func ComputePairedStats(a, b *Series) (*PairedStats, error) {
	if len(a.Times) != len(b.Times) {
		return nil, fmt.Errorf("series are not on a common grid: %d vs %d samples", len(a.Times), len(b.Times))
	}
	for i := range a.Times {
		if !a.Times[i].Equal(b.Times[i]) {
			return nil, fmt.Errorf("series timestamps diverge at index %d", i)
		}
	}

	var av, bv, diffs []float64
	for i := range a.Values {
		if math.IsNaN(a.Values[i]) || math.IsNaN(b.Values[i]) {
			continue
		}
		av = append(av, a.Values[i])
		bv = append(bv, b.Values[i])
		diffs = append(diffs, a.Values[i]-b.Values[i])
	}
	if len(av) == 0 {
		return nil, fmt.Errorf("no valid sample pairs")
	}

	bias := stat.Mean(diffs, nil)
	sse := 0.0
	for _, d := range diffs {
		dd := d - bias
		sse += dd * dd
	}

	corr := stat.Correlation(av, bv, nil)
	if math.IsNaN(corr) {
		// Constant series have undefined correlation; report zero so
		// the result stays JSON-encodable.
		corr = 0
	}

	return &PairedStats{
		N:           len(av),
		MeanA:       stat.Mean(av, nil),
		MeanB:       stat.Mean(bv, nil),
		Bias:        bias,
		RMSE:        math.Sqrt(sse / float64(len(diffs))),
		Correlation: corr,
	}, nil
}
