package domain

import (
	"fmt"
	"math"
	"time"

	"go.ccmp.io/winds-api/internal/compute"
)

// MaskPolicy selects how an ocean/land/ice mask is derived from the
// observation-count field. The set of policies is closed; each case is
// handled explicitly and independently testable.
type MaskPolicy int

const (
	// MaskDaily thresholds a ~30-day rolling max of observation counts,
	// producing a slowly varying land/ice mask at native time resolution.
	MaskDaily MaskPolicy = iota
	// MaskLand thresholds the all-time observation-count sum, producing
	// one static land mask (permanently ice-covered ocean stays valid).
	MaskLand
	// MaskClimatology coarsens, binarizes and accumulates observation
	// counts, then thresholds against a cutoff derived from an ice-free
	// reference region.
	MaskClimatology
)

// String returns the policy name.
func (p MaskPolicy) String() string {
	switch p {
	case MaskDaily:
		return "daily"
	case MaskLand:
		return "land"
	case MaskClimatology:
		return "climatology"
	default:
		return fmt.Sprintf("MaskPolicy(%d)", int(p))
	}
}

// ParseMaskPolicy maps a policy name to its enum value.
func ParseMaskPolicy(name string) (MaskPolicy, error) {
	switch name {
	case "daily":
		return MaskDaily, nil
	case "land":
		return MaskLand, nil
	case "climatology":
		return MaskClimatology, nil
	default:
		return 0, fmt.Errorf("unknown mask policy %q (use daily, land or climatology)", name)
	}
}

// Region is an inclusive geographic box with longitudes in [0, 360).
type Region struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// MaskOptions parameterizes mask construction. Zero-valued fields take
// the defaults from DefaultMaskOptions.
type MaskOptions struct {
	// SamplesPerDay is the time resolution of the observation-count
	// cube (4 for the 6-hourly CCMP product).
	SamplesPerDay int
	// WindowDays sizes the rolling-max window of the daily policy.
	WindowDays int
	// CoarsenStep subsamples the time axis for the climatology policy.
	CoarsenStep int
	// RollingWindow is the rolling-max window (in coarsened steps) of
	// the climatology policy.
	RollingWindow int
	// Reference is the ice-free region the climatology cutoff is
	// derived from.
	Reference Region
	// SafetyMargin shrinks the climatology cutoff below the reference
	// minimum (0.2 means 20% below). Zero takes the default; a negative
	// value requests no margin at all.
	SafetyMargin float64
}

// DefaultMaskOptions returns options tuned for the 6-hourly CCMP grid:
// a 30-day rolling window, daily coarsening, and a mid-Pacific
// reference box that never ices over.
func DefaultMaskOptions() MaskOptions {
	return MaskOptions{
		SamplesPerDay: 4,
		WindowDays:    30,
		CoarsenStep:   4,
		RollingWindow: 30,
		Reference:     Region{LatMin: -30, LatMax: -20, LonMin: 190, LonMax: 200},
		SafetyMargin:  0.2,
	}
}

func (o MaskOptions) withDefaults() MaskOptions {
	def := DefaultMaskOptions()
	if o.SamplesPerDay <= 0 {
		o.SamplesPerDay = def.SamplesPerDay
	}
	if o.WindowDays <= 0 {
		o.WindowDays = def.WindowDays
	}
	if o.CoarsenStep <= 0 {
		o.CoarsenStep = def.CoarsenStep
	}
	if o.RollingWindow <= 0 {
		o.RollingWindow = def.RollingWindow
	}
	if o.Reference == (Region{}) {
		o.Reference = def.Reference
	}
	if o.SafetyMargin == 0 {
		o.SafetyMargin = def.SafetyMargin
	} else if o.SafetyMargin < 0 {
		o.SafetyMargin = 0
	}
	return o
}

// Mask is a boolean validity grid. A nil Times axis means the mask is
// static; otherwise it varies along time and Valid is stored in
// [time][lat][lon] order like a cube.
type Mask struct {
	Policy MaskPolicy
	Times  []time.Time
	Lats   []float64
	Lons   []float64
	Valid  []bool
	// Cutoff is the threshold the mask was built with (observation sum
	// for climatology, zero otherwise).
	Cutoff float64
}

// ValidFraction returns the fraction of mask entries that are valid.
func (m *Mask) ValidFraction() float64 {
	if len(m.Valid) == 0 {
		return 0
	}
	n := 0
	for _, v := range m.Valid {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(m.Valid))
}

// BuildMask derives a validity mask from an observation-count cube
// under the given policy and returns the masked cube alongside it.
func BuildMask(ec *compute.Context, nobs *Cube, policy MaskPolicy, opts MaskOptions) (*Cube, *Mask, error) {
	if err := nobs.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid observation-count cube: %w", err)
	}
	opts = opts.withDefaults()

	var mask *Mask
	var err error
	switch policy {
	case MaskDaily:
		mask, err = buildDailyMask(ec, nobs, opts)
	case MaskLand:
		mask, err = buildLandMask(ec, nobs)
	case MaskClimatology:
		mask, err = buildClimatologyMask(ec, nobs, opts)
	default:
		return nil, nil, fmt.Errorf("unknown mask policy %v", policy)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("building %s mask: %w", policy, err)
	}

	masked, err := ApplyMask(nobs, mask)
	if err != nil {
		return nil, nil, err
	}
	return masked, mask, nil
}

// buildDailyMask thresholds a rolling max of observation counts over a
// window of WindowDays, keeping the native time resolution.
func buildDailyMask(ec *compute.Context, nobs *Cube, opts MaskOptions) (*Mask, error) {
	window := opts.SamplesPerDay * opts.WindowDays
	rolled, err := nobs.RollingMaxTime(ec, window)
	if err != nil {
		return nil, err
	}

	valid := make([]bool, len(rolled.Data))
	for i, v := range rolled.Data {
		valid[i] = v > 0
	}
	return &Mask{
		Policy: MaskDaily,
		Times:  nobs.Times,
		Lats:   nobs.Lats,
		Lons:   nobs.Lons,
		Valid:  valid,
	}, nil
}

// buildLandMask thresholds the per-cell observation-count sum over the
// entire time axis, producing one static mask.
func buildLandMask(ec *compute.Context, nobs *Cube) (*Mask, error) {
	sum, err := nobs.SumOverTime(ec)
	if err != nil {
		return nil, err
	}

	valid := make([]bool, len(sum.Values))
	for i, v := range sum.Values {
		valid[i] = v > 0
	}
	return &Mask{
		Policy: MaskLand,
		Lats:   nobs.Lats,
		Lons:   nobs.Lons,
		Valid:  valid,
	}, nil
}

// buildClimatologyMask coarsens and binarizes the observation counts,
// accumulates a rolling max over time, and thresholds the resulting sum
// against a cutoff taken from an ice-free reference region minus a
// safety margin. The reference statistic must be computed on the
// unmasked sum before the final comparison; the cutoff depends on it.
func buildClimatologyMask(ec *compute.Context, nobs *Cube, opts MaskOptions) (*Mask, error) {
	coarse, err := nobs.Coarsen(opts.CoarsenStep)
	if err != nil {
		return nil, err
	}

	rolled, err := coarse.Binarize().RollingMaxTime(ec, opts.RollingWindow)
	if err != nil {
		return nil, err
	}

	sum, err := rolled.SumOverTime(ec)
	if err != nil {
		return nil, err
	}

	ref := opts.Reference
	refMin, err := sum.RegionMin(ref.LatMin, ref.LatMax, ref.LonMin, ref.LonMax)
	if err != nil {
		return nil, err
	}
	cutoff := refMin * (1 - opts.SafetyMargin)

	return thresholdMask(sum, cutoff), nil
}

// thresholdMask builds a static mask keeping cells whose value meets
// the cutoff. Raising the cutoff can only remove valid cells.
func thresholdMask(f *Field2D, cutoff float64) *Mask {
	valid := make([]bool, len(f.Values))
	for i, v := range f.Values {
		valid[i] = !math.IsNaN(v) && v >= cutoff
	}
	return &Mask{
		Policy: MaskClimatology,
		Lats:   f.Lats,
		Lons:   f.Lons,
		Valid:  valid,
		Cutoff: cutoff,
	}
}

// ApplyMask replaces values in non-qualifying grid cells with NaN. The
// cube shape is preserved; nothing is deleted. Static masks broadcast
// over the time axis, time-varying masks must match the cube's times.
func ApplyMask(c *Cube, m *Mask) (*Cube, error) {
	if len(m.Lats) != len(c.Lats) || len(m.Lons) != len(c.Lons) {
		return nil, fmt.Errorf("mask grid %dx%d does not match cube grid %dx%d",
			len(m.Lats), len(m.Lons), len(c.Lats), len(c.Lons))
	}
	cells := c.NumCells()

	static := m.Times == nil
	if !static {
		if len(m.Times) != len(c.Times) {
			return nil, fmt.Errorf("mask has %d time steps, cube has %d", len(m.Times), len(c.Times))
		}
		for i := range m.Times {
			if !m.Times[i].Equal(c.Times[i]) {
				return nil, fmt.Errorf("mask time axis diverges from cube at index %d", i)
			}
		}
	}

	out := &Cube{Times: c.Times, Lats: c.Lats, Lons: c.Lons, Data: make([]float64, len(c.Data))}
	for t := 0; t < len(c.Times); t++ {
		for cell := 0; cell < cells; cell++ {
			idx := t*cells + cell
			ok := m.Valid[cell]
			if !static {
				ok = m.Valid[idx]
			}
			if ok {
				out.Data[idx] = c.Data[idx]
			} else {
				out.Data[idx] = math.NaN()
			}
		}
	}
	return out, nil
}
