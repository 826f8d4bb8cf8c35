package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrNoOverlap is returned when two time series have no common time window.
var ErrNoOverlap = errors.New("time series do not overlap")

// Series represents a time-indexed point series (e.g., a buoy record).
// Values holds one value per timestamp; NaN marks a missing observation.
type Series struct {
	Times  []time.Time
	Values []float64
}

// Validate checks internal consistency of the series.
func (s *Series) Validate() error {
	if len(s.Times) == 0 {
		return fmt.Errorf("series is empty")
	}
	if len(s.Times) != len(s.Values) {
		return fmt.Errorf("times/values length mismatch: %d vs %d", len(s.Times), len(s.Values))
	}
	for i := 1; i < len(s.Times); i++ {
		if !s.Times[i].After(s.Times[i-1]) {
			return fmt.Errorf("timestamps must be strictly increasing (index %d)", i)
		}
	}
	return nil
}

// Start returns the first timestamp of the series.
func (s *Series) Start() time.Time { return s.Times[0] }

// End returns the last timestamp of the series.
func (s *Series) End() time.Time { return s.Times[len(s.Times)-1] }

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Times) }

// OverlapWindow computes the common time window [max(starts), min(ends)]
// of two series. An empty or inverted intersection is reported as
// ErrNoOverlap rather than propagated silently as empty arrays.
func OverlapWindow(a, b *Series) (start, end time.Time, err error) {
	if err := a.Validate(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid series a: %w", err)
	}
	if err := b.Validate(); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid series b: %w", err)
	}

	start = a.Start()
	if b.Start().After(start) {
		start = b.Start()
	}
	end = a.End()
	if b.End().Before(end) {
		end = b.End()
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: [%s, %s] vs [%s, %s]",
			ErrNoOverlap,
			a.Start().Format(time.RFC3339), a.End().Format(time.RFC3339),
			b.Start().Format(time.RFC3339), b.End().Format(time.RFC3339))
	}
	return start, end, nil
}

// Window returns the subset of the series inside [start, end] (inclusive).
func (s *Series) Window(start, end time.Time) *Series {
	lo := sort.Search(len(s.Times), func(i int) bool { return !s.Times[i].Before(start) })
	hi := sort.Search(len(s.Times), func(i int) bool { return s.Times[i].After(end) })
	if lo >= hi {
		return &Series{}
	}
	return &Series{
		Times:  s.Times[lo:hi],
		Values: s.Values[lo:hi],
	}
}

// Align trims both series to their common time window. It fails with
// ErrNoOverlap when the windows do not intersect.
func Align(a, b *Series) (*Series, *Series, error) {
	start, end, err := OverlapWindow(a, b)
	if err != nil {
		return nil, nil, err
	}
	return a.Window(start, end), b.Window(start, end), nil
}

// RollingMean applies a moving average of the given window size,
// ignoring missing values. With centered=true the window is centered on
// each sample; otherwise it trails. Windows that contain no valid
// samples produce NaN.
//
// The window size is the sample-rate ratio between the smoothed series
// and the target grid (e.g., 12 for a 30-minute series matched to a
// 6-hour grid) and must be chosen by the caller.
func RollingMean(s *Series, window int, centered bool) (*Series, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}
	if window < 1 {
		return nil, fmt.Errorf("window must be >= 1, got %d", window)
	}

	n := len(s.Values)
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		lo := i - window + 1
		if centered {
			lo = i - window/2
		}
		hi := lo + window
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}

		sum := 0.0
		count := 0
		for j := lo; j < hi; j++ {
			if !math.IsNaN(s.Values[j]) {
				sum += s.Values[j]
				count++
			}
		}
		if count == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(count)
		}
	}

	return &Series{Times: s.Times, Values: out}, nil
}

// ResampleMethod selects how samples are mapped onto target timestamps.
type ResampleMethod int

const (
	// ResampleNearest picks the closest-in-time sample.
	ResampleNearest ResampleMethod = iota
	// ResampleLinear linearly interpolates between bracketing samples.
	ResampleLinear
)

// Name returns the method name.
func (m ResampleMethod) Name() string {
	switch m {
	case ResampleLinear:
		return "linear"
	default:
		return "nearest"
	}
}

// ParseResampleMethod maps a method name to its enum value.
func ParseResampleMethod(name string) (ResampleMethod, error) {
	switch name {
	case "", "nearest":
		return ResampleNearest, nil
	case "linear":
		return ResampleLinear, nil
	default:
		return 0, fmt.Errorf("unknown resample method %q (use nearest or linear)", name)
	}
}

// Resample maps the series onto the given target timestamps. Targets
// farther than tolerance from any source sample become NaN; a zero or
// negative tolerance disables the distance check. Targets must be
// strictly increasing.
func Resample(s *Series, targets []time.Time, method ResampleMethod, tolerance time.Duration) (*Series, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no target timestamps")
	}
	for i := 1; i < len(targets); i++ {
		if !targets[i].After(targets[i-1]) {
			return nil, fmt.Errorf("target timestamps must be strictly increasing (index %d)", i)
		}
	}

	out := make([]float64, len(targets))
	for i, t := range targets {
		switch method {
		case ResampleLinear:
			out[i] = interpLinear(s, t, tolerance)
		default:
			out[i] = pickNearest(s, t, tolerance)
		}
	}

	return &Series{Times: targets, Values: out}, nil
}

// pickNearest returns the sample value closest in time to t, or NaN when
// the closest sample is farther than tolerance.
func pickNearest(s *Series, t time.Time, tolerance time.Duration) float64 {
	idx := sort.Search(len(s.Times), func(i int) bool { return !s.Times[i].Before(t) })

	best := -1
	var bestDist time.Duration
	for _, j := range []int{idx - 1, idx} {
		if j < 0 || j >= len(s.Times) {
			continue
		}
		d := absDuration(t.Sub(s.Times[j]))
		if best == -1 || d < bestDist {
			best = j
			bestDist = d
		}
	}
	if best == -1 {
		return math.NaN()
	}
	if tolerance > 0 && bestDist > tolerance {
		return math.NaN()
	}
	return s.Values[best]
}

// interpLinear linearly interpolates the series at t. Outside the series
// range, or when a bracketing sample is farther than tolerance, the
// result is NaN.
func interpLinear(s *Series, t time.Time, tolerance time.Duration) float64 {
	idx := sort.Search(len(s.Times), func(i int) bool { return !s.Times[i].Before(t) })
	if idx < len(s.Times) && s.Times[idx].Equal(t) {
		return s.Values[idx]
	}
	if idx == 0 || idx == len(s.Times) {
		return math.NaN()
	}

	t0, t1 := s.Times[idx-1], s.Times[idx]
	if tolerance > 0 && (t.Sub(t0) > tolerance || t1.Sub(t) > tolerance) {
		return math.NaN()
	}
	v0, v1 := s.Values[idx-1], s.Values[idx]
	if math.IsNaN(v0) || math.IsNaN(v1) {
		return math.NaN()
	}

	frac := t.Sub(t0).Seconds() / t1.Sub(t0).Seconds()
	return v0 + frac*(v1-v0)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
