package domain

import (
	"math"
	"testing"
	"time"
)

// nobsCube builds an observation-count cube over a 3x3 grid: the ocean
// column (lon index 0) always reports, the land column (lon index 2)
// never does, and the seasonal column (lon index 1) reports only during
// the first half of the record.
func nobsCube(steps int) *Cube {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, steps), []float64{-25, 0, 25}, []float64{195, 210, 225})
	for ti := 0; ti < steps; ti++ {
		for j := 0; j < 3; j++ {
			c.Set(ti, j, 0, 4)
			c.Set(ti, j, 2, 0)
			if ti < steps/2 {
				c.Set(ti, j, 1, 2)
			} else {
				c.Set(ti, j, 1, 0)
			}
		}
	}
	return c
}

// TestParseMaskPolicy tests policy name parsing
func TestParseMaskPolicy(t *testing.T) {
	tests := []struct {
		name     string
		expected MaskPolicy
		wantErr  bool
	}{
		{"daily", MaskDaily, false},
		{"land", MaskLand, false},
		{"climatology", MaskClimatology, false},
		{"ice", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMaskPolicy(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMaskPolicy(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.expected {
			t.Errorf("ParseMaskPolicy(%q) = %v, expected %v", tt.name, got, tt.expected)
		}
		if err == nil && got.String() != tt.name {
			t.Errorf("Round trip: %v.String() = %q, expected %q", got, got.String(), tt.name)
		}
	}
}

// TestBuildMask_Land tests the static all-time policy
func TestBuildMask_Land(t *testing.T) {
	nobs := nobsCube(8)

	masked, mask, err := BuildMask(nil, nobs, MaskLand, MaskOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if mask.Times != nil {
		t.Error("Land mask must be static")
	}
	// Ocean and seasonal columns have nonzero sums, the land column none.
	for j := 0; j < 3; j++ {
		if !mask.Valid[j*3+0] {
			t.Errorf("Ocean cell (%d,0) should be valid", j)
		}
		if !mask.Valid[j*3+1] {
			t.Errorf("Seasonal cell (%d,1) should be valid under the land policy", j)
		}
		if mask.Valid[j*3+2] {
			t.Errorf("Land cell (%d,2) should be invalid", j)
		}
	}

	// The masked cube keeps its shape; land cells become NaN.
	if len(masked.Data) != len(nobs.Data) {
		t.Fatalf("Masked cube changed shape: %d vs %d", len(masked.Data), len(nobs.Data))
	}
	if !math.IsNaN(masked.At(0, 0, 2)) {
		t.Error("Land cell should be NaN after masking")
	}
	if masked.At(0, 0, 0) != 4 {
		t.Errorf("Ocean cell should keep its value, got %.1f", masked.At(0, 0, 0))
	}
}

// TestBuildMask_Daily tests the rolling-max policy at native resolution
func TestBuildMask_Daily(t *testing.T) {
	nobs := nobsCube(16)

	// A one-day window (4 samples) so the seasonal column drops out once
	// its counts have been zero for a full day.
	opts := MaskOptions{SamplesPerDay: 4, WindowDays: 1}
	_, mask, err := BuildMask(nil, nobs, MaskDaily, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(mask.Times) != 16 {
		t.Fatalf("Daily mask must keep native time resolution, got %d steps", len(mask.Times))
	}
	cells := nobs.NumCells()

	// Early in the record the seasonal column is reporting.
	if !mask.Valid[0*cells+1] {
		t.Error("Seasonal cell should be valid at step 0")
	}
	// By the last step the rolling window holds only zeros.
	if mask.Valid[15*cells+1] {
		t.Error("Seasonal cell should be invalid at step 15")
	}
	// The ocean column stays valid, land never qualifies.
	if !mask.Valid[15*cells+0] {
		t.Error("Ocean cell should stay valid")
	}
	if mask.Valid[15*cells+2] {
		t.Error("Land cell should never be valid")
	}
}

// TestBuildMask_Climatology tests the reference-region cutoff policy
func TestBuildMask_Climatology(t *testing.T) {
	nobs := nobsCube(16)

	opts := MaskOptions{
		SamplesPerDay: 4,
		CoarsenStep:   4,
		RollingWindow: 2,
		Reference:     Region{LatMin: -30, LatMax: -20, LonMin: 190, LonMax: 200},
		SafetyMargin:  0.2,
	}
	_, mask, err := BuildMask(nil, nobs, MaskClimatology, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if mask.Times != nil {
		t.Error("Climatology mask must be static")
	}
	if mask.Cutoff <= 0 {
		t.Errorf("Cutoff must derive from the reference region, got %.2f", mask.Cutoff)
	}

	// The reference cell itself always qualifies: the cutoff sits below
	// its own accumulated presence by the safety margin.
	if !mask.Valid[0*3+0] {
		t.Error("Reference-region cell should be valid")
	}
	if mask.Valid[0*3+2] {
		t.Error("Land cell should be invalid")
	}
}

// TestThresholdMask_Monotonic tests that raising the cutoff only removes
// valid cells, never adds them.
func TestThresholdMask_Monotonic(t *testing.T) {
	f := &Field2D{
		Lats:   []float64{0, 1},
		Lons:   []float64{10, 11},
		Values: []float64{1, 2, 3, math.NaN()},
	}

	prev := thresholdMask(f, 0)
	for _, cutoff := range []float64{1, 2, 2.5, 3, 4} {
		next := thresholdMask(f, cutoff)
		for i := range next.Valid {
			if next.Valid[i] && !prev.Valid[i] {
				t.Errorf("Cutoff %.1f: cell %d became valid after being invalid", cutoff, i)
			}
		}
		if next.ValidFraction() > prev.ValidFraction() {
			t.Errorf("Cutoff %.1f: valid fraction grew from %.2f to %.2f",
				cutoff, prev.ValidFraction(), next.ValidFraction())
		}
		prev = next
	}
}

// TestApplyMask_TimeVarying tests time axis checks and NaN substitution
func TestApplyMask_TimeVarying(t *testing.T) {
	nobs := nobsCube(4)
	cells := nobs.NumCells()

	valid := make([]bool, len(nobs.Data))
	for i := range valid {
		valid[i] = true
	}
	valid[2*cells+4] = false // Step 2, center cell.

	mask := &Mask{Policy: MaskDaily, Times: nobs.Times, Lats: nobs.Lats, Lons: nobs.Lons, Valid: valid}
	masked, err := ApplyMask(nobs, mask)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !math.IsNaN(masked.At(2, 1, 1)) {
		t.Error("Invalidated cell should be NaN")
	}
	if math.IsNaN(masked.At(1, 1, 1)) {
		t.Error("Other time steps should be untouched")
	}

	// A mask on a different time axis must be rejected.
	other := nobsCube(8)
	if _, err := ApplyMask(other, mask); err == nil {
		t.Error("Expected error for mismatched time axes, got nil")
	}
}

// TestMaskOptions_Defaults tests zero-value filling
func TestMaskOptions_Defaults(t *testing.T) {
	got := MaskOptions{}.withDefaults()
	want := DefaultMaskOptions()
	if got != want {
		t.Errorf("withDefaults() = %+v, expected %+v", got, want)
	}

	// Explicit values survive.
	custom := MaskOptions{WindowDays: 7}.withDefaults()
	if custom.WindowDays != 7 {
		t.Errorf("Explicit WindowDays overwritten: %d", custom.WindowDays)
	}
	if custom.SamplesPerDay != want.SamplesPerDay {
		t.Errorf("Unset SamplesPerDay not defaulted: %d", custom.SamplesPerDay)
	}

	// A negative safety margin requests no margin, not the default.
	none := MaskOptions{SafetyMargin: -1}.withDefaults()
	if none.SafetyMargin != 0 {
		t.Errorf("Negative SafetyMargin mapped to %.2f, expected 0", none.SafetyMargin)
	}
}

// TestBuildMask_Climatology_NoMargin tests that the cutoff sits exactly
// at the reference minimum when no safety margin is requested.
func TestBuildMask_Climatology_NoMargin(t *testing.T) {
	nobs := nobsCube(16)
	opts := MaskOptions{
		SamplesPerDay: 4,
		CoarsenStep:   4,
		RollingWindow: 2,
		Reference:     Region{LatMin: -30, LatMax: -20, LonMin: 190, LonMax: 200},
		SafetyMargin:  0.2,
	}

	_, withMargin, err := BuildMask(nil, nobs, MaskClimatology, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	opts.SafetyMargin = -1
	_, noMargin, err := BuildMask(nil, nobs, MaskClimatology, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if noMargin.Cutoff <= withMargin.Cutoff {
		t.Errorf("Cutoff without margin (%.2f) should exceed the 20%%-margin cutoff (%.2f)",
			noMargin.Cutoff, withMargin.Cutoff)
	}
	if math.Abs(noMargin.Cutoff-withMargin.Cutoff/0.8) > 1e-9 {
		t.Errorf("Cutoff without margin = %.4f, expected the bare reference minimum %.4f",
			noMargin.Cutoff, withMargin.Cutoff/0.8)
	}
}
