package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

// sixHourly returns n 6-hourly timestamps from the given start.
func sixHourly(start time.Time, n int) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 6 * time.Hour)
	}
	return times
}

// TestCube_Validate tests cube axis and shape validation
func TestCube_Validate(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cube    *Cube
		wantErr bool
	}{
		{
			name:    "valid cube",
			cube:    NewCube(sixHourly(base, 2), []float64{0, 1}, []float64{10, 11}),
			wantErr: false,
		},
		{
			name:    "no time steps",
			cube:    NewCube(nil, []float64{0, 1}, []float64{10, 11}),
			wantErr: true,
		},
		{
			name:    "grid too small",
			cube:    NewCube(sixHourly(base, 2), []float64{0}, []float64{10, 11}),
			wantErr: true,
		},
		{
			name: "data shape mismatch",
			cube: &Cube{
				Times: sixHourly(base, 2),
				Lats:  []float64{0, 1},
				Lons:  []float64{10, 11},
				Data:  make([]float64, 3),
			},
			wantErr: true,
		},
		{
			name: "decreasing latitudes",
			cube: &Cube{
				Times: sixHourly(base, 1),
				Lats:  []float64{1, 0},
				Lons:  []float64{10, 11},
				Data:  make([]float64, 4),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cube.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestCube_Window tests time subsetting
func TestCube_Window(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 8), []float64{0, 1}, []float64{10, 11})
	for i := range c.Data {
		c.Data[i] = float64(i)
	}

	sub, err := c.Window(base.Add(6*time.Hour), base.Add(18*time.Hour))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(sub.Times) != 3 {
		t.Fatalf("Expected 3 time steps, got %d", len(sub.Times))
	}
	if !sub.Start().Equal(base.Add(6 * time.Hour)) {
		t.Errorf("Window starts at %s", sub.Start())
	}
	// The subset shares the backing array starting at step 1.
	if sub.At(0, 0, 0) != c.At(1, 0, 0) {
		t.Errorf("Window data does not line up with source cube")
	}

	_, err = c.Window(base.Add(100*time.Hour), base.Add(200*time.Hour))
	if !errors.Is(err, ErrNoOverlap) {
		t.Errorf("Expected ErrNoOverlap for empty window, got %v", err)
	}
}

// TestCube_ValuesAt tests the per-step lat-by-lon view
func TestCube_ValuesAt(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 2), []float64{0, 1}, []float64{10, 11, 12})
	for i := range c.Data {
		c.Data[i] = float64(i)
	}

	rows := c.ValuesAt(1)
	if len(rows) != 2 || len(rows[0]) != 3 {
		t.Fatalf("Expected 2x3 rows, got %dx%d", len(rows), len(rows[0]))
	}
	if rows[1][2] != c.At(1, 1, 2) {
		t.Errorf("rows[1][2] = %.1f, expected %.1f", rows[1][2], c.At(1, 1, 2))
	}
	// Rows are views onto the cube, not copies.
	c.Set(1, 0, 1, -5)
	if rows[0][1] != -5 {
		t.Errorf("Expected view to reflect cube mutation, got %.1f", rows[0][1])
	}
}

// TestCube_Coarsen tests time-axis subsampling
func TestCube_Coarsen(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 8), []float64{0, 1}, []float64{10, 11})
	for ti := range c.Times {
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				c.Set(ti, j, i, float64(ti))
			}
		}
	}

	daily, err := c.Coarsen(4)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(daily.Times) != 2 {
		t.Fatalf("Expected 2 time steps, got %d", len(daily.Times))
	}
	if daily.At(0, 0, 0) != 0 || daily.At(1, 0, 0) != 4 {
		t.Errorf("Expected steps 0 and 4, got %.0f and %.0f", daily.At(0, 0, 0), daily.At(1, 0, 0))
	}

	if _, err := c.Coarsen(0); err == nil {
		t.Error("Expected error for step 0, got nil")
	}
}

// TestCube_Binarize tests the presence-field mapping
func TestCube_Binarize(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 1), []float64{0, 1}, []float64{10, 11})
	c.Data = []float64{3, 0, -1, math.NaN()}

	b := c.Binarize()
	if b.Data[0] != 1 {
		t.Errorf("Positive count: expected 1, got %.2f", b.Data[0])
	}
	for i := 1; i < 4; i++ {
		if !math.IsNaN(b.Data[i]) {
			t.Errorf("Index %d: expected NaN, got %.2f", i, b.Data[i])
		}
	}
}

// TestCube_RollingMaxTime tests the trailing per-cell rolling maximum
func TestCube_RollingMaxTime(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 5), []float64{0, 1}, []float64{10, 11})
	nan := math.NaN()
	series := []float64{2, nan, 1, 5, nan}
	for ti, v := range series {
		c.Set(ti, 0, 0, v)
	}

	rolled, err := c.RollingMaxTime(nil, 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := []float64{2, 2, 1, 5, 5}
	for ti, want := range expected {
		if got := rolled.At(ti, 0, 0); math.Abs(got-want) > 1e-9 {
			t.Errorf("Step %d: expected %.1f, got %.1f", ti, want, got)
		}
	}

	// The all-NaN cell must stay NaN throughout.
	for ti := range series {
		if !math.IsNaN(rolled.At(ti, 1, 1)) {
			t.Errorf("Step %d: untouched cell should be NaN", ti)
		}
	}
}

// TestCube_SumOverTime tests the per-cell time reduction
func TestCube_SumOverTime(t *testing.T) {
	base := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCube(sixHourly(base, 3), []float64{0, 1}, []float64{10, 11})
	for ti := 0; ti < 3; ti++ {
		c.Set(ti, 0, 0, float64(ti+1))
	}
	c.Set(0, 0, 1, 10)

	sum, err := c.SumOverTime(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := sum.At(0, 0); math.Abs(got-6.0) > 1e-9 {
		t.Errorf("Cell (0,0): expected 6, got %.2f", got)
	}
	if got := sum.At(0, 1); math.Abs(got-10.0) > 1e-9 {
		t.Errorf("Cell (0,1): expected 10, got %.2f", got)
	}
	if !math.IsNaN(sum.At(1, 0)) {
		t.Errorf("Cell with no samples: expected NaN, got %.2f", sum.At(1, 0))
	}
}

// TestField2D_RegionMin tests the reference-box minimum
func TestField2D_RegionMin(t *testing.T) {
	f := &Field2D{
		Lats:   []float64{-30, -25, -20, 0},
		Lons:   []float64{190, 195, 200, 300},
		Values: make([]float64, 16),
	}
	for i := range f.Values {
		f.Values[i] = float64(i + 10)
	}
	f.Values[5] = 2          // Inside the box, the minimum.
	f.Values[15] = 0         // Outside the box, must be ignored.
	f.Values[0] = math.NaN() // Inside the box, invalid.

	got, err := f.RegionMin(-30, -20, 190, 200)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 2 {
		t.Errorf("Expected region minimum 2, got %.2f", got)
	}

	if _, err := f.RegionMin(50, 60, 0, 10); err == nil {
		t.Error("Expected error for box with no cells, got nil")
	}
}
