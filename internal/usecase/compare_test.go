package usecase

import (
	"testing"
	"time"

	"go.ccmp.io/winds-api/internal/domain"
)

// TestCompareUseCase_Execute tests the full satellite-vs-buoy workflow
// on synthetic constant fields.
func TestCompareUseCase_Execute(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	// Satellite speed is 5 m/s everywhere; the buoy reports a constant
	// 4 m/s at 30-minute resolution, so the bias is exactly 1.
	fields := &fakeFieldLoader{ds: testDataset(start, 16)} // 4 days, 6-hourly.
	buoys := &fakeBuoyLoader{
		id:     "51001",
		series: constantSeries(start, 30*time.Minute, 4*48, 4.0),
		loc:    domain.Location{Lat: 5, Lon: 205},
	}

	uc := NewCompareUseCase(fields, buoys, nil)
	resp, err := uc.Execute(CompareRequest{BuoyID: "51001"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.BuoyID != "51001" {
		t.Errorf("Response buoy ID: %s", resp.BuoyID)
	}
	if resp.Stats.N == 0 {
		t.Fatal("Expected paired samples")
	}
	if !almostEqual(resp.Stats.Bias, 1.0) {
		t.Errorf("Expected bias 1.0, got %.6f", resp.Stats.Bias)
	}
	if !almostEqual(resp.Stats.RMSE, 0.0) {
		t.Errorf("Expected RMSE 0, got %.6f", resp.Stats.RMSE)
	}
	// The smoothing window derives from the 6h/30min sample-rate ratio.
	if resp.SmoothingWindow != 12 {
		t.Errorf("Expected derived window 12, got %d", resp.SmoothingWindow)
	}
	if resp.Method != "nearest" {
		t.Errorf("Expected default method nearest, got %s", resp.Method)
	}
	for i, p := range resp.Points {
		if !almostEqual(p.SatelliteMS, 5.0) || !almostEqual(p.BuoyMS, 4.0) {
			t.Fatalf("Point %d: sat=%.3f buoy=%.3f", i, p.SatelliteMS, p.BuoyMS)
		}
	}
}

// TestCompareUseCase_ExplicitWindowAndMethod tests parameter overrides
func TestCompareUseCase_ExplicitWindowAndMethod(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	fields := &fakeFieldLoader{ds: testDataset(start, 16)}
	buoys := &fakeBuoyLoader{
		id:     "51001",
		series: constantSeries(start, 30*time.Minute, 4*48, 4.0),
		loc:    domain.Location{Lat: 5, Lon: 205},
	}

	uc := NewCompareUseCase(fields, buoys, nil)
	resp, err := uc.Execute(CompareRequest{
		BuoyID:          "51001",
		SmoothingWindow: 5,
		Method:          "linear",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.SmoothingWindow != 5 {
		t.Errorf("Explicit window overwritten: %d", resp.SmoothingWindow)
	}
	if resp.Method != "linear" {
		t.Errorf("Expected linear, got %s", resp.Method)
	}
}

// TestCompareUseCase_TimeRangeSubset tests window clamping
func TestCompareUseCase_TimeRangeSubset(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

	fields := &fakeFieldLoader{ds: testDataset(start, 16)}
	buoys := &fakeBuoyLoader{
		id:     "51001",
		series: constantSeries(start, 30*time.Minute, 4*48, 4.0),
		loc:    domain.Location{Lat: 5, Lon: 205},
	}

	uc := NewCompareUseCase(fields, buoys, nil)
	full, err := uc.Execute(CompareRequest{BuoyID: "51001"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sub, err := uc.Execute(CompareRequest{
		BuoyID: "51001",
		Start:  start.Add(24 * time.Hour),
		End:    start.Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sub.Stats.N >= full.Stats.N {
		t.Errorf("Subset has %d pairs, full range has %d", sub.Stats.N, full.Stats.N)
	}
}

// TestCompareUseCase_Validation tests request validation
func TestCompareUseCase_Validation(t *testing.T) {
	uc := NewCompareUseCase(&fakeFieldLoader{}, &fakeBuoyLoader{id: "x"}, nil)

	tests := []struct {
		name string
		req  CompareRequest
	}{
		{"missing buoy id", CompareRequest{}},
		{"negative window", CompareRequest{BuoyID: "x", SmoothingWindow: -1}},
		{"bad method", CompareRequest{BuoyID: "x", Method: "spline"}},
		{
			"inverted range",
			CompareRequest{
				BuoyID: "x",
				Start:  time.Date(2015, 2, 1, 0, 0, 0, 0, time.UTC),
				End:    time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uc.Execute(tt.req); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// TestCompareUseCase_UnknownBuoy tests loader error propagation
func TestCompareUseCase_UnknownBuoy(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	fields := &fakeFieldLoader{ds: testDataset(start, 4)}
	buoys := &fakeBuoyLoader{
		id:     "51001",
		series: constantSeries(start, time.Hour, 24, 4.0),
		loc:    domain.Location{Lat: 5, Lon: 205},
	}

	uc := NewCompareUseCase(fields, buoys, nil)
	if _, err := uc.Execute(CompareRequest{BuoyID: "99999"}); err == nil {
		t.Error("Expected error for unknown buoy, got nil")
	}
}

// TestCompareUseCase_ListBuoys tests the buoy inventory listing
func TestCompareUseCase_ListBuoys(t *testing.T) {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	buoys := &fakeBuoyLoader{
		id:     "51001",
		series: constantSeries(start, time.Hour, 24, 4.0),
		loc:    domain.Location{Lat: 5, Lon: 205},
	}

	uc := NewCompareUseCase(&fakeFieldLoader{ds: testDataset(start, 4)}, buoys, nil)
	resp, err := uc.ListBuoys()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Count != 1 || len(resp.Buoys) != 1 || resp.Buoys[0] != "51001" {
		t.Errorf("Unexpected listing: %+v", resp)
	}
}
