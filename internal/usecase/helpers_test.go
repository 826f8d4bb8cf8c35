package usecase

import (
	"fmt"
	"math"
	"time"

	"go.ccmp.io/winds-api/internal/domain"
)

// fakeFieldLoader serves a fixed dataset, windowed on request.
type fakeFieldLoader struct {
	ds  *domain.Dataset
	err error
}

func (f *fakeFieldLoader) LoadWindow(start, end time.Time) (*domain.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, err := f.ds.U.Window(start, end)
	if err != nil {
		return nil, err
	}
	v, err := f.ds.V.Window(start, end)
	if err != nil {
		return nil, err
	}
	nobs, err := f.ds.Nobs.Window(start, end)
	if err != nil {
		return nil, err
	}
	return &domain.Dataset{U: u, V: v, Nobs: nobs}, nil
}

// fakeBuoyLoader serves one buoy record.
type fakeBuoyLoader struct {
	id     string
	series *domain.Series
	loc    domain.Location
}

func (f *fakeBuoyLoader) LoadBuoy(buoyID string) (*domain.Series, domain.Location, error) {
	if buoyID != f.id {
		return nil, domain.Location{}, fmt.Errorf("unknown buoy %s", buoyID)
	}
	return f.series, f.loc, nil
}

func (f *fakeBuoyLoader) ListBuoys() ([]string, error) {
	return []string{f.id}, nil
}

// testDataset builds a 6-hourly dataset on a 3x3 grid: u=3 and v=4
// everywhere (speed 5), nobs=4 except for a zero-count land column at
// longitude index 2.
func testDataset(start time.Time, steps int) *domain.Dataset {
	times := make([]time.Time, steps)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 6 * time.Hour)
	}
	lats := []float64{-10, 0, 10}
	lons := []float64{200, 210, 220}

	u := domain.NewCube(times, lats, lons)
	v := domain.NewCube(times, lats, lons)
	nobs := domain.NewCube(times, lats, lons)
	for ti := range times {
		for j := range lats {
			for i := range lons {
				u.Set(ti, j, i, 3)
				v.Set(ti, j, i, 4)
				if i == 2 {
					nobs.Set(ti, j, i, 0)
				} else {
					nobs.Set(ti, j, i, 4)
				}
			}
		}
	}
	return &domain.Dataset{U: u, V: v, Nobs: nobs}
}

// constantSeries builds a series with fixed spacing and value.
func constantSeries(start time.Time, spacing time.Duration, n int, value float64) *domain.Series {
	times := make([]time.Time, n)
	values := make([]float64, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * spacing)
		values[i] = value
	}
	return &domain.Series{Times: times, Values: values}
}

// domainTestOptions returns mask options sized for the small test grid,
// with the reference box over the always-reporting ocean column.
func domainTestOptions() domain.MaskOptions {
	return domain.MaskOptions{
		SamplesPerDay: 4,
		WindowDays:    1,
		CoarsenStep:   4,
		RollingWindow: 2,
		Reference:     domain.Region{LatMin: -10, LatMax: 10, LonMin: 195, LonMax: 205},
		SafetyMargin:  0.2,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
