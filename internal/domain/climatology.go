package domain

import (
	"fmt"
	"math"
	"time"

	"go.ccmp.io/winds-api/internal/compute"
)

// climatologyDays is the number of day-of-year bins. Leap days are
// folded into the preceding day, so every bin aggregates a comparable
// number of samples (day 366 alone would hold roughly a quarter of the
// samples of any other day).
const climatologyDays = 365

// climatologyDay maps a timestamp to its day-of-year bin in [1, 365].
// In leap years, Feb 29 folds into the Feb 28 bin and later days shift
// down so that e.g. Mar 1 always lands in the same bin.
func climatologyDay(t time.Time) int {
	doy := t.YearDay()
	if isLeapYear(t.Year()) && doy >= 60 {
		doy--
	}
	return doy
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Climatology is the average seasonal cycle of a point series, one mean
// per day-of-year bin. Bins with no valid samples hold NaN.
type Climatology struct {
	Mean [climatologyDays + 1]float64 // Indexed 1..365.
}

// ComputeClimatology groups the series by day-of-year and computes the
// per-day mean, ignoring missing values.
func ComputeClimatology(s *Series) (*Climatology, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}

	var sums, counts [climatologyDays + 1]float64
	for i, t := range s.Times {
		v := s.Values[i]
		if math.IsNaN(v) {
			continue
		}
		d := climatologyDay(t)
		sums[d] += v
		counts[d]++
	}

	clim := &Climatology{}
	for d := 1; d <= climatologyDays; d++ {
		if counts[d] == 0 {
			clim.Mean[d] = math.NaN()
		} else {
			clim.Mean[d] = sums[d] / counts[d]
		}
	}
	return clim, nil
}

// At returns the climatological mean for the given timestamp.
func (c *Climatology) At(t time.Time) float64 {
	return c.Mean[climatologyDay(t)]
}

// Anomaly subtracts the climatology from the series, broadcasting over
// matching day-of-year. Samples whose day has no climatology become NaN.
func Anomaly(s *Series, clim *Climatology) (*Series, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}
	out := make([]float64, len(s.Values))
	for i, t := range s.Times {
		out[i] = s.Values[i] - clim.At(t)
	}
	return &Series{Times: s.Times, Values: out}, nil
}

// CubeClimatology holds per-cell day-of-year means, stored in
// [day][lat][lon] order with days 1..365 at offsets 0..364.
type CubeClimatology struct {
	Lats []float64
	Lons []float64
	Data []float64
}

// At returns the climatological mean for day-of-year bin d at latitude
// index j, longitude index i.
func (cc *CubeClimatology) At(d, j, i int) float64 {
	return cc.Data[((d-1)*len(cc.Lats)+j)*len(cc.Lons)+i]
}

// ComputeCubeClimatology computes the day-of-year climatology of a cube
// per grid cell, ignoring NaN.
func ComputeCubeClimatology(ec *compute.Context, c *Cube) (*CubeClimatology, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cube: %w", err)
	}

	cells := c.NumCells()
	out := &CubeClimatology{
		Lats: c.Lats,
		Lons: c.Lons,
		Data: make([]float64, climatologyDays*cells),
	}

	// Resolve day bins once; shared across all cells.
	days := make([]int, len(c.Times))
	for t, ts := range c.Times {
		days[t] = climatologyDay(ts)
	}

	err := forEachCell(ec, cells, func(cell int) error {
		var sums, counts [climatologyDays + 1]float64
		for t := 0; t < len(c.Times); t++ {
			v := c.Data[t*cells+cell]
			if math.IsNaN(v) {
				continue
			}
			sums[days[t]] += v
			counts[days[t]]++
		}
		for d := 1; d <= climatologyDays; d++ {
			idx := (d-1)*cells + cell
			if counts[d] == 0 {
				out.Data[idx] = math.NaN()
			} else {
				out.Data[idx] = sums[d] / counts[d]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CubeAnomaly subtracts the per-cell climatology from the cube,
// broadcasting over matching day-of-year.
func CubeAnomaly(ec *compute.Context, c *Cube, clim *CubeClimatology) (*Cube, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cube: %w", err)
	}
	if len(clim.Lats) != len(c.Lats) || len(clim.Lons) != len(c.Lons) {
		return nil, fmt.Errorf("climatology grid %dx%d does not match cube grid %dx%d",
			len(clim.Lats), len(clim.Lons), len(c.Lats), len(c.Lons))
	}

	cells := c.NumCells()
	out := &Cube{Times: c.Times, Lats: c.Lats, Lons: c.Lons, Data: make([]float64, len(c.Data))}

	days := make([]int, len(c.Times))
	for t, ts := range c.Times {
		days[t] = climatologyDay(ts)
	}

	err := forEachCell(ec, cells, func(cell int) error {
		for t := 0; t < len(c.Times); t++ {
			idx := t*cells + cell
			out.Data[idx] = c.Data[idx] - clim.Data[(days[t]-1)*cells+cell]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
