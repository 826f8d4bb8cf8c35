package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.ccmp.io/winds-api/internal/compute"
)

// Cube is a gridded field on (time, lat, lon) axes, stored as a
// flattened float64 array in [time][lat][lon] order. NaN marks cells
// with no valid data; operations on cubes preserve the array shape and
// encode removal as NaN rather than deleting cells.
type Cube struct {
	Times []time.Time
	Lats  []float64
	Lons  []float64 // Degrees east, [0, 360).
	Data  []float64
}

// NewCube allocates a cube for the given axes, filled with NaN.
func NewCube(times []time.Time, lats, lons []float64) *Cube {
	data := make([]float64, len(times)*len(lats)*len(lons))
	for i := range data {
		data[i] = math.NaN()
	}
	return &Cube{Times: times, Lats: lats, Lons: lons, Data: data}
}

// Validate checks axis ordering and data shape.
func (c *Cube) Validate() error {
	if len(c.Times) == 0 {
		return fmt.Errorf("cube has no time steps")
	}
	if len(c.Lats) < 2 || len(c.Lons) < 2 {
		return fmt.Errorf("cube grid must be at least 2x2, got %dx%d", len(c.Lats), len(c.Lons))
	}
	if len(c.Data) != len(c.Times)*len(c.Lats)*len(c.Lons) {
		return fmt.Errorf("data length %d does not match axes %dx%dx%d",
			len(c.Data), len(c.Times), len(c.Lats), len(c.Lons))
	}
	for i := 1; i < len(c.Times); i++ {
		if !c.Times[i].After(c.Times[i-1]) {
			return fmt.Errorf("timestamps must be strictly increasing (index %d)", i)
		}
	}
	for i := 1; i < len(c.Lats); i++ {
		if c.Lats[i] <= c.Lats[i-1] {
			return fmt.Errorf("latitudes must be strictly increasing")
		}
	}
	for i := 1; i < len(c.Lons); i++ {
		if c.Lons[i] <= c.Lons[i-1] {
			return fmt.Errorf("longitudes must be strictly increasing")
		}
	}
	return nil
}

// NumCells returns the number of grid cells per time step.
func (c *Cube) NumCells() int { return len(c.Lats) * len(c.Lons) }

func (c *Cube) index(t, j, i int) int {
	return (t*len(c.Lats)+j)*len(c.Lons) + i
}

// At returns the value at time index t, latitude index j, longitude index i.
func (c *Cube) At(t, j, i int) float64 { return c.Data[c.index(t, j, i)] }

// Set stores a value at time index t, latitude index j, longitude index i.
func (c *Cube) Set(t, j, i int, v float64) { c.Data[c.index(t, j, i)] = v }

// ValuesAt returns the lat-by-lon slice of the cube at time index t.
// Rows share the cube's backing array.
func (c *Cube) ValuesAt(t int) [][]float64 {
	nLat, nLon := len(c.Lats), len(c.Lons)
	rows := make([][]float64, nLat)
	base := t * nLat * nLon
	for j := 0; j < nLat; j++ {
		rows[j] = c.Data[base+j*nLon : base+(j+1)*nLon]
	}
	return rows
}

// Start returns the first timestamp of the cube.
func (c *Cube) Start() time.Time { return c.Times[0] }

// End returns the last timestamp of the cube.
func (c *Cube) End() time.Time { return c.Times[len(c.Times)-1] }

// Window returns the time subset of the cube inside [start, end]
// (inclusive). The result shares the backing array. An empty subset is
// an error so that callers never operate on silently empty cubes.
func (c *Cube) Window(start, end time.Time) (*Cube, error) {
	lo := sort.Search(len(c.Times), func(i int) bool { return !c.Times[i].Before(start) })
	hi := sort.Search(len(c.Times), func(i int) bool { return c.Times[i].After(end) })
	if lo >= hi {
		return nil, fmt.Errorf("%w: cube covers [%s, %s], requested [%s, %s]",
			ErrNoOverlap,
			c.Start().Format(time.RFC3339), c.End().Format(time.RFC3339),
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	cells := c.NumCells()
	return &Cube{
		Times: c.Times[lo:hi],
		Lats:  c.Lats,
		Lons:  c.Lons,
		Data:  c.Data[lo*cells : hi*cells],
	}, nil
}

// Coarsen subsamples the time axis, keeping every step-th time slice.
func (c *Cube) Coarsen(step int) (*Cube, error) {
	if step < 1 {
		return nil, fmt.Errorf("coarsen step must be >= 1, got %d", step)
	}
	if step == 1 {
		return c, nil
	}
	cells := c.NumCells()
	var times []time.Time
	data := make([]float64, 0, (len(c.Times)/step+1)*cells)
	for t := 0; t < len(c.Times); t += step {
		times = append(times, c.Times[t])
		data = append(data, c.Data[t*cells:(t+1)*cells]...)
	}
	return &Cube{Times: times, Lats: c.Lats, Lons: c.Lons, Data: data}, nil
}

// Binarize maps positive cell values to 1 and everything else
// (zeros, negatives and NaN) to NaN. Used to turn observation counts
// into a presence field.
func (c *Cube) Binarize() *Cube {
	out := &Cube{Times: c.Times, Lats: c.Lats, Lons: c.Lons, Data: make([]float64, len(c.Data))}
	for i, v := range c.Data {
		if v > 0 {
			out.Data[i] = 1
		} else {
			out.Data[i] = math.NaN()
		}
	}
	return out
}

// RollingMaxTime computes the trailing rolling maximum along the time
// axis per grid cell, ignoring NaN. Windows with no valid samples
// produce NaN. Work is spread across cells via the execution context.
func (c *Cube) RollingMaxTime(ec *compute.Context, window int) (*Cube, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be >= 1, got %d", window)
	}
	out := &Cube{Times: c.Times, Lats: c.Lats, Lons: c.Lons, Data: make([]float64, len(c.Data))}
	cells := c.NumCells()
	nT := len(c.Times)

	err := forEachCell(ec, cells, func(cell int) error {
		for t := 0; t < nT; t++ {
			lo := t - window + 1
			if lo < 0 {
				lo = 0
			}
			best := math.NaN()
			for k := lo; k <= t; k++ {
				v := c.Data[k*cells+cell]
				if math.IsNaN(v) {
					continue
				}
				if math.IsNaN(best) || v > best {
					best = v
				}
			}
			out.Data[t*cells+cell] = best
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SumOverTime reduces the cube to a 2D field of per-cell sums over the
// whole time axis, ignoring NaN. Cells with no valid samples are NaN.
func (c *Cube) SumOverTime(ec *compute.Context) (*Field2D, error) {
	cells := c.NumCells()
	out := &Field2D{Lats: c.Lats, Lons: c.Lons, Values: make([]float64, cells)}

	err := forEachCell(ec, cells, func(cell int) error {
		sum := 0.0
		count := 0
		for t := 0; t < len(c.Times); t++ {
			v := c.Data[t*cells+cell]
			if !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		if count == 0 {
			out.Values[cell] = math.NaN()
		} else {
			out.Values[cell] = sum
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Field2D is a single lat-by-lon field, stored row-major by latitude.
type Field2D struct {
	Lats   []float64
	Lons   []float64
	Values []float64
}

// At returns the value at latitude index j, longitude index i.
func (f *Field2D) At(j, i int) float64 { return f.Values[j*len(f.Lons)+i] }

// RegionMin returns the minimum valid value inside the given
// geographic box (inclusive bounds, longitudes in [0, 360)).
// It fails when the box contains no valid cells.
func (f *Field2D) RegionMin(latMin, latMax, lonMin, lonMax float64) (float64, error) {
	best := math.NaN()
	for j, lat := range f.Lats {
		if lat < latMin || lat > latMax {
			continue
		}
		for i, lon := range f.Lons {
			if lon < lonMin || lon > lonMax {
				continue
			}
			v := f.At(j, i)
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(best) || v < best {
				best = v
			}
		}
	}
	if math.IsNaN(best) {
		return 0, fmt.Errorf("reference region [%.2f, %.2f]x[%.2f, %.2f] contains no valid cells",
			latMin, latMax, lonMin, lonMax)
	}
	return best, nil
}

// forEachCell runs fn for every cell index, using the execution context
// when one is supplied and falling back to an inline loop otherwise.
func forEachCell(ec *compute.Context, n int, fn func(i int) error) error {
	if ec == nil {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	return ec.ForEach(n, fn)
}
