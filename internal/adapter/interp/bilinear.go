// Package interp provides bilinear interpolation of gridded fields at
// point locations, including per-time-step sampling of data cubes.
package interp

import (
	"fmt"
	"math"
	"sort"

	"go.ccmp.io/winds-api/internal/domain"
)

// NormalizeLon360 maps arbitrary degree longitudes into the [0, 360) range.
//
// CCMP grids are defined on a 0–360° longitude axis, so point locations
// using the conventional −180–180° representation must be wrapped before
// interpolation.
func NormalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon
}

// GridCell represents a cell in a regular grid with four corner values.
type GridCell struct {
	// Corner coordinates (forming a rectangle).
	X0, X1 float64 // X boundaries (longitude).
	Y0, Y1 float64 // Y boundaries (latitude).

	// Values at the four corners:
	// V00: value at (X0, Y0).
	// V10: value at (X1, Y0).
	// V01: value at (X0, Y1).
	// V11: value at (X1, Y1).
	V00, V10, V01, V11 float64
}

// BilinearInterpolate performs bilinear interpolation within a grid cell
// Formula:
//
//	f(x,y) ≈ (1-t)(1-u)f(x0,y0) + t(1-u)f(x1,y0) + (1-t)u*f(x0,y1) + tu*f(x1,y1)
//
// where:
//
//	t = (x - x0) / (x1 - x0)
//	u = (y - y0) / (y1 - y0)
//
// NaN corner values propagate to a NaN result.
func BilinearInterpolate(cell GridCell, x, y float64) (float64, error) {
	// Validate grid cell.
	if cell.X1 <= cell.X0 {
		return 0, fmt.Errorf("invalid grid cell: X1 must be > X0")
	}
	if cell.Y1 <= cell.Y0 {
		return 0, fmt.Errorf("invalid grid cell: Y1 must be > Y0")
	}

	// Check if point is within cell (with small tolerance for floating point).
	const epsilon = 1e-9
	if x < cell.X0-epsilon || x > cell.X1+epsilon {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid cell [%.6f, %.6f]", x, cell.X0, cell.X1)
	}
	if y < cell.Y0-epsilon || y > cell.Y1+epsilon {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid cell [%.6f, %.6f]", y, cell.Y0, cell.Y1)
	}

	// Calculate normalized coordinates (0 to 1).
	t := (x - cell.X0) / (cell.X1 - cell.X0)
	u := (y - cell.Y0) / (cell.Y1 - cell.Y0)

	// Clamp to [0, 1] to handle edge cases with floating point precision.
	t = math.Max(0, math.Min(1, t))
	u = math.Max(0, math.Min(1, u))

	// Bilinear interpolation formula.
	result := (1-t)*(1-u)*cell.V00 +
		t*(1-u)*cell.V10 +
		(1-t)*u*cell.V01 +
		t*u*cell.V11

	return result, nil
}

// Grid2D represents a regular 2D grid for interpolation.
type Grid2D struct {
	X      []float64   // X coordinates (longitudes).
	Y      []float64   // Y coordinates (latitudes).
	Values [][]float64 // Values[i][j] corresponds to (X[j], Y[i]).
}

// Validate checks if the grid is valid.
func (g *Grid2D) Validate() error {
	if len(g.X) < 2 {
		return fmt.Errorf("grid must have at least 2 X coordinates")
	}
	if len(g.Y) < 2 {
		return fmt.Errorf("grid must have at least 2 Y coordinates")
	}
	if len(g.Values) != len(g.Y) {
		return fmt.Errorf("number of value rows (%d) must match Y coordinates (%d)", len(g.Values), len(g.Y))
	}

	for i, row := range g.Values {
		if len(row) != len(g.X) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(g.X))
		}
	}

	// Check that coordinates are sorted and unique.
	for i := 1; i < len(g.X); i++ {
		if g.X[i] <= g.X[i-1] {
			return fmt.Errorf("X coordinates must be strictly increasing")
		}
	}
	for i := 1; i < len(g.Y); i++ {
		if g.Y[i] <= g.Y[i-1] {
			return fmt.Errorf("Y coordinates must be strictly increasing")
		}
	}

	return nil
}

// InterpolateAt performs bilinear interpolation at a given point.
// Out-of-grid coordinates fail with an out-of-domain error rather than
// silently extrapolating.
func (g *Grid2D) InterpolateAt(x, y float64) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("invalid grid: %w", err)
	}

	xIdx, err := cellIndex(g.X, x)
	if err != nil {
		return 0, err
	}
	yIdx, err := cellIndex(g.Y, y)
	if err != nil {
		return 0, err
	}

	cell := GridCell{
		X0:  g.X[xIdx],
		X1:  g.X[xIdx+1],
		Y0:  g.Y[yIdx],
		Y1:  g.Y[yIdx+1],
		V00: g.Values[yIdx][xIdx],
		V10: g.Values[yIdx][xIdx+1],
		V01: g.Values[yIdx+1][xIdx],
		V11: g.Values[yIdx+1][xIdx+1],
	}

	return BilinearInterpolate(cell, x, y)
}

// InterpolateBoth interpolates two grids (e.g., the zonal and meridional
// wind components) at the same point.
func InterpolateBoth(grid1, grid2 *Grid2D, x, y float64) (float64, float64, error) {
	// Validate that grids have the same coordinates.
	if len(grid1.X) != len(grid2.X) || len(grid1.Y) != len(grid2.Y) {
		return 0, 0, fmt.Errorf("grids must have the same dimensions")
	}

	val1, err := grid1.InterpolateAt(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to interpolate grid1: %w", err)
	}

	val2, err := grid2.InterpolateAt(x, y)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to interpolate grid2: %w", err)
	}

	return val1, val2, nil
}

// cellIndex finds the index of the grid interval containing v, so that
// coords[i] <= v <= coords[i+1].
func cellIndex(coords []float64, v float64) (int, error) {
	if v < coords[0] || v > coords[len(coords)-1] {
		return 0, fmt.Errorf("coordinate %.6f is out of domain [%.6f, %.6f]", v, coords[0], coords[len(coords)-1])
	}
	i := sort.SearchFloat64s(coords, v)
	if i > 0 && (i == len(coords) || coords[i] != v) {
		i--
	}
	if i == len(coords)-1 {
		i--
	}
	return i, nil
}

// SampleCube bilinearly samples a gridded cube at a fixed (lat, lon)
// location for every time step, returning a point series. The longitude
// is wrapped into [0, 360) first; locations outside the grid fail with
// an out-of-domain error.
func SampleCube(c *domain.Cube, lat, lon float64) (*domain.Series, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cube: %w", err)
	}

	lon = NormalizeLon360(lon)
	xIdx, err := cellIndex(c.Lons, lon)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}
	yIdx, err := cellIndex(c.Lats, lat)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}

	values := make([]float64, len(c.Times))
	for t := range c.Times {
		cell := GridCell{
			X0:  c.Lons[xIdx],
			X1:  c.Lons[xIdx+1],
			Y0:  c.Lats[yIdx],
			Y1:  c.Lats[yIdx+1],
			V00: c.At(t, yIdx, xIdx),
			V10: c.At(t, yIdx, xIdx+1),
			V01: c.At(t, yIdx+1, xIdx),
			V11: c.At(t, yIdx+1, xIdx+1),
		}
		v, err := BilinearInterpolate(cell, lon, lat)
		if err != nil {
			return nil, fmt.Errorf("sampling at (%.4f, %.4f), step %d: %w", lat, lon, t, err)
		}
		values[t] = v
	}

	return &domain.Series{Times: c.Times, Values: values}, nil
}

// SampleVector samples two component cubes (u, v) at a fixed location
// per time step and returns component series on the cube's time grid.
// Both components of a step are interpolated through the same grid cell.
func SampleVector(u, v *domain.Cube, lat, lon float64) (*domain.Series, *domain.Series, error) {
	if err := u.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid zonal cube: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid meridional cube: %w", err)
	}
	if len(u.Times) != len(v.Times) {
		return nil, nil, fmt.Errorf("component cubes disagree on time axis length")
	}

	lon = NormalizeLon360(lon)
	us := make([]float64, len(u.Times))
	vs := make([]float64, len(u.Times))
	for t := range u.Times {
		ug := &Grid2D{X: u.Lons, Y: u.Lats, Values: u.ValuesAt(t)}
		vg := &Grid2D{X: v.Lons, Y: v.Lats, Values: v.ValuesAt(t)}
		uVal, vVal, err := InterpolateBoth(ug, vg, lon, lat)
		if err != nil {
			return nil, nil, fmt.Errorf("sampling components at (%.4f, %.4f), step %d: %w", lat, lon, t, err)
		}
		us[t] = uVal
		vs[t] = vVal
	}

	return &domain.Series{Times: u.Times, Values: us},
		&domain.Series{Times: v.Times, Values: vs}, nil
}
