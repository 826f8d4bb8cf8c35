package domain

import (
	"fmt"
	"math"
)

// Location is a fixed geographic point in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Dataset is the CCMP variable set on a shared grid: zonal wind (uwnd),
// meridional wind (vwnd) and per-cell observation count (nobs).
type Dataset struct {
	U    *Cube
	V    *Cube
	Nobs *Cube
}

// Validate checks each cube and that all three share the same axes.
func (d *Dataset) Validate() error {
	for name, c := range map[string]*Cube{"uwnd": d.U, "vwnd": d.V, "nobs": d.Nobs} {
		if c == nil {
			return fmt.Errorf("dataset is missing %s", name)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid %s cube: %w", name, err)
		}
	}
	if len(d.U.Times) != len(d.V.Times) || len(d.U.Times) != len(d.Nobs.Times) {
		return fmt.Errorf("cubes disagree on time axis length")
	}
	if len(d.U.Lats) != len(d.V.Lats) || len(d.U.Lons) != len(d.V.Lons) {
		return fmt.Errorf("u and v cubes disagree on grid shape")
	}
	return nil
}

// WindSpeed derives the scalar wind-speed cube sqrt(u^2 + v^2).
// Cells missing either component are NaN.
func (d *Dataset) WindSpeed() (*Cube, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	out := &Cube{
		Times: d.U.Times,
		Lats:  d.U.Lats,
		Lons:  d.U.Lons,
		Data:  make([]float64, len(d.U.Data)),
	}
	for i := range d.U.Data {
		out.Data[i] = math.Hypot(d.U.Data[i], d.V.Data[i])
	}
	return out, nil
}

// Apply masks all three variables, preserving shapes.
func (d *Dataset) Apply(m *Mask) (*Dataset, error) {
	u, err := ApplyMask(d.U, m)
	if err != nil {
		return nil, fmt.Errorf("masking uwnd: %w", err)
	}
	v, err := ApplyMask(d.V, m)
	if err != nil {
		return nil, fmt.Errorf("masking vwnd: %w", err)
	}
	nobs, err := ApplyMask(d.Nobs, m)
	if err != nil {
		return nil, fmt.Errorf("masking nobs: %w", err)
	}
	return &Dataset{U: u, V: v, Nobs: nobs}, nil
}
