package usecase

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"go.ccmp.io/winds-api/internal/adapter/interp"
	"go.ccmp.io/winds-api/internal/adapter/store"
	"go.ccmp.io/winds-api/internal/domain"
)

// PointRequest asks for satellite winds at a fixed location.
type PointRequest struct {
	Lat   float64
	Lon   float64
	Start time.Time
	End   time.Time
}

// Validate checks if the request is valid.
func (r *PointRequest) Validate() error {
	if r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end times must be provided")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("start time must be before end time")
	}
	return nil
}

// WindPoint is one satellite wind sample at the requested location.
type WindPoint struct {
	Time         string  `json:"time"`
	SpeedMS      float64 `json:"speed_ms"`
	DirectionDeg float64 `json:"direction_deg"`
}

// PointResponse contains the sampled wind series.
type PointResponse struct {
	Location domain.Location `json:"location"`
	Points   []WindPoint     `json:"points"`
}

// ClimatologyResponse contains the seasonal cycle at a location.
type ClimatologyResponse struct {
	Location domain.Location `json:"location"`
	// MeanMS holds one climatological wind speed per day-of-year bin
	// (leap days fold into the preceding day). Bins with no samples
	// are null.
	MeanMS []*float64 `json:"mean_ms"`
}

// PointUseCase samples the satellite grid at fixed locations.
type PointUseCase struct {
	fields store.FieldLoader
	logger *zap.Logger
}

// NewPointUseCase creates a new point-sampling use case.
func NewPointUseCase(fields store.FieldLoader, logger *zap.Logger) *PointUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointUseCase{fields: fields, logger: logger}
}

// Winds returns the satellite wind speed and meteorological direction
// at the requested location over the requested window.
func (uc *PointUseCase) Winds(req PointRequest) (*PointResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	ds, err := uc.fields.LoadWindow(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load satellite data: %w", err)
	}

	us, vs, err := interp.SampleVector(ds.U, ds.V, req.Lat, req.Lon)
	if err != nil {
		return nil, err
	}

	// Steps where the grid has no valid data around the point are
	// dropped; JSON has no NaN.
	points := make([]WindPoint, 0, len(us.Times))
	for i, t := range us.Times {
		u, v := us.Values[i], vs.Values[i]
		if math.IsNaN(u) || math.IsNaN(v) {
			continue
		}
		points = append(points, WindPoint{
			Time:         t.UTC().Format(time.RFC3339),
			SpeedMS:      roundToDecimal(math.Hypot(u, v), 3),
			DirectionDeg: roundToDecimal(windDirection(u, v), 1),
		})
	}

	return &PointResponse{
		Location: domain.Location{Lat: req.Lat, Lon: interp.NormalizeLon360(req.Lon)},
		Points:   points,
	}, nil
}

// Climatology returns the day-of-year wind-speed climatology at the
// requested location.
func (uc *PointUseCase) Climatology(req PointRequest) (*ClimatologyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	ds, err := uc.fields.LoadWindow(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load satellite data: %w", err)
	}

	speed, err := ds.WindSpeed()
	if err != nil {
		return nil, err
	}

	series, err := interp.SampleCube(speed, req.Lat, req.Lon)
	if err != nil {
		return nil, err
	}

	clim, err := domain.ComputeClimatology(series)
	if err != nil {
		return nil, err
	}

	means := make([]*float64, 0, len(clim.Mean)-1)
	for d := 1; d < len(clim.Mean); d++ {
		if math.IsNaN(clim.Mean[d]) {
			means = append(means, nil)
			continue
		}
		v := roundToDecimal(clim.Mean[d], 3)
		means = append(means, &v)
	}

	return &ClimatologyResponse{
		Location: domain.Location{Lat: req.Lat, Lon: interp.NormalizeLon360(req.Lon)},
		MeanMS:   means,
	}, nil
}

// windDirection converts u/v components to the meteorological
// convention (direction the wind blows from, degrees clockwise from
// north).
func windDirection(u, v float64) float64 {
	deg := math.Atan2(-u, -v) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
