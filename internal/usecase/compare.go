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

// CompareRequest encapsulates a satellite-vs-buoy comparison request.
type CompareRequest struct {
	// BuoyID names the buoy record to compare against.
	BuoyID string

	// Optional time range; zero values mean the buoy's full extent.
	Start time.Time
	End   time.Time

	// SmoothingWindow is the centered rolling-mean window (in buoy
	// samples) applied to the buoy series before resampling. Zero
	// derives it from the sample-rate ratio of the two series.
	SmoothingWindow int

	// Method selects the resampling method ("nearest" or "linear").
	Method string

	// Anomalies additionally compares seasonal anomalies.
	Anomalies bool
}

// Validate checks if the request is valid.
func (r *CompareRequest) Validate() error {
	if r.BuoyID == "" {
		return fmt.Errorf("buoy_id must be provided")
	}
	if !r.Start.IsZero() && !r.End.IsZero() && !r.Start.Before(r.End) {
		return fmt.Errorf("start time must be before end time")
	}
	if r.SmoothingWindow < 0 {
		return fmt.Errorf("smoothing window must be >= 0")
	}
	if _, err := domain.ParseResampleMethod(r.Method); err != nil {
		return err
	}
	return nil
}

// ComparePoint is one paired sample of the comparison.
type ComparePoint struct {
	Time        string  `json:"time"`
	SatelliteMS float64 `json:"satellite_ms"`
	BuoyMS      float64 `json:"buoy_ms"`
}

// CompareResponse contains the comparison results.
type CompareResponse struct {
	BuoyID          string              `json:"buoy_id"`
	Location        domain.Location     `json:"location"`
	Start           string              `json:"start"`
	End             string              `json:"end"`
	SmoothingWindow int                 `json:"smoothing_window"`
	Method          string              `json:"method"`
	Stats           *domain.PairedStats `json:"stats"`
	AnomalyStats    *domain.PairedStats `json:"anomaly_stats,omitempty"`
	Points          []ComparePoint      `json:"points"`
}

// CompareUseCase orchestrates satellite-vs-buoy wind comparisons.
type CompareUseCase struct {
	fields store.FieldLoader
	buoys  store.BuoySeriesLoader
	logger *zap.Logger
}

// NewCompareUseCase creates a new comparison use case.
func NewCompareUseCase(fields store.FieldLoader, buoys store.BuoySeriesLoader, logger *zap.Logger) *CompareUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompareUseCase{fields: fields, buoys: buoys, logger: logger}
}

// Execute performs the comparison: sample the satellite wind-speed grid
// at the buoy location, align the two series to their common window,
// smooth and resample the buoy record onto the satellite timestamps,
// and report paired statistics.
func (uc *CompareUseCase) Execute(req CompareRequest) (*CompareResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	buoySeries, loc, err := uc.buoys.LoadBuoy(req.BuoyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buoy %s: %w", req.BuoyID, err)
	}

	start, end := buoySeries.Start(), buoySeries.End()
	if !req.Start.IsZero() && req.Start.After(start) {
		start = req.Start
	}
	if !req.End.IsZero() && req.End.Before(end) {
		end = req.End
	}

	ds, err := uc.fields.LoadWindow(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load satellite data: %w", err)
	}

	speed, err := ds.WindSpeed()
	if err != nil {
		return nil, err
	}

	satSeries, err := interp.SampleCube(speed, loc.Lat, loc.Lon)
	if err != nil {
		return nil, fmt.Errorf("failed to sample satellite grid at buoy %s: %w", req.BuoyID, err)
	}

	satAligned, buoyAligned, err := domain.Align(satSeries, buoySeries)
	if err != nil {
		return nil, fmt.Errorf("aligning series for buoy %s: %w", req.BuoyID, err)
	}

	satSpacing := medianSpacing(satAligned.Times)
	window := req.SmoothingWindow
	if window == 0 {
		window = deriveWindow(satSpacing, medianSpacing(buoyAligned.Times))
	}

	smoothed, err := domain.RollingMean(buoyAligned, window, true)
	if err != nil {
		return nil, fmt.Errorf("smoothing buoy series: %w", err)
	}

	method, _ := domain.ParseResampleMethod(req.Method)
	resampled, err := domain.Resample(smoothed, satAligned.Times, method, satSpacing/2)
	if err != nil {
		return nil, fmt.Errorf("resampling buoy series: %w", err)
	}

	var anomalyStats *domain.PairedStats
	if req.Anomalies {
		satAnom, buoyAnom, err := anomalyPair(satAligned, resampled)
		if err != nil {
			return nil, err
		}
		anomalyStats, err = domain.ComputePairedStats(satAnom, buoyAnom)
		if err != nil {
			return nil, fmt.Errorf("computing anomaly statistics: %w", err)
		}
	}

	stats, err := domain.ComputePairedStats(satAligned, resampled)
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}

	uc.logger.Info("compared satellite and buoy winds",
		zap.String("buoy_id", req.BuoyID),
		zap.Int("pairs", stats.N),
		zap.Float64("bias_ms", stats.Bias),
		zap.Float64("rmse_ms", stats.RMSE))

	// Pairs with a missing side are dropped from the point list; JSON
	// has no NaN and the statistics already skip them.
	points := make([]ComparePoint, 0, len(satAligned.Times))
	for i, t := range satAligned.Times {
		if math.IsNaN(satAligned.Values[i]) || math.IsNaN(resampled.Values[i]) {
			continue
		}
		points = append(points, ComparePoint{
			Time:        t.UTC().Format(time.RFC3339),
			SatelliteMS: roundToDecimal(satAligned.Values[i], 3),
			BuoyMS:      roundToDecimal(resampled.Values[i], 3),
		})
	}

	return &CompareResponse{
		BuoyID:          req.BuoyID,
		Location:        loc,
		Start:           satAligned.Start().UTC().Format(time.RFC3339),
		End:             satAligned.End().UTC().Format(time.RFC3339),
		SmoothingWindow: window,
		Method:          method.Name(),
		Stats:           stats,
		AnomalyStats:    anomalyStats,
		Points:          points,
	}, nil
}

// BuoyListResponse lists the available buoy records.
type BuoyListResponse struct {
	Buoys []string `json:"buoys"`
	Count int      `json:"count"`
}

// ListBuoys returns the IDs of the buoys the store can serve.
func (uc *CompareUseCase) ListBuoys() (*BuoyListResponse, error) {
	ids, err := uc.buoys.ListBuoys()
	if err != nil {
		return nil, fmt.Errorf("failed to list buoys: %w", err)
	}
	return &BuoyListResponse{Buoys: ids, Count: len(ids)}, nil
}

// anomalyPair decomposes both series into anomalies around their
// day-of-year climatologies.
func anomalyPair(sat, buoy *domain.Series) (*domain.Series, *domain.Series, error) {
	satClim, err := domain.ComputeClimatology(sat)
	if err != nil {
		return nil, nil, fmt.Errorf("satellite climatology: %w", err)
	}
	buoyClim, err := domain.ComputeClimatology(buoy)
	if err != nil {
		return nil, nil, fmt.Errorf("buoy climatology: %w", err)
	}
	satAnom, err := domain.Anomaly(sat, satClim)
	if err != nil {
		return nil, nil, err
	}
	buoyAnom, err := domain.Anomaly(buoy, buoyClim)
	if err != nil {
		return nil, nil, err
	}
	return satAnom, buoyAnom, nil
}

// medianSpacing returns the median spacing of a timestamp grid.
func medianSpacing(times []time.Time) time.Duration {
	if len(times) < 2 {
		return 0
	}
	deltas := make([]time.Duration, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		deltas = append(deltas, times[i].Sub(times[i-1]))
	}
	// Insertion sort; the slice is short-lived and nearly uniform.
	for i := 1; i < len(deltas); i++ {
		for j := i; j > 0 && deltas[j] < deltas[j-1]; j-- {
			deltas[j], deltas[j-1] = deltas[j-1], deltas[j]
		}
	}
	return deltas[len(deltas)/2]
}

// deriveWindow derives the rolling-mean window from the sample-rate
// ratio of the coarse and fine series (e.g., 12 for 30-minute buoy data
// against a 6-hour satellite grid).
func deriveWindow(coarse, fine time.Duration) int {
	if fine <= 0 || coarse <= 0 {
		return 1
	}
	w := int(math.Round(float64(coarse) / float64(fine)))
	if w < 1 {
		w = 1
	}
	return w
}

// roundToDecimal rounds to the given number of decimal places.
func roundToDecimal(val float64, precision int) float64 {
	if math.IsNaN(val) {
		return val
	}
	multiplier := math.Pow(10, float64(precision))
	return math.Round(val*multiplier) / multiplier
}
