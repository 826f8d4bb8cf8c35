package usecase

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"go.ccmp.io/winds-api/internal/adapter/store"
	"go.ccmp.io/winds-api/internal/compute"
	"go.ccmp.io/winds-api/internal/domain"
)

// MaskRequest asks for an ocean/land/ice mask built from observation
// counts under a named policy.
type MaskRequest struct {
	Policy  string
	Start   time.Time
	End     time.Time
	Options domain.MaskOptions
}

// Validate checks if the request is valid.
func (r *MaskRequest) Validate() error {
	if _, err := domain.ParseMaskPolicy(r.Policy); err != nil {
		return err
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end times must be provided")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("start time must be before end time")
	}
	return nil
}

// MaskResponse summarizes a built mask.
type MaskResponse struct {
	Policy        string  `json:"policy"`
	Static        bool    `json:"static"`
	TimeSteps     int     `json:"time_steps"`
	GridLats      int     `json:"grid_lats"`
	GridLons      int     `json:"grid_lons"`
	Cutoff        float64 `json:"cutoff,omitempty"`
	ValidFraction float64 `json:"valid_fraction"`
	// MeanSpeedMS is the mean wind speed over the samples the mask
	// keeps valid.
	MeanSpeedMS float64 `json:"mean_speed_ms"`
}

// HistogramRequest asks for per-cell wind-speed bin fractions.
type HistogramRequest struct {
	Start time.Time
	End   time.Time
	// Bins are the histogram bin edges in m/s (e.g., 0, 2, 1000).
	Bins []float64
	// MaskPolicy optionally re-masks the result by an ocean mask built
	// under the named static policy before spatial statistics.
	MaskPolicy string
}

// Validate checks if the request is valid.
func (r *HistogramRequest) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end times must be provided")
	}
	if !r.Start.Before(r.End) {
		return fmt.Errorf("start time must be before end time")
	}
	if len(r.Bins) < 2 {
		return fmt.Errorf("at least 2 bin edges must be provided")
	}
	for i := 1; i < len(r.Bins); i++ {
		if r.Bins[i] <= r.Bins[i-1] {
			return fmt.Errorf("bin edges must be strictly increasing")
		}
	}
	if r.MaskPolicy != "" {
		p, err := domain.ParseMaskPolicy(r.MaskPolicy)
		if err != nil {
			return err
		}
		if p == domain.MaskDaily {
			return fmt.Errorf("histogram re-masking requires a static policy (land or climatology)")
		}
	}
	return nil
}

// HistogramBin summarizes one bin across the grid.
type HistogramBin struct {
	LowMS  float64 `json:"low_ms"`
	HighMS float64 `json:"high_ms"`
	// MeanFraction is the spatial mean of the per-cell fraction of
	// samples in this bin, over cells with any observations.
	MeanFraction float64 `json:"mean_fraction"`
	ValidCells   int     `json:"valid_cells"`
}

// HistogramResponse summarizes per-cell bin fractions.
type HistogramResponse struct {
	Start      string         `json:"start"`
	End        string         `json:"end"`
	MaskPolicy string         `json:"mask_policy,omitempty"`
	Bins       []HistogramBin `json:"bins"`
}

// MaskUseCase builds observation masks and grid histograms. Grid-scale
// work runs under an explicitly acquired execution context.
type MaskUseCase struct {
	fields  store.FieldLoader
	workers int
	logger  *zap.Logger
}

// NewMaskUseCase creates a new mask use case with the given worker
// count for grid-scale operations.
func NewMaskUseCase(fields store.FieldLoader, workers int, logger *zap.Logger) *MaskUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaskUseCase{fields: fields, workers: workers, logger: logger}
}

// Execute builds a mask under the requested policy.
func (uc *MaskUseCase) Execute(req MaskRequest) (*MaskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	policy, _ := domain.ParseMaskPolicy(req.Policy)

	ds, err := uc.fields.LoadWindow(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load satellite data: %w", err)
	}

	ec := compute.Acquire(uc.workers)
	defer ec.Release()

	_, mask, err := domain.BuildMask(ec, ds.Nobs, policy, req.Options)
	if err != nil {
		return nil, err
	}

	masked, err := ds.Apply(mask)
	if err != nil {
		return nil, fmt.Errorf("masking dataset: %w", err)
	}
	speed, err := masked.WindSpeed()
	if err != nil {
		return nil, err
	}
	var speeds []float64
	for _, v := range speed.Data {
		if !math.IsNaN(v) {
			speeds = append(speeds, v)
		}
	}
	meanSpeed := 0.0
	if len(speeds) > 0 {
		meanSpeed = roundToDecimal(stat.Mean(speeds, nil), 3)
	}

	uc.logger.Info("built observation mask",
		zap.String("policy", policy.String()),
		zap.Float64("valid_fraction", mask.ValidFraction()),
		zap.Float64("cutoff", mask.Cutoff))

	return &MaskResponse{
		Policy:        policy.String(),
		Static:        mask.Times == nil,
		TimeSteps:     len(mask.Times),
		GridLats:      len(mask.Lats),
		GridLons:      len(mask.Lons),
		Cutoff:        mask.Cutoff,
		ValidFraction: mask.ValidFraction(),
		MeanSpeedMS:   meanSpeed,
	}, nil
}

// Histogram computes per-cell wind-speed bin fractions over a time
// subset, optionally re-masked by an ocean mask before the spatial
// summary.
func (uc *MaskUseCase) Histogram(req HistogramRequest) (*HistogramResponse, error) {
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

	ec := compute.Acquire(uc.workers)
	defer ec.Release()

	hist, err := domain.BinFractions(ec, speed, req.Bins)
	if err != nil {
		return nil, err
	}

	if req.MaskPolicy != "" {
		policy, _ := domain.ParseMaskPolicy(req.MaskPolicy)
		_, mask, err := domain.BuildMask(ec, ds.Nobs, policy, domain.MaskOptions{})
		if err != nil {
			return nil, err
		}
		hist, err = hist.Masked(mask)
		if err != nil {
			return nil, err
		}
	}

	bins := make([]HistogramBin, hist.NumBins())
	cells := len(hist.Lats) * len(hist.Lons)
	for b := 0; b < hist.NumBins(); b++ {
		var fractions []float64
		for cell := 0; cell < cells; cell++ {
			v := hist.Data[b*cells+cell]
			if !math.IsNaN(v) {
				fractions = append(fractions, v)
			}
		}
		bin := HistogramBin{
			LowMS:      hist.Bins[b],
			HighMS:     hist.Bins[b+1],
			ValidCells: len(fractions),
		}
		// Cells with no observations carry NaN fractions and are left
		// out; an all-missing bin reports zero with ValidCells == 0.
		if len(fractions) > 0 {
			bin.MeanFraction = roundToDecimal(stat.Mean(fractions, nil), 6)
		}
		bins[b] = bin
	}

	return &HistogramResponse{
		Start:      req.Start.UTC().Format(time.RFC3339),
		End:        req.End.UTC().Format(time.RFC3339),
		MaskPolicy: req.MaskPolicy,
		Bins:       bins,
	}, nil
}
