// Command mask-generator builds an observation-count mask from a CCMP
// granule directory and writes it to a NetCDF file. The policy and its
// parameters come from a YAML config.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go.ccmp.io/winds-api/internal/adapter/store/ccmp"
	"go.ccmp.io/winds-api/internal/compute"
	"go.ccmp.io/winds-api/internal/domain"
)

// Config is the YAML configuration of a mask run.
type Config struct {
	// Policy is one of "daily", "land", or "climatology".
	Policy string `yaml:"policy"`

	// DataDir holds the CCMP NetCDF granules.
	DataDir string `yaml:"data_dir"`

	// Start and End bound the observation window (RFC3339).
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`

	// Output is the path of the NetCDF mask file to write.
	Output string `yaml:"output"`

	// Workers bounds the worker pool; zero means all CPUs.
	Workers int `yaml:"workers"`

	Options struct {
		SamplesPerDay int `yaml:"samples_per_day"`
		WindowDays    int `yaml:"window_days"`
		CoarsenStep   int `yaml:"coarsen_step"`
		RollingWindow int `yaml:"rolling_window"`
		Reference     struct {
			LatMin float64 `yaml:"lat_min"`
			LatMax float64 `yaml:"lat_max"`
			LonMin float64 `yaml:"lon_min"`
			LonMax float64 `yaml:"lon_max"`
		} `yaml:"reference"`
		SafetyMargin float64 `yaml:"safety_margin"`
	} `yaml:"options"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &Config{
		Policy:  "daily",
		DataDir: "./data/ccmp",
		Output:  "./data/masks/mask.nc",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		return nil, fmt.Errorf("start and end must be set")
	}
	if !cfg.Start.Before(cfg.End) {
		return nil, fmt.Errorf("start must be before end")
	}
	return cfg, nil
}

func (c *Config) maskOptions() domain.MaskOptions {
	return domain.MaskOptions{
		SamplesPerDay: c.Options.SamplesPerDay,
		WindowDays:    c.Options.WindowDays,
		CoarsenStep:   c.Options.CoarsenStep,
		RollingWindow: c.Options.RollingWindow,
		Reference: domain.Region{
			LatMin: c.Options.Reference.LatMin,
			LatMax: c.Options.Reference.LatMax,
			LonMin: c.Options.Reference.LonMin,
			LonMax: c.Options.Reference.LonMax,
		},
		SafetyMargin: c.Options.SafetyMargin,
	}
}

func main() {
	configPath := flag.String("config", "./mask.yaml", "Path to YAML config")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	policy, err := domain.ParseMaskPolicy(cfg.Policy)
	if err != nil {
		logger.Fatal("invalid policy", zap.Error(err))
	}

	logger.Info("building mask",
		zap.String("policy", policy.String()),
		zap.String("data_dir", cfg.DataDir),
		zap.Time("start", cfg.Start),
		zap.Time("end", cfg.End))

	st := ccmp.NewStore(cfg.DataDir)
	ds, err := st.LoadWindow(cfg.Start, cfg.End)
	if err != nil {
		logger.Fatal("failed to load CCMP data", zap.Error(err))
	}

	ec := compute.Acquire(cfg.Workers)
	defer ec.Release()

	_, mask, err := domain.BuildMask(ec, ds.Nobs, policy, cfg.maskOptions())
	if err != nil {
		logger.Fatal("failed to build mask", zap.Error(err))
	}

	logger.Info("mask built",
		zap.Float64("valid_fraction", mask.ValidFraction()),
		zap.Float64("cutoff", mask.Cutoff))

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
		logger.Fatal("failed to create output directory", zap.Error(err))
	}
	if err := writeMaskNetCDF(cfg.Output, mask); err != nil {
		logger.Fatal("failed to write mask", zap.Error(err))
	}
	logger.Info("mask written", zap.String("path", cfg.Output))
}

// writeMaskNetCDF writes the mask as an INT variable (1 valid, 0
// invalid) on lat/lon dimensions, with a leading time dimension for
// time-varying masks. The cutoff rides along as a one-element variable.
func writeMaskNetCDF(path string, mask *domain.Mask) error {
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	latDim, err := ds.AddDim("latitude", uint64(len(mask.Lats)))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim("longitude", uint64(len(mask.Lons)))
	if err != nil {
		return err
	}

	latVar, err := ds.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	if err := latVar.WriteFloat64s(mask.Lats); err != nil {
		return err
	}

	lonVar, err := ds.AddVar("longitude", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(mask.Lons); err != nil {
		return err
	}

	maskDims := []netcdf.Dim{latDim, lonDim}
	if len(mask.Times) > 0 {
		timeDim, err := ds.AddDim("time", uint64(len(mask.Times)))
		if err != nil {
			return err
		}
		timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
		if err != nil {
			return err
		}
		epoch := make([]float64, len(mask.Times))
		for i, t := range mask.Times {
			epoch[i] = float64(t.Unix())
		}
		if err := timeVar.WriteFloat64s(epoch); err != nil {
			return err
		}
		maskDims = append([]netcdf.Dim{timeDim}, maskDims...)
	}

	maskVar, err := ds.AddVar("valid", netcdf.INT, maskDims)
	if err != nil {
		return err
	}
	flags := make([]int32, len(mask.Valid))
	for i, v := range mask.Valid {
		if v {
			flags[i] = 1
		}
	}
	if err := maskVar.WriteInt32s(flags); err != nil {
		return err
	}

	scalarDim, err := ds.AddDim("scalar", 1)
	if err != nil {
		return err
	}
	cutoffVar, err := ds.AddVar("cutoff", netcdf.DOUBLE, []netcdf.Dim{scalarDim})
	if err != nil {
		return err
	}
	return cutoffVar.WriteFloat64s([]float64{mask.Cutoff})
}
