// Package ccmp provides access to CCMP gridded surface-wind NetCDF data.
package ccmp

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ccmp.io/winds-api/internal/domain"
)

// Variable names in CCMP granules.
const (
	uwndVarName = "uwnd"
	vwndVarName = "vwnd"
	nobsVarName = "nobs"
)

// Store provides access to a directory of CCMP NetCDF granules. Each
// granule carries the uwnd, vwnd and nobs variables on a shared
// (time, latitude, longitude) grid. Loaded granules are cached.
type Store struct {
	dataDir string
	cache   map[string]*domain.Dataset // Keyed by granule path.
	mu      sync.RWMutex               // Protect cache.

	// OnLoad, when set, is called once per granule read from disk
	// (cache hits excluded). Used for instrumentation.
	OnLoad func()
}

// FileConfig defines the expected NetCDF file structure.
type FileConfig struct {
	TimeVarName string // E.g., "time".
	LatVarName  string // E.g., "lat", "latitude".
	LonVarName  string // E.g., "lon", "longitude".
	UwndVarName string // Zonal wind component.
	VwndVarName string // Meridional wind component.
	NobsVarName string // Observation count.
}

// DefaultConfig returns the default CCMP file configuration.
func DefaultConfig() FileConfig {
	return FileConfig{
		TimeVarName: "time",
		LatVarName:  "latitude",
		LonVarName:  "longitude",
		UwndVarName: uwndVarName,
		VwndVarName: vwndVarName,
		NobsVarName: nobsVarName,
	}
}

// NewStore creates a new CCMP NetCDF store.
func NewStore(dataDir string) *Store {
	return &Store{
		dataDir: dataDir,
		cache:   make(map[string]*domain.Dataset),
	}
}

// LoadWindow loads all granules overlapping [start, end], concatenated
// along time and trimmed to the window. It fails when the window
// touches no granule instead of returning silently empty cubes.
func (s *Store) LoadWindow(start, end time.Time) (*domain.Dataset, error) {
	paths, err := s.granulePaths()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CCMP NetCDF files found in %s", s.dataDir)
	}

	var parts []*domain.Dataset
	for _, path := range paths {
		ds, err := s.loadGranule(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}
		if ds.U.End().Before(start) || ds.U.Start().After(end) {
			continue
		}
		parts = append(parts, ds)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no CCMP data within [%s, %s]",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	merged, err := concatDatasets(parts)
	if err != nil {
		return nil, err
	}

	u, err := merged.U.Window(start, end)
	if err != nil {
		return nil, err
	}
	v, err := merged.V.Window(start, end)
	if err != nil {
		return nil, err
	}
	nobs, err := merged.Nobs.Window(start, end)
	if err != nil {
		return nil, err
	}
	return &domain.Dataset{U: u, V: v, Nobs: nobs}, nil
}

// granulePaths lists CCMP NetCDF files under dataDir, sorted by name.
// CCMP granule names embed the date, so lexical order is time order.
func (s *Store) granulePaths() ([]string, error) {
	if _, err := os.Stat(s.dataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("CCMP data directory does not exist: %s", s.dataDir)
	}

	var paths []string
	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".nc") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk CCMP directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// loadGranule reads one granule, using the cache when possible.
func (s *Store) loadGranule(path string) (*domain.Dataset, error) {
	s.mu.RLock()
	if ds, ok := s.cache[path]; ok {
		s.mu.RUnlock()
		return ds, nil
	}
	s.mu.RUnlock()

	ds, err := readGranule(path, DefaultConfig())
	if err != nil {
		return nil, err
	}
	if s.OnLoad != nil {
		s.OnLoad()
	}

	s.mu.Lock()
	s.cache[path] = ds
	s.mu.Unlock()
	return ds, nil
}

// readGranule reads the three CCMP variables from a NetCDF file.
func readGranule(path string, config FileConfig) (*domain.Dataset, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	times, err := readTimeAxis(nc, config.TimeVarName)
	if err != nil {
		return nil, err
	}

	lats, err := readCoord(nc, []string{config.LatVarName, "lat", "latitude", "y"})
	if err != nil {
		return nil, fmt.Errorf("latitude axis: %w", err)
	}
	lons, err := readCoord(nc, []string{config.LonVarName, "lon", "longitude", "x"})
	if err != nil {
		return nil, fmt.Errorf("longitude axis: %w", err)
	}

	readVar := func(name string) (*domain.Cube, error) {
		data, err := readCubeVar(nc, name, len(times), len(lats), len(lons))
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		cube := &domain.Cube{Times: times, Lats: lats, Lons: lons, Data: data}
		if err := cube.Validate(); err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		return cube, nil
	}

	u, err := readVar(config.UwndVarName)
	if err != nil {
		return nil, err
	}
	v, err := readVar(config.VwndVarName)
	if err != nil {
		return nil, err
	}
	nobs, err := readVar(config.NobsVarName)
	if err != nil {
		return nil, err
	}

	return &domain.Dataset{U: u, V: v, Nobs: nobs}, nil
}

// readTimeAxis reads and decodes a CF "units since epoch" time axis.
func readTimeAxis(nc netcdf.Dataset, varName string) ([]time.Time, error) {
	v, err := nc.Var(varName)
	if err != nil {
		return nil, fmt.Errorf("time variable %q not found", varName)
	}

	raw, err := readFloat64Var(v)
	if err != nil {
		return nil, fmt.Errorf("reading time axis: %w", err)
	}

	units, err := readStringAttr(v, "units")
	if err != nil {
		return nil, fmt.Errorf("time axis has no units attribute: %w", err)
	}

	step, epoch, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, len(raw))
	for i, offset := range raw {
		times[i] = epoch.Add(time.Duration(offset * float64(step)))
	}
	return times, nil
}

// parseTimeUnits parses CF time units like "hours since 1987-01-01 00:00:00".
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("unsupported time units %q", units)
	}

	var step time.Duration
	switch strings.TrimSpace(parts[0]) {
	case "seconds":
		step = time.Second
	case "minutes":
		step = time.Minute
	case "hours":
		step = time.Hour
	case "days":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}

	ref := strings.TrimSpace(parts[1])
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if epoch, err := time.Parse(layout, ref); err == nil {
			return step, epoch.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("unsupported time epoch %q", ref)
}

// readCoord reads a 1D coordinate axis, trying candidate names in order.
func readCoord(nc netcdf.Dataset, names []string) ([]float64, error) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			data, err := readFloat64Var(v)
			if err == nil {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

// readCubeVar reads a 3D [time, lat, lon] variable as a flat float64
// array, converting fill values to NaN.
func readCubeVar(nc netcdf.Dataset, name string, nTime, nLat, nLon int) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("variable not found")
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("expected 3D data, got %dD", len(dims))
	}
	wantLens := []uint64{uint64(nTime), uint64(nLat), uint64(nLon)}
	for i, dim := range dims {
		n, err := dim.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		if n != wantLens[i] {
			return nil, fmt.Errorf("dimension %d mismatch: got %d, expected %d", i, n, wantLens[i])
		}
	}

	flat, err := readFlatFloat64(v, nTime*nLat*nLon)
	if err != nil {
		return nil, err
	}

	// Map _FillValue / missing_value to NaN so downstream operations
	// treat them as missing rather than huge artifacts.
	if fv, ok := getFillValue(v); ok {
		for i := range flat {
			if flat[i] == fv {
				flat[i] = math.NaN()
			}
		}
	}
	return flat, nil
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if a == (netcdf.Attr{}) {
			continue
		}
		if n, err := a.Len(); err == nil && n > 0 {
			buf64 := make([]float64, 1)
			if err := a.ReadFloat64s(buf64); err == nil {
				return buf64[0], true
			}
			buf32 := make([]float32, 1)
			if err := a.ReadFloat32s(buf32); err == nil {
				return float64(buf32[0]), true
			}
			bufi := make([]int32, 1)
			if err := a.ReadInt32s(bufi); err == nil {
				return float64(bufi[0]), true
			}
		}
	}
	return 0, false
}

// readStringAttr reads a text attribute from a NetCDF variable.
func readStringAttr(v netcdf.Var, name string) (string, error) {
	a := v.Attr(name)
	if a == (netcdf.Attr{}) {
		return "", fmt.Errorf("attribute %q not found", name)
	}
	n, err := a.Len()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

// readFloat64Var reads a 1D float64 array from a NetCDF variable.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}

	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readFlatFloat64(v, int(length))
}

// readFlatFloat64 reads a variable of known total length as float64,
// widening narrower numeric types.
func readFlatFloat64(v netcdf.Var, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

// concatDatasets concatenates parts along the time axis. Parts must
// share the same grid and be in time order without overlap.
func concatDatasets(parts []*domain.Dataset) (*domain.Dataset, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}

	first := parts[0]
	for _, p := range parts[1:] {
		if len(p.U.Lats) != len(first.U.Lats) || len(p.U.Lons) != len(first.U.Lons) {
			return nil, fmt.Errorf("granules disagree on grid shape")
		}
	}

	concat := func(get func(*domain.Dataset) *domain.Cube) (*domain.Cube, error) {
		var times []time.Time
		var data []float64
		for _, p := range parts {
			c := get(p)
			if len(times) > 0 && !c.Times[0].After(times[len(times)-1]) {
				return nil, fmt.Errorf("granule time axes overlap at %s", c.Times[0].Format(time.RFC3339))
			}
			times = append(times, c.Times...)
			data = append(data, c.Data...)
		}
		return &domain.Cube{Times: times, Lats: first.U.Lats, Lons: first.U.Lons, Data: data}, nil
	}

	u, err := concat(func(d *domain.Dataset) *domain.Cube { return d.U })
	if err != nil {
		return nil, err
	}
	v, err := concat(func(d *domain.Dataset) *domain.Cube { return d.V })
	if err != nil {
		return nil, err
	}
	nobs, err := concat(func(d *domain.Dataset) *domain.Cube { return d.Nobs })
	if err != nil {
		return nil, err
	}
	return &domain.Dataset{U: u, V: v, Nobs: nobs}, nil
}
