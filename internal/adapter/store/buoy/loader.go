// Package buoy provides CSV-based point buoy wind records.
package buoy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"go.ccmp.io/winds-api/internal/domain"
)

// Store provides access to buoy wind-speed time series stored as one
// CSV file per buoy (buoy_<id>.csv). Every row repeats the buoy's fixed
// location; the loader validates that it never moves.
type Store struct {
	dataDir string
}

// NewStore creates a new CSV-based buoy store.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

var expectedHeader = []string{"time", "lat", "lon", "wind_speed_ms"}

// LoadBuoy loads the wind-speed series and location of a named buoy.
// Missing observations may be encoded as empty fields or "NaN".
func (s *Store) LoadBuoy(buoyID string) (*domain.Series, domain.Location, error) {
	filename := fmt.Sprintf("%s/buoy_%s.csv", s.dataDir, strings.ToLower(buoyID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, domain.Location{}, fmt.Errorf("failed to open CSV file for buoy %s: %w", buoyID, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, domain.Location{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(expectedHeader) {
		return nil, domain.Location{}, fmt.Errorf("invalid CSV header: expected %v, got %v", expectedHeader, header)
	}
	for i, h := range header {
		if h != expectedHeader[i] {
			return nil, domain.Location{}, fmt.Errorf("invalid CSV header: expected column %d to be %s, got %s", i, expectedHeader[i], h)
		}
	}

	series := &domain.Series{}
	var loc domain.Location
	haveLoc := false

	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, domain.Location{}, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) != 4 {
			return nil, domain.Location{}, fmt.Errorf("invalid CSV record: expected 4 columns, got %d", len(record))
		}

		t, err := time.Parse(time.RFC3339, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, domain.Location{}, fmt.Errorf("invalid timestamp %q: %w", record[0], err)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, domain.Location{}, fmt.Errorf("invalid latitude at %s: %w", record[0], err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, domain.Location{}, fmt.Errorf("invalid longitude at %s: %w", record[0], err)
		}

		if !haveLoc {
			loc = domain.Location{Lat: lat, Lon: lon}
			haveLoc = true
		} else if lat != loc.Lat || lon != loc.Lon {
			return nil, domain.Location{}, fmt.Errorf("buoy %s location changes at %s: (%.4f, %.4f) vs (%.4f, %.4f)",
				buoyID, record[0], lat, lon, loc.Lat, loc.Lon)
		}

		speed, err := parseSpeed(record[3])
		if err != nil {
			return nil, domain.Location{}, fmt.Errorf("invalid wind speed at %s: %w", record[0], err)
		}

		series.Times = append(series.Times, t.UTC())
		series.Values = append(series.Values, speed)
	}

	if err := series.Validate(); err != nil {
		return nil, domain.Location{}, fmt.Errorf("buoy %s series: %w", buoyID, err)
	}
	return series, loc, nil
}

// parseSpeed parses a wind-speed field, mapping empty and "NaN" to a
// missing-value marker.
func parseSpeed(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" || strings.EqualFold(field, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative wind speed %.2f", v)
	}
	return v, nil
}

// ListBuoys returns available buoy IDs.
func (s *Store) ListBuoys() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	buoys := make([]string, 0)
	prefix := "buoy_"
	suffix := ".csv"

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			buoys = append(buoys, name[len(prefix):len(name)-len(suffix)])
		}
	}

	return buoys, nil
}
