package store

import (
	"time"

	"go.ccmp.io/winds-api/internal/domain"
)

// FieldLoader is the interface for loading the gridded CCMP variable set.
type FieldLoader interface {
	// LoadWindow loads the dataset subset inside [start, end].
	LoadWindow(start, end time.Time) (*domain.Dataset, error)
}

// BuoySeriesLoader is the interface for loading point buoy wind records.
type BuoySeriesLoader interface {
	// LoadBuoy loads the wind-speed series and location of a named buoy.
	LoadBuoy(buoyID string) (*domain.Series, domain.Location, error)

	// ListBuoys returns the available buoy IDs.
	ListBuoys() ([]string, error)
}
