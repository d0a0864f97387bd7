package types

import (
	"database/sql/driver"
	"fmt"
)

// Location is a coordinate pair plus a free-text address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Value implements driver.Valuer.
func (l Location) Value() (driver.Value, error) {
	return jsonValue(l)
}

// Scan implements sql.Scanner.
func (l *Location) Scan(src any) error {
	if src == nil {
		*l = Location{}
		return nil
	}
	if err := jsonScan(src, l); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	return nil
}

// ValidCoordinates reports whether lat/lng fall inside WGS84 bounds.
func (l Location) ValidCoordinates() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
