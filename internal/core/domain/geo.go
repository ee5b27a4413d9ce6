package domain

import (
	"fmt"
	"strings"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Unit is the linear unit a radius and a distance are expressed in.
type Unit string

const (
	UnitKm    Unit = "km"
	UnitMiles Unit = "miles"
)

// ParseUnit accepts "km" or "miles" (case-insensitive, "mi" allowed).
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "km", "":
		return UnitKm, nil
	case "miles", "mile", "mi":
		return UnitMiles, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}

// IsMiles reports whether distances should be converted to miles.
func (u Unit) IsMiles() bool { return u == UnitMiles }

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool { return u == UnitKm || u == UnitMiles }
