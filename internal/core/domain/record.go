package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Canonical column names.
const (
	FieldName      = "Name"
	FieldLatitude  = "Latitude"
	FieldLongitude = "Longitude"
	FieldPrice     = "Price"
)

// RequiredColumns lists the columns every upload must carry, in reporting order.
var RequiredColumns = []string{FieldName, FieldLatitude, FieldLongitude}

// Columns maps each canonical field to the header as it appears in the file.
type Columns struct {
	Name      string `json:"name"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Price     string `json:"price,omitempty"`
}

// DefaultColumns is the canonical header layout.
var DefaultColumns = Columns{
	Name:      FieldName,
	Latitude:  FieldLatitude,
	Longitude: FieldLongitude,
	Price:     FieldPrice,
}

// HeaderValidation is the outcome of ValidateHeaders.
type HeaderValidation struct {
	OK      bool
	Missing []string
	Columns Columns
}

// ValidateHeaders matches the required columns case-insensitively against
// headers, ignoring surrounding whitespace. Columns holds the headers
// untouched. Missing names are reported in canonical casing. Only the header
// row is inspected, so a file with no data rows validates the same way.
func ValidateHeaders(headers []string) HeaderValidation {
	find := func(canonical string) string {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), canonical) {
				return h
			}
		}
		return ""
	}

	cols := Columns{
		Name:      find(FieldName),
		Latitude:  find(FieldLatitude),
		Longitude: find(FieldLongitude),
		Price:     find(FieldPrice),
	}

	var missing []string
	for _, req := range RequiredColumns {
		if find(req) == "" {
			missing = append(missing, req)
		}
	}

	return HeaderValidation{OK: len(missing) == 0, Missing: missing, Columns: cols}
}

// CoordinateIdentity is the raw (Latitude, Longitude) string pair that
// identifies a property. "40.0" and "40" are different identities.
type CoordinateIdentity struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Record is one uploaded row. Fields holds every value verbatim; the named
// strings are the raw values of the well-known columns resolved at load.
type Record struct {
	Fields    map[string]string
	Name      string
	Latitude  string
	Longitude string
	Price     string
}

// Bind resolves the well-known columns of fields into a Record.
func (c Columns) Bind(fields map[string]string) Record {
	r := Record{Fields: fields}
	if fields == nil {
		return r
	}
	r.Name = fields[c.Name]
	r.Latitude = fields[c.Latitude]
	r.Longitude = fields[c.Longitude]
	if c.Price != "" {
		r.Price = fields[c.Price]
	}
	return r
}

// NewRecord binds fields using the canonical column names.
func NewRecord(fields map[string]string) Record {
	return DefaultColumns.Bind(fields)
}

// Identity returns the record's coordinate identity.
func (r Record) Identity() CoordinateIdentity {
	return CoordinateIdentity{Latitude: r.Latitude, Longitude: r.Longitude}
}

// SameProperty reports whether r and o share a coordinate identity.
func (r Record) SameProperty(o Record) bool {
	return r.Latitude == o.Latitude && r.Longitude == o.Longitude
}

// Coordinates parses the raw latitude and longitude. ok is false when either
// is empty or not a finite number.
func (r Record) Coordinates() (p GeoPoint, ok bool) {
	lat, ok := parseCoord(r.Latitude)
	if !ok {
		return GeoPoint{}, false
	}
	lon, ok := parseCoord(r.Longitude)
	if !ok {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: lat, Lon: lon}, true
}

// HasValidCoordinates is shorthand for the ok result of Coordinates.
func (r Record) HasValidCoordinates() bool {
	_, ok := r.Coordinates()
	return ok
}

// MarshalJSON encodes the record as its raw field map.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Fields)
}

func parseCoord(val string) (float64, bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
