package domain

import "time"

// DefaultMapCenter is used when no reference is chosen (New York City).
var DefaultMapCenter = GeoPoint{Lat: 40.7128, Lon: -74.0060}

// Zoom levels for the map collaborator.
const (
	ZoomOverview  = 10
	ZoomReference = 13
)

// Circle is the radius overlay drawn around the reference.
type Circle struct {
	Center       GeoPoint `json:"center"`
	RadiusMeters float64  `json:"radius_meters"`
}

// Marker is one proximity result placed on the map.
type Marker struct {
	Index    int                `json:"index"`
	Name     string             `json:"name"`
	Price    string             `json:"price,omitempty"`
	Location GeoPoint           `json:"location"`
	Identity CoordinateIdentity `json:"identity"`
	Distance *float64           `json:"distance,omitempty"` // in Unit, 2 decimals
	Selected bool               `json:"selected"`
}

// MapView is everything the map collaborator needs to render a session.
type MapView struct {
	Center    GeoPoint `json:"center"`
	Zoom      int      `json:"zoom"`
	Unit      Unit     `json:"unit"`
	Radius    float64  `json:"radius"`
	Reference *Marker  `json:"reference,omitempty"`
	Circle    *Circle  `json:"circle,omitempty"`
	Bounds    *Bounds  `json:"bounds,omitempty"`
	Markers   []Marker `json:"markers"`
}

// RecordMatch is a dataset row returned by a query, with its row index so
// clients can act on it.
type RecordMatch struct {
	Index    int      `json:"index"`
	Record   Record   `json:"record"`
	Distance *float64 `json:"distance,omitempty"`
	Selected bool     `json:"selected"`
}

// ProximityResult is the filter output together with the reference, radius
// and unit it was computed from.
type ProximityResult struct {
	Reference *Record       `json:"reference,omitempty"`
	Radius    float64       `json:"radius"`
	Unit      Unit          `json:"unit"`
	Count     int           `json:"count"`
	Results   []RecordMatch `json:"results"`
}

// Preview is the head of a dataset for a quick look at the upload.
type Preview struct {
	Headers []string `json:"headers"`
	Rows    []Record `json:"rows"`
	Total   int      `json:"total"`
}

// Export is a generated spreadsheet of the selection.
type Export struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
	Data        []byte    `json:"-"`
}
