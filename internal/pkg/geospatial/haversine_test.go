package geospatial_test

import (
	"math"
	"testing"

	"github.com/propertypulse/propertypulse/internal/pkg/geospatial"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tol              float64
	}{
		{"same point", 40.7128, -74.006, 40.7128, -74.006, 0, 1e-9},
		{"hundredth of a degree on the equator", 0, 0, 0, 0.01, 1111.95, 0.01},
		{"one degree of latitude", 10, 10, 11, 10, 111194.9, 0.1},
		{"new york to london", 40.7128, -74.006, 51.5074, -0.1278, 5570000, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !near(got, tt.want, tt.tol) {
				t.Errorf("expected %.2f m, got %.2f m", tt.want, got)
			}
			back := geospatial.Haversine(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			if !near(got, back, 1e-6) {
				t.Errorf("distance not symmetric: %f vs %f", got, back)
			}
		})
	}
}

func TestHaversine_AntipodalIsHalfCircumference(t *testing.T) {
	half := math.Pi * geospatial.EarthRadiusMeters
	for lat := -89.5; lat <= 89.5; lat += 0.01 {
		for _, lon := range []float64{-179.9, -45, 0, 120.3} {
			got := geospatial.Haversine(lat, lon, -lat, lon+180)
			if math.IsNaN(got) || !near(got, half, 1) {
				t.Fatalf("(%.2f,%.2f) to its antipode: expected %.1f m, got %v", lat, lon, half, got)
			}
		}
	}
	if got := geospatial.Distance(-85.46, -179.9, 85.46, 0.1, false); math.IsNaN(got) {
		t.Fatal("expected a finite distance for antipodal points")
	}
}

func TestDistance_Units(t *testing.T) {
	km := geospatial.Distance(0, 0, 0, 0.01, false)
	if !near(km, 1.11195, 1e-4) {
		t.Errorf("expected 1.11195 km, got %f", km)
	}
	mi := geospatial.Distance(0, 0, 0, 0.01, true)
	if !near(mi, km*geospatial.KmToMiles, 1e-12) {
		t.Errorf("expected %f mi, got %f", km*geospatial.KmToMiles, mi)
	}
}

func TestRadiusMeters(t *testing.T) {
	if got := geospatial.RadiusMeters(2, false); got != 2000 {
		t.Errorf("expected 2000, got %f", got)
	}
	if got := geospatial.RadiusMeters(2, true); !near(got, 3218.68, 1e-9) {
		t.Errorf("expected 3218.68, got %f", got)
	}
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	lat, lon := 40.0, -3.7
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, 5000)
	if !(minLat < lat && lat < maxLat && minLon < lon && lon < maxLon) {
		t.Fatalf("center outside box: %f,%f %f,%f", minLat, minLon, maxLat, maxLon)
	}
	// Box edges sit roughly one radius away from the center.
	if d := geospatial.Haversine(lat, lon, maxLat, lon); !near(d, 5000, 25) {
		t.Errorf("north edge %f m away", d)
	}
	if d := geospatial.Haversine(lat, lon, lat, maxLon); !near(d, 5000, 25) {
		t.Errorf("east edge %f m away", d)
	}
}
