package geospatial

import "math"

const (
	// EarthRadiusMeters is the mean earth radius used by every distance here.
	EarthRadiusMeters = 6371000.0

	// KmToMiles converts kilometers to statute miles.
	KmToMiles = 0.621371

	// MetersPerMile is the conversion used when drawing a radius in miles.
	MetersPerMile = 1609.34
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a just past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// Distance returns the haversine distance in kilometers, or miles when
// miles is true.
func Distance(lat1, lon1, lat2, lon2 float64, miles bool) float64 {
	d := Haversine(lat1, lon1, lat2, lon2) / 1000
	if miles {
		d *= KmToMiles
	}
	return d
}

// RadiusMeters converts a radius expressed in km (or miles) into meters for
// map circle rendering.
func RadiusMeters(radius float64, miles bool) float64 {
	if miles {
		return radius * MetersPerMile
	}
	return radius * 1000
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
