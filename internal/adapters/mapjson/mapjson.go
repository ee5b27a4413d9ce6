// Package mapjson encodes a session's map view as GeoJSON for web map
// clients (Leaflet, MapLibre).
package mapjson

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// Feature roles.
const (
	RoleReference = "reference"
	RoleProperty  = "property"
	RoleRadius    = "radius"
)

// FromMapView builds a FeatureCollection with one Point per marker, the
// reference and the radius circle. View settings travel as foreign members.
func FromMapView(v *domain.MapView) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"center": []float64{v.Center.Lon, v.Center.Lat},
		"zoom":   v.Zoom,
		"unit":   string(v.Unit),
		"radius": v.Radius,
	}

	if v.Bounds != nil {
		fc.BBox = geojson.NewBBox(orb.Bound{
			Min: orb.Point{v.Bounds.MinLon, v.Bounds.MinLat},
			Max: orb.Point{v.Bounds.MaxLon, v.Bounds.MaxLat},
		})
	}

	if v.Circle != nil {
		f := geojson.NewFeature(point(v.Circle.Center))
		f.Properties["role"] = RoleRadius
		f.Properties["radius_meters"] = v.Circle.RadiusMeters
		fc.Append(f)
	}
	if v.Reference != nil {
		fc.Append(markerFeature(*v.Reference, RoleReference))
	}
	for _, m := range v.Markers {
		fc.Append(markerFeature(m, RoleProperty))
	}
	return fc
}

func markerFeature(m domain.Marker, role string) *geojson.Feature {
	f := geojson.NewFeature(point(m.Location))
	f.ID = m.Index
	f.Properties["role"] = role
	f.Properties["index"] = m.Index
	f.Properties["name"] = m.Name
	f.Properties["latitude"] = m.Identity.Latitude
	f.Properties["longitude"] = m.Identity.Longitude
	f.Properties["selected"] = m.Selected
	if m.Price != "" {
		f.Properties["price"] = m.Price
	}
	if m.Distance != nil {
		f.Properties["distance"] = *m.Distance
	}
	return f
}

// GeoJSON positions are lon, lat.
func point(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
