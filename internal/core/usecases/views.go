package usecases

import (
	"sort"
	"strings"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/pkg/geospatial"
)

// buildMapView centres on a valid reference at street zoom with the radius
// circle around it; otherwise it shows every valid row around the default
// centre. The reference never appears among the markers.
func buildMapView(sess *domain.Session) *domain.MapView {
	view := &domain.MapView{
		Center:  domain.DefaultMapCenter,
		Zoom:    domain.ZoomOverview,
		Unit:    sess.Unit,
		Radius:  sess.Radius,
		Markers: []domain.Marker{},
	}

	ref := sess.ReferenceRecord()
	if ref != nil {
		view.Zoom = domain.ZoomReference
		if center, ok := ref.Coordinates(); ok {
			meters := geospatial.RadiusMeters(sess.Radius, sess.Unit.IsMiles())
			minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lon, meters)

			view.Center = center
			view.Circle = &domain.Circle{Center: center, RadiusMeters: meters}
			view.Bounds = &domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
			m := marker(domain.RecordMatch{
				Index:    *sess.Reference,
				Record:   *ref,
				Selected: sess.Selection.Contains(*ref),
			}, center)
			view.Reference = &m
		}
	}

	for _, match := range matchesFor(sess) {
		if ref != nil && match.Record.SameProperty(*ref) {
			continue
		}
		p, ok := match.Record.Coordinates()
		if !ok {
			continue
		}
		view.Markers = append(view.Markers, marker(match, p))
	}
	return view
}

func marker(m domain.RecordMatch, at domain.GeoPoint) domain.Marker {
	return domain.Marker{
		Index:    m.Index,
		Name:     m.Record.Name,
		Price:    m.Record.Price,
		Location: at,
		Identity: m.Record.Identity(),
		Distance: m.Distance,
		Selected: m.Selected,
	}
}

func searchRecords(sess *domain.Session, query string, limit int) []domain.RecordMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.RecordMatch, 0, limit)
	for i, r := range sess.Dataset.Records {
		if len(out) == limit {
			break
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Name), q) {
			continue
		}
		out = append(out, domain.RecordMatch{Index: i, Record: r, Selected: sess.Selection.Contains(r)})
	}
	return out
}

// exportHeaders lists the dataset's headers first, then any other keys found
// on the records in sorted order.
func exportHeaders(ds *domain.Dataset, records []domain.Record) []string {
	seen := map[string]bool{}
	var headers []string
	if ds != nil {
		for _, h := range ds.Headers {
			if !seen[h] {
				seen[h] = true
				headers = append(headers, h)
			}
		}
	}

	var extra []string
	for _, r := range records {
		for k := range r.Fields {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(headers, extra...)
}
