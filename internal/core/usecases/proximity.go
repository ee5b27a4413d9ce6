package usecases

import (
	"math"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/pkg/geospatial"
)

// Distance returns the great-circle distance between a and b in km, or in
// miles when unit is miles.
func Distance(a, b domain.GeoPoint, unit domain.Unit) float64 {
	return geospatial.Distance(a.Lat, a.Lon, b.Lat, b.Lon, unit.IsMiles())
}

// FilterByDistance returns the records within radius of reference, in input
// order. Records without usable coordinates are dropped. A nil reference
// returns records unchanged; an unusable reference matches nothing.
func FilterByDistance(records []domain.Record, reference *domain.Record, radius float64, unit domain.Unit) []domain.Record {
	if reference == nil {
		return records
	}
	out := make([]domain.Record, 0, len(records))
	eachWithin(records, reference, radius, unit, func(_ int, r domain.Record, _ float64) {
		out = append(out, r)
	})
	return out
}

// eachWithin calls fn for every record within radius of reference, in order.
func eachWithin(records []domain.Record, reference *domain.Record, radius float64, unit domain.Unit, fn func(i int, r domain.Record, dist float64)) {
	origin, ok := reference.Coordinates()
	if !ok {
		return
	}
	for i, r := range records {
		p, ok := r.Coordinates()
		if !ok {
			continue
		}
		if d := Distance(origin, p, unit); d <= radius {
			fn(i, r, d)
		}
	}
}

// matchesFor is the session's live proximity output with row indexes,
// distances and selection flags.
func matchesFor(s *domain.Session) []domain.RecordMatch {
	if s.Dataset == nil {
		return []domain.RecordMatch{}
	}
	ref := s.ReferenceRecord()
	if ref == nil {
		out := make([]domain.RecordMatch, len(s.Dataset.Records))
		for i, r := range s.Dataset.Records {
			out[i] = domain.RecordMatch{Index: i, Record: r, Selected: s.Selection.Contains(r)}
		}
		return out
	}

	out := []domain.RecordMatch{}
	eachWithin(s.Dataset.Records, ref, s.Radius, s.Unit, func(i int, r domain.Record, d float64) {
		rounded := roundTo2(d)
		out = append(out, domain.RecordMatch{
			Index:    i,
			Record:   r,
			Distance: &rounded,
			Selected: s.Selection.Contains(r),
		})
	})
	return out
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
