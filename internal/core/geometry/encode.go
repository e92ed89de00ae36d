package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// ToLinearWKT renders points as a LINESTRING in lon/lat order.
func ToLinearWKT(points []domain.Point) string {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return wkt.MarshalString(ls)
}

// ToWKTRecords turns converted routes back into storable records. Routes
// keep their source classification tag verbatim.
func ToWKTRecords(routes []domain.RawRoute) []domain.WKTRecord {
	out := make([]domain.WKTRecord, 0, len(routes))
	for _, r := range routes {
		out = append(out, domain.WKTRecord{
			ID:         r.ID,
			Name:       r.Name,
			CourseType: r.Classification,
			Path:       ToLinearWKT(r.Points),
			Properties: r.Properties,
		})
	}
	return out
}
