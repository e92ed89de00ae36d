package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

const formatWKT = "wkt"

// FromLinearWKT parses "LINESTRING(<lon> <lat>, <lon> <lat>, ...)" into
// points in (lat, lon) order. The keyword is case-insensitive and
// "LINESTRING EMPTY" yields no points. Any malformed pair fails the whole
// string: a partial route is never returned.
func FromLinearWKT(text string) ([]domain.Point, error) {
	s := strings.TrimSpace(text)
	const keyword = "LINESTRING"
	if len(s) < len(keyword) || !strings.EqualFold(s[:len(keyword)], keyword) {
		return nil, &domain.GeometryFormatError{Format: formatWKT, Index: -1, Token: abbreviate(s), Reason: "missing LINESTRING keyword"}
	}
	body := strings.TrimSpace(s[len(keyword):])
	if strings.EqualFold(body, "EMPTY") {
		return []domain.Point{}, nil
	}
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return nil, &domain.GeometryFormatError{Format: formatWKT, Index: -1, Token: abbreviate(body), Reason: "missing parenthesised coordinate list"}
	}
	inner := body[1 : len(body)-1]
	if strings.ContainsAny(inner, "()") {
		return nil, &domain.GeometryFormatError{Format: formatWKT, Index: -1, Token: abbreviate(inner), Reason: "nested parentheses"}
	}

	pairs := strings.Split(inner, ",")
	points := make([]domain.Point, 0, len(pairs))
	for i, pair := range pairs {
		p, reason := parsePair(pair)
		if reason != "" {
			return nil, &domain.GeometryFormatError{Format: formatWKT, Index: i, Token: strings.TrimSpace(pair), Reason: reason}
		}
		points = append(points, p)
	}
	return points, nil
}

func parsePair(pair string) (domain.Point, string) {
	fields := strings.Fields(pair)
	if len(fields) != 2 {
		return domain.Point{}, "expected exactly two numbers"
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return domain.Point{}, "longitude is not a number"
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return domain.Point{}, "latitude is not a number"
	}
	p := domain.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.Point{}, "coordinate out of range"
	}
	return p, ""
}

// FromWKTRecords converts records one by one; a malformed record is reported
// in the returned item errors and skipped.
func FromWKTRecords(records []domain.WKTRecord) ([]domain.RawRoute, []domain.ItemError) {
	routes := make([]domain.RawRoute, 0, len(records))
	var errs []domain.ItemError
	for i, rec := range records {
		points, err := FromLinearWKT(rec.Path)
		if err != nil {
			errs = append(errs, domain.ItemError{Index: i, ID: rec.ID, Err: err})
			continue
		}
		routes = append(routes, domain.RawRoute{
			ID:             rec.ID,
			Name:           rec.Name,
			Classification: rec.CourseType,
			Points:         points,
			Properties:     scalarProperties(rec.Properties),
		})
	}
	return routes, errs
}

func abbreviate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
