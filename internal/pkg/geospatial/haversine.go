package geospatial

import (
	"math"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two points.
func Distance(a, b domain.Point) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PathLength returns the great-circle length of a polyline in meters.
func PathLength(points []domain.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Center returns the arithmetic mean of the points. ok is false for an
// empty slice.
func Center(points []domain.Point) (c domain.Point, ok bool) {
	if len(points) == 0 {
		return domain.Point{}, false
	}
	for _, p := range points {
		c.Lat += p.Lat
		c.Lon += p.Lon
	}
	n := float64(len(points))
	c.Lat /= n
	c.Lon /= n
	return c, true
}

// PathBounds returns the bounding box of the points; empty input yields
// domain.EmptyBounds().
func PathBounds(points []domain.Point) domain.Bounds {
	b := domain.EmptyBounds()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// CatalogBounds returns the union of the entities' bounds.
func CatalogBounds(entities []domain.PathEntity) domain.Bounds {
	b := domain.EmptyBounds()
	for _, e := range entities {
		for _, p := range e.Points {
			b = b.Extend(p)
		}
	}
	return b
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// Pad grows b by radiusMeters on every side.
func Pad(b domain.Bounds, radiusMeters float64) domain.Bounds {
	if b.Empty() {
		return b
	}
	minLat, minLon, _, _ := BoundingBox(b.MinLat, b.MinLon, radiusMeters)
	_, _, maxLat, maxLon := BoundingBox(b.MaxLat, b.MaxLon, radiusMeters)
	return domain.Bounds{
		MinLat: math.Max(minLat, -90), MinLon: math.Max(minLon, -180),
		MaxLat: math.Min(maxLat, 90), MaxLon: math.Min(maxLon, 180),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
