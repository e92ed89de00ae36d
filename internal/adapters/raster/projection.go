package raster

import (
	"math"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

const maxMercatorLat = 85.05112878

// mercator projects p onto the unit Web Mercator square, y growing south.
func mercator(p domain.Point) (x, y float64) {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	x = (p.Lon + 180) / 360
	s := math.Sin(lat * math.Pi / 180)
	y = 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
	return x, y
}

// viewport maps geographic points to pixels so that a bounding box fills the
// image minus padding, preserving aspect ratio.
type viewport struct {
	scale        float64
	cx, cy       float64 // projected centre of the box
	halfW, halfH float64
}

func fit(b domain.Bounds, width, height, padding int) viewport {
	v := viewport{halfW: float64(width) / 2, halfH: float64(height) / 2, scale: 1}
	if b.Empty() {
		return v
	}
	x0, y1 := mercator(domain.Point{Lat: b.MinLat, Lon: b.MinLon})
	x1, y0 := mercator(domain.Point{Lat: b.MaxLat, Lon: b.MaxLon})
	v.cx, v.cy = (x0+x1)/2, (y0+y1)/2

	availW := float64(width - 2*padding)
	availH := float64(height - 2*padding)
	dx, dy := x1-x0, y1-y0
	switch {
	case dx == 0 && dy == 0:
		// A single point: any scale centres it, pick one that shows ~1km.
		v.scale = availW / (1000.0 / 40075016.686)
	case dx == 0:
		v.scale = availH / dy
	case dy == 0:
		v.scale = availW / dx
	default:
		v.scale = math.Min(availW/dx, availH/dy)
	}
	return v
}

func (v viewport) project(p domain.Point) (float64, float64) {
	x, y := mercator(p)
	return v.halfW + (x-v.cx)*v.scale, v.halfH + (y-v.cy)*v.scale
}
