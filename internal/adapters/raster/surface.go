// Package raster is a map surface that draws overlays into an image using
// the gg 2D renderer. It backs PNG snapshots and offline frame rendering.
package raster

import (
	"fmt"
	"image"
	"io"
	"math"
	"slices"
	"sync"

	"github.com/gogpu/gg"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/ports"
)

// PickTolerance is added to half the stroke width when hit-testing.
const PickTolerance = 3.0

// Options configures a Surface.
type Options struct {
	Width, Height int
	Padding       int
	Background    string // hex; white when empty
}

type line struct {
	points []domain.Point
	style  domain.Style
	z      int
	order  int
}

// Surface implements ports.ZIndexSurface. It is safe for concurrent use: the
// engine mutates it from its scheduler while HTTP handlers render snapshots.
type Surface struct {
	opts Options

	mu     sync.Mutex
	next   ports.LineRef
	order  int
	lines  map[ports.LineRef]*line
	bounds *domain.Bounds
}

func NewSurface(opts Options) *Surface {
	if opts.Background == "" {
		opts.Background = "#FFFFFF"
	}
	return &Surface{opts: opts, lines: make(map[ports.LineRef]*line)}
}

// Fit pins the visible area. Without it every render fits whatever is
// attached, which makes growing lines rescale the view between frames.
func (s *Surface) Fit(b domain.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = &b
}

func (s *Surface) AttachLine(points []domain.Point, style domain.Style) (ports.LineRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.order++
	s.lines[s.next] = &line{points: slices.Clone(points), style: style, order: s.order}
	return s.next, nil
}

func (s *Surface) SetPoints(ref ports.LineRef, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.get(ref)
	if err != nil {
		return err
	}
	l.points = slices.Clone(points)
	return nil
}

func (s *Surface) SetStyle(ref ports.LineRef, style domain.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.get(ref)
	if err != nil {
		return err
	}
	l.style = style
	return nil
}

func (s *Surface) SetZIndex(ref ports.LineRef, z int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.get(ref)
	if err != nil {
		return err
	}
	l.z = z
	return nil
}

func (s *Surface) Detach(ref ports.LineRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(ref); err != nil {
		return err
	}
	delete(s.lines, ref)
	return nil
}

func (s *Surface) get(ref ports.LineRef) (*line, error) {
	l, ok := s.lines[ref]
	if !ok {
		return nil, fmt.Errorf("line %d: %w", ref, domain.ErrStaleHandle)
	}
	return l, nil
}

// Len returns the number of attached lines.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

type drawn struct {
	ref ports.LineRef
	*line
}

// paintOrder returns the lines bottom first. Caller holds mu.
func (s *Surface) paintOrder() []drawn {
	out := make([]drawn, 0, len(s.lines))
	for ref, l := range s.lines {
		out = append(out, drawn{ref: ref, line: l})
	}
	slices.SortFunc(out, func(a, b drawn) int {
		if a.z != b.z {
			return a.z - b.z
		}
		return a.order - b.order
	})
	return out
}

// viewport returns the current pixel mapping. Caller holds mu.
func (s *Surface) viewport() viewport {
	if s.bounds != nil {
		return fit(*s.bounds, s.opts.Width, s.opts.Height, s.opts.Padding)
	}
	b := domain.EmptyBounds()
	for _, l := range s.lines {
		for _, p := range l.points {
			b = b.Extend(p)
		}
	}
	return fit(b, s.opts.Width, s.opts.Height, s.opts.Padding)
}

// Image renders the attached lines.
func (s *Surface) Image() (image.Image, error) {
	dc, err := s.draw()
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return dc.Image(), nil
}

// WritePNG renders the attached lines as a PNG.
func (s *Surface) WritePNG(w io.Writer) error {
	dc, err := s.draw()
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}

func (s *Surface) draw() (*gg.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dc := gg.NewContext(s.opts.Width, s.opts.Height)
	dc.ClearWithColor(gg.Hex(s.opts.Background))
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	vp := s.viewport()
	for _, d := range s.paintOrder() {
		if len(d.points) < 2 {
			continue
		}
		c := gg.Hex(d.style.StrokeColor)
		c.A = math.Max(0, math.Min(1, d.style.StrokeOpacity))
		dc.SetColor(c.Color())
		dc.SetLineWidth(float64(d.style.StrokeWeight))
		if d.style.StrokeDash == domain.DashDashed {
			dc.SetDash(8, 6)
		} else {
			dc.ClearDash()
		}

		x, y := vp.project(d.points[0])
		dc.MoveTo(x, y)
		for _, p := range d.points[1:] {
			x, y = vp.project(p)
			dc.LineTo(x, y)
		}
		if err := dc.Stroke(); err != nil {
			dc.Close()
			return nil, fmt.Errorf("stroke line %d: %w", d.ref, err)
		}
	}
	return dc, nil
}

// Pick returns the topmost line passing within reach of pixel (x, y).
func (s *Surface) Pick(x, y float64) (ports.LineRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vp := s.viewport()
	order := s.paintOrder()
	for i := len(order) - 1; i >= 0; i-- {
		d := order[i]
		reach := float64(d.style.StrokeWeight)/2 + PickTolerance
		for j := 1; j < len(d.points); j++ {
			ax, ay := vp.project(d.points[j-1])
			bx, by := vp.project(d.points[j])
			if segmentDistance(x, y, ax, ay, bx, by) <= reach {
				return d.ref, true
			}
		}
	}
	return 0, false
}

func segmentDistance(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, ((px-ax)*dx+(py-ay)*dy)/l2))
	}
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

var _ ports.ZIndexSurface = (*Surface)(nil)
