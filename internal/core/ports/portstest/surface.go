// Package portstest provides in-memory implementations of the engine ports
// for tests.
package portstest

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/ports"
)

// Op is the kind of a recorded surface effect.
type Op string

const (
	OpAttach Op = "attach"
	OpPoints Op = "points"
	OpStyle  Op = "style"
	OpDetach Op = "detach"
	OpZIndex Op = "zindex"
)

// Effect is one recorded call.
type Effect struct {
	Op     Op
	Line   ports.LineRef
	Points int
	Style  domain.Style
	Z      int
}

// Line is the state of one attached line.
type Line struct {
	Ref    ports.LineRef
	Points []domain.Point
	Style  domain.Style
	Z      int
	Order  int // attachment sequence number
}

// Surface records every effect and tracks the attached lines.
type Surface struct {
	Effects []Effect

	// FailAttach makes AttachLine fail while it returns true.
	FailAttach func(points []domain.Point, style domain.Style) bool
	// FailPoints makes SetPoints fail while it returns true.
	FailPoints func(line ports.LineRef, points []domain.Point) bool

	next  ports.LineRef
	order int
	lines map[ports.LineRef]*Line
}

// NewSurface returns an empty recording surface.
func NewSurface() *Surface {
	return &Surface{lines: make(map[ports.LineRef]*Line)}
}

func (s *Surface) AttachLine(points []domain.Point, style domain.Style) (ports.LineRef, error) {
	if s.FailAttach != nil && s.FailAttach(points, style) {
		return 0, errors.New("surface not ready")
	}
	s.next++
	s.order++
	s.lines[s.next] = &Line{Ref: s.next, Points: slices.Clone(points), Style: style, Order: s.order}
	s.Effects = append(s.Effects, Effect{Op: OpAttach, Line: s.next, Points: len(points), Style: style})
	return s.next, nil
}

func (s *Surface) SetPoints(line ports.LineRef, points []domain.Point) error {
	l, ok := s.lines[line]
	if !ok {
		return fmt.Errorf("line %d: %w", line, domain.ErrStaleHandle)
	}
	if s.FailPoints != nil && s.FailPoints(line, points) {
		return errors.New("surface not ready")
	}
	l.Points = slices.Clone(points)
	s.Effects = append(s.Effects, Effect{Op: OpPoints, Line: line, Points: len(points)})
	return nil
}

func (s *Surface) SetStyle(line ports.LineRef, style domain.Style) error {
	l, ok := s.lines[line]
	if !ok {
		return fmt.Errorf("line %d: %w", line, domain.ErrStaleHandle)
	}
	l.Style = style
	s.Effects = append(s.Effects, Effect{Op: OpStyle, Line: line, Style: style})
	return nil
}

func (s *Surface) Detach(line ports.LineRef) error {
	if _, ok := s.lines[line]; !ok {
		return fmt.Errorf("line %d: %w", line, domain.ErrStaleHandle)
	}
	delete(s.lines, line)
	s.Effects = append(s.Effects, Effect{Op: OpDetach, Line: line})
	return nil
}

// Line returns the attached line for ref.
func (s *Surface) Line(ref ports.LineRef) (*Line, bool) {
	l, ok := s.lines[ref]
	return l, ok
}

// Attached returns the number of attached lines.
func (s *Surface) Attached() int { return len(s.lines) }

// Lines returns the attached lines in paint order, bottom first.
func (s *Surface) Lines() []*Line {
	out := make([]*Line, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *Line) int {
		if a.Z != b.Z {
			return a.Z - b.Z
		}
		return a.Order - b.Order
	})
	return out
}

// Count returns the number of recorded effects of op, optionally limited to
// one line.
func (s *Surface) Count(op Op, line ...ports.LineRef) int {
	n := 0
	for _, e := range s.Effects {
		if e.Op != op {
			continue
		}
		if len(line) > 0 && e.Line != line[0] {
			continue
		}
		n++
	}
	return n
}

// Reset clears the recorded effects but keeps the lines.
func (s *Surface) Reset() { s.Effects = nil }

// ZSurface is a Surface that also supports z-index.
type ZSurface struct {
	*Surface
}

// NewZSurface returns an empty recording surface with z-index support.
func NewZSurface() *ZSurface {
	return &ZSurface{Surface: NewSurface()}
}

func (s *ZSurface) SetZIndex(line ports.LineRef, z int) error {
	l, ok := s.lines[line]
	if !ok {
		return fmt.Errorf("line %d: %w", line, domain.ErrStaleHandle)
	}
	l.Z = z
	s.Effects = append(s.Effects, Effect{Op: OpZIndex, Line: line, Z: z})
	return nil
}

var (
	_ ports.MapSurface    = (*Surface)(nil)
	_ ports.ZIndexSurface = (*ZSurface)(nil)
)
