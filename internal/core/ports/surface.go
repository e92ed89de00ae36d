package ports

import (
	"time"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// LineRef is the surface-issued reference to one attached line object.
type LineRef uint64

// MapSurface is the drawing capability the engine renders onto. Attachment
// order is paint order: the most recently attached line is on top.
// Operations on a detached LineRef return domain.ErrStaleHandle.
type MapSurface interface {
	AttachLine(points []domain.Point, style domain.Style) (LineRef, error)
	SetPoints(line LineRef, points []domain.Point) error
	SetStyle(line LineRef, style domain.Style) error
	Detach(line LineRef) error
}

// ZIndexSurface is implemented by surfaces with explicit z-order control.
// Higher values paint above lower ones regardless of attachment order.
type ZIndexSurface interface {
	MapSurface
	SetZIndex(line LineRef, z int) error
}

// SurfaceEventKind enumerates pointer events raised by a surface per line.
type SurfaceEventKind string

const (
	SurfaceClick      SurfaceEventKind = "click"
	SurfaceHoverEnter SurfaceEventKind = "hover_enter"
	SurfaceHoverExit  SurfaceEventKind = "hover_exit"
)

// SurfaceEvent is a pointer event on one line.
type SurfaceEvent struct {
	Kind SurfaceEventKind `json:"kind"`
	Line LineRef          `json:"line"`
}

// FrameToken identifies a pending frame callback.
type FrameToken uint64

// TimerToken identifies a pending timer.
type TimerToken uint64

// Scheduler is the cooperative single-threaded scheduling primitive. All
// callbacks run on the scheduler's own thread of execution; cancelling a
// token whose callback already ran is a no-op.
type Scheduler interface {
	RequestFrame(cb func(now time.Time)) FrameToken
	CancelFrame(token FrameToken)
	SetTimer(cb func(), d time.Duration) TimerToken
	CancelTimer(token TimerToken)
}
