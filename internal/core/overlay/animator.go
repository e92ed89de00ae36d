package overlay

import (
	"errors"
	"math"
	"time"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/ports"
)

// AnimState is the lifecycle state of one reveal.
type AnimState int

const (
	StateIdle AnimState = iota
	StateDelaying
	StateRunning
	StateCompleted
	StateCancelled
	// StateFailed ends a reveal whose final geometry the sink refused.
	StateFailed
)

func (s AnimState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDelaying:
		return "delaying"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "invalid"
}

// PointSink receives each revealed prefix. Returning domain.ErrStaleHandle
// stops the reveal as if it had been cancelled.
type PointSink func(points []domain.Point) error

// EaseOutCubic maps linear progress in [0,1] to 1-(1-p)^3.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}

// RevealCount is the number of points shown at linear progress p.
func RevealCount(p float64, total int) int {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return total
	}
	n := int(math.Floor(EaseOutCubic(p) * float64(total)))
	return min(n, total)
}

// Animator progressively reveals one overlay's points. Every scheduled
// callback carries the generation it was scheduled under; Start and Cancel
// bump the generation, so a callback that fires late finds a mismatch and
// does nothing.
type Animator struct {
	sched      ports.Scheduler
	points     []domain.Point
	sink       PointSink
	onComplete func()
	onFail     func(error)

	state    AnimState
	gen      uint64
	duration time.Duration

	frame    ports.FrameToken
	hasFrame bool
	timer    ports.TimerToken
	hasTimer bool

	started bool
	start   time.Time
	shown   int
}

// NewAnimator returns an idle animator. onComplete may be nil.
func NewAnimator(sched ports.Scheduler, points []domain.Point, sink PointSink, onComplete func()) *Animator {
	return &Animator{sched: sched, points: points, sink: sink, onComplete: onComplete}
}

// State returns the current state.
func (a *Animator) State() AnimState { return a.state }

// OnFail sets the callback run when a reveal ends in StateFailed.
func (a *Animator) OnFail(fn func(error)) { a.onFail = fn }

// Active reports whether a reveal is delaying or running.
func (a *Animator) Active() bool {
	return a.state == StateDelaying || a.state == StateRunning
}

// Start begins a reveal after delay lasting duration. Calling Start while a
// reveal is in flight abandons the previous one first. Paths with fewer than
// two points complete before Start returns.
func (a *Animator) Start(delay, duration time.Duration) {
	a.cancelPending()
	a.gen++
	a.state = StateIdle
	a.duration = duration
	a.started = false
	a.shown = 0

	if len(a.points) < 2 {
		if err := a.sink(a.points); errors.Is(err, domain.ErrStaleHandle) {
			a.state = StateCancelled
			return
		} else if err != nil {
			a.fail(err)
			return
		}
		a.shown = len(a.points)
		a.complete()
		return
	}

	gen := a.gen
	if delay > 0 {
		a.state = StateDelaying
		a.timer = a.sched.SetTimer(func() {
			if a.gen != gen {
				return
			}
			a.hasTimer = false
			a.run(gen)
		}, delay)
		a.hasTimer = true
		return
	}
	a.run(gen)
}

// Cancel stops the reveal without calling the completion callback. It is
// idempotent and does nothing once the reveal has completed or failed.
func (a *Animator) Cancel() {
	a.cancelPending()
	a.gen++
	if a.state != StateCompleted && a.state != StateFailed {
		a.state = StateCancelled
	}
}

func (a *Animator) run(gen uint64) {
	a.state = StateRunning
	a.requestFrame(gen)
}

func (a *Animator) requestFrame(gen uint64) {
	a.frame = a.sched.RequestFrame(func(now time.Time) { a.step(gen, now) })
	a.hasFrame = true
}

func (a *Animator) step(gen uint64, now time.Time) {
	if a.gen != gen || a.state != StateRunning {
		return
	}
	a.hasFrame = false
	if !a.started {
		a.started = true
		a.start = now
	}

	progress := 1.0
	if a.duration > 0 {
		progress = math.Min(math.Max(float64(now.Sub(a.start))/float64(a.duration), 0), 1)
	}

	if n := RevealCount(progress, len(a.points)); n != a.shown && n > 0 {
		err := a.sink(a.points[:n:n])
		switch {
		case errors.Is(err, domain.ErrStaleHandle):
			a.gen++
			a.state = StateCancelled
			return
		case err != nil && progress >= 1:
			// Intermediate prefixes are retried on the next frame; the
			// full geometry is not.
			a.fail(err)
			return
		case err == nil:
			a.shown = n
		}
	}

	if progress >= 1 && a.shown == len(a.points) {
		a.complete()
		return
	}
	a.requestFrame(gen)
}

func (a *Animator) complete() {
	a.state = StateCompleted
	if a.onComplete != nil {
		a.onComplete()
	}
}

func (a *Animator) fail(err error) {
	a.gen++
	a.state = StateFailed
	if a.onFail != nil {
		a.onFail(err)
	}
}

func (a *Animator) cancelPending() {
	if a.hasFrame {
		a.sched.CancelFrame(a.frame)
		a.hasFrame = false
	}
	if a.hasTimer {
		a.sched.CancelTimer(a.timer)
		a.hasTimer = false
	}
}
