// Package scheduler implements ports.Scheduler on a real clock (Loop) and on
// virtual time (Manual).
package scheduler

import (
	"sort"
	"time"

	"github.com/samirrijal/trailmap/internal/core/ports"
)

type frameReq struct {
	token ports.FrameToken
	cb    func(time.Time)
}

type timerReq struct {
	token ports.TimerToken
	due   time.Time
	cb    func()
}

// Manual is a virtual-time scheduler. Nothing runs until Step is called,
// which makes animation fully deterministic. It is not safe for concurrent
// use; like the engine it drives, it belongs to one goroutine.
type Manual struct {
	now    time.Time
	seq    uint64
	frames []frameReq
	timers []timerReq
}

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) RequestFrame(cb func(now time.Time)) ports.FrameToken {
	m.seq++
	tok := ports.FrameToken(m.seq)
	m.frames = append(m.frames, frameReq{token: tok, cb: cb})
	return tok
}

func (m *Manual) CancelFrame(token ports.FrameToken) {
	for i, f := range m.frames {
		if f.token == token {
			m.frames = append(m.frames[:i], m.frames[i+1:]...)
			return
		}
	}
}

func (m *Manual) SetTimer(cb func(), d time.Duration) ports.TimerToken {
	if d < 0 {
		d = 0
	}
	m.seq++
	tok := ports.TimerToken(m.seq)
	m.timers = append(m.timers, timerReq{token: tok, due: m.now.Add(d), cb: cb})
	return tok
}

func (m *Manual) CancelTimer(token ports.TimerToken) {
	for i, t := range m.timers {
		if t.token == token {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Step advances the clock by d, fires every timer that became due (earliest
// first) and then runs one batch of frame callbacks with the new time.
// Frames requested from inside the batch wait for the next Step.
func (m *Manual) Step(d time.Duration) {
	m.now = m.now.Add(d)
	m.fireTimers()

	batch := m.frames
	m.frames = nil
	for _, f := range batch {
		f.cb(m.now)
	}
}

// Run steps in increments of frame until total has elapsed.
func (m *Manual) Run(total, frame time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		m.Step(frame)
	}
}

// Drain steps by frame until nothing is pending or maxSteps is reached. It
// returns the number of steps taken.
func (m *Manual) Drain(frame time.Duration, maxSteps int) int {
	n := 0
	for n < maxSteps && (len(m.frames) > 0 || len(m.timers) > 0) {
		m.Step(frame)
		n++
	}
	return n
}

// PendingFrames returns the number of frame callbacks waiting for a Step.
func (m *Manual) PendingFrames() int { return len(m.frames) }

// PendingTimers returns the number of timers not yet fired.
func (m *Manual) PendingTimers() int { return len(m.timers) }

func (m *Manual) fireTimers() {
	for {
		sort.SliceStable(m.timers, func(i, j int) bool { return m.timers[i].due.Before(m.timers[j].due) })
		if len(m.timers) == 0 || m.timers[0].due.After(m.now) {
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		t.cb()
	}
}

var _ ports.Scheduler = (*Manual)(nil)
