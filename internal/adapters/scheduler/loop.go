package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/trailmap/internal/core/ports"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("scheduler loop stopped")

// DefaultFrameInterval approximates a 60 Hz display.
const DefaultFrameInterval = 16 * time.Millisecond

// Loop is a real-clock scheduler. Every frame callback, timer callback and
// posted function runs on the goroutine that called Run, so the code it
// drives never needs locks. Other goroutines enter through Post or Do.
type Loop struct {
	interval time.Duration
	posts    chan func()
	done     chan struct{}
	logger   *slog.Logger

	mu     sync.Mutex
	seq    uint64
	frames []frameReq
	timers map[ports.TimerToken]*time.Timer
}

// NewLoop returns a Loop that runs frame batches every interval.
func NewLoop(interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		interval: interval,
		posts:    make(chan func(), 256),
		done:     make(chan struct{}),
		logger:   logger,
		timers:   make(map[ports.TimerToken]*time.Timer),
	}
}

// Run processes callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	defer close(l.done)
	defer l.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.posts:
			l.safely(fn)
		case now := <-ticker.C:
			l.mu.Lock()
			batch := l.frames
			l.frames = nil
			l.mu.Unlock()
			for _, f := range batch {
				l.safely(func() { f.cb(now) })
			}
		}
	}
}

// Post queues fn to run on the loop goroutine. It reports false if the loop
// has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.posts <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

func (l *Loop) RequestFrame(cb func(now time.Time)) ports.FrameToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	tok := ports.FrameToken(l.seq)
	l.frames = append(l.frames, frameReq{token: tok, cb: cb})
	return tok
}

func (l *Loop) CancelFrame(token ports.FrameToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, f := range l.frames {
		if f.token == token {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return
		}
	}
}

func (l *Loop) SetTimer(cb func(), d time.Duration) ports.TimerToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	tok := ports.TimerToken(l.seq)
	l.timers[tok] = time.AfterFunc(d, func() {
		l.Post(func() {
			// A cancel that raced with the timer firing wins.
			l.mu.Lock()
			_, live := l.timers[tok]
			delete(l.timers, tok)
			l.mu.Unlock()
			if live {
				cb()
			}
		})
	})
	return tok
}

func (l *Loop) CancelTimer(token ports.TimerToken) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[token]; ok {
		t.Stop()
		delete(l.timers, token)
	}
}

func (l *Loop) stopTimers() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for tok, t := range l.timers {
		t.Stop()
		delete(l.timers, tok)
	}
	l.frames = nil
}

func (l *Loop) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("scheduler callback panicked", "panic", r)
		}
	}()
	fn()
}

var _ ports.Scheduler = (*Loop)(nil)
