// Package overlay keeps the lines attached to a map surface in step with a
// desired set of routes and animates their reveal.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/styling"
	"github.com/samirrijal/trailmap/internal/pkg/logging"
)

// ErrPassInProgress is returned when Reconcile is entered from inside a
// running pass.
var ErrPassInProgress = errors.New("reconciliation pass already in progress")

// Z-index values used on surfaces that support explicit ordering.
const (
	ZBase     = 1
	ZSelected = 2
)

// Options configures a Reconciler.
type Options struct {
	Duration time.Duration // reveal length
	Delay    time.Duration // before the first reveal of a pass
	Stagger  time.Duration // added per overlay within a pass

	// DisableAnimation attaches every overlay with its full geometry.
	DisableAnimation bool

	// OnRevealed is called once per completed reveal.
	OnRevealed func(id string)
	// OnFailed is called when a reveal ends because the surface refused
	// the full geometry.
	OnFailed func(id string, err error)

	Logger *slog.Logger
}

// PassReport counts the surface effects of one pass.
type PassReport struct {
	Attached  int `json:"attached"`
	Detached  int `json:"detached"`
	Restyled  int `json:"restyled"`
	Reshaped  int `json:"reshaped"`
	Rebuilt   int `json:"rebuilt"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// handle is the registry entry for one attached line.
type handle struct {
	id      string
	line    ports.LineRef
	entity  domain.PathEntity
	base    domain.Style // effective style without hover
	applied domain.Style // last style sent to the surface
	hovered bool
	z       int
	anim    *Animator
	live    bool
	// reshape is set while the surface geometry lags entity.Points.
	reshape bool
}

// Reconciler owns the overlay registry of one visualization. It is not safe
// for concurrent use; all calls come from the scheduler's goroutine.
type Reconciler struct {
	surface ports.MapSurface
	zsurf   ports.ZIndexSurface
	sched   ports.Scheduler
	opts    Options
	logger  *slog.Logger

	handles  map[string]*handle
	lines    map[ports.LineRef]*handle
	selected string
	hovered  string
	inPass   bool
}

// NewReconciler returns an empty reconciler. If surface also implements
// ports.ZIndexSurface, selection is expressed through z-index instead of
// re-attachment.
func NewReconciler(surface ports.MapSurface, sched ports.Scheduler, opts Options) *Reconciler {
	r := &Reconciler{
		surface: surface,
		sched:   sched,
		opts:    opts,
		logger:  opts.Logger,
		handles: make(map[string]*handle),
		lines:   make(map[ports.LineRef]*handle),
	}
	if z, ok := surface.(ports.ZIndexSurface); ok {
		r.zsurf = z
	}
	if r.logger == nil {
		r.logger = logging.Nop()
	}
	return r
}

// Reconcile brings the attached overlays in line with desired. Stale ids are
// removed before anything new is attached. A failed attachment leaves its id
// unregistered so the next pass retries it; the failures are joined into the
// returned error, which always matches domain.ErrOverlayAttachment.
func (r *Reconciler) Reconcile(desired []domain.PathEntity, selectedID string) (PassReport, error) {
	var rep PassReport
	if r.inPass {
		return rep, ErrPassInProgress
	}
	r.inPass = true
	defer func() { r.inPass = false }()

	want := make(map[string]struct{}, len(desired))
	order := make([]domain.PathEntity, 0, len(desired))
	for _, e := range desired {
		if _, dup := want[e.ID]; dup {
			continue
		}
		want[e.ID] = struct{}{}
		order = append(order, e)
	}

	var errs []error
	for _, id := range r.IDs() {
		if _, ok := want[id]; !ok {
			r.remove(id, &rep)
			rep.Detached++
		}
	}

	selectionChanged := selectedID != r.selected
	r.selected = selectedID

	// Without z-index the only way to put the selected line on top is to
	// attach it last, so a selection change rebuilds every kept overlay.
	// A pass that adds lines also re-attaches the selected one above them.
	rebuild := make(map[string]bool)
	if r.zsurf == nil {
		adds := false
		for _, e := range order {
			if _, ok := r.handles[e.ID]; !ok {
				adds = true
				break
			}
		}
		for id := range r.handles {
			if selectionChanged || (adds && id == selectedID) {
				rebuild[id] = true
			}
		}
		for _, id := range r.IDs() {
			if rebuild[id] {
				r.remove(id, &rep)
			}
		}
		if i := slices.IndexFunc(order, func(e domain.PathEntity) bool { return e.ID == selectedID }); i >= 0 {
			sel := order[i]
			order = append(slices.Delete(order, i, i+1), sel)
		}
	}

	animIdx := 0
	for _, e := range order {
		if h, ok := r.handles[e.ID]; ok {
			errs = append(errs, r.update(h, e, &rep))
			continue
		}
		animate := !rebuild[e.ID] && !r.opts.DisableAnimation
		if err := r.add(e, animate, animIdx, &rep); err != nil {
			rep.Failed++
			errs = append(errs, err)
			continue
		}
		if rebuild[e.ID] {
			rep.Rebuilt++
		} else {
			rep.Attached++
		}
		if animate {
			animIdx++
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("reconciliation pass had failures", "failed", rep.Failed, "error", err)
	}
	r.logger.Debug("reconciliation pass",
		"attached", rep.Attached, "detached", rep.Detached, "restyled", rep.Restyled,
		"reshaped", rep.Reshaped, "rebuilt", rep.Rebuilt, "overlays", len(r.handles))
	return rep, err
}

func (r *Reconciler) effectiveStyle(e domain.PathEntity) domain.Style {
	if e.ID == r.selected {
		return styling.Highlight(e.Style)
	}
	return e.Style
}

func (r *Reconciler) zFor(id string) int {
	if id == r.selected {
		return ZSelected
	}
	return ZBase
}

func (r *Reconciler) add(e domain.PathEntity, animate bool, idx int, rep *PassReport) error {
	base := r.effectiveStyle(e)
	h := &handle{id: e.ID, entity: e, base: base, applied: base, hovered: r.hovered == e.ID}
	if h.hovered {
		h.applied = styling.Hovered(base)
	}

	initial := e.Points
	if animate {
		initial = nil
	}
	line, err := r.surface.AttachLine(initial, h.applied)
	if err != nil {
		return attachError("attach "+e.ID, err)
	}
	h.line = line
	h.live = true
	r.handles[e.ID] = h
	r.lines[line] = h

	if r.zsurf != nil {
		h.z = r.zFor(e.ID)
		if err := r.zsurf.SetZIndex(line, h.z); err != nil {
			r.logger.Warn("set z-index failed", "id", e.ID, "error", err)
		}
	}

	if animate {
		h.anim = r.newAnimator(h)
		h.anim.Start(r.opts.Delay+time.Duration(idx)*r.opts.Stagger, r.opts.Duration)
	}
	return nil
}

func (r *Reconciler) update(h *handle, e domain.PathEntity, rep *PassReport) error {
	var errs []error
	if h.reshape || !slices.Equal(h.entity.Points, e.Points) {
		if h.anim != nil && h.anim.Active() {
			h.anim.Cancel()
			rep.Cancelled++
		}
		if err := r.surface.SetPoints(h.line, e.Points); err != nil && !errors.Is(err, domain.ErrStaleHandle) {
			h.reshape = true
			errs = append(errs, attachError("set points "+e.ID, err))
		} else {
			h.reshape = false
			rep.Reshaped++
		}
	}
	h.entity = e

	h.base = r.effectiveStyle(e)
	target := h.base
	if h.hovered {
		target = styling.Hovered(h.base)
	}
	if target != h.applied {
		if err := r.surface.SetStyle(h.line, target); err != nil {
			errs = append(errs, attachError("set style "+e.ID, err))
		} else {
			h.applied = target
			rep.Restyled++
		}
	}

	if r.zsurf != nil {
		if z := r.zFor(e.ID); z != h.z {
			if err := r.zsurf.SetZIndex(h.line, z); err != nil {
				r.logger.Warn("set z-index failed", "id", e.ID, "error", err)
			} else {
				h.z = z
			}
		}
	}
	return errors.Join(errs...)
}

// remove cancels the reveal, detaches the line and forgets the id.
func (r *Reconciler) remove(id string, rep *PassReport) {
	h, ok := r.handles[id]
	if !ok {
		return
	}
	if h.anim != nil && h.anim.Active() {
		h.anim.Cancel()
		rep.Cancelled++
	}
	h.live = false
	delete(r.handles, id)
	delete(r.lines, h.line)
	if err := r.surface.Detach(h.line); err != nil && !errors.Is(err, domain.ErrStaleHandle) {
		r.logger.Warn("detach failed", "id", id, "error", err)
	}
}

func (r *Reconciler) sinkFor(h *handle) PointSink {
	return func(points []domain.Point) error {
		if !h.live {
			return domain.ErrStaleHandle
		}
		return r.surface.SetPoints(h.line, points)
	}
}

func (r *Reconciler) newAnimator(h *handle) *Animator {
	a := NewAnimator(r.sched, h.entity.Points, r.sinkFor(h), r.revealedFor(h))
	a.OnFail(func(err error) {
		if !h.live {
			return
		}
		h.reshape = true
		r.logger.Warn("reveal failed, geometry resent on next pass", "id", h.id, "error", err)
		if r.opts.OnFailed != nil {
			r.opts.OnFailed(h.id, err)
		}
	})
	return a
}

func (r *Reconciler) revealedFor(h *handle) func() {
	return func() {
		h.reshape = false
		if h.live && r.opts.OnRevealed != nil {
			r.opts.OnRevealed(h.id)
		}
	}
}

// SetHover applies or reverts the hover boost on one overlay. The boost is
// always computed from the stored baseline, so repeated hovers never drift.
// Unknown ids are ignored.
func (r *Reconciler) SetHover(id string, on bool) error {
	switch {
	case on:
		r.hovered = id
	case r.hovered == id:
		r.hovered = ""
	}
	h, ok := r.handles[id]
	if !ok || !h.live {
		return nil
	}
	h.hovered = on
	target := h.base
	if on {
		target = styling.Hovered(h.base)
	}
	if target == h.applied {
		return nil
	}
	if err := r.surface.SetStyle(h.line, target); err != nil {
		if errors.Is(err, domain.ErrStaleHandle) {
			return nil
		}
		return attachError("hover "+id, err)
	}
	h.applied = target
	return nil
}

// Replay restarts the reveal of an attached overlay from the beginning.
func (r *Reconciler) Replay(id string) error {
	h, ok := r.handles[id]
	if !ok {
		return fmt.Errorf("replay %s: %w", id, domain.ErrNotFound)
	}
	if h.anim == nil || !slices.Equal(h.anim.points, h.entity.Points) {
		if h.anim != nil {
			h.anim.Cancel()
		}
		h.anim = r.newAnimator(h)
	}
	if err := r.surface.SetPoints(h.line, nil); err != nil && !errors.Is(err, domain.ErrStaleHandle) {
		return attachError("replay "+id, err)
	}
	h.anim.Start(r.opts.Delay, r.opts.Duration)
	return nil
}

// Lookup maps a surface line back to its route id.
func (r *Reconciler) Lookup(line ports.LineRef) (string, bool) {
	h, ok := r.lines[line]
	if !ok {
		return "", false
	}
	return h.id, true
}

// LineFor returns the surface line of id.
func (r *Reconciler) LineFor(id string) (ports.LineRef, bool) {
	h, ok := r.handles[id]
	if !ok {
		return 0, false
	}
	return h.line, true
}

// IDs returns the registered ids, sorted.
func (r *Reconciler) IDs() []string {
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of attached overlays.
func (r *Reconciler) Len() int { return len(r.handles) }

// AnimationState returns the reveal state of id. Overlays attached without
// animation report StateCompleted.
func (r *Reconciler) AnimationState(id string) (AnimState, bool) {
	h, ok := r.handles[id]
	if !ok {
		return StateIdle, false
	}
	if h.anim == nil {
		return StateCompleted, true
	}
	return h.anim.State(), true
}

// AppliedStyle returns the style last sent to the surface for id.
func (r *Reconciler) AppliedStyle(id string) (domain.Style, bool) {
	h, ok := r.handles[id]
	if !ok {
		return domain.Style{}, false
	}
	return h.applied, true
}

// Teardown cancels every reveal and detaches every overlay.
func (r *Reconciler) Teardown() PassReport {
	var rep PassReport
	for _, id := range r.IDs() {
		r.remove(id, &rep)
		rep.Detached++
	}
	r.selected = ""
	r.hovered = ""
	return rep
}

func attachError(op string, err error) error {
	if errors.Is(err, domain.ErrOverlayAttachment) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrOverlayAttachment, err)
}
