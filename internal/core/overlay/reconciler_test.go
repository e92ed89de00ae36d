package overlay_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/trailmap/internal/adapters/scheduler"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/overlay"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/ports/portstest"
	"github.com/samirrijal/trailmap/internal/core/styling"
)

func entity(id string, class domain.Classification, n int) domain.PathEntity {
	return domain.PathEntity{ID: id, Name: id, Classification: class, Points: line(n), Style: styling.Resolve(class)}
}

func refOf(t *testing.T, r *overlay.Reconciler, id string) ports.LineRef {
	t.Helper()
	ref, ok := r.LineFor(id)
	if !ok {
		t.Fatalf("no line for %s", id)
	}
	if got, _ := r.Lookup(ref); got != id {
		t.Fatalf("lookup mismatch for %s: %s", id, got)
	}
	return ref
}

func TestReconcile_AddRemoveKeep(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: time.Second})

	a, b, c := entity("A", domain.ClassEasy, 4), entity("B", domain.ClassHard, 4), entity("C", domain.ClassScenic, 4)
	if _, err := r.Reconcile([]domain.PathEntity{a, b}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched.Drain(16*time.Millisecond, 200)
	refA, refB := refOf(t, r, "A"), refOf(t, r, "B")
	surf.Reset()

	rep, err := r.Reconcile([]domain.PathEntity{b, c}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Attached != 1 || rep.Detached != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
	if surf.Count(portstest.OpDetach) != 1 || surf.Count(portstest.OpDetach, refA) != 1 {
		t.Errorf("expected exactly one detach of A, got %v", surf.Effects)
	}
	if surf.Count(portstest.OpAttach) != 1 {
		t.Errorf("expected exactly one attach, got %v", surf.Effects)
	}
	if surf.Count(portstest.OpPoints, refB) != 0 || surf.Count(portstest.OpStyle, refB) != 0 {
		t.Errorf("expected no effects on B, got %v", surf.Effects)
	}
	if ids := r.IDs(); len(ids) != 2 || ids[0] != "B" || ids[1] != "C" {
		t.Errorf("expected registry {B,C}, got %v", ids)
	}
	if surf.Attached() != 2 {
		t.Errorf("expected 2 lines on surface, got %d", surf.Attached())
	}
}

func TestReconcile_RemoveBeforeAdd(t *testing.T) {
	surf := portstest.NewSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})

	r.Reconcile([]domain.PathEntity{entity("old", domain.ClassEasy, 2)}, "")
	surf.Reset()
	r.Reconcile([]domain.PathEntity{entity("new", domain.ClassEasy, 2)}, "")

	if len(surf.Effects) != 2 || surf.Effects[0].Op != portstest.OpDetach || surf.Effects[1].Op != portstest.OpAttach {
		t.Errorf("expected detach before attach, got %v", surf.Effects)
	}
}

func TestReconcile_NoDuplicateOverlays(t *testing.T) {
	surf := portstest.NewSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{})

	a := entity("A", domain.ClassEasy, 3)
	for i := 0; i < 3; i++ {
		if _, err := r.Reconcile([]domain.PathEntity{a, a}, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if surf.Attached() != 1 || surf.Count(portstest.OpAttach) != 1 {
		t.Errorf("expected a single overlay for A, got %d attached, %d attaches", surf.Attached(), surf.Count(portstest.OpAttach))
	}
}

func TestReconcile_AddedOverlaysAnimateWithStagger(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	revealed := map[string]int{}
	r := overlay.NewReconciler(surf, sched, overlay.Options{
		Duration:   100 * time.Millisecond,
		Stagger:    100 * time.Millisecond,
		OnRevealed: func(id string) { revealed[id]++ },
	})

	r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 5), entity("B", domain.ClassEasy, 5)}, "")
	for _, e := range surf.Effects {
		if e.Op == portstest.OpAttach && e.Points != 0 {
			t.Errorf("expected overlays to attach empty, got %d points", e.Points)
		}
	}
	if st, _ := r.AnimationState("B"); st != overlay.StateDelaying {
		t.Errorf("expected second overlay to wait for its stagger, got %s", st)
	}

	sched.Drain(16*time.Millisecond, 200)
	if revealed["A"] != 1 || revealed["B"] != 1 {
		t.Errorf("expected one reveal each, got %v", revealed)
	}
	l, _ := surf.Line(refOf(t, r, "B"))
	if len(l.Points) != 5 {
		t.Errorf("expected full geometry, got %d", len(l.Points))
	}
}

func TestReconcile_CancelThenDetachNoFurtherMutation(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	revealed := 0
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: time.Second, OnRevealed: func(string) { revealed++ }})

	r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 20)}, "")
	sched.Step(0)
	sched.Step(200 * time.Millisecond)
	ref := refOf(t, r, "A")
	if st, _ := r.AnimationState("A"); st != overlay.StateRunning {
		t.Fatalf("expected running, got %s", st)
	}
	if sched.PendingFrames() == 0 {
		t.Fatal("expected a pending frame")
	}

	rep, _ := r.Reconcile(nil, "")
	if rep.Cancelled != 1 {
		t.Errorf("expected the running reveal to be cancelled, got %+v", rep)
	}
	pointsBefore := surf.Count(portstest.OpPoints, ref)
	sched.Run(2*time.Second, 16*time.Millisecond)

	if surf.Count(portstest.OpPoints, ref) != pointsBefore {
		t.Error("expected no setPoints after cancellation")
	}
	if revealed != 0 {
		t.Errorf("expected no completion, got %d", revealed)
	}
}

func TestReconcile_StyleChangeKeepsGeometry(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: time.Second})

	a := entity("A", domain.ClassEasy, 10)
	r.Reconcile([]domain.PathEntity{a}, "")
	sched.Step(0)
	sched.Step(300 * time.Millisecond)
	ref := refOf(t, r, "A")
	surf.Reset()

	restyled := a
	restyled.Classification = domain.ClassHard
	restyled.Style = styling.Resolve(domain.ClassHard)
	rep, _ := r.Reconcile([]domain.PathEntity{restyled}, "")
	if rep.Restyled != 1 || surf.Count(portstest.OpStyle, ref) != 1 {
		t.Errorf("expected in-place restyle, got %+v %v", rep, surf.Effects)
	}
	if surf.Count(portstest.OpAttach) != 0 || surf.Count(portstest.OpPoints) != 0 {
		t.Errorf("expected no geometry effects, got %v", surf.Effects)
	}
	if st, _ := r.AnimationState("A"); st != overlay.StateRunning {
		t.Errorf("expected reveal to continue, got %s", st)
	}
}

func TestReconcile_GeometryChangeReshapesInPlace(t *testing.T) {
	surf := portstest.NewSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})

	r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 3)}, "")
	ref := refOf(t, r, "A")
	surf.Reset()

	rep, _ := r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 7)}, "")
	if rep.Reshaped != 1 || surf.Count(portstest.OpAttach) != 0 {
		t.Errorf("expected reshape without re-attach, got %+v", rep)
	}
	l, _ := surf.Line(ref)
	if len(l.Points) != 7 {
		t.Errorf("expected 7 points, got %d", len(l.Points))
	}
}

func TestReconcile_SelectionRebuildWithoutZIndex(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: time.Second})

	set := []domain.PathEntity{entity("A", domain.ClassEasy, 4), entity("B", domain.ClassMedium, 4), entity("C", domain.ClassHard, 4)}
	r.Reconcile(set, "")
	sched.Drain(16*time.Millisecond, 200)
	surf.Reset()

	rep, err := r.Reconcile(set, "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Rebuilt != 3 || surf.Count(portstest.OpDetach) != 3 || surf.Count(portstest.OpAttach) != 3 {
		t.Errorf("expected full rebuild, got %+v", rep)
	}
	lines := surf.Lines()
	top := lines[len(lines)-1]
	if id, _ := r.Lookup(top.Ref); id != "A" {
		t.Errorf("expected A on top, got %s", id)
	}
	if top.Style != styling.Highlight(styling.Resolve(domain.ClassEasy)) {
		t.Errorf("expected highlight style, got %+v", top.Style)
	}
	for _, l := range lines {
		if len(l.Points) != 4 {
			t.Errorf("expected rebuilt overlays at full geometry, got %d", len(l.Points))
		}
	}
	if sched.PendingFrames() != 0 || sched.PendingTimers() != 0 {
		t.Error("expected rebuild not to replay reveals")
	}

	// Adding a route keeps the selected line on top.
	rep, _ = r.Reconcile(append(set, entity("D", domain.ClassEasy, 4)), "A")
	lines = surf.Lines()
	if id, _ := r.Lookup(lines[len(lines)-1].Ref); id != "A" {
		t.Errorf("expected A to stay on top after an add, got %s", id)
	}
	if rep.Attached != 1 || rep.Rebuilt != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
	if surf.Attached() != 4 {
		t.Errorf("expected 4 overlays, got %d", surf.Attached())
	}
}

func TestReconcile_SelectionWithZIndex(t *testing.T) {
	surf := portstest.NewZSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})

	set := []domain.PathEntity{entity("A", domain.ClassEasy, 4), entity("B", domain.ClassMedium, 4)}
	r.Reconcile(set, "")
	surf.Reset()

	rep, _ := r.Reconcile(set, "A")
	if rep.Rebuilt != 0 || surf.Count(portstest.OpAttach) != 0 || surf.Count(portstest.OpDetach) != 0 {
		t.Errorf("expected no rebuild on a z-index surface, got %+v", rep)
	}
	lines := surf.Lines()
	if id, _ := r.Lookup(lines[len(lines)-1].Ref); id != "A" {
		t.Errorf("expected A on top, got %s", id)
	}
	if rep.Restyled != 1 {
		t.Errorf("expected selected overlay to be restyled, got %+v", rep)
	}

	r.Reconcile(set, "B")
	lines = surf.Lines()
	if id, _ := r.Lookup(lines[len(lines)-1].Ref); id != "B" {
		t.Errorf("expected B on top, got %s", id)
	}
	if st, _ := r.AppliedStyle("A"); st != styling.Resolve(domain.ClassEasy) {
		t.Errorf("expected A back to its base style, got %+v", st)
	}
}

func TestReconcile_AttachFailureRetried(t *testing.T) {
	surf := portstest.NewSurface()
	ready := false
	surf.FailAttach = func([]domain.Point, domain.Style) bool { return !ready }
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})

	set := []domain.PathEntity{entity("A", domain.ClassEasy, 2), entity("B", domain.ClassEasy, 2)}
	rep, err := r.Reconcile(set, "")
	if !errors.Is(err, domain.ErrOverlayAttachment) {
		t.Fatalf("expected attachment failure, got %v", err)
	}
	if rep.Failed != 2 || r.Len() != 0 {
		t.Errorf("expected nothing registered, got %+v len=%d", rep, r.Len())
	}

	ready = true
	rep, err = r.Reconcile(set, "")
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if rep.Attached != 2 || surf.Attached() != 2 {
		t.Errorf("expected retry to attach both, got %+v", rep)
	}
}

func TestReconcile_HoverRevertsExactly(t *testing.T) {
	surf := portstest.NewSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})
	r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 2)}, "")
	ref := refOf(t, r, "A")

	for i := 0; i < 10; i++ {
		if err := r.SetHover("A", true); err != nil {
			t.Fatal(err)
		}
		if l, _ := surf.Line(ref); l.Style.StrokeOpacity != 1.0 {
			t.Fatalf("cycle %d: expected boosted opacity 1.0, got %v", i, l.Style.StrokeOpacity)
		}
		if err := r.SetHover("A", false); err != nil {
			t.Fatal(err)
		}
	}
	l, _ := surf.Line(ref)
	if l.Style.StrokeOpacity != 0.8 {
		t.Errorf("expected exactly 0.8 after 10 cycles, got %v", l.Style.StrokeOpacity)
	}
	if err := r.SetHover("missing", true); err != nil {
		t.Errorf("expected hover on unknown id to be ignored, got %v", err)
	}
}

func TestReconcile_HoverSurvivesRestyle(t *testing.T) {
	surf := portstest.NewZSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})
	set := []domain.PathEntity{entity("A", domain.ClassUnknown, 2)}
	r.Reconcile(set, "")
	r.SetHover("A", true)

	r.Reconcile(set, "A")
	r.Reconcile(set, "")
	r.SetHover("A", false)

	if st, _ := r.AppliedStyle("A"); st != styling.Resolve(domain.ClassUnknown) {
		t.Errorf("expected baseline style, got %+v", st)
	}
}

func TestReconcile_ShortPathsAreComplete(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	revealed := 0
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: time.Second, OnRevealed: func(string) { revealed++ }})

	r.Reconcile([]domain.PathEntity{entity("dot", domain.ClassEasy, 1), entity("none", domain.ClassEasy, 0)}, "")
	if revealed != 2 {
		t.Errorf("expected both to complete immediately, got %d", revealed)
	}
	if sched.PendingFrames() != 0 {
		t.Errorf("expected no frames, got %d", sched.PendingFrames())
	}
}

func TestReconcile_Teardown(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: time.Second, Stagger: 50 * time.Millisecond})
	r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 5), entity("B", domain.ClassEasy, 5), entity("C", domain.ClassEasy, 5)}, "")
	sched.Step(0)

	rep := r.Teardown()
	if rep.Detached != 3 || surf.Attached() != 0 || r.Len() != 0 {
		t.Errorf("expected full teardown, got %+v attached=%d", rep, surf.Attached())
	}
	surf.Reset()
	sched.Run(2*time.Second, 16*time.Millisecond)
	if len(surf.Effects) != 0 {
		t.Errorf("expected no effects after teardown, got %v", surf.Effects)
	}
}

func TestReconcile_ReplayAndLookup(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	r := overlay.NewReconciler(surf, sched, overlay.Options{Duration: 100 * time.Millisecond})
	r.Reconcile([]domain.PathEntity{entity("A", domain.ClassEasy, 5)}, "")
	sched.Drain(16*time.Millisecond, 100)

	if err := r.Replay("A"); err != nil {
		t.Fatal(err)
	}
	if st, _ := r.AnimationState("A"); st != overlay.StateRunning {
		t.Errorf("expected replay to run, got %s", st)
	}
	if err := r.Replay("zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, ok := r.Lookup(9999); ok {
		t.Error("expected unknown line lookup to fail")
	}
}

func TestReconcile_ReshapeRetriedAfterFailure(t *testing.T) {
	surf := portstest.NewSurface()
	r := overlay.NewReconciler(surf, scheduler.NewManual(epoch), overlay.Options{DisableAnimation: true})

	a := entity("A", domain.ClassEasy, 3)
	if _, err := r.Reconcile([]domain.PathEntity{a}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref := refOf(t, r, "A")

	failures := 1
	surf.FailPoints = func(ports.LineRef, []domain.Point) bool {
		failures--
		return failures >= 0
	}
	grown := a
	grown.Points = line(6)
	if _, err := r.Reconcile([]domain.PathEntity{grown}, ""); !errors.Is(err, domain.ErrOverlayAttachment) {
		t.Fatalf("expected attachment failure, got %v", err)
	}
	if l, _ := surf.Line(ref); len(l.Points) != 3 {
		t.Fatalf("failed reshape should leave 3 points, got %d", len(l.Points))
	}

	rep, err := r.Reconcile([]domain.PathEntity{grown}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Reshaped != 1 {
		t.Errorf("expected the reshape to be retried, got %+v", rep)
	}
	if l, _ := surf.Line(ref); len(l.Points) != 6 {
		t.Errorf("expected 6 points after retry, got %d", len(l.Points))
	}

	if rep, _ := r.Reconcile([]domain.PathEntity{grown}, ""); rep.Reshaped != 0 {
		t.Errorf("expected no further reshape, got %+v", rep)
	}
}

func TestReconcile_FailedRevealResentNextPass(t *testing.T) {
	surf := portstest.NewSurface()
	sched := scheduler.NewManual(epoch)
	var failed []string
	r := overlay.NewReconciler(surf, sched, overlay.Options{
		Duration: time.Second,
		OnFailed: func(id string, _ error) { failed = append(failed, id) },
	})

	surf.FailPoints = func(ports.LineRef, []domain.Point) bool { return true }
	a := entity("A", domain.ClassEasy, 5)
	if _, err := r.Reconcile([]domain.PathEntity{a}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref := refOf(t, r, "A")

	if steps := sched.Drain(16*time.Millisecond, 10000); steps >= 10000 {
		t.Fatalf("reveal never stopped (%d steps)", steps)
	}
	if st, _ := r.AnimationState("A"); st != overlay.StateFailed {
		t.Errorf("expected failed reveal, got %s", st)
	}
	if len(failed) != 1 || failed[0] != "A" {
		t.Errorf("expected one failure for A, got %v", failed)
	}

	surf.FailPoints = nil
	rep, err := r.Reconcile([]domain.PathEntity{a}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Reshaped != 1 {
		t.Errorf("expected the full geometry to be resent, got %+v", rep)
	}
	if l, _ := surf.Line(ref); len(l.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(l.Points))
	}
}
