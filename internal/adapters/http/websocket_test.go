package http

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/trailmap/internal/adapters/scheduler"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/usecases"
)

type outbox struct {
	msgs []wsOut
	fail bool
}

func (o *outbox) send(m wsOut) error {
	if o.fail {
		return errors.New("connection closed")
	}
	o.msgs = append(o.msgs, m)
	return nil
}

func (o *outbox) count(typ string) int {
	n := 0
	for _, m := range o.msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func (o *outbox) last(typ string) (wsOut, bool) {
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].Type == typ {
			return o.msgs[i], true
		}
	}
	return wsOut{}, false
}

func sessionEntities() []domain.PathEntity {
	style := domain.Style{StrokeColor: "#4CAF50", StrokeWeight: 3, StrokeOpacity: 0.8, StrokeDash: domain.DashSolid}
	mk := func(id string, lat float64) domain.PathEntity {
		return domain.PathEntity{
			ID:             id,
			Name:           id,
			Classification: domain.ClassEasy,
			Points:         []domain.Point{{Lat: lat, Lon: 127}, {Lat: lat, Lon: 127.1}},
			Style:          style,
		}
	}
	return []domain.PathEntity{mk("a", 37.1), mk("b", 37.2), mk("c", 37.3)}
}

func newTestSession(out *outbox) *mapSession {
	vis := usecases.NewVisualizationService(
		newRemoteSurface(out.send),
		scheduler.NewManual(time.Unix(0, 0)),
		sessionNotifier{send: out.send},
		usecases.VisualizationOptions{Scope: "ws-test", DisableAnimation: true, ItemHeight: 10, ViewportHeight: 20},
	)
	return &mapSession{vis: vis, send: out.send}
}

func TestMapSession_MountStreamsLines(t *testing.T) {
	out := &outbox{}
	sess := newTestSession(out)
	sess.setCatalog(sessionEntities())

	if n := out.count("attach"); n != 3 {
		t.Fatalf("expected 3 attach messages, got %d", n)
	}
	first := out.msgs[0]
	if first.Line != 1 || len(first.Points) != 2 || first.Points[0] != [2]float64{37.1, 127} {
		t.Errorf("unexpected attach %+v", first)
	}
	w, ok := out.last("window")
	if !ok || w.Window.TotalHeight != 30 || len(w.Window.Rows) != 3 {
		t.Errorf("unexpected window %+v", w.Window)
	}
}

func TestMapSession_ClickSelects(t *testing.T) {
	out := &outbox{}
	sess := newTestSession(out)
	sess.setCatalog(sessionEntities())
	out.msgs = nil

	sess.handle(wsIn{Type: "click", Line: 2})

	ev, ok := out.last("event")
	if !ok || ev.Event.Kind != domain.EventSelectionChanged || ev.Event.RouteID != "b" || ev.Event.Scope != "ws-test" {
		t.Fatalf("expected selection event for b, got %+v", ev.Event)
	}
	// No z-index on a remote surface: the overlays are rebuilt with the
	// selection attached last.
	attach, _ := out.last("attach")
	if attach.Style.StrokeWeight != 5 || attach.Style.StrokeOpacity != 1 {
		t.Errorf("last attached line should be the highlighted selection, got %+v", attach.Style)
	}
	w, _ := out.last("window")
	if !w.Window.Rows[1].Selected {
		t.Errorf("row b should be selected: %+v", w.Window.Rows)
	}
	if got := sess.vis.Selection().SelectedID; got != "b" {
		t.Errorf("expected b selected, got %q", got)
	}
}

func TestMapSession_RowEventsAndVisibility(t *testing.T) {
	out := &outbox{}
	sess := newTestSession(out)
	sess.setCatalog(sessionEntities())

	sess.handle(wsIn{Type: "row_click", Index: 2})
	if got := sess.vis.Selection().SelectedID; got != "c" {
		t.Errorf("expected c selected from the list, got %q", got)
	}

	out.msgs = nil
	sess.handle(wsIn{Type: "visible", ID: "a", Visible: false})
	if out.count("detach") != 1 {
		t.Errorf("hiding a route should detach its line, got %+v", out.msgs)
	}
	w, _ := out.last("window")
	if w.Window.Rows[0].Visible {
		t.Error("row a should be hidden")
	}
}

func TestMapSession_Replay(t *testing.T) {
	out := &outbox{}
	sess := newTestSession(out)
	sess.setCatalog(sessionEntities())
	out.msgs = nil

	sess.handle(wsIn{Type: "replay", ID: "b"})
	pts, ok := out.last("points")
	if !ok || pts.Line != 2 || len(pts.Points) != 0 {
		t.Errorf("replay should clear line 2 before revealing it, got %+v", out.msgs)
	}
	if out.count("error") != 0 {
		t.Errorf("unexpected error: %+v", out.msgs)
	}

	sess.handle(wsIn{Type: "visible", ID: "c", Visible: false})
	out.msgs = nil
	sess.handle(wsIn{Type: "replay", ID: "c"})
	if m, ok := out.last("error"); !ok || m.Error == "" {
		t.Errorf("replaying a hidden route should fail, got %+v", out.msgs)
	}
}

func TestMapSession_UnknownMessage(t *testing.T) {
	out := &outbox{}
	sess := newTestSession(out)
	sess.handle(wsIn{Type: "teleport"})
	if m, ok := out.last("error"); !ok || m.Error == "" {
		t.Errorf("expected an error message, got %+v", out.msgs)
	}
}

func TestRemoteSurface(t *testing.T) {
	out := &outbox{fail: true}
	s := newRemoteSurface(out.send)
	pts := []domain.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}

	if _, err := s.AttachLine(pts, domain.Style{}); err == nil {
		t.Fatal("expected attach to fail while the connection is down")
	}

	out.fail = false
	ref, err := s.AttachLine(pts, domain.Style{})
	if err != nil || ref != 1 {
		t.Fatalf("expected line 1, got %d (%v)", ref, err)
	}
	if err := s.Detach(ref); err != nil {
		t.Fatal(err)
	}
	if err := s.SetStyle(ref, domain.Style{}); !errors.Is(err, domain.ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if err := s.Detach(ports.LineRef(42)); !errors.Is(err, domain.ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
}
