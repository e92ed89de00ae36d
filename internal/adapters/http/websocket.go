package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/trailmap/internal/adapters/scheduler"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/usecases"
	"github.com/samirrijal/trailmap/internal/pkg/metrics"
)

// Client → server messages on /ws/map:
//
//	{"type":"click","line":3}           pointer events on a line
//	{"type":"hover_enter","line":3}
//	{"type":"hover_exit","line":3}
//	{"type":"row_click","index":7}      the same events on list rows
//	{"type":"select","id":"namsan"}     "" deselects
//	{"type":"visible","id":"namsan","visible":false}
//	{"type":"show_all"} / {"type":"hide_all"}
//	{"type":"scroll","offset":320} / {"type":"resize","height":600}
//
// Server → client messages mirror MapSurface calls (attach, points, style,
// detach) plus "event" and "window".
type wsIn struct {
	Type    string        `json:"type"`
	Line    ports.LineRef `json:"line"`
	Index   int           `json:"index"`
	ID      string        `json:"id"`
	Visible bool          `json:"visible"`
	Offset  int           `json:"offset"`
	Height  int           `json:"height"`
}

type wsOut struct {
	Type   string        `json:"type"`
	Line   ports.LineRef `json:"line,omitempty"`
	Points [][2]float64  `json:"points,omitempty"`
	Style  *domain.Style `json:"style,omitempty"`
	Event  *domain.Event `json:"event,omitempty"`
	Window *wsWindow     `json:"window,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type wsRow struct {
	Index    int          `json:"index"`
	Top      int          `json:"top"`
	Trail    TrailSummary `json:"trail"`
	Visible  bool         `json:"visible"`
	Selected bool         `json:"selected"`
	Hovered  bool         `json:"hovered"`
}

type wsWindow struct {
	domain.ListWindow
	Rows []wsRow `json:"rows"`
}

func latLons(points []domain.Point) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.Lat, p.Lon}
	}
	return out
}

// remoteSurface is a MapSurface whose lines live in a browser. Calls are
// forwarded as messages; a failed send surfaces as an attach failure so the
// next pass retries.
type remoteSurface struct {
	send func(wsOut) error
	next ports.LineRef
	live map[ports.LineRef]bool
}

func newRemoteSurface(send func(wsOut) error) *remoteSurface {
	return &remoteSurface{send: send, live: make(map[ports.LineRef]bool)}
}

func (s *remoteSurface) AttachLine(points []domain.Point, style domain.Style) (ports.LineRef, error) {
	ref := s.next + 1
	if err := s.send(wsOut{Type: "attach", Line: ref, Points: latLons(points), Style: &style}); err != nil {
		return 0, err
	}
	s.next = ref
	s.live[ref] = true
	return ref, nil
}

func (s *remoteSurface) SetPoints(ref ports.LineRef, points []domain.Point) error {
	if !s.live[ref] {
		return fmt.Errorf("line %d: %w", ref, domain.ErrStaleHandle)
	}
	return s.send(wsOut{Type: "points", Line: ref, Points: latLons(points)})
}

func (s *remoteSurface) SetStyle(ref ports.LineRef, style domain.Style) error {
	if !s.live[ref] {
		return fmt.Errorf("line %d: %w", ref, domain.ErrStaleHandle)
	}
	return s.send(wsOut{Type: "style", Line: ref, Style: &style})
}

func (s *remoteSurface) Detach(ref ports.LineRef) error {
	if !s.live[ref] {
		return fmt.Errorf("line %d: %w", ref, domain.ErrStaleHandle)
	}
	delete(s.live, ref)
	return s.send(wsOut{Type: "detach", Line: ref})
}

// sessionNotifier forwards scope events to the client and to the shared
// notifier, if any.
type sessionNotifier struct {
	send func(wsOut) error
	next ports.Notifier
}

func (n sessionNotifier) Notify(ctx context.Context, ev domain.Event) error {
	if err := n.send(wsOut{Type: "event", Event: &ev}); err != nil {
		return err
	}
	if n.next != nil {
		return n.next.Notify(ctx, ev)
	}
	return nil
}

// mapSession binds one client to one visualization. Every method runs on
// the session's scheduler goroutine.
type mapSession struct {
	vis  *usecases.VisualizationService
	send func(wsOut) error
}

func (s *mapSession) sendWindow() {
	view := s.vis.ListView()
	w := &wsWindow{ListWindow: view.ListWindow, Rows: make([]wsRow, 0, len(view.Rows))}
	for _, r := range view.Rows {
		w.Rows = append(w.Rows, wsRow{
			Index:    r.Index,
			Top:      r.Top,
			Trail:    summarize(r.Entity),
			Visible:  r.Visible,
			Selected: r.Selected,
			Hovered:  r.Hovered,
		})
	}
	_ = s.send(wsOut{Type: "window", Window: w})
}

func (s *mapSession) setCatalog(entities []domain.PathEntity) {
	s.vis.SetCatalog(entities)
	s.sendWindow()
}

func (s *mapSession) handle(m wsIn) {
	switch m.Type {
	case "click", "hover_enter", "hover_exit":
		s.vis.HandleSurfaceEvent(ports.SurfaceEvent{Kind: ports.SurfaceEventKind(m.Type), Line: m.Line})
	case "row_click":
		s.vis.HandleRowEvent(ports.SurfaceClick, m.Index)
	case "row_hover_enter":
		s.vis.HandleRowEvent(ports.SurfaceHoverEnter, m.Index)
	case "row_hover_exit":
		s.vis.HandleRowEvent(ports.SurfaceHoverExit, m.Index)
	case "select":
		s.vis.Select(m.ID)
	case "visible":
		s.vis.SetVisible(m.ID, m.Visible)
	case "replay":
		if err := s.vis.Replay(m.ID); err != nil {
			_ = s.send(wsOut{Type: "error", Error: err.Error()})
			return
		}
	case "show_all":
		s.vis.ShowAll()
	case "hide_all":
		s.vis.HideAll()
	case "scroll":
		s.vis.Scroll(m.Offset)
	case "resize":
		s.vis.Resize(m.Height)
	default:
		_ = s.send(wsOut{Type: "error", Error: "unknown message type: " + m.Type})
		return
	}
	s.sendWindow()
}

// MapSessionHandler returns a handler that mounts a live trail map for the
// connected client. Each connection gets its own scheduler loop and
// visualization scope; catalog reloads are pushed to every session.
func MapSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		logger := deps.logger().With("remote", c.RemoteAddr().String())
		logger.Info("map session opened")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		send := func(m wsOut) error {
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		loop := scheduler.NewLoop(deps.Render.FrameInterval(), logger)
		loopDone := make(chan struct{})
		go func() {
			loop.Run(ctx)
			close(loopDone)
		}()
		defer func() {
			cancel()
			<-loopDone
		}()

		sess := &mapSession{send: send}
		err := loop.Do(ctx, func() {
			sess.vis = usecases.NewVisualizationService(
				newRemoteSurface(send),
				loop,
				sessionNotifier{send: send, next: deps.Notifier},
				usecases.VisualizationOptions{
					Duration:         deps.Animation.Duration(),
					Delay:            deps.Animation.Delay(),
					Stagger:          deps.Animation.Stagger(),
					DisableAnimation: !deps.Animation.Enabled,
					ItemHeight:       deps.List.ItemHeight,
					ViewportHeight:   deps.List.ViewportHeight,
					Logger:           logger,
				},
			)
			sess.setCatalog(deps.Catalog.Entities())
		})
		if err != nil {
			logger.Error("map session mount failed", "error", err)
			return
		}
		defer func() {
			_ = loop.Do(ctx, sess.vis.Unmount)
		}()

		unsubscribe := deps.Catalog.Subscribe(func(cat *domain.Catalog) {
			loop.Post(func() { sess.setCatalog(cat.Entities) })
		})
		defer unsubscribe()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			var m wsIn
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = send(wsOut{Type: "error", Error: "invalid JSON"})
				continue
			}
			loop.Post(func() { sess.handle(m) })
		}

		logger.Info("map session closed", slog.String("scope", sess.vis.Scope()))
	}
}
