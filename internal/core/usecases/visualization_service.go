package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/listwindow"
	"github.com/samirrijal/trailmap/internal/core/overlay"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/selection"
	"github.com/samirrijal/trailmap/internal/pkg/logging"
	"github.com/samirrijal/trailmap/internal/pkg/metrics"
)

// VisualizationOptions configures one mounted visualization.
type VisualizationOptions struct {
	Scope            string // defaults to a random id
	Duration         time.Duration
	Delay            time.Duration
	Stagger          time.Duration
	DisableAnimation bool
	ItemHeight       int
	ViewportHeight   int
	Logger           *slog.Logger
}

// VisualizationService is the owner of one mounted map view: its overlay
// registry, selection, catalog list and per-route visibility. Every method
// must be called from the goroutine of the scheduler passed to
// NewVisualizationService; the service itself takes no locks.
type VisualizationService struct {
	scope    string
	notifier ports.Notifier
	logger   *slog.Logger

	rec  *overlay.Reconciler
	sel  *selection.Controller
	list *listwindow.List

	entities []domain.PathEntity
	hidden   map[string]bool

	dirty     bool
	passing   bool
	unmounted bool
	attached  int
	last      overlay.PassReport
}

// NewVisualizationService mounts an empty visualization on surface.
// notifier may be nil.
func NewVisualizationService(surface ports.MapSurface, sched ports.Scheduler, notifier ports.Notifier, opts VisualizationOptions) *VisualizationService {
	if opts.Scope == "" {
		opts.Scope = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	v := &VisualizationService{
		scope:    opts.Scope,
		notifier: notifier,
		logger:   opts.Logger.With("scope", opts.Scope),
		list:     listwindow.NewList(opts.ItemHeight, opts.ViewportHeight),
		hidden:   make(map[string]bool),
	}
	v.sel = selection.NewController(v)
	v.rec = overlay.NewReconciler(surface, sched, overlay.Options{
		Duration:         opts.Duration,
		Delay:            opts.Delay,
		Stagger:          opts.Stagger,
		DisableAnimation: opts.DisableAnimation,
		OnRevealed:       v.onRevealed,
		OnFailed:         v.onRevealFailed,
		Logger:           v.logger,
	})
	metrics.ActiveScopes.Inc()
	return v
}

// Scope returns the scope id.
func (v *VisualizationService) Scope() string { return v.scope }

// SetCatalog replaces the routes. Visibility of ids that survive is kept and
// new ids start visible; selection and hover on vanished ids are cleared.
func (v *VisualizationService) SetCatalog(entities []domain.PathEntity) {
	if v.unmounted {
		return
	}
	present := make(map[string]bool, len(entities))
	for _, e := range entities {
		present[e.ID] = true
	}
	for id := range v.hidden {
		if !present[id] {
			delete(v.hidden, id)
		}
	}
	v.entities = entities
	v.list.SetEntities(entities)

	if st := v.sel.State(); st.HoveredID != "" && !present[st.HoveredID] {
		v.sel.Forget(st.HoveredID)
	}
	if st := v.sel.State(); st.SelectedID != "" && !present[st.SelectedID] {
		v.sel.Forget(st.SelectedID)
	}
	v.requestPass()
}

// SetVisible toggles one route. Hiding removes its overlay immediately;
// showing it again replays the reveal.
func (v *VisualizationService) SetVisible(id string, visible bool) {
	if v.unmounted || v.hidden[id] == !visible {
		return
	}
	if visible {
		delete(v.hidden, id)
	} else {
		v.hidden[id] = true
	}
	v.requestPass()
}

// ShowAll makes every route visible.
func (v *VisualizationService) ShowAll() {
	if v.unmounted || len(v.hidden) == 0 {
		return
	}
	clear(v.hidden)
	v.requestPass()
}

// HideAll hides every route.
func (v *VisualizationService) HideAll() {
	if v.unmounted {
		return
	}
	for _, e := range v.entities {
		v.hidden[e.ID] = true
	}
	v.requestPass()
}

// Visible reports whether id is toggled on.
func (v *VisualizationService) Visible(id string) bool { return !v.hidden[id] }

// HandleSurfaceEvent routes a pointer event from the map. Events for lines
// that are no longer attached are dropped.
func (v *VisualizationService) HandleSurfaceEvent(ev ports.SurfaceEvent) {
	if v.unmounted {
		return
	}
	id, ok := v.rec.Lookup(ev.Line)
	if !ok {
		v.logger.Debug("event for detached line ignored", "line", ev.Line, "kind", ev.Kind)
		return
	}
	v.dispatch(ev.Kind, id)
}

// HandleRowEvent routes a pointer event from the catalog list row at index.
func (v *VisualizationService) HandleRowEvent(kind ports.SurfaceEventKind, index int) {
	if v.unmounted {
		return
	}
	id, ok := v.list.At(index)
	if !ok {
		return
	}
	v.dispatch(kind, id)
}

func (v *VisualizationService) dispatch(kind ports.SurfaceEventKind, id string) {
	switch kind {
	case ports.SurfaceClick:
		v.sel.Click(id)
	case ports.SurfaceHoverEnter:
		v.sel.HoverEnter(id)
	case ports.SurfaceHoverExit:
		v.sel.HoverExit(id)
	}
}

// Select selects id directly; an empty id deselects.
func (v *VisualizationService) Select(id string) {
	if v.unmounted {
		return
	}
	v.sel.Select(id)
}

// Replay restarts the reveal of an attached route. Hidden and unknown ids
// return domain.ErrNotFound.
func (v *VisualizationService) Replay(id string) error {
	if v.unmounted {
		return nil
	}
	return v.rec.Replay(id)
}

// Selection returns the current selection state.
func (v *VisualizationService) Selection() domain.SelectionState { return v.sel.State() }

// Scroll updates the list scroll offset.
func (v *VisualizationService) Scroll(offset int) domain.ListWindow { return v.list.Scroll(offset) }

// Resize updates the list viewport height.
func (v *VisualizationService) Resize(height int) domain.ListWindow { return v.list.Resize(height) }

// ListView materializes the visible rows of the catalog list.
func (v *VisualizationService) ListView() listwindow.View {
	return v.list.View(v.sel.State(), v.Visible)
}

// Overlays returns the ids with an attached overlay.
func (v *VisualizationService) Overlays() []string { return v.rec.IDs() }

// LineOf returns the surface line currently showing id.
func (v *VisualizationService) LineOf(id string) (ports.LineRef, bool) { return v.rec.LineFor(id) }

// LastPass returns the report of the most recent reconciliation pass.
func (v *VisualizationService) LastPass() overlay.PassReport { return v.last }

// AnimationState exposes the reveal state of one overlay.
func (v *VisualizationService) AnimationState(id string) (overlay.AnimState, bool) {
	return v.rec.AnimationState(id)
}

// Unmount cancels every reveal and detaches every overlay. Later calls on
// the service are no-ops.
func (v *VisualizationService) Unmount() {
	if v.unmounted {
		return
	}
	v.unmounted = true
	rep := v.rec.Teardown()
	v.recordPass(rep, nil)
	v.sel.Reset()
	metrics.ActiveScopes.Dec()
	v.logger.Info("visualization unmounted", "detached", rep.Detached)
}

// OnSelect implements selection.Listener.
func (v *VisualizationService) OnSelect(prev, next string) {
	v.notify(domain.Event{Kind: domain.EventSelectionChanged, RouteID: next, Detail: map[string]any{"previous": prev}})
	if next != "" {
		if i := v.list.IndexOf(next); i >= 0 {
			v.list.ScrollTo(i)
		}
	}
	v.requestPass()
}

// OnHover implements selection.Listener.
func (v *VisualizationService) OnHover(id string, on bool) {
	if err := v.rec.SetHover(id, on); err != nil {
		v.logger.Warn("hover restyle failed", "id", id, "error", err)
	}
}

func (v *VisualizationService) onRevealed(id string) {
	metrics.Animations.WithLabelValues("completed").Inc()
	v.notify(domain.Event{Kind: domain.EventRevealCompleted, RouteID: id})
}

func (v *VisualizationService) onRevealFailed(id string, err error) {
	metrics.Animations.WithLabelValues("failed").Inc()
}

// desired is the catalog restricted to visible routes, in catalog order.
func (v *VisualizationService) desired() []domain.PathEntity {
	out := make([]domain.PathEntity, 0, len(v.entities))
	for _, e := range v.entities {
		if !v.hidden[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// requestPass runs a reconciliation pass, or marks one as needed when called
// from inside a pass. Requests arriving during a pass collapse into a single
// follow-up pass over the latest state.
func (v *VisualizationService) requestPass() {
	v.dirty = true
	if v.passing {
		return
	}
	v.passing = true
	defer func() { v.passing = false }()
	for v.dirty && !v.unmounted {
		v.dirty = false
		rep, err := v.rec.Reconcile(v.desired(), v.sel.Selected())
		v.recordPass(rep, err)
		v.last = rep
	}
}

func (v *VisualizationService) recordPass(rep overlay.PassReport, err error) {
	result := "ok"
	if err != nil {
		result = "partial"
		metrics.OverlayEffects.WithLabelValues("failed").Add(float64(rep.Failed))
		v.logger.Warn("overlay pass incomplete, will retry on next pass", "failed", rep.Failed, "error", err)
	}
	metrics.ReconcilePasses.WithLabelValues(result).Inc()
	metrics.OverlayEffects.WithLabelValues("attach").Add(float64(rep.Attached))
	metrics.OverlayEffects.WithLabelValues("detach").Add(float64(rep.Detached))
	metrics.OverlayEffects.WithLabelValues("restyle").Add(float64(rep.Restyled))
	metrics.OverlayEffects.WithLabelValues("reshape").Add(float64(rep.Reshaped))
	metrics.OverlayEffects.WithLabelValues("rebuild").Add(float64(rep.Rebuilt))
	metrics.Animations.WithLabelValues("cancelled").Add(float64(rep.Cancelled))

	n := v.rec.Len()
	metrics.OverlaysAttached.Add(float64(n - v.attached))
	v.attached = n
}

func (v *VisualizationService) notify(ev domain.Event) {
	if v.notifier == nil {
		return
	}
	ev.Scope = v.scope
	ev.At = time.Now()
	if err := v.notifier.Notify(context.Background(), ev); err != nil {
		v.logger.Warn("notify failed", "kind", ev.Kind, "error", err)
	}
}

var _ selection.Listener = (*VisualizationService)(nil)
