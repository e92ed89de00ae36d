package listwindow

import (
	"github.com/samirrijal/trailmap/internal/core/domain"
)

// Row is one materialized list entry.
type Row struct {
	Index    int               `json:"index"`
	Top      int               `json:"top"` // offset from the top of the list
	Entity   domain.PathEntity `json:"entity"`
	Visible  bool              `json:"visible"`
	Selected bool              `json:"selected"`
	Hovered  bool              `json:"hovered"`
}

// View is what a list host renders.
type View struct {
	domain.ListWindow
	Rows []Row `json:"rows"`
}

// List holds the scroll state of a catalog list. It recomputes its window
// on every scroll or resize and keeps no row state of its own.
type List struct {
	itemHeight     int
	viewportHeight int
	scrollOffset   int
	entities       []domain.PathEntity
}

// NewList returns a list with the given geometry.
func NewList(itemHeight, viewportHeight int) *List {
	return &List{itemHeight: itemHeight, viewportHeight: viewportHeight}
}

// SetEntities replaces the rows. The scroll offset is clamped to the new
// content height.
func (l *List) SetEntities(entities []domain.PathEntity) {
	l.entities = entities
	l.clampScroll()
}

// Scroll sets the scroll offset in pixels.
func (l *List) Scroll(offset int) domain.ListWindow {
	l.scrollOffset = max(offset, 0)
	l.clampScroll()
	return l.Window()
}

// Resize sets the viewport height in pixels.
func (l *List) Resize(viewportHeight int) domain.ListWindow {
	l.viewportHeight = max(viewportHeight, 0)
	l.clampScroll()
	return l.Window()
}

// Offset returns the current scroll offset.
func (l *List) Offset() int { return l.scrollOffset }

// Len returns the number of rows.
func (l *List) Len() int { return len(l.entities) }

// Window returns the current window.
func (l *List) Window() domain.ListWindow {
	return Window(len(l.entities), l.itemHeight, l.scrollOffset, l.viewportHeight)
}

// At returns the route id of row i.
func (l *List) At(i int) (string, bool) {
	if i < 0 || i >= len(l.entities) {
		return "", false
	}
	return l.entities[i].ID, true
}

// IndexOf returns the row of id, or -1.
func (l *List) IndexOf(id string) int {
	for i, e := range l.entities {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ScrollTo scrolls the minimum amount that brings row i fully into view.
func (l *List) ScrollTo(i int) domain.ListWindow {
	if i < 0 || i >= len(l.entities) || l.itemHeight <= 0 {
		return l.Window()
	}
	top := i * l.itemHeight
	switch {
	case top < l.scrollOffset:
		l.scrollOffset = top
	case top+l.itemHeight > l.scrollOffset+l.viewportHeight:
		l.scrollOffset = top + l.itemHeight - l.viewportHeight
	}
	l.clampScroll()
	return l.Window()
}

// View materializes the rows of the current window. visible reports the
// per-route visibility toggle and may be nil.
func (l *List) View(sel domain.SelectionState, visible func(id string) bool) View {
	w := l.Window()
	v := View{ListWindow: w, Rows: make([]Row, 0, w.Len())}
	for i := w.StartIndex; i < w.EndIndex; i++ {
		e := l.entities[i]
		v.Rows = append(v.Rows, Row{
			Index:    i,
			Top:      i * l.itemHeight,
			Entity:   e,
			Visible:  visible == nil || visible(e.ID),
			Selected: e.ID == sel.SelectedID,
			Hovered:  e.ID == sel.HoveredID,
		})
	}
	return v
}

func (l *List) clampScroll() {
	maxOffset := max(len(l.entities)*l.itemHeight-l.viewportHeight, 0)
	l.scrollOffset = min(max(l.scrollOffset, 0), maxOffset)
}
