// Package selection tracks the selected and hovered route of one
// visualization.
package selection

import "github.com/samirrijal/trailmap/internal/core/domain"

// Listener is told about state transitions. OnSelect has a structural effect
// (a reconciliation pass); OnHover only restyles one overlay.
type Listener interface {
	OnSelect(prev, next string)
	OnHover(id string, on bool)
}

// Controller owns a SelectionState. Every operation is idempotent: setting
// the current value again notifies nobody.
type Controller struct {
	state    domain.SelectionState
	listener Listener
}

// NewController returns a controller with nothing selected. l may be nil.
func NewController(l Listener) *Controller {
	return &Controller{listener: l}
}

// State returns a copy of the current state.
func (c *Controller) State() domain.SelectionState { return c.state }

// Selected returns the selected id, or "".
func (c *Controller) Selected() string { return c.state.SelectedID }

// Hovered returns the hovered id, or "".
func (c *Controller) Hovered() string { return c.state.HoveredID }

// Select makes id the selected route. An empty id deselects.
func (c *Controller) Select(id string) bool {
	prev := c.state.SelectedID
	if prev == id {
		return false
	}
	c.state.SelectedID = id
	if c.listener != nil {
		c.listener.OnSelect(prev, id)
	}
	return true
}

// Deselect clears the selection.
func (c *Controller) Deselect() bool { return c.Select("") }

// Click toggles: clicking the selected route deselects it, any other route
// becomes selected.
func (c *Controller) Click(id string) bool {
	if id == "" {
		return false
	}
	if c.state.SelectedID == id {
		return c.Deselect()
	}
	return c.Select(id)
}

// HoverEnter marks id as hovered, ending any previous hover first.
func (c *Controller) HoverEnter(id string) bool {
	if id == "" || c.state.HoveredID == id {
		return false
	}
	if prev := c.state.HoveredID; prev != "" {
		c.state.HoveredID = ""
		c.notifyHover(prev, false)
	}
	c.state.HoveredID = id
	c.notifyHover(id, true)
	return true
}

// HoverExit ends the hover on id. Exits for a route that is not hovered are
// ignored, which makes out-of-order enter/exit pairs harmless.
func (c *Controller) HoverExit(id string) bool {
	if id == "" || c.state.HoveredID != id {
		return false
	}
	c.state.HoveredID = ""
	c.notifyHover(id, false)
	return true
}

// Forget drops references to a route that left the catalog.
func (c *Controller) Forget(id string) {
	if c.state.HoveredID == id {
		c.HoverExit(id)
	}
	if c.state.SelectedID == id {
		c.Deselect()
	}
}

// Reset clears both ids without notifying.
func (c *Controller) Reset() {
	c.state = domain.SelectionState{}
}

func (c *Controller) notifyHover(id string, on bool) {
	if c.listener != nil {
		c.listener.OnHover(id, on)
	}
}
