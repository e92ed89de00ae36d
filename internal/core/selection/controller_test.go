package selection

import (
	"fmt"
	"reflect"
	"testing"
)

type recorder struct {
	calls []string
}

func (r *recorder) OnSelect(prev, next string) {
	r.calls = append(r.calls, fmt.Sprintf("select %q->%q", prev, next))
}

func (r *recorder) OnHover(id string, on bool) {
	r.calls = append(r.calls, fmt.Sprintf("hover %s %v", id, on))
}

func TestController_SelectIdempotent(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec)

	if !c.Select("a") {
		t.Error("expected first select to change state")
	}
	if c.Select("a") {
		t.Error("expected repeated select to be a no-op")
	}
	c.Select("b")
	c.Deselect()
	c.Deselect()

	want := []string{`select ""->"a"`, `select "a"->"b"`, `select "b"->""`}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("unexpected calls %v", rec.calls)
	}
	if c.Selected() != "" {
		t.Errorf("expected nothing selected, got %q", c.Selected())
	}
}

func TestController_ClickToggles(t *testing.T) {
	c := NewController(nil)
	c.Click("a")
	if c.Selected() != "a" {
		t.Fatalf("expected a selected, got %q", c.Selected())
	}
	c.Click("b")
	if c.Selected() != "b" {
		t.Fatalf("expected b selected, got %q", c.Selected())
	}
	c.Click("b")
	if c.Selected() != "" {
		t.Errorf("expected second click to deselect, got %q", c.Selected())
	}
	if c.Click("") {
		t.Error("expected empty click to be ignored")
	}
}

func TestController_Hover(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec)

	c.HoverEnter("a")
	c.HoverEnter("a")
	c.HoverEnter("b")
	c.HoverExit("a")
	c.HoverExit("b")
	c.HoverExit("b")

	want := []string{"hover a true", "hover a false", "hover b true", "hover b false"}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("unexpected calls %v", rec.calls)
	}
	if c.Hovered() != "" {
		t.Errorf("expected nothing hovered, got %q", c.Hovered())
	}
}

func TestController_HoverAndSelectIndependent(t *testing.T) {
	c := NewController(nil)
	c.Select("a")
	c.HoverEnter("b")
	c.Deselect()
	if c.Hovered() != "b" {
		t.Errorf("expected hover to survive deselect, got %q", c.Hovered())
	}
}

func TestController_Forget(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec)
	c.Select("a")
	c.HoverEnter("a")
	rec.calls = nil

	c.Forget("b")
	if len(rec.calls) != 0 {
		t.Errorf("expected forgetting an unrelated id to do nothing, got %v", rec.calls)
	}
	c.Forget("a")
	if st := c.State(); st.SelectedID != "" || st.HoveredID != "" {
		t.Errorf("expected empty state, got %+v", st)
	}
	if len(rec.calls) != 2 {
		t.Errorf("expected hover exit and deselect, got %v", rec.calls)
	}
}
