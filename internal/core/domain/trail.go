package domain

import "time"

// Classification is the difficulty/theme tag of a route.
type Classification string

const (
	ClassEasy    Classification = "easy"
	ClassMedium  Classification = "medium"
	ClassHard    Classification = "hard"
	ClassScenic  Classification = "scenic"
	ClassUnknown Classification = "unknown"
)

// Classifications lists every tag in display order.
var Classifications = []Classification{ClassEasy, ClassMedium, ClassHard, ClassScenic, ClassUnknown}

// StrokeDash is the dash pattern of an overlay line.
type StrokeDash string

const (
	DashSolid  StrokeDash = "solid"
	DashDashed StrokeDash = "dashed"
)

// Style is the visual style of an overlay. It is comparable with ==.
type Style struct {
	StrokeColor   string     `json:"stroke_color"` // #RRGGBB
	StrokeWeight  int        `json:"stroke_weight"`
	StrokeOpacity float64    `json:"stroke_opacity"`
	StrokeDash    StrokeDash `json:"stroke_dash"`
}

// RawRoute is a route as it comes out of geometry conversion, before an id
// is guaranteed and a style is resolved.
type RawRoute struct {
	ID             string
	Name           string
	Classification string
	Points         []Point
	Properties     map[string]any
}

// PathEntity is the normalized unit rendered as one overlay.
// Values are never mutated after construction; an updated route is a new
// PathEntity with the same ID.
type PathEntity struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	Points         []Point        `json:"points"`
	Style          Style          `json:"style"`
	Properties     map[string]any `json:"properties,omitempty"`
}

// Renderable reports whether the entity has enough points to draw a line.
func (p PathEntity) Renderable() bool { return len(p.Points) >= 2 }

// Catalog is one converted snapshot of the route source.
type Catalog struct {
	Entities []PathEntity `json:"entities"`
	Errors   []ItemError  `json:"-"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// CatalogStats summarises a catalog.
type CatalogStats struct {
	Total            int                    `json:"total"`
	ByClassification map[Classification]int `json:"by_classification"`
	TotalDistance    float64                `json:"total_distance"`   // sum of the "distance" property
	AverageDistance  float64                `json:"average_distance"` // over all routes
	TotalLengthM     float64                `json:"total_length_m"`   // great-circle length of geometry
}

// SelectionState holds the selected and hovered route ids. Empty means none.
type SelectionState struct {
	SelectedID string `json:"selected_id,omitempty"`
	HoveredID  string `json:"hovered_id,omitempty"`
}

// ListWindow is the contiguous range [StartIndex, EndIndex) of catalog rows
// to materialize, plus the reserved scroll height of the whole list.
type ListWindow struct {
	StartIndex  int `json:"start_index"`
	EndIndex    int `json:"end_index"`
	TotalHeight int `json:"total_height"`
}

// Len returns the number of rows in the window.
func (w ListWindow) Len() int { return w.EndIndex - w.StartIndex }
