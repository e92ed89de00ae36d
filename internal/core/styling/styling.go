// Package styling maps route classifications to overlay styles.
package styling

import (
	"math"
	"strings"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// HoverBoost is added to the baseline opacity while a route is hovered.
const HoverBoost = 0.2

var table = map[domain.Classification]domain.Style{
	domain.ClassEasy:    {StrokeColor: "#4CAF50", StrokeWeight: 3, StrokeOpacity: 0.8, StrokeDash: domain.DashSolid},
	domain.ClassMedium:  {StrokeColor: "#FF9800", StrokeWeight: 4, StrokeOpacity: 0.8, StrokeDash: domain.DashSolid},
	domain.ClassHard:    {StrokeColor: "#F44336", StrokeWeight: 5, StrokeOpacity: 0.8, StrokeDash: domain.DashSolid},
	domain.ClassScenic:  {StrokeColor: "#2196F3", StrokeWeight: 4, StrokeOpacity: 0.8, StrokeDash: domain.DashDashed},
	domain.ClassUnknown: {StrokeColor: "#9E9E9E", StrokeWeight: 3, StrokeOpacity: 0.6, StrokeDash: domain.DashSolid},
}

// ParseClassification coerces a free-form tag to one of the five known
// classifications. Matching ignores case and surrounding whitespace; anything
// unrecognised is ClassUnknown.
func ParseClassification(tag string) domain.Classification {
	c := domain.Classification(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := table[c]; ok {
		return c
	}
	return domain.ClassUnknown
}

// Resolve returns the style for a classification. Unknown values resolve
// like ClassUnknown.
func Resolve(c domain.Classification) domain.Style {
	if s, ok := table[c]; ok {
		return s
	}
	return table[domain.ClassUnknown]
}

// ResolveTag is Resolve(ParseClassification(tag)).
func ResolveTag(tag string) domain.Style {
	return Resolve(ParseClassification(tag))
}

// Highlight returns the style of a selected route.
func Highlight(base domain.Style) domain.Style {
	base.StrokeWeight += 2
	base.StrokeOpacity = 1.0
	return base
}

// HoverOpacity returns the boosted opacity for a hovered route. Callers keep
// the baseline and restore it on hover exit instead of subtracting the boost.
func HoverOpacity(baseline float64) float64 {
	return math.Min(baseline+HoverBoost, 1.0)
}

// Hovered returns base with its opacity boosted.
func Hovered(base domain.Style) domain.Style {
	base.StrokeOpacity = HoverOpacity(base.StrokeOpacity)
	return base
}
