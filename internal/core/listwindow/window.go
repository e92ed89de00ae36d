// Package listwindow computes which rows of a long route list need to be
// materialized for the current scroll position.
package listwindow

import "github.com/samirrijal/trailmap/internal/core/domain"

// Window returns the half-open row range covering the viewport plus one
// trailing row for partial visibility. Rows outside the range exist only as
// reserved height. Non-positive item counts or heights yield an empty window.
func Window(itemCount, itemHeight, scrollOffset, viewportHeight int) domain.ListWindow {
	if itemCount <= 0 || itemHeight <= 0 {
		return domain.ListWindow{}
	}
	total := itemCount * itemHeight

	visible := 0
	if viewportHeight > 0 {
		visible = (viewportHeight + itemHeight - 1) / itemHeight
	}
	start := 0
	if scrollOffset > 0 {
		start = scrollOffset / itemHeight
	}
	start = min(start, itemCount)
	end := min(start+visible+1, itemCount)

	return domain.ListWindow{StartIndex: start, EndIndex: end, TotalHeight: total}
}
