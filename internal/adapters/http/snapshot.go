package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trailmap/internal/adapters/raster"
	"github.com/samirrijal/trailmap/internal/adapters/scheduler"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/usecases"
	"github.com/samirrijal/trailmap/internal/pkg/geospatial"
)

const maxSnapshotSide = 4096

// SnapshotHandler renders the catalog, fully revealed, as a PNG. The
// selected route, if any, is drawn highlighted on top.
func SnapshotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		width := c.QueryInt("width", deps.Render.Width)
		height := c.QueryInt("height", deps.Render.Height)
		if width <= 0 || height <= 0 || width > maxSnapshotSide || height > maxSnapshotSide {
			return errBadRequest(c, fmt.Sprintf("width and height must be between 1 and %d", maxSnapshotSide))
		}
		padding := min(deps.Render.Padding, min(width, height)/4)

		entities := deps.Catalog.FilterByClassification(c.Query("classification"))
		selected := c.Query("selected")
		if selected != "" {
			if _, err := deps.Catalog.GetByID(selected); err != nil {
				return errNotFound(c, "trail not found: "+selected)
			}
		}

		png, err := renderSnapshot(entities, selected, raster.Options{Width: width, Height: height, Padding: padding})
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	}
}

// renderSnapshot mounts a throwaway visualization on a raster surface.
// Animation is off, so the single reconciliation pass leaves every route at
// full length.
func renderSnapshot(entities []domain.PathEntity, selected string, opts raster.Options) ([]byte, error) {
	surface := raster.NewSurface(opts)
	surface.Fit(geospatial.CatalogBounds(entities))

	vis := usecases.NewVisualizationService(surface, scheduler.NewManual(time.Now()), nil, usecases.VisualizationOptions{
		DisableAnimation: true,
		ItemHeight:       1,
	})
	defer vis.Unmount()
	vis.SetCatalog(entities)
	if selected != "" {
		vis.Select(selected)
	}

	var buf bytes.Buffer
	if err := surface.WritePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
