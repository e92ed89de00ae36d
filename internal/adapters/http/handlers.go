package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/pkg/geospatial"
)

// TrailSummary is a route without its geometry.
type TrailSummary struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Classification domain.Classification `json:"classification"`
	Style          domain.Style          `json:"style"`
	LengthM        float64               `json:"length_m"`
	PointCount     int                   `json:"point_count"`
	Properties     map[string]any        `json:"properties,omitempty"`
}

// TrailDetail is a route with geometry and derived geography.
type TrailDetail struct {
	domain.PathEntity
	LengthM float64       `json:"length_m"`
	Bounds  domain.Bounds `json:"bounds"`
	Center  *domain.Point `json:"center,omitempty"`
}

// CatalogStatsResponse is the body of /v1/trails/stats.
type CatalogStatsResponse struct {
	domain.CatalogStats
	Errors   int       `json:"errors"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ConversionError is one route the converter rejected.
type ConversionError struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// WindowRow is one materialized row of the virtualized list.
type WindowRow struct {
	Index int          `json:"index"`
	Top   int          `json:"top"`
	Trail TrailSummary `json:"trail"`
}

// WindowResponse is the body of /v1/trails/window.
type WindowResponse struct {
	Window domain.ListWindow `json:"window"`
	Rows   []WindowRow       `json:"rows"`
}

func summarize(e domain.PathEntity) TrailSummary {
	return TrailSummary{
		ID:             e.ID,
		Name:           e.Name,
		Classification: e.Classification,
		Style:          e.Style,
		LengthM:        geospatial.PathLength(e.Points),
		PointCount:     len(e.Points),
		Properties:     e.Properties,
	}
}

func detail(e domain.PathEntity) TrailDetail {
	d := TrailDetail{
		PathEntity: e,
		LengthM:    geospatial.PathLength(e.Points),
		Bounds:     geospatial.PathBounds(e.Points),
	}
	if c, ok := geospatial.Center(e.Points); ok {
		d.Center = &c
	}
	return d
}

// catalogLoaded short-circuits with 503 until the first catalog is installed.
func catalogLoaded(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Catalog.Current() == nil {
			return errUnavailable(c, "trail catalog not loaded yet")
		}
		return c.Next()
	}
}

// ListTrailsHandler returns the routes, optionally filtered by classification.
func ListTrailsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trails := deps.Catalog.FilterByClassification(c.Query("classification"))

		offset, limit := pageParams(c, 100, 500)
		pg := Pagination{Offset: offset, Limit: limit, Total: len(trails)}

		out := make([]TrailSummary, 0, limit)
		for _, e := range page(trails, pg) {
			out = append(out, summarize(e))
		}

		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: out, Pagination: pg})
	}
}

// GetTrailHandler returns a single route with its geometry.
func GetTrailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		e, err := deps.Catalog.GetByID(id)
		if errors.Is(err, domain.ErrNotFound) {
			return errNotFound(c, "trail not found: "+id)
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(detail(*e))
	}
}

// TrailStatsHandler summarises the current catalog.
func TrailStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat := deps.Catalog.Current()
		return c.JSON(CatalogStatsResponse{
			CatalogStats: deps.Catalog.Stats(),
			Errors:       len(cat.Errors),
			LoadedAt:     cat.LoadedAt,
		})
	}
}

// TrailErrorsHandler lists the routes dropped by the last conversion.
func TrailErrorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat := deps.Catalog.Current()
		out := make([]ConversionError, 0, len(cat.Errors))
		for _, ie := range cat.Errors {
			ce := ConversionError{Index: ie.Index, ID: ie.ID}
			if ie.Err != nil {
				ce.Message = ie.Err.Error()
			}
			out = append(out, ce)
		}
		return c.JSON(out)
	}
}

// TrailWindowHandler computes the virtualized list window and returns the
// rows inside it.
func TrailWindowHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemHeight := c.QueryInt("item_height", deps.List.ItemHeight)
		viewport := c.QueryInt("viewport", deps.List.ViewportHeight)
		scroll := c.QueryInt("scroll", 0)
		if itemHeight <= 0 {
			return errBadRequest(c, "item_height must be positive")
		}
		if viewport < 0 || scroll < 0 {
			return errBadRequest(c, "viewport and scroll must not be negative")
		}

		w, entities := deps.Catalog.Window(c.Query("classification"), itemHeight, scroll, viewport)
		rows := make([]WindowRow, 0, len(entities))
		for i, e := range entities {
			idx := w.StartIndex + i
			rows = append(rows, WindowRow{Index: idx, Top: idx * itemHeight, Trail: summarize(e)})
		}
		return c.JSON(WindowResponse{Window: w, Rows: rows})
	}
}

// RefreshTrailsHandler reloads the catalog from its source, bypassing the
// cache. On failure the previous catalog stays installed.
func RefreshTrailsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := deps.Catalog.Refresh(c.UserContext())
		if errors.Is(err, domain.ErrSourceUnavailable) {
			return errUnavailable(c, err.Error())
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		LoggerFromCtx(c.UserContext()).Info("catalog refreshed", "routes", len(cat.Entities), "errors", len(cat.Errors))
		return c.JSON(CatalogStatsResponse{
			CatalogStats: deps.Catalog.Stats(),
			Errors:       len(cat.Errors),
			LoadedAt:     cat.LoadedAt,
		})
	}
}
