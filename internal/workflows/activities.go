package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/trailmap/internal/adapters/filesource"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/geometry"
	"github.com/samirrijal/trailmap/internal/core/ports"
)

// CatalogLoader reloads a catalog from its source.
type CatalogLoader interface {
	Refresh(ctx context.Context) (*domain.Catalog, error)
}

// RefreshRequester asks running API instances to reload.
type RefreshRequester interface {
	RequestRefresh(ctx context.Context, source string) error
}

// LoadSummary is the result of LoadCatalog.
type LoadSummary struct {
	Routes  int
	Dropped int
}

// CatalogActivities holds the activity implementations for the refresh
// workflow. Trails and Requester may be nil.
type CatalogActivities struct {
	Trails    ports.TrailRepository
	Catalog   CatalogLoader
	Requester RefreshRequester
	Logger    *slog.Logger
}

// ImportTrails converts a trail file and upserts every valid route. Invalid
// routes are logged and skipped; the import count excludes them.
func (a *CatalogActivities) ImportTrails(ctx context.Context, path, format string) (int, error) {
	if a.Trails == nil {
		return 0, fmt.Errorf("import %s: no trail repository configured", path)
	}
	doc, err := filesource.New(path, filesource.Format(format)).Fetch(ctx)
	if err != nil {
		return 0, err
	}
	routes, itemErrs, err := geometry.Convert(doc)
	if err != nil {
		return 0, fmt.Errorf("convert %s: %w", path, err)
	}
	for _, ie := range itemErrs {
		a.logger().Warn("import skipped route", "index", ie.Index, "id", ie.ID, "error", ie.Err)
	}

	recs := geometry.ToWKTRecords(routes)
	if err := a.Trails.UpsertBatch(ctx, recs); err != nil {
		return 0, fmt.Errorf("upsert trails: %w", err)
	}
	a.logger().Info("trails imported", "path", path, "routes", len(recs), "skipped", len(itemErrs))
	return len(recs), nil
}

// LoadCatalog reloads the catalog, bypassing and then repopulating the cache.
func (a *CatalogActivities) LoadCatalog(ctx context.Context) (LoadSummary, error) {
	cat, err := a.Catalog.Refresh(ctx)
	if err != nil {
		return LoadSummary{}, err
	}
	return LoadSummary{Routes: len(cat.Entities), Dropped: len(cat.Errors)}, nil
}

// NotifyRefreshed publishes a refresh request for source.
func (a *CatalogActivities) NotifyRefreshed(ctx context.Context, source string) error {
	if a.Requester == nil {
		a.logger().Info("refresh not published, no requester configured")
		return nil
	}
	return a.Requester.RequestRefresh(ctx, source)
}

func (a *CatalogActivities) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
