package ports

import (
	"context"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// RouteSource supplies raw route data. A failed fetch returns an error,
// never an empty document.
type RouteSource interface {
	// Name identifies the source in logs and cache keys.
	Name() string
	Fetch(ctx context.Context) (*domain.SourceDocument, error)
}

// TrailRepository persists WKT route records.
type TrailRepository interface {
	RouteSource
	Upsert(ctx context.Context, rec *domain.WKTRecord) error
	UpsertBatch(ctx context.Context, recs []domain.WKTRecord) error
	Delete(ctx context.Context, id string) error
}
