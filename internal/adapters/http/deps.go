package http

import (
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trailmap/internal/adapters/postgres"
	"github.com/samirrijal/trailmap/internal/adapters/valkey"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/usecases"
	"github.com/samirrijal/trailmap/internal/pkg/config"
)

// Dependencies holds all services needed by HTTP handlers. Everything but
// Catalog is optional.
type Dependencies struct {
	Catalog  *usecases.CatalogService
	Notifier ports.Notifier
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
	Logger   *slog.Logger

	Animation config.AnimationConfig
	List      config.ListConfig
	Render    config.RenderConfig
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
