// Package bootstrap opens the adapters selected by configuration. It is
// shared by the binaries under cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/trailmap/internal/adapters/filesource"
	natsadapter "github.com/samirrijal/trailmap/internal/adapters/nats"
	"github.com/samirrijal/trailmap/internal/adapters/postgres"
	"github.com/samirrijal/trailmap/internal/adapters/valkey"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/core/usecases"
	"github.com/samirrijal/trailmap/internal/pkg/config"
	"github.com/samirrijal/trailmap/internal/pkg/metrics"
)

// Backends are the optional infrastructure connections. Nil fields are
// unavailable; Close releases whatever was opened.
type Backends struct {
	DB        *postgres.DB
	Trails    *postgres.TrailRepo
	Cache     *valkey.Cache
	Publisher *natsadapter.Publisher
}

func (b *Backends) Close() {
	if b.Publisher != nil {
		b.Publisher.Close()
	}
	if b.Cache != nil {
		b.Cache.Close()
	}
	if b.DB != nil {
		b.DB.Close()
	}
}

// Notifier returns the publisher as a ports.Notifier, or nil.
func (b *Backends) Notifier() ports.Notifier {
	if b.Publisher == nil {
		return nil
	}
	return b.Publisher
}

// Open connects the backends. The database is required for postgres
// sources; cache and NATS failures only degrade the service.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.Source.Kind == "postgres" {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		b.DB = db
		b.Trails = postgres.NewTrailRepo(db)
	}

	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			logger.Warn("valkey unavailable", "error", err)
		} else {
			b.Cache = cache
		}
	}

	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats unavailable", "error", err)
		} else {
			b.Publisher = pub
		}
	}
	return b, nil
}

// Source returns the configured route source.
func (b *Backends) Source(cfg *config.Config) (ports.RouteSource, error) {
	switch cfg.Source.Kind {
	case "file":
		return filesource.New(cfg.Source.Path, filesource.Format(cfg.Source.Format)), nil
	case "postgres":
		if b.Trails == nil {
			return nil, fmt.Errorf("postgres source without a database connection")
		}
		return b.Trails, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// CatalogService builds the catalog service over the configured source.
func (b *Backends) CatalogService(cfg *config.Config, logger *slog.Logger) (*usecases.CatalogService, error) {
	src, err := b.Source(cfg)
	if err != nil {
		return nil, err
	}
	var cache ports.CacheService
	if b.Cache != nil {
		cache = b.Cache
	}
	svc := usecases.NewCatalogService(src, cache, b.Notifier(), cfg.Valkey.CatalogTTL)
	svc.SetLogger(logger)
	return svc, nil
}

// ReportPoolStats exports database pool gauges until ctx is done.
func (b *Backends) ReportPoolStats(ctx context.Context, every time.Duration) {
	if b.DB == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(b.DB.Stat())
		}
	}
}
