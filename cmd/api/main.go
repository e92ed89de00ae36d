package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trailmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/trailmap/internal/adapters/nats"
	"github.com/samirrijal/trailmap/internal/bootstrap"
	"github.com/samirrijal/trailmap/internal/pkg/config"
	"github.com/samirrijal/trailmap/internal/pkg/logging"
	"github.com/samirrijal/trailmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("trailmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	backends, err := bootstrap.Open(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("backends: %v", err)
	}
	defer backends.Close()

	catalogSvc, err := backends.CatalogService(cfg, slog.Default())
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	// A failed first load leaves /v1/trails answering 503 until a refresh
	// succeeds.
	if _, err := catalogSvc.Load(ctx); err != nil {
		slog.Warn("initial catalog load failed", "error", err)
	}

	// Raw NATS connection for readiness checks
	natsConn := openRawConn(cfg.NATS.URL)
	if natsConn != nil {
		defer natsConn.Close()
	}

	// Refresh requests published by the refresher or other replicas
	if cfg.NATS.URL != "" {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err = sub.SubscribeRefresh(ctx, func(ctx context.Context, source string) error {
				slog.Info("refresh requested", "source", source)
				_, err := catalogSvc.Refresh(ctx)
				return err
			})
			if err != nil {
				slog.Warn("refresh subscription failed", "error", err)
			}
		}
	}

	go backends.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{
		Catalog:   catalogSvc,
		Notifier:  backends.Notifier(),
		NATS:      natsConn,
		DB:        backends.DB,
		Cache:     backends.Cache,
		Logger:    slog.Default(),
		Animation: cfg.Animation,
		List:      cfg.List,
		Render:    cfg.Render,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Trailmap API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "source", cfg.Source.Kind)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func openRawConn(url string) *nats.Conn {
	if url == "" {
		return nil
	}
	nc, err := natsadapter.RawConn(url)
	if err != nil {
		slog.Warn("nats conn unavailable", "error", err)
		return nil
	}
	return nc
}
