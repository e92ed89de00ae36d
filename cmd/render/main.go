// Command render loads the trail catalog and writes the reveal animation
// as a sequence of PNG frames.
//
//	render [selected-route-id]
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samirrijal/trailmap/internal/adapters/raster"
	"github.com/samirrijal/trailmap/internal/adapters/scheduler"
	"github.com/samirrijal/trailmap/internal/bootstrap"
	"github.com/samirrijal/trailmap/internal/core/usecases"
	"github.com/samirrijal/trailmap/internal/pkg/config"
	"github.com/samirrijal/trailmap/internal/pkg/geospatial"
	"github.com/samirrijal/trailmap/internal/pkg/logging"
)

// maxFrames bounds a render whose timers never settle.
const maxFrames = 10000

func main() {
	cfg, err := config.Load("trailmap-render")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backends, err := bootstrap.Open(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("backends: %v", err)
	}
	defer backends.Close()

	catalogSvc, err := backends.CatalogService(cfg, slog.Default())
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	cat, err := catalogSvc.Load(ctx)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	if err := os.MkdirAll(cfg.Render.OutDir, 0o755); err != nil {
		log.Fatalf("output dir: %v", err)
	}

	surface := raster.NewSurface(raster.Options{
		Width:   cfg.Render.Width,
		Height:  cfg.Render.Height,
		Padding: cfg.Render.Padding,
	})
	surface.Fit(geospatial.CatalogBounds(cat.Entities))

	sched := scheduler.NewManual(time.Now())
	vis := usecases.NewVisualizationService(surface, sched, nil, usecases.VisualizationOptions{
		Duration:         cfg.Animation.Duration(),
		Delay:            cfg.Animation.Delay(),
		Stagger:          cfg.Animation.Stagger(),
		DisableAnimation: !cfg.Animation.Enabled,
		ItemHeight:       cfg.List.ItemHeight,
		ViewportHeight:   cfg.List.ViewportHeight,
		Logger:           slog.Default(),
	})
	defer vis.Unmount()

	vis.SetCatalog(cat.Entities)
	if len(os.Args) > 1 {
		vis.Select(os.Args[1])
	}

	frame := cfg.Render.FrameInterval()
	written := 0
	for {
		if err := writeFrame(surface, cfg.Render.OutDir, written); err != nil {
			log.Fatalf("frame %d: %v", written, err)
		}
		written++
		if sched.PendingFrames() == 0 && sched.PendingTimers() == 0 {
			break
		}
		if written >= maxFrames {
			slog.Warn("animation did not settle", "frames", written)
			break
		}
		sched.Step(frame)
	}

	slog.Info("render complete",
		"frames", written,
		"routes", len(cat.Entities),
		"dropped", len(cat.Errors),
		"out", cfg.Render.OutDir,
	)
}

func writeFrame(s *raster.Surface, dir string, n int) error {
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame-%04d.png", n)))
	if err != nil {
		return err
	}
	if err := s.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
