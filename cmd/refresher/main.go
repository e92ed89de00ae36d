// Command refresher runs the Temporal worker for catalog refreshes and
// keeps the periodic refresh workflow scheduled.
//
//	refresher [import-path [format]]
//
// With an import path, each run first upserts that trail file into the
// database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/trailmap/internal/bootstrap"
	"github.com/samirrijal/trailmap/internal/pkg/config"
	"github.com/samirrijal/trailmap/internal/pkg/logging"
	"github.com/samirrijal/trailmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("trailmap-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
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

	activities := &workflows.CatalogActivities{
		Catalog: catalogSvc,
		Logger:  slog.Default(),
	}
	if backends.Trails != nil {
		activities.Trails = backends.Trails
	}
	if backends.Publisher != nil {
		activities.Requester = backends.Publisher
	}

	input := workflows.RefreshInput{Source: cfg.Source.Kind}
	if len(os.Args) > 1 {
		input.ImportPath = os.Args[1]
		input.ImportFormat = cfg.Source.Format
		if len(os.Args) > 2 {
			input.ImportFormat = os.Args[2]
		}
		if activities.Trails == nil {
			log.Fatal("importing needs source.kind=postgres")
		}
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
		Logger:   slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CatalogRefreshWorkflow)
	w.RegisterActivity(activities)

	if err := schedule(ctx, c, cfg, input); err != nil {
		log.Fatalf("schedule refresh: %v", err)
	}

	slog.Info("refresher worker started",
		"task_queue", cfg.Temporal.TaskQueue,
		"every_s", cfg.Temporal.RefreshInterval,
		"import", input.ImportPath,
	)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// schedule starts the cron workflow unless a run is already scheduled
// under the same id.
func schedule(ctx context.Context, c client.Client, cfg *config.Config, input workflows.RefreshInput) error {
	opts := client.StartWorkflowOptions{
		ID:           workflows.WorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: fmt.Sprintf("@every %ds", cfg.Temporal.RefreshInterval),
	}
	run, err := c.ExecuteWorkflow(ctx, opts, workflows.CatalogRefreshWorkflow, input)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			slog.Info("refresh workflow already scheduled", "workflow_id", workflows.WorkflowID)
			return nil
		}
		return err
	}
	slog.Info("refresh workflow scheduled", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
