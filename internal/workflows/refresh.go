package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// WorkflowID is the id the refresher schedules the cron workflow under.
const WorkflowID = "trail-catalog-refresh"

// RefreshInput is the input for the catalog refresh workflow.
type RefreshInput struct {
	// ImportPath, when set, is a trail file upserted into the database
	// before the catalog is reloaded.
	ImportPath   string
	ImportFormat string
	// Source is passed to listeners; empty means every source.
	Source string
}

// RefreshResult summarises one run.
type RefreshResult struct {
	Imported int
	Routes   int
	Dropped  int
	Notified bool
}

// CatalogRefreshWorkflow imports new trail data, reloads the catalog (which
// also warms the shared cache) and tells API instances to reload theirs.
// A failed notification does not fail the run: instances pick the new data
// up on their next scheduled refresh.
func CatalogRefreshWorkflow(ctx workflow.Context, input RefreshInput) (RefreshResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting catalog refresh", "importPath", input.ImportPath)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var res RefreshResult

	if input.ImportPath != "" {
		err := workflow.ExecuteActivity(ctx, "ImportTrails", input.ImportPath, input.ImportFormat).Get(ctx, &res.Imported)
		if err != nil {
			return res, err
		}
	}

	var summary LoadSummary
	if err := workflow.ExecuteActivity(ctx, "LoadCatalog").Get(ctx, &summary); err != nil {
		return res, err
	}
	res.Routes, res.Dropped = summary.Routes, summary.Dropped

	notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})
	if err := workflow.ExecuteActivity(notifyCtx, "NotifyRefreshed", input.Source).Get(ctx, nil); err != nil {
		logger.Warn("refresh notification failed", "error", err)
	} else {
		res.Notified = true
	}

	logger.Info("Catalog refreshed", "routes", res.Routes, "dropped", res.Dropped)
	return res, nil
}
