package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mostrador/mostrador/internal/catalog"
)

// CatalogRefreshJob keeps the reference-data cache warm so sessions open
// against fresh supplier and product lists.
type CatalogRefreshJob struct {
	Loader *catalog.Loader
	Logger *slog.Logger
}

// NewCatalogRefreshJob initialises the refresh handler.
func NewCatalogRefreshJob(loader *catalog.Loader, logger *slog.Logger) *CatalogRefreshJob {
	return &CatalogRefreshJob{Loader: loader, Logger: logger}
}

// Handle executes the refresh.
func (j *CatalogRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CatalogRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.Loader.Refresh(ctx); err != nil {
		if j.Logger != nil {
			j.Logger.Error("catalog refresh", slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("catalog refreshed", slog.Bool("force", payload.Force))
	}
	return nil
}
