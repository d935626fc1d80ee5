package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogRefresh rewrites the cached supplier and product lists.
	TaskCatalogRefresh = "catalog:refresh"
	// TaskAllocationSnapshot recomputes the active-allocation set from the
	// order store and publishes it for dashboards.
	TaskAllocationSnapshot = "purchasing:allocation_snapshot"
)

// CatalogRefreshPayload contains options for the catalog refresh job.
type CatalogRefreshPayload struct {
	Force bool `json:"force"`
}

// NewCatalogRefreshTask builds a catalog refresh task.
func NewCatalogRefreshTask(force bool) (*asynq.Task, error) {
	body, err := json.Marshal(CatalogRefreshPayload{Force: force})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogRefresh, body, asynq.Queue(QueueDefault)), nil
}

// AllocationSnapshotPayload contains options for the snapshot job.
type AllocationSnapshotPayload struct{}

// NewAllocationSnapshotTask builds an allocation snapshot task.
func NewAllocationSnapshotTask() (*asynq.Task, error) {
	body, err := json.Marshal(AllocationSnapshotPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAllocationSnapshot, body, asynq.Queue(QueueDefault)), nil
}
