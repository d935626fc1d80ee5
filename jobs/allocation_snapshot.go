package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mostrador/mostrador/internal/purchasing"
)

// AllocationSnapshotKey is the Redis key holding the published snapshot.
const AllocationSnapshotKey = "purchasing:allocations"

// AllocationSnapshot is the published view of committed products.
type AllocationSnapshot struct {
	ProductIDs []int64   `json:"product_ids"`
	TakenAt    time.Time `json:"taken_at"`
}

// AllocationSnapshotJob recomputes which products are committed to active
// orders and publishes the result. It rescans the full order list rather
// than patching a previous snapshot.
type AllocationSnapshotJob struct {
	Store  purchasing.StorePort
	Redis  *redis.Client
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAllocationSnapshotJob initialises the snapshot handler.
func NewAllocationSnapshotJob(store purchasing.StorePort, redisClient *redis.Client, logger *slog.Logger) *AllocationSnapshotJob {
	return &AllocationSnapshotJob{
		Store:  store,
		Redis:  redisClient,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the snapshot.
func (j *AllocationSnapshotJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AllocationSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	orders, err := j.Store.ListOrders(ctx)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("allocation snapshot list orders", slog.Any("error", err))
		}
		return err
	}
	alloc := purchasing.ComputeActiveAllocations(orders)
	snapshot := AllocationSnapshot{ProductIDs: make([]int64, 0, len(alloc)), TakenAt: j.clock()}
	for productID := range alloc {
		snapshot.ProductIDs = append(snapshot.ProductIDs, productID)
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return asynq.SkipRetry
	}
	if j.Redis != nil {
		if err := j.Redis.Set(ctx, AllocationSnapshotKey, raw, 0).Err(); err != nil {
			return err
		}
	}
	if j.Logger != nil {
		j.Logger.Info("allocation snapshot published", slog.Int("products", len(snapshot.ProductIDs)))
	}
	return nil
}
