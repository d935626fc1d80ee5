package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/mostrador/internal/purchasing"
)

type stubStore struct {
	orders []purchasing.Order
}

func (s *stubStore) ListOrders(ctx context.Context) ([]purchasing.Order, error) {
	return s.orders, nil
}

func (s *stubStore) GetOrder(ctx context.Context, id int64) (purchasing.Order, error) {
	return purchasing.Order{}, purchasing.ErrNotFound
}

func (s *stubStore) CreateOrder(ctx context.Context, input purchasing.OrderInput) (purchasing.Order, error) {
	return purchasing.Order{}, purchasing.ErrNotFound
}

func (s *stubStore) UpdateOrder(ctx context.Context, id int64, input purchasing.OrderInput) (purchasing.Order, error) {
	return purchasing.Order{}, purchasing.ErrNotFound
}

func (s *stubStore) SetOrderStatus(ctx context.Context, id int64, status purchasing.Status, description string) (purchasing.Order, error) {
	return purchasing.Order{}, purchasing.ErrNotFound
}

func (s *stubStore) ReceiveOrder(ctx context.Context, id int64, lines []purchasing.ReceiveLine, description string) (purchasing.Order, error) {
	return purchasing.Order{}, purchasing.ErrNotFound
}

func TestAllocationSnapshotJob(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := &stubStore{orders: []purchasing.Order{
		{ID: 1, Status: purchasing.StatusSent, Lines: []purchasing.OrderLine{{ProductID: 7}}},
		{ID: 2, Status: purchasing.StatusReceived, Lines: []purchasing.OrderLine{{ProductID: 8}}},
	}}

	job := NewAllocationSnapshotJob(store, redisClient, nil)
	task, err := NewAllocationSnapshotTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	raw, err := redisClient.Get(context.Background(), AllocationSnapshotKey).Bytes()
	require.NoError(t, err)

	var snapshot AllocationSnapshot
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	require.Equal(t, []int64{7}, snapshot.ProductIDs)
	require.False(t, snapshot.TakenAt.IsZero())
}

func TestCatalogRefreshBadPayload(t *testing.T) {
	job := NewCatalogRefreshJob(nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskCatalogRefresh, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
