package purchasing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mostrador/mostrador/internal/catalog"
)

type memoryStore struct {
	orders     map[int64]Order
	nextID     int64
	rejectNext error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{orders: make(map[int64]Order)}
}

func (m *memoryStore) fail() error {
	if m.rejectNext != nil {
		err := m.rejectNext
		m.rejectNext = nil
		return err
	}
	return nil
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) ListOrders(ctx context.Context) ([]Order, error) {
	orders := make([]Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *memoryStore) GetOrder(ctx context.Context, id int64) (Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (m *memoryStore) CreateOrder(ctx context.Context, input OrderInput) (Order, error) {
	if err := m.fail(); err != nil {
		return Order{}, err
	}
	order := Order{
		ID:          m.id(),
		SupplierID:  input.SupplierID,
		OrderedAt:   input.OrderedAt,
		Description: input.Description,
		Status:      input.Status,
		Lines:       append([]OrderLine(nil), input.Lines...),
	}
	for i := range order.Lines {
		order.Lines[i].ID = m.id()
	}
	m.orders[order.ID] = order
	return order, nil
}

func (m *memoryStore) UpdateOrder(ctx context.Context, id int64, input OrderInput) (Order, error) {
	if err := m.fail(); err != nil {
		return Order{}, err
	}
	order, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	order.SupplierID = input.SupplierID
	order.OrderedAt = input.OrderedAt
	order.Description = input.Description
	order.Status = input.Status
	order.Lines = append([]OrderLine(nil), input.Lines...)
	for i := range order.Lines {
		if order.Lines[i].ID == 0 {
			order.Lines[i].ID = m.id()
		}
	}
	m.orders[id] = order
	return order, nil
}

func (m *memoryStore) SetOrderStatus(ctx context.Context, id int64, status Status, description string) (Order, error) {
	if err := m.fail(); err != nil {
		return Order{}, err
	}
	order, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	order.Status = status
	if description != "" {
		order.Description = description
	}
	m.orders[id] = order
	return order, nil
}

func (m *memoryStore) ReceiveOrder(ctx context.Context, id int64, lines []ReceiveLine, description string) (Order, error) {
	if err := m.fail(); err != nil {
		return Order{}, err
	}
	order, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	for _, rl := range lines {
		for i := range order.Lines {
			if order.Lines[i].ID == rl.LineID || (rl.LineID == 0 && order.Lines[i].ProductID == rl.ProductID) {
				order.Lines[i].Quantity = rl.Quantity
				order.Lines[i].BuyPrice = rl.BuyPrice
				order.Lines[i].SalePrice = rl.SalePrice
				order.Lines[i].ExpiresAt = rl.ExpiresAt
				order.Lines[i].Observation = rl.Observation
			}
		}
	}
	order.Status = StatusReceived
	if description != "" {
		order.Description = description
	}
	m.orders[id] = order
	return order, nil
}

func testSession(t *testing.T) (*Session, *memoryStore) {
	t.Helper()
	idx := catalog.BuildIndex(
		[]catalog.Supplier{{ID: 1, Name: "Acme"}, {ID: 2, Name: "Dairy Co"}},
		[]catalog.Product{testBread, testMilk},
	)
	store := newMemoryStore()
	session := NewSession(store, idx, nil, nil)
	require.NoError(t, session.Load(context.Background()))
	return session, store
}

func TestSubmitDraftCreatesPendingOrder(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	require.NoError(t, session.OpenDraft(1, "weekly bread order"))
	require.NoError(t, session.AddLine(testBread.ID, 3))

	state, err := session.DraftState()
	require.NoError(t, err)
	require.True(t, state.Total.Equal(decimal.RequireFromString("30.00")), "got %s", state.Total)

	order, err := session.SubmitDraft(ctx)
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	require.Equal(t, StatusPending, order.Status)
	require.True(t, order.Total().Equal(decimal.RequireFromString("30.00")))

	_, err = session.DraftState()
	require.ErrorIs(t, err, ErrNoDraft)

	require.True(t, session.IsProductAllocated(testBread.ID))
}

func TestOpenDraftUnknownSupplier(t *testing.T) {
	session, _ := testSession(t)
	require.ErrorIs(t, session.OpenDraft(99, ""), ErrValidation)
}

func TestTransitionEnforcesTable(t *testing.T) {
	session, store := testSession(t)
	ctx := context.Background()

	require.NoError(t, session.OpenDraft(1, ""))
	require.NoError(t, session.AddLine(testBread.ID, 3))
	order, err := session.SubmitDraft(ctx)
	require.NoError(t, err)

	_, err = session.Transition(ctx, order.ID, StatusConfirmed, "")
	require.ErrorIs(t, err, ErrInvalidTransition)
	unchanged, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, unchanged.Status)

	sent, err := session.Transition(ctx, order.ID, StatusSent, "")
	require.NoError(t, err)
	require.Equal(t, StatusSent, sent.Status)

	_, err = session.Transition(ctx, order.ID, StatusCancelled, "")
	require.ErrorIs(t, err, ErrValidation)

	cancelled, err := session.Transition(ctx, order.ID, StatusCancelled, "supplier out of stock")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	next, err := session.LegalNextStatuses(order.ID)
	require.NoError(t, err)
	require.Empty(t, next)
}

func TestTransitionToReceivedRequiresWorkflow(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	order := mustCreateOrder(t, session, testBread.ID, 3)
	mustTransition(t, session, order.ID, StatusSent)
	mustTransition(t, session, order.ID, StatusConfirmed)

	_, err := session.Transition(ctx, order.ID, StatusReceived, "")
	require.ErrorIs(t, err, ErrReceiveWorkflow)
}

func TestAllocationConflictClearsOnCancel(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	orderA := mustCreateOrder(t, session, testBread.ID, 3)
	mustTransition(t, session, orderA.ID, StatusSent)

	require.NoError(t, session.OpenDraft(2, "second order"))
	err := session.AddLine(testBread.ID, 1)
	require.ErrorIs(t, err, ErrAllocationConflict)

	_, err = session.Transition(ctx, orderA.ID, StatusCancelled, "duplicate order")
	require.NoError(t, err)
	require.False(t, session.IsProductAllocated(testBread.ID))

	require.NoError(t, session.AddLine(testBread.ID, 1))
}

func TestReceiveFlow(t *testing.T) {
	session, store := testSession(t)
	ctx := context.Background()

	order := mustCreateOrder(t, session, testMilk.ID, 6)
	mustTransition(t, session, order.ID, StatusSent)
	mustTransition(t, session, order.ID, StatusConfirmed)

	require.NoError(t, session.OpenReceive(ctx, order.ID))

	_, err := session.CommitReceive(ctx, "")
	require.ErrorIs(t, err, ErrValidation)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "sale_price", fe.Field)

	require.NoError(t, session.SetReceiveSalePrice(0, decimal.RequireFromString("0.25")))
	_, err = session.CommitReceive(ctx, "")
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "expires_at", fe.Field)

	// The receive state survives failed validation so the operator can fix it.
	lines, err := session.ReceiveLines()
	require.NoError(t, err)
	require.True(t, lines[0].SalePrice.Equal(decimal.RequireFromString("0.25")))

	require.NoError(t, session.SetReceiveExpiry(0, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)))
	received, err := session.CommitReceive(ctx, "all counted")
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)

	stored, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, stored.Status)
	require.NotNil(t, stored.Lines[0].ExpiresAt)

	require.False(t, session.IsProductAllocated(testMilk.ID), "receipt frees the allocation")
	_, err = session.ReceiveLines()
	require.ErrorIs(t, err, ErrNoReceiveDraft)
}

func TestOpenReceiveRequiresConfirmed(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	order := mustCreateOrder(t, session, testBread.ID, 2)
	require.ErrorIs(t, session.OpenReceive(ctx, order.ID), ErrInvalidTransition)
}

func TestRemoteRejectionPreservesDraft(t *testing.T) {
	session, store := testSession(t)
	ctx := context.Background()

	require.NoError(t, session.OpenDraft(1, ""))
	require.NoError(t, session.AddLine(testBread.ID, 3))

	store.rejectNext = fmt.Errorf("%w: product 7 already allocated", ErrRemoteRejected)
	_, err := session.SubmitDraft(ctx)
	require.ErrorIs(t, err, ErrRemoteRejected)

	state, err := session.DraftState()
	require.NoError(t, err)
	require.Len(t, state.Lines, 1, "draft survives a store rejection")

	order, err := session.SubmitDraft(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
}

func TestEditOrderDraft(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	order := mustCreateOrder(t, session, testBread.ID, 3)

	require.NoError(t, session.OpenOrderDraft(ctx, order.ID))
	require.NoError(t, session.AddLine(testBread.ID, 2), "own products merge without allocation veto")
	require.NoError(t, session.UpdateLineBuyPrice(0, decimal.RequireFromString("9.00")))

	updated, err := session.SubmitDraft(ctx)
	require.NoError(t, err)
	require.Equal(t, order.ID, updated.ID)
	require.Equal(t, StatusPending, updated.Status)
	require.Equal(t, int64(5), updated.Lines[0].Quantity)
	require.True(t, updated.Total().Equal(decimal.RequireFromString("45.00")))
}

func TestEditOrderDraftKeepsRemoteStatus(t *testing.T) {
	session, store := testSession(t)
	ctx := context.Background()

	// Order 42 exists only at the store; the session never reloaded, so it
	// is absent from the local list.
	orderedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store.orders[42] = Order{
		ID:         42,
		SupplierID: 1,
		OrderedAt:  orderedAt,
		Status:     StatusSent,
		Lines:      []OrderLine{{ID: 420, ProductID: testBread.ID, Quantity: 3, BuyPrice: testBread.BuyPrice}},
	}
	_, err := session.Order(42)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, session.OpenOrderDraft(ctx, 42))
	require.NoError(t, session.UpdateLineQuantity(0, 5))

	updated, err := session.SubmitDraft(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusSent, updated.Status, "the edit must not demote the order")
	require.True(t, updated.OrderedAt.Equal(orderedAt), "the edit must not rewrite the order date")
	require.Equal(t, int64(5), updated.Lines[0].Quantity)
}

func TestEditTerminalOrderRejected(t *testing.T) {
	session, _ := testSession(t)
	ctx := context.Background()

	order := mustCreateOrder(t, session, testBread.ID, 1)
	_, err := session.Transition(ctx, order.ID, StatusCancelled, "not needed")
	require.NoError(t, err)

	require.ErrorIs(t, session.OpenOrderDraft(ctx, order.ID), ErrValidation)
}

func mustCreateOrder(t *testing.T, session *Session, productID, quantity int64) Order {
	t.Helper()
	product := testBread
	if productID == testMilk.ID {
		product = testMilk
	}
	require.NoError(t, session.OpenDraft(product.SupplierID, ""))
	require.NoError(t, session.AddLine(productID, quantity))
	order, err := session.SubmitDraft(context.Background())
	require.NoError(t, err)
	return order
}

func mustTransition(t *testing.T, session *Session, orderID int64, to Status) {
	t.Helper()
	_, err := session.Transition(context.Background(), orderID, to, "")
	require.NoError(t, err)
}
