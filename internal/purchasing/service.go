package purchasing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mostrador/mostrador/internal/catalog"
)

// StorePort describes the remote order-store operations consumed by Session.
// The store is the authority on persisted orders; it may reject a request
// that passed local checks.
type StorePort interface {
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	CreateOrder(ctx context.Context, input OrderInput) (Order, error)
	UpdateOrder(ctx context.Context, id int64, input OrderInput) (Order, error)
	SetOrderStatus(ctx context.Context, id int64, status Status, description string) (Order, error)
	ReceiveOrder(ctx context.Context, id int64, lines []ReceiveLine, description string) (Order, error)
}

// OrderInput is the create/update payload sent to the order store.
type OrderInput struct {
	SupplierID  int64
	OrderedAt   time.Time
	Description string
	Status      Status
	Lines       []OrderLine
}

// DraftState is the draft snapshot exposed to the presentation layer.
type DraftState struct {
	OrderID     int64           `json:"order_id,omitempty"`
	SupplierID  int64           `json:"supplier_id"`
	Description string          `json:"description"`
	Lines       []OrderLine     `json:"lines"`
	Total       decimal.Decimal `json:"total"`
}

// Session owns one operator's order-management state: the loaded order
// list, the allocation index derived from it, and at most one in-progress
// draft and one in-progress receive workflow. All mutations are sequential.
type Session struct {
	mu      sync.Mutex
	store   StorePort
	catalog *catalog.Index
	logger  *slog.Logger
	hook    Hook

	orders    []Order
	alloc     AllocationIndex
	draft     *Draft
	receiving *ReceiveDraft
}

// NewSession constructs a Session. The hook may be nil.
func NewSession(store StorePort, idx *catalog.Index, logger *slog.Logger, hook Hook) *Session {
	return &Session{
		store:   store,
		catalog: idx,
		logger:  logger,
		hook:    hook,
		alloc:   make(AllocationIndex),
	}
}

// Load fetches the order list and recomputes the allocation index.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

// reload refreshes orders and allocations from the store. Callers hold the
// session lock.
func (s *Session) reload(ctx context.Context) error {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return err
	}
	s.orders = orders
	s.alloc = ComputeActiveAllocations(orders)
	return nil
}

// reloadAfterMutation refreshes derived state after a store mutation already
// succeeded. A refresh failure is logged, not surfaced, so the completed
// action is not reported as failed.
func (s *Session) reloadAfterMutation(ctx context.Context) {
	if err := s.reload(ctx); err != nil && s.logger != nil {
		s.logger.Warn("order list refresh", slog.Any("error", err))
	}
}

// Orders returns the loaded order list.
func (s *Session) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

// Order returns a loaded order by id.
func (s *Session) Order(id int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOrder(id)
}

func (s *Session) findOrder(id int64) (Order, error) {
	for _, order := range s.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return Order{}, ErrNotFound
}

// IsProductAllocated reports whether the product is committed to any
// currently active order. This is a best-effort client-side guard; the
// order store remains authoritative.
func (s *Session) IsProductAllocated(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alloc.IsAllocated(productID)
}

// LegalNextStatuses returns the transition targets the UI may offer for an
// order.
func (s *Session) LegalNextStatuses(orderID int64) ([]Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, err := s.findOrder(orderID)
	if err != nil {
		return nil, err
	}
	return NextStatuses(order.Status), nil
}

// OpenDraft starts a draft for a new order.
func (s *Session) OpenDraft(supplierID int64, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalog.Supplier(supplierID); !ok {
		return &FieldError{Field: "supplier", Reason: "does not exist"}
	}
	s.draft = NewDraft(supplierID, description)
	return nil
}

// OpenOrderDraft starts a draft seeded from a persisted order, fetched with
// full line detail. Terminal orders can no longer be edited.
func (s *Session) OpenOrderDraft(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Terminal() {
		return &FieldError{Field: "status", Reason: "order can no longer be edited"}
	}
	s.draft = DraftFromOrder(order)
	return nil
}

// CloseDraft discards the in-progress draft without saving.
func (s *Session) CloseDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// DraftState returns the current draft snapshot.
func (s *Session) DraftState() (DraftState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return DraftState{}, ErrNoDraft
	}
	return DraftState{
		OrderID:     s.draft.OrderID,
		SupplierID:  s.draft.SupplierID,
		Description: s.draft.Description,
		Lines:       s.draft.Lines(),
		Total:       s.draft.Total(),
	}, nil
}

// AddLine adds a product to the draft, applying the allocation guard.
func (s *Session) AddLine(productID, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ErrNoDraft
	}
	product, ok := s.catalog.Product(productID)
	if !ok {
		return &FieldError{Field: "product", Reason: "does not exist"}
	}
	return s.draft.AddLine(product, quantity, s.alloc)
}

// RemoveLine deletes a draft line.
func (s *Session) RemoveLine(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ErrNoDraft
	}
	return s.draft.RemoveLine(index)
}

// UpdateLineQuantity mutates a draft line quantity.
func (s *Session) UpdateLineQuantity(index int, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ErrNoDraft
	}
	return s.draft.UpdateLineQuantity(index, quantity)
}

// UpdateLineBuyPrice mutates a draft line buy price.
func (s *Session) UpdateLineBuyPrice(index int, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ErrNoDraft
	}
	return s.draft.UpdateLineBuyPrice(index, price)
}

// SetDraftDescription updates the draft free text.
func (s *Session) SetDraftDescription(description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return ErrNoDraft
	}
	s.draft.Description = description
	return nil
}

// SubmitDraft validates the draft and persists it through the order store.
// New orders are created in Pending; edited orders keep the status and
// order date captured when the draft was opened. On failure the draft is
// preserved so the operator can retry without re-entering data.
func (s *Session) SubmitDraft(ctx context.Context) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return Order{}, ErrNoDraft
	}
	if err := s.draft.ValidateForSubmit(); err != nil {
		return Order{}, err
	}
	input := OrderInput{
		SupplierID:  s.draft.SupplierID,
		OrderedAt:   time.Now(),
		Description: s.draft.Description,
		Status:      StatusPending,
		Lines:       s.draft.Lines(),
	}
	var (
		order Order
		err   error
	)
	if s.draft.OrderID == 0 {
		order, err = s.store.CreateOrder(ctx, input)
	} else {
		input.Status = s.draft.Status
		input.OrderedAt = s.draft.OrderedAt
		order, err = s.store.UpdateOrder(ctx, s.draft.OrderID, input)
	}
	if err != nil {
		return Order{}, err
	}
	s.draft = nil
	s.reloadAfterMutation(ctx)
	return order, nil
}

// Transition requests a status change through the state machine. Receiving
// is not a bare status flip and must go through the receive workflow.
func (s *Session) Transition(ctx context.Context, orderID int64, to Status, description string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, err := s.findOrder(orderID)
	if err != nil {
		order, err = s.store.GetOrder(ctx, orderID)
		if err != nil {
			return Order{}, err
		}
	}
	if err := checkTransition(order, to, description); err != nil {
		return Order{}, err
	}
	if to == StatusReceived {
		return Order{}, ErrReceiveWorkflow
	}
	from := order.Status
	updated, err := s.store.SetOrderStatus(ctx, orderID, to, description)
	if err != nil {
		return Order{}, err
	}
	if s.hook != nil {
		_ = s.hook.HandleStatusChanged(ctx, StatusChangedEvent{OrderID: orderID, From: from, To: to, At: time.Now()})
	}
	s.reloadAfterMutation(ctx)
	return updated, nil
}

// OpenReceive starts the receive workflow for a confirmed order.
func (s *Session) OpenReceive(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	rd, err := NewReceiveDraft(order, s.catalog)
	if err != nil {
		return err
	}
	s.receiving = rd
	return nil
}

// CloseReceive discards the in-progress receive workflow.
func (s *Session) CloseReceive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiving = nil
}

// ReceiveLines returns the current receive line state.
func (s *Session) ReceiveLines() ([]ReceiveLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receiving == nil {
		return nil, ErrNoReceiveDraft
	}
	return s.receiving.Lines(), nil
}

// SetReceiveSalePrice records a sale price on a receive line.
func (s *Session) SetReceiveSalePrice(index int, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receiving == nil {
		return ErrNoReceiveDraft
	}
	return s.receiving.SetSalePrice(index, price)
}

// SetReceiveBuyPrice adjusts the final buy price on a receive line.
func (s *Session) SetReceiveBuyPrice(index int, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receiving == nil {
		return ErrNoReceiveDraft
	}
	return s.receiving.SetBuyPrice(index, price)
}

// SetReceiveExpiry records an expiration date on a receive line.
func (s *Session) SetReceiveExpiry(index int, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receiving == nil {
		return ErrNoReceiveDraft
	}
	return s.receiving.SetExpiry(index, expiresAt)
}

// SetReceiveObservation records free text on a receive line.
func (s *Session) SetReceiveObservation(index int, observation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receiving == nil {
		return ErrNoReceiveDraft
	}
	return s.receiving.SetObservation(index, observation)
}

// CommitReceive validates the receive lines and commits the receipt. On
// success the order becomes Received and its products are freed for new
// allocation. On failure the receive state is preserved for retry.
func (s *Session) CommitReceive(ctx context.Context, description string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.receiving == nil {
		return Order{}, ErrNoReceiveDraft
	}
	if err := s.receiving.ValidateForReceive(); err != nil {
		return Order{}, err
	}
	lines := s.receiving.Lines()
	order, err := s.store.ReceiveOrder(ctx, s.receiving.OrderID, lines, description)
	if err != nil {
		return Order{}, err
	}
	if s.hook != nil {
		_ = s.hook.HandleOrderReceived(ctx, OrderReceivedEvent{
			OrderID:    order.ID,
			SupplierID: order.SupplierID,
			Total:      order.Total(),
			Lines:      lines,
			At:         time.Now(),
		})
	}
	s.receiving = nil
	s.reloadAfterMutation(ctx)
	return order, nil
}
