package purchasing

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Order lifecycle statuses.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusConfirmed Status = "CONFIRMED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// maxCancelDescription caps the free-text reason required when cancelling,
// counted in runes.
const maxCancelDescription = 100

// OrderLine is one product entry within an order. ID stays zero until the
// order is first saved by the remote store.
type OrderLine struct {
	ID          int64           `json:"id,omitempty"`
	ProductID   int64           `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	SalePrice   decimal.Decimal `json:"sale_price,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Observation string          `json:"observation,omitempty"`
}

// Subtotal returns quantity times buy price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.BuyPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Order is a supplier purchase request advancing through a fixed lifecycle.
type Order struct {
	ID          int64       `json:"id,omitempty"`
	SupplierID  int64       `json:"supplier_id"`
	OrderedAt   time.Time   `json:"ordered_at"`
	Description string      `json:"description"`
	Status      Status      `json:"status"`
	Lines       []OrderLine `json:"lines"`
}

// Total sums buy price times quantity over all lines.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Terminal reports whether no further transitions are possible.
func (o Order) Terminal() bool {
	return o.Status == StatusReceived || o.Status == StatusCancelled
}

// ContainsProduct reports whether a line references the product.
func (o Order) ContainsProduct(productID int64) bool {
	for _, line := range o.Lines {
		if line.ProductID == productID {
			return true
		}
	}
	return false
}

// transitions is the full legal edge set of the order lifecycle.
var transitions = map[Status][]Status{
	StatusPending:   {StatusSent, StatusCancelled},
	StatusSent:      {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusReceived, StatusCancelled},
	StatusReceived:  {},
	StatusCancelled: {},
}

// NextStatuses returns the legal targets from the given status, so the
// presentation layer can disable illegal actions up front.
func NextStatuses(from Status) []Status {
	next, ok := transitions[from]
	if !ok {
		return nil
	}
	return append([]Status(nil), next...)
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition validates a transition request, including the cancellation
// description rule, without applying it.
func checkTransition(order Order, to Status, description string) error {
	if !CanTransition(order.Status, to) {
		return &TransitionError{From: order.Status, To: to}
	}
	if to == StatusCancelled {
		if description == "" {
			return &FieldError{Field: "description", Reason: "a cancellation reason is required"}
		}
		if utf8.RuneCountInString(description) > maxCancelDescription {
			return &FieldError{Field: "description", Reason: fmt.Sprintf("cancellation reason exceeds %d characters", maxCancelDescription)}
		}
	}
	return nil
}

// Error kinds surfaced by this package. Remote kinds are produced by the
// order-store client and flow through unchanged.
var (
	// ErrValidation indicates malformed draft or receive data.
	ErrValidation = errors.New("purchasing: invalid input")
	// ErrInvalidTransition indicates a status rule violation.
	ErrInvalidTransition = errors.New("purchasing: invalid status transition")
	// ErrAllocationConflict indicates a product committed to another active order.
	ErrAllocationConflict = errors.New("purchasing: product already committed to an active order")
	// ErrNotFound indicates a missing order.
	ErrNotFound = errors.New("purchasing: order not found")
	// ErrRemoteRejected indicates the order store refused a request that
	// passed local checks.
	ErrRemoteRejected = errors.New("purchasing: rejected by order store")
	// ErrTransport indicates a network failure talking to the order store.
	ErrTransport = errors.New("purchasing: order store unreachable")
	// ErrReceiveWorkflow indicates an attempt to flip an order to Received
	// without going through the receive workflow.
	ErrReceiveWorkflow = errors.New("purchasing: receiving must go through the receive workflow")
	// ErrNoDraft indicates a draft operation without an open draft.
	ErrNoDraft = errors.New("purchasing: no draft in progress")
	// ErrNoReceiveDraft indicates a receive operation without an open
	// receive workflow.
	ErrNoReceiveDraft = errors.New("purchasing: no receive in progress")
)

// TransitionError names the current and requested status of an illegal
// transition request.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("purchasing: cannot transition %s order to %s", e.From, e.To)
}

// Unwrap makes the error match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// FieldError names the first field that failed validation.
type FieldError struct {
	Field  string
	Reason string
	Line   int // 1-based line position, zero when not line-scoped
}

func (e *FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("purchasing: line %d: %s %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("purchasing: %s %s", e.Field, e.Reason)
}

// Unwrap makes the error match ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// AllocationError identifies the product that is already committed.
type AllocationError struct {
	ProductID int64
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("purchasing: product %d is already committed to an active order", e.ProductID)
}

// Unwrap makes the error match ErrAllocationConflict.
func (e *AllocationError) Unwrap() error {
	return ErrAllocationConflict
}
