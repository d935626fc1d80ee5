package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mostrador/mostrador/internal/catalog"
)

// ReceiveLine carries one order line enriched with the operator-entered
// receipt values. LineID is zero when the line was never persisted, which
// should not happen by this stage but is tolerated by the store contract.
type ReceiveLine struct {
	LineID      int64           `json:"line_id"`
	ProductID   int64           `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Observation string          `json:"observation,omitempty"`
	Perishable  bool            `json:"perishable"`
}

// ReceiveDraft enriches a confirmed order's lines before the final receive
// commit. Lines may be edited in any order; validation only runs on commit.
type ReceiveDraft struct {
	OrderID int64
	lines   []ReceiveLine
}

// NewReceiveDraft opens the receive workflow for a confirmed order. Any
// other status is rejected immediately.
func NewReceiveDraft(order Order, idx *catalog.Index) (*ReceiveDraft, error) {
	if order.Status != StatusConfirmed {
		return nil, &TransitionError{From: order.Status, To: StatusReceived}
	}
	rd := &ReceiveDraft{
		OrderID: order.ID,
		lines:   make([]ReceiveLine, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		perishable := false
		if product, ok := idx.Product(line.ProductID); ok {
			perishable = product.Perishable
		}
		rd.lines = append(rd.lines, ReceiveLine{
			LineID:      line.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			BuyPrice:    line.BuyPrice,
			SalePrice:   line.SalePrice,
			ExpiresAt:   line.ExpiresAt,
			Observation: line.Observation,
			Perishable:  perishable,
		})
	}
	return rd, nil
}

// Lines returns a copy of the receive lines.
func (rd *ReceiveDraft) Lines() []ReceiveLine {
	return append([]ReceiveLine(nil), rd.lines...)
}

// SetSalePrice records the final sale price for the line at index.
func (rd *ReceiveDraft) SetSalePrice(index int, price decimal.Decimal) error {
	if index < 0 || index >= len(rd.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	if price.IsNegative() {
		return &FieldError{Field: "sale_price", Reason: "must not be negative", Line: index + 1}
	}
	rd.lines[index].SalePrice = price
	return nil
}

// SetBuyPrice adjusts the final buy price for the line at index.
func (rd *ReceiveDraft) SetBuyPrice(index int, price decimal.Decimal) error {
	if index < 0 || index >= len(rd.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	if price.IsNegative() {
		return &FieldError{Field: "buy_price", Reason: "must not be negative", Line: index + 1}
	}
	rd.lines[index].BuyPrice = price
	return nil
}

// SetExpiry records the expiration date for the line at index.
func (rd *ReceiveDraft) SetExpiry(index int, expiresAt time.Time) error {
	if index < 0 || index >= len(rd.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	rd.lines[index].ExpiresAt = &expiresAt
	return nil
}

// SetObservation records free-text notes for the line at index.
func (rd *ReceiveDraft) SetObservation(index int, observation string) error {
	if index < 0 || index >= len(rd.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	rd.lines[index].Observation = observation
	return nil
}

// ValidateForReceive checks every line is complete, stopping at the first
// invalid one and naming the offending field. Perishable products must carry
// an expiration date.
func (rd *ReceiveDraft) ValidateForReceive() error {
	for i, line := range rd.lines {
		if line.Quantity <= 0 {
			return &FieldError{Field: "quantity", Reason: "must be greater than zero", Line: i + 1}
		}
		if !line.BuyPrice.IsPositive() {
			return &FieldError{Field: "buy_price", Reason: "must be greater than zero", Line: i + 1}
		}
		if !line.SalePrice.IsPositive() {
			return &FieldError{Field: "sale_price", Reason: "must be greater than zero", Line: i + 1}
		}
		if line.Perishable && line.ExpiresAt == nil {
			return &FieldError{Field: "expires_at", Reason: "is required for perishable products", Line: i + 1}
		}
	}
	return nil
}
