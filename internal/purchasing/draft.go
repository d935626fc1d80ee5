package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mostrador/mostrador/internal/catalog"
)

// Draft accumulates line items for a new or edited order before submit.
// Totals are computed on demand rather than cached.
type Draft struct {
	OrderID     int64
	SupplierID  int64
	Description string

	// Status and OrderedAt are captured from the seed order when editing,
	// so an update sends the order's real status and date back to the
	// store instead of re-deriving them.
	Status    Status
	OrderedAt time.Time

	lines []OrderLine
	owned map[int64]struct{}
}

// NewDraft opens a draft for a brand new order.
func NewDraft(supplierID int64, description string) *Draft {
	return &Draft{
		SupplierID:  supplierID,
		Description: description,
		owned:       make(map[int64]struct{}),
	}
}

// DraftFromOrder opens a draft seeded from a persisted order. Products
// already on the order are exempt from the allocation veto, since their
// allocation belongs to this order itself.
func DraftFromOrder(order Order) *Draft {
	d := &Draft{
		OrderID:     order.ID,
		SupplierID:  order.SupplierID,
		Description: order.Description,
		Status:      order.Status,
		OrderedAt:   order.OrderedAt,
		lines:       append([]OrderLine(nil), order.Lines...),
		owned:       make(map[int64]struct{}, len(order.Lines)),
	}
	for _, line := range order.Lines {
		d.owned[line.ProductID] = struct{}{}
	}
	return d
}

// Lines returns a copy of the draft lines.
func (d *Draft) Lines() []OrderLine {
	return append([]OrderLine(nil), d.lines...)
}

// AddLine appends a product to the draft. A product already present in the
// draft merges by incrementing quantity. A product committed to a different
// active order is refused with an allocation conflict. New lines are seeded
// with the product's default buy price.
func (d *Draft) AddLine(product catalog.Product, quantity int64, alloc AllocationIndex) error {
	if quantity <= 0 {
		return &FieldError{Field: "quantity", Reason: "must be greater than zero"}
	}
	for i := range d.lines {
		if d.lines[i].ProductID == product.ID {
			d.lines[i].Quantity += quantity
			return nil
		}
	}
	if _, own := d.owned[product.ID]; !own && alloc.IsAllocated(product.ID) {
		return &AllocationError{ProductID: product.ID}
	}
	d.lines = append(d.lines, OrderLine{
		ProductID: product.ID,
		Quantity:  quantity,
		BuyPrice:  product.BuyPrice,
	})
	return nil
}

// RemoveLine deletes the line at index.
func (d *Draft) RemoveLine(index int) error {
	if index < 0 || index >= len(d.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	d.lines = append(d.lines[:index], d.lines[index+1:]...)
	return nil
}

// UpdateLineQuantity mutates the quantity in place. Zero is tolerated while
// editing; submit validation rejects it.
func (d *Draft) UpdateLineQuantity(index int, quantity int64) error {
	if index < 0 || index >= len(d.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	if quantity < 0 {
		return &FieldError{Field: "quantity", Reason: "must not be negative", Line: index + 1}
	}
	d.lines[index].Quantity = quantity
	return nil
}

// UpdateLineBuyPrice mutates the buy price in place.
func (d *Draft) UpdateLineBuyPrice(index int, price decimal.Decimal) error {
	if index < 0 || index >= len(d.lines) {
		return &FieldError{Field: "line", Reason: "does not exist"}
	}
	if price.IsNegative() {
		return &FieldError{Field: "buy_price", Reason: "must not be negative", Line: index + 1}
	}
	d.lines[index].BuyPrice = price
	return nil
}

// ValidateForSubmit checks the draft is complete, stopping at the first
// violation found.
func (d *Draft) ValidateForSubmit() error {
	if d.SupplierID == 0 {
		return &FieldError{Field: "supplier", Reason: "must be selected"}
	}
	if len(d.lines) == 0 {
		return &FieldError{Field: "lines", Reason: "at least one line is required"}
	}
	for i, line := range d.lines {
		if line.Quantity <= 0 {
			return &FieldError{Field: "quantity", Reason: "must be greater than zero", Line: i + 1}
		}
		if !line.BuyPrice.IsPositive() {
			return &FieldError{Field: "buy_price", Reason: "must be greater than zero", Line: i + 1}
		}
	}
	return nil
}

// Total sums quantity times buy price over all lines, exactly.
func (d *Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
