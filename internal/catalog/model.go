package catalog

import (
	"github.com/shopspring/decimal"
)

// Supplier is reference data loaded once per session. It is never
// mutated by this module.
type Supplier struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

// Product is reference data loaded once per session.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	Perishable bool            `json:"isExpire"`
	MinStock   int64           `json:"min_stock"`
	SupplierID int64           `json:"supplier_id"`
}
