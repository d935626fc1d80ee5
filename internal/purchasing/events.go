package purchasing

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// StatusChangedEvent describes a successful lifecycle transition.
type StatusChangedEvent struct {
	OrderID int64
	From    Status
	To      Status
	At      time.Time
}

// OrderReceivedEvent captures the final receipt of an order into stock.
type OrderReceivedEvent struct {
	OrderID    int64
	SupplierID int64
	Total      decimal.Decimal
	Lines      []ReceiveLine
	At         time.Time
}

// Hook receives purchasing lifecycle events for downstream integration.
type Hook interface {
	HandleStatusChanged(ctx context.Context, evt StatusChangedEvent) error
	HandleOrderReceived(ctx context.Context, evt OrderReceivedEvent) error
}

// LogHook is a Hook that records events on the structured log.
type LogHook struct {
	Logger *slog.Logger
}

// HandleStatusChanged logs the transition.
func (h LogHook) HandleStatusChanged(ctx context.Context, evt StatusChangedEvent) error {
	if h.Logger != nil {
		h.Logger.Info("order status changed",
			slog.Int64("order_id", evt.OrderID),
			slog.String("from", string(evt.From)),
			slog.String("to", string(evt.To)))
	}
	return nil
}

// HandleOrderReceived logs the receipt.
func (h LogHook) HandleOrderReceived(ctx context.Context, evt OrderReceivedEvent) error {
	if h.Logger != nil {
		h.Logger.Info("order received",
			slog.Int64("order_id", evt.OrderID),
			slog.Int64("supplier_id", evt.SupplierID),
			slog.String("total", evt.Total.String()))
	}
	return nil
}
