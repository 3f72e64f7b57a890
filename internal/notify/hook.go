package notify

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
)

// Queue schedules email delivery in the background.
type Queue interface {
	EnqueueBillMail(ctx context.Context, billID string) error
	EnqueueLowStock(ctx context.Context, productID string) error
}

// Hook enqueues the sale and low-stock emails. It serves both checkout and
// manual catalog edits.
type Hook struct {
	queue Queue
}

// NewHook wraps queue.
func NewHook(queue Queue) *Hook {
	return &Hook{queue: queue}
}

// AfterCheckout enqueues the bill email and one alert per product that crossed the threshold.
func (h *Hook) AfterCheckout(ctx context.Context, result checkout.Result) error {
	errs := []error{h.queue.EnqueueBillMail(ctx, result.Bill.ID)}
	for _, p := range result.LowStock {
		errs = append(errs, h.queue.EnqueueLowStock(ctx, p.ID))
	}
	return errors.Join(errs...)
}

// LowStock implements catalog.AlertSink.
func (h *Hook) LowStock(ctx context.Context, change catalog.StockChange) error {
	return h.queue.EnqueueLowStock(ctx, change.Product.ID)
}

var (
	_ checkout.Hook     = (*Hook)(nil)
	_ catalog.AlertSink = (*Hook)(nil)
)
