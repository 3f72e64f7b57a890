// Package live pushes store events to connected dashboards over WebSocket.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
)

// Channel is the Redis pub/sub channel carrying events between processes.
const Channel = "pos:events"

// Event types.
const (
	EventSale     = "sale.completed"
	EventLowStock = "stock.low"
)

// Event is one message on the feed.
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// SalePayload summarises a completed sale.
type SalePayload struct {
	BillID        string  `json:"billId"`
	Total         float64 `json:"total"`
	Items         int     `json:"items"`
	PaymentMethod string  `json:"paymentMethod"`
	CashierID     string  `json:"cashierId,omitempty"`
}

// StockPayload names a product that crossed the low-stock threshold.
type StockPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Publisher sends events on Channel.
type Publisher struct {
	client *redis.Client
	now    func() time.Time
}

// NewPublisher wraps client.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, now: time.Now}
}

// Publish encodes event as JSON. A zero At is stamped with the current time.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = p.now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("live: encode: %w", err)
	}
	return p.client.Publish(ctx, Channel, data).Err()
}

// AfterCheckout announces the sale and any low-stock crossings.
func (p *Publisher) AfterCheckout(ctx context.Context, result checkout.Result) error {
	bill := result.Bill
	errs := []error{p.Publish(ctx, Event{Type: EventSale, At: bill.CreatedAt, Payload: SalePayload{
		BillID:        bill.ID,
		Total:         bill.Total,
		Items:         bill.Units(),
		PaymentMethod: string(bill.PaymentMethod),
		CashierID:     bill.CashierID,
	}})}
	for _, prod := range result.LowStock {
		errs = append(errs, p.lowStock(ctx, prod))
	}
	return errors.Join(errs...)
}

// LowStock implements catalog.AlertSink for manual stock edits.
func (p *Publisher) LowStock(ctx context.Context, change catalog.StockChange) error {
	return p.lowStock(ctx, change.Product)
}

func (p *Publisher) lowStock(ctx context.Context, prod catalog.Product) error {
	return p.Publish(ctx, Event{Type: EventLowStock, Payload: StockPayload{ProductID: prod.ID, Name: prod.Name, Quantity: prod.Quantity}})
}

var (
	_ checkout.Hook     = (*Publisher)(nil)
	_ catalog.AlertSink = (*Publisher)(nil)
)
