// Package ledger records completed sales as immutable bills.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
)

// PaymentMethod names how a bill was settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// ParsePaymentMethod validates raw. An empty value means cash.
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PaymentCash:
		return PaymentCash, true
	case PaymentCard:
		return PaymentCard, true
	case PaymentUPI:
		return PaymentUPI, true
	default:
		return "", false
	}
}

var (
	// ErrNotFound indicates the bill does not exist.
	ErrNotFound = errors.New("ledger: bill not found")
	// ErrInvalidBill indicates broken bill invariants.
	ErrInvalidBill = errors.New("ledger: invalid bill")
)

const tolerance = 0.005

// Item is one sold line as recorded on the bill.
type Item struct {
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

// Amount returns price times quantity.
func (i Item) Amount() float64 { return i.Price * float64(i.Quantity) }

// UnitPrice implements pricing.Line.
func (i Item) UnitPrice() float64 { return i.Price }

// Units implements pricing.Line.
func (i Item) Units() int { return i.Quantity }

// Bill is the immutable record of a completed sale.
type Bill struct {
	ID            string        `json:"id" bson:"_id"`
	Items         []Item        `json:"items" bson:"items"`
	Subtotal      float64       `json:"subtotal" bson:"subtotal"`
	Tax           float64       `json:"tax" bson:"tax"`
	GSTApplied    bool          `json:"gstApplied" bson:"gstApplied"`
	Total         float64       `json:"total" bson:"total"`
	Paid          float64       `json:"paid" bson:"paid"`
	Change        float64       `json:"change" bson:"change"`
	PaymentMethod PaymentMethod `json:"paymentMethod" bson:"paymentMethod"`
	CashierID     string        `json:"cashierId,omitempty" bson:"cashierId"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
}

// Totals returns the bill totals as a pricing value.
func (b Bill) Totals() pricing.Totals {
	return pricing.Totals{Subtotal: b.Subtotal, Tax: b.Tax, Total: b.Total, TaxApplied: b.GSTApplied}
}

// Units returns the number of units sold.
func (b Bill) Units() int {
	n := 0
	for _, it := range b.Items {
		n += it.Quantity
	}
	return n
}

// ShortCode returns the last n characters of the id upper-cased.
func (b Bill) ShortCode(n int) string {
	id := b.ID
	if n > 0 && len(id) > n {
		id = id[len(id)-n:]
	}
	return strings.ToUpper(id)
}

// Validate checks the arithmetic invariants of the bill.
func (b Bill) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidBill)
	}
	if len(b.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidBill)
	}
	if _, ok := ParsePaymentMethod(string(b.PaymentMethod)); !ok {
		return fmt.Errorf("%w: payment method %q", ErrInvalidBill, b.PaymentMethod)
	}
	subtotal := 0.0
	for _, it := range b.Items {
		if it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("%w: item %q", ErrInvalidBill, it.Name)
		}
		subtotal += it.Amount()
	}
	expectTax := 0.0
	if b.GSTApplied {
		expectTax = b.Subtotal * pricing.TaxRate
	}
	switch {
	case !near(subtotal, b.Subtotal):
		return fmt.Errorf("%w: subtotal %.2f does not match items %.2f", ErrInvalidBill, b.Subtotal, subtotal)
	case !near(b.Tax, expectTax):
		return fmt.Errorf("%w: tax %.2f", ErrInvalidBill, b.Tax)
	case !near(b.Total, b.Subtotal+b.Tax):
		return fmt.Errorf("%w: total %.2f", ErrInvalidBill, b.Total)
	case b.Paid+tolerance < b.Total:
		return fmt.Errorf("%w: paid %.2f below total %.2f", ErrInvalidBill, b.Paid, b.Total)
	case !near(b.Change, b.Paid-b.Total):
		return fmt.Errorf("%w: change %.2f", ErrInvalidBill, b.Change)
	}
	return nil
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// ListFilter narrows bill listings. Zero times are open bounds.
type ListFilter struct {
	From time.Time
	To   time.Time
	// Limit keeps the newest Limit bills of the window. Zero keeps all of them.
	Limit int
}

// Match reports whether b falls in the window [From, To).
func (f ListFilter) Match(b Bill) bool {
	if !f.From.IsZero() && b.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !b.CreatedAt.Before(f.To) {
		return false
	}
	return true
}
