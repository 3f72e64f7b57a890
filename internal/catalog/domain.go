package catalog

import (
	"errors"
	"strings"
	"time"
)

// LowStockThreshold is the quantity at or below which a product counts as low on stock.
const LowStockThreshold = 10

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrInsufficientStock indicates a conditional decrement found less stock than requested.
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	// ErrInvalidProduct wraps validation failures.
	ErrInvalidProduct = errors.New("catalog: invalid product")
	// ErrDuplicateBarcode indicates another product already carries the barcode.
	ErrDuplicateBarcode = errors.New("catalog: barcode already assigned")
)

// Product is an inventory item.
type Product struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,max=200"`
	SKU       string    `json:"sku" bson:"sku" validate:"max=64"`
	Category  string    `json:"category" bson:"category" validate:"max=100"`
	Price     float64   `json:"price" bson:"price" validate:"gte=0"`
	Quantity  int       `json:"quantity" bson:"quantity" validate:"gte=0"`
	Barcode   string    `json:"barcode" bson:"barcode" validate:"omitempty,numeric,max=32"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Level classifies the product quantity.
func (p Product) Level() StockLevel {
	return LevelFor(p.Quantity)
}

// Value returns price times quantity on hand.
func (p Product) Value() float64 {
	return p.Price * float64(p.Quantity)
}

// Patch carries a partial product update. Nil fields are left untouched.
type Patch struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU      *string  `json:"sku,omitempty" validate:"omitempty,max=64"`
	Category *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Quantity *int     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Barcode  *string  `json:"barcode,omitempty" validate:"omitempty,numeric,max=32"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.SKU == nil && p.Category == nil && p.Price == nil && p.Quantity == nil && p.Barcode == nil
}

// Apply returns a copy of product with the patch applied.
func (p Patch) Apply(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.SKU != nil {
		product.SKU = *p.SKU
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Quantity != nil {
		product.Quantity = *p.Quantity
	}
	if p.Barcode != nil {
		product.Barcode = *p.Barcode
	}
	return product
}

// StockLevel buckets products by quantity on hand.
type StockLevel string

const (
	// StockAny disables stock filtering.
	StockAny StockLevel = ""
	// StockOut means nothing on hand.
	StockOut StockLevel = "out"
	// StockLow means 1..LowStockThreshold on hand.
	StockLow StockLevel = "low"
	// StockOK means more than LowStockThreshold on hand.
	StockOK StockLevel = "ok"
)

// LevelFor returns the stock level for quantity.
func LevelFor(quantity int) StockLevel {
	switch {
	case quantity <= 0:
		return StockOut
	case quantity <= LowStockThreshold:
		return StockLow
	default:
		return StockOK
	}
}

// ParseStockLevel accepts "low", "out", "ok" (case-insensitive); anything else means no filter.
func ParseStockLevel(raw string) StockLevel {
	switch StockLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case StockOut:
		return StockOut
	case StockLow:
		return StockLow
	case StockOK:
		return StockOK
	default:
		return StockAny
	}
}

// Filter narrows product listings.
type Filter struct {
	Search   string
	Category string
	Stock    StockLevel
}

// Match reports whether product satisfies the filter. Repositories that
// cannot push the filter into their query use it in memory.
func (f Filter) Match(p Product) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(p.Name), term) && !strings.Contains(strings.ToLower(p.SKU), term) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Stock != StockAny && p.Level() != f.Stock {
		return false
	}
	return true
}

// CrossedLowStock reports whether a quantity change moved a product from
// above the threshold to at or below it.
func CrossedLowStock(before, after int) bool {
	return before > LowStockThreshold && after <= LowStockThreshold
}

// StockChange records a quantity transition for a product.
type StockChange struct {
	Product Product
	Before  int
	After   int
}
