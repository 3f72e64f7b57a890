package cart

import "errors"

var (
	// ErrUnknownProduct is returned when adding a product the catalog does not know.
	ErrUnknownProduct = errors.New("cart: product not found")
	// ErrStockCeiling is returned when a line would exceed its stock snapshot.
	ErrStockCeiling = errors.New("cart: not enough stock available")
)

// ProductSnapshot is the catalog state captured when a product is added.
type ProductSnapshot struct {
	ID       string
	Name     string
	Price    float64
	Quantity int
}

// Line is a single product entry in the cart.
type Line struct {
	ProductID   string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	MaxQuantity int     `json:"maxQuantity"`
}

// UnitPrice implements pricing.Line.
func (l Line) UnitPrice() float64 { return l.Price }

// Units implements pricing.Line.
func (l Line) Units() int { return l.Quantity }

// Amount returns price times quantity.
func (l Line) Amount() float64 { return l.Price * float64(l.Quantity) }

// Cart is an immutable, ordered set of lines keyed by product id.
// Every mutation returns a new Cart and leaves the receiver untouched.
type Cart struct {
	lines []Line
}

// New builds a cart from previously persisted lines. Lines with a
// non-positive quantity are discarded.
func New(lines []Line) Cart {
	kept := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		kept = append(kept, l)
	}
	return Cart{lines: kept}
}

// Lines returns a copy of the cart lines in insertion order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Units returns the total number of units across lines.
func (c Cart) Units() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Line returns the line for productID.
func (c Cart) Line(productID string) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Add puts one unit of the product in the cart. An existing line is
// incremented and its ceiling refreshed from the snapshot; otherwise a new
// line is appended with its ceiling set to the snapshot quantity.
func (c Cart) Add(p *ProductSnapshot) (Cart, error) {
	if p == nil || p.ID == "" {
		return c, ErrUnknownProduct
	}
	if i := c.index(p.ID); i >= 0 {
		if c.lines[i].Quantity >= p.Quantity {
			return c, ErrStockCeiling
		}
		next := c.Lines()
		next[i].Quantity++
		next[i].MaxQuantity = p.Quantity
		return Cart{lines: next}, nil
	}
	if p.Quantity <= 0 {
		return c, ErrStockCeiling
	}
	next := append(c.Lines(), Line{
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    1,
		MaxQuantity: p.Quantity,
	})
	return Cart{lines: next}, nil
}

// ChangeQuantity applies delta to a line. A result at or below zero removes
// the line; a result above the line ceiling is rejected.
func (c Cart) ChangeQuantity(productID string, delta int) (Cart, error) {
	i := c.index(productID)
	if i < 0 {
		return c, nil
	}
	line := c.lines[i]
	// Compared against the headroom so a huge delta cannot wrap around.
	if delta > line.MaxQuantity-line.Quantity {
		return c, ErrStockCeiling
	}
	if delta <= -line.Quantity {
		return c.Remove(productID), nil
	}
	next := c.Lines()
	next[i].Quantity = line.Quantity + delta
	return Cart{lines: next}, nil
}

// Remove drops the line for productID if present.
func (c Cart) Remove(productID string) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}
	next := make([]Line, 0, len(c.lines)-1)
	next = append(next, c.lines[:i]...)
	next = append(next, c.lines[i+1:]...)
	return Cart{lines: next}
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Cart{}
}

func (c Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
