// Package checkout turns a cart into a bill. A Coordinator drives one
// attempt through Idle, Reviewing, Validating, Committing and Completed.
//
// The sale is not atomic: each stock line is written on its own and nothing
// is rolled back when a later write or the bill append fails.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-pos/internal/cart"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
)

var (
	// ErrCartEmpty is returned when checkout starts with no lines.
	ErrCartEmpty = errors.New("checkout: cart is empty")
	// ErrInsufficientPayment is returned when the amount paid is below the total.
	ErrInsufficientPayment = errors.New("checkout: insufficient payment")
	// ErrInvalidPaymentMethod is returned for methods other than cash, card or upi.
	ErrInvalidPaymentMethod = errors.New("checkout: invalid payment method")
	// ErrCommitFailed wraps a store failure after validation passed.
	ErrCommitFailed = errors.New("checkout: commit failed")
	// ErrInvalidState is returned when an operation does not fit the current state.
	ErrInvalidState = errors.New("checkout: operation not allowed in current state")
	// ErrDuplicateSubmission is returned when an idempotency key was already used.
	ErrDuplicateSubmission = errors.New("checkout: duplicate submission")
)

// State is a step of the checkout state machine.
type State int

const (
	Idle State = iota
	Reviewing
	Validating
	Committing
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reviewing:
		return "reviewing"
	case Validating:
		return "validating"
	case Committing:
		return "committing"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StockGuard selects how stock is decremented.
type StockGuard string

const (
	// GuardConditional decrements only while the stored quantity still covers the line.
	GuardConditional StockGuard = "conditional"
	// GuardLegacy writes live-qty computed from the earlier read.
	GuardLegacy StockGuard = "legacy"
)

// ParseStockGuard maps configuration to a guard, defaulting to conditional.
func ParseStockGuard(raw string) StockGuard {
	if StockGuard(raw) == GuardLegacy {
		return GuardLegacy
	}
	return GuardConditional
}

// Stock is the catalog surface used while committing.
type Stock interface {
	GetMany(ctx context.Context, ids []string) (map[string]catalog.Product, error)
	DecrementIfAvailable(ctx context.Context, id string, qty int) (catalog.Product, error)
	SetQuantity(ctx context.Context, id string, qty int) (catalog.Product, error)
}

// Ledger appends bills.
type Ledger interface {
	Append(ctx context.Context, bill ledger.Bill) error
}

// Payment is what the customer tendered.
type Payment struct {
	Amount float64
	Method string
}

// SkippedLine is a cart line that did not reduce stock.
type SkippedLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Result describes a completed checkout.
type Result struct {
	Bill        ledger.Bill           `json:"bill"`
	Decremented []catalog.StockChange `json:"-"`
	Skipped     []SkippedLine         `json:"skipped"`
	// Dropped lines had no product in the catalog at commit time. They are
	// still part of the bill totals.
	Dropped  []cart.Line       `json:"dropped"`
	LowStock []catalog.Product `json:"lowStock"`
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Stock  Stock
	Ledger Ledger
	Guard  StockGuard
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
	// OnTransition observes every state change.
	OnTransition func(from, to State)
}

// Coordinator runs a single checkout attempt. It is not safe for concurrent use.
type Coordinator struct {
	deps       Deps
	state      State
	cart       cart.Cart
	taxEnabled bool
	cashierID  string
}

// NewCoordinator returns an Idle coordinator for one cashier.
func NewCoordinator(deps Deps, taxEnabled bool, cashierID string) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Guard == "" {
		deps.Guard = GuardConditional
	}
	return &Coordinator{deps: deps, taxEnabled: taxEnabled, cashierID: cashierID}
}

// State returns the current state.
func (c *Coordinator) State() State {
	return c.state
}

func (c *Coordinator) transition(to State) {
	from := c.state
	c.state = to
	if c.deps.OnTransition != nil {
		c.deps.OnTransition(from, to)
	}
}

// Begin moves Idle to Reviewing with a snapshot of cart.
func (c *Coordinator) Begin(current cart.Cart) error {
	if c.state != Idle {
		return ErrInvalidState
	}
	if current.IsEmpty() {
		return ErrCartEmpty
	}
	c.cart = current
	c.transition(Reviewing)
	return nil
}

// Quote returns the totals under review.
func (c *Coordinator) Quote() (pricing.Totals, error) {
	if c.state != Reviewing {
		return pricing.Totals{}, ErrInvalidState
	}
	return pricing.Compute(c.cart.Lines(), c.taxEnabled), nil
}

// Cancel abandons review without side effects.
func (c *Coordinator) Cancel() error {
	if c.state != Reviewing {
		return ErrInvalidState
	}
	c.cart = cart.Cart{}
	c.transition(Idle)
	return nil
}

// Submit validates payment and commits the sale. Validation failures return
// the coordinator to Reviewing with nothing written. After Committing starts
// the coordinator always ends Idle.
func (c *Coordinator) Submit(ctx context.Context, payment Payment) (Result, error) {
	if c.state != Reviewing {
		return Result{}, ErrInvalidState
	}
	c.transition(Validating)

	method, ok := ledger.ParsePaymentMethod(payment.Method)
	if !ok {
		c.transition(Reviewing)
		return Result{}, ErrInvalidPaymentMethod
	}
	lines := c.cart.Lines()
	totals := pricing.Compute(lines, c.taxEnabled)
	if !totals.Covers(payment.Amount) {
		c.transition(Reviewing)
		return Result{}, fmt.Errorf("%w: paid %s, total %s", ErrInsufficientPayment,
			pricing.FormatINR(payment.Amount), pricing.FormatINR(totals.Total))
	}

	bill := c.buildBill(lines, totals, payment.Amount, method)

	c.transition(Committing)
	result, err := c.commit(ctx, lines, bill)
	if err != nil {
		c.cart = cart.Cart{}
		c.transition(Idle)
		return result, err
	}
	c.transition(Completed)
	c.cart = cart.Cart{}
	c.transition(Idle)
	return result, nil
}

func (c *Coordinator) buildBill(lines []cart.Line, totals pricing.Totals, paid float64, method ledger.PaymentMethod) ledger.Bill {
	items := make([]ledger.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, ledger.Item{Name: l.Name, Price: l.Price, Quantity: l.Quantity})
	}
	return ledger.Bill{
		ID:            c.deps.NewID(),
		Items:         items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		GSTApplied:    totals.TaxApplied,
		Total:         totals.Total,
		Paid:          paid,
		Change:        totals.Change(paid),
		PaymentMethod: method,
		CashierID:     c.cashierID,
		CreatedAt:     c.deps.Now().UTC(),
	}
}

// currentQuantity re-reads stock after a guarded decrement lost a race.
// A failed read reports zero.
func (c *Coordinator) currentQuantity(ctx context.Context, logger *slog.Logger, id string) int {
	live, err := c.deps.Stock.GetMany(ctx, []string{id})
	if err != nil {
		logger.Warn("re-read drained stock", slog.String("product_id", id), slog.Any("error", err))
		return 0
	}
	return max(live[id].Quantity, 0)
}

func (c *Coordinator) commit(ctx context.Context, lines []cart.Line, bill ledger.Bill) (Result, error) {
	result := Result{Bill: bill}
	logger := c.deps.Logger.With(slog.String("bill_id", bill.ID))

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	live, err := c.deps.Stock.GetMany(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("%w: load stock: %w", ErrCommitFailed, err)
	}

	for _, l := range lines {
		product, ok := live[l.ProductID]
		if !ok {
			logger.Warn("product missing at checkout, billed without stock change",
				slog.String("product_id", l.ProductID), slog.String("name", l.Name))
			result.Dropped = append(result.Dropped, l)
			continue
		}
		if product.Quantity < l.Quantity {
			logger.Info("insufficient stock, line not decremented",
				slog.String("product_id", l.ProductID), slog.Int("requested", l.Quantity), slog.Int("available", product.Quantity))
			result.Skipped = append(result.Skipped, SkippedLine{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity, Available: product.Quantity})
			continue
		}

		var after catalog.Product
		before := product.Quantity
		switch c.deps.Guard {
		case GuardLegacy:
			after, err = c.deps.Stock.SetQuantity(ctx, l.ProductID, product.Quantity-l.Quantity)
		default:
			after, err = c.deps.Stock.DecrementIfAvailable(ctx, l.ProductID, l.Quantity)
			if err == nil {
				before = after.Quantity + l.Quantity
			}
		}
		switch {
		case errors.Is(err, catalog.ErrInsufficientStock):
			logger.Info("stock drained concurrently, line not decremented", slog.String("product_id", l.ProductID))
			result.Skipped = append(result.Skipped, SkippedLine{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity, Available: c.currentQuantity(ctx, logger, l.ProductID)})
			continue
		case errors.Is(err, catalog.ErrNotFound):
			logger.Warn("product deleted during checkout", slog.String("product_id", l.ProductID))
			result.Dropped = append(result.Dropped, l)
			continue
		case err != nil:
			logger.Error("stock write failed", slog.String("product_id", l.ProductID), slog.Any("error", err))
			return result, fmt.Errorf("%w: decrement %s: %w", ErrCommitFailed, l.ProductID, err)
		}
		change := catalog.StockChange{Product: after, Before: before, After: after.Quantity}
		result.Decremented = append(result.Decremented, change)
		if catalog.CrossedLowStock(change.Before, change.After) {
			result.LowStock = append(result.LowStock, after)
		}
	}

	if err := c.deps.Ledger.Append(ctx, bill); err != nil {
		logger.Error("append bill failed after stock changes", slog.Int("decremented", len(result.Decremented)), slog.Any("error", err))
		return result, fmt.Errorf("%w: append bill: %w", ErrCommitFailed, err)
	}
	return result, nil
}
