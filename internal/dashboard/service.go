// Package dashboard aggregates the landing page figures.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
)

// RecentLimit is the number of bills shown on the dashboard.
const RecentLimit = 5

// ProductLister reads the catalog.
type ProductLister interface {
	List(ctx context.Context, filter catalog.Filter) ([]catalog.Product, error)
}

// BillReader reads the ledger.
type BillReader interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]ledger.Bill, error)
	Recent(ctx context.Context, n int) ([]ledger.Bill, error)
}

// Summary is the dashboard payload.
type Summary struct {
	TodaySales        float64           `json:"todaySales"`
	TodayTransactions int               `json:"todayTransactions"`
	ProductCount      int               `json:"productCount"`
	LowStockCount     int               `json:"lowStockCount"`
	OutOfStockCount   int               `json:"outOfStockCount"`
	InventoryValue    float64           `json:"inventoryValue"`
	RecentBills       []ledger.Bill     `json:"recentBills"`
	LowStockProducts  []catalog.Product `json:"lowStockProducts,omitempty"`
}

// Scope selects how much the caller may see. Staff without inventory access
// get only today's bills and no per-product stock detail.
type Scope struct {
	Inventory bool
}

// Service computes dashboard summaries.
type Service struct {
	products ProductLister
	bills    BillReader
	loc      *time.Location
	now      func() time.Time
}

// NewService constructs the service. Days are cut in loc (UTC when nil).
func NewService(products ProductLister, bills BillReader, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{products: products, bills: bills, loc: loc, now: time.Now}
}

// WithClock overrides time.Now, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DayBounds returns [start of day, start of next day) for t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Summary loads products, today's bills and the recent bills in parallel.
func (s *Service) Summary(ctx context.Context, scope Scope) (Summary, error) {
	from, to := DayBounds(s.now(), s.loc)

	var (
		products []catalog.Product
		today    []ledger.Bill
		recent   []ledger.Bill
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.List(gctx, catalog.Filter{})
		if err != nil {
			return fmt.Errorf("dashboard: products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		today, err = s.bills.List(gctx, ledger.ListFilter{From: from, To: to})
		if err != nil {
			return fmt.Errorf("dashboard: today's bills: %w", err)
		}
		return nil
	})
	if scope.Inventory {
		g.Go(func() error {
			var err error
			recent, err = s.bills.Recent(gctx, RecentLimit)
			if err != nil {
				return fmt.Errorf("dashboard: recent bills: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{TodayTransactions: len(today), ProductCount: len(products)}
	for _, b := range today {
		sum.TodaySales += b.Total
	}
	for _, p := range products {
		sum.InventoryValue += p.Value()
		switch p.Level() {
		case catalog.StockOut:
			sum.OutOfStockCount++
		case catalog.StockLow:
			sum.LowStockCount++
		}
		if scope.Inventory && p.Level() != catalog.StockOK {
			sum.LowStockProducts = append(sum.LowStockProducts, p)
		}
	}
	sum.TodaySales = pricing.Round2(sum.TodaySales)
	sum.InventoryValue = pricing.Round2(sum.InventoryValue)

	if !scope.Inventory {
		recent = newestFirst(today, RecentLimit)
	}
	if recent == nil {
		recent = []ledger.Bill{}
	}
	sum.RecentBills = recent
	return sum, nil
}

// newestFirst returns up to n bills from an oldest-first slice, newest first.
func newestFirst(bills []ledger.Bill, n int) []ledger.Bill {
	out := make([]ledger.Bill, 0, n)
	for i := len(bills) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, bills[i])
	}
	return out
}
