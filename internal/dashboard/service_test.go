package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog/catalogtest"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger/ledgertest"
)

func bill(id string, total float64, at time.Time) ledger.Bill {
	return ledger.Bill{ID: id, Items: []ledger.Item{{Name: "x", Price: total, Quantity: 1}}, Subtotal: total, Total: total, Paid: total, PaymentMethod: ledger.PaymentCash, CreatedAt: at}
}

func fixture(t *testing.T) (*Service, time.Time) {
	t.Helper()
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, ist)
	products := catalogtest.New(
		catalog.Product{ID: "p1", Name: "Rice", Price: 50, Quantity: 20},
		catalog.Product{ID: "p2", Name: "Dal", Price: 100, Quantity: 5},
		catalog.Product{ID: "p3", Name: "Salt", Price: 20, Quantity: 0},
		catalog.Product{ID: "p4", Name: "Sugar", Price: 40, Quantity: 10},
	)
	var bills []ledger.Bill
	bills = append(bills, bill("yesterday", 999, now.AddDate(0, 0, -1)))
	for i := 0; i < 7; i++ {
		bills = append(bills, bill(fmt.Sprintf("today-%d", i), 10, now.Add(-time.Duration(7-i)*time.Minute)))
	}
	// 00:10 IST is still the 18th locally but the 17th in UTC.
	bills = append(bills, bill("early", 5, time.Date(2026, 10, 18, 0, 10, 0, 0, ist)))
	svc := NewService(products, ledger.NewService(ledgertest.New(bills...)), ist).WithClock(func() time.Time { return now })
	return svc, now
}

func TestSummaryAggregates(t *testing.T) {
	svc, _ := fixture(t)

	sum, err := svc.Summary(context.Background(), Scope{Inventory: true})
	require.NoError(t, err)
	assert.Equal(t, 8, sum.TodayTransactions)
	assert.InDelta(t, 75, sum.TodaySales, 0.001)
	assert.Equal(t, 4, sum.ProductCount)
	assert.Equal(t, 2, sum.LowStockCount)
	assert.Equal(t, 1, sum.OutOfStockCount)
	assert.InDelta(t, 50*20+100*5+40*10, sum.InventoryValue, 0.001)
	require.Len(t, sum.RecentBills, RecentLimit)
	assert.Equal(t, "today-6", sum.RecentBills[0].ID)
	assert.Len(t, sum.LowStockProducts, 3)
}

func TestSummaryCashierSeesOnlyToday(t *testing.T) {
	svc, _ := fixture(t)

	sum, err := svc.Summary(context.Background(), Scope{})
	require.NoError(t, err)
	require.Len(t, sum.RecentBills, RecentLimit)
	for _, b := range sum.RecentBills {
		assert.NotEqual(t, "yesterday", b.ID)
	}
	assert.Equal(t, "today-6", sum.RecentBills[0].ID)
	assert.Empty(t, sum.LowStockProducts)
}

func TestDayBounds(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	from, to := DayBounds(time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC), ist)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, ist), from)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}
