package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/cart"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog/catalogtest"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type fixedTax bool

func (f fixedTax) TaxEnabled(context.Context, string) (bool, error) { return bool(f), nil }

type countingRecorder struct {
	outcomes []string
	total    float64
}

func (c *countingRecorder) CheckoutOutcome(outcome string) { c.outcomes = append(c.outcomes, outcome) }

func (c *countingRecorder) SaleCompleted(total float64, _ int) { c.total += total }

func (c *countingRecorder) StockSkipped(string, int) {}

type fixture struct {
	svc     *Service
	carts   *cart.Store
	stock   *catalogtest.Repository
	bills   *ledgertest.Repository
	metrics *countingRecorder
	hooked  []Result
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		carts:   cart.NewStore(client, time.Hour),
		stock:   catalogtest.New(catalog.Product{ID: "p1", Name: "Soap", Price: 100, Quantity: 5}),
		bills:   ledgertest.New(),
		metrics: &countingRecorder{},
	}
	f.svc = NewService(Config{
		Carts:       f.carts,
		Stock:       f.stock,
		Ledger:      f.bills,
		Tax:         fixedTax(true),
		LastBills:   NewLastBillStore(client, time.Hour),
		Idempotency: shared.NewRedisIdempotency(client, time.Hour),
		Metrics:     f.metrics,
		Hooks: []Hook{HookFunc(func(_ context.Context, r Result) error {
			f.hooked = append(f.hooked, r)
			return nil
		})},
	})
	return f
}

func (f *fixture) fillCart(t *testing.T, userID string) {
	t.Helper()
	c, err := cart.Cart{}.Add(&cart.ProductSnapshot{ID: "p1", Name: "Soap", Price: 100, Quantity: 5})
	require.NoError(t, err)
	c, err = c.Add(&cart.ProductSnapshot{ID: "p1", Name: "Soap", Price: 100, Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, f.carts.Save(context.Background(), userID, c))
}

func TestServiceCheckoutClearsCartAndStoresLastBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "u1")

	review, err := f.svc.Review(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 236, review.Totals.Total, 1e-9)

	result, err := f.svc.Checkout(ctx, Request{UserID: "u1", Payment: Payment{Amount: 250, Method: "cash"}})
	require.NoError(t, err)
	assert.InDelta(t, 14, result.Bill.Change, 1e-9)
	assert.Equal(t, 3, f.stock.Quantity("p1"))

	left, err := f.carts.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, left.IsEmpty())

	last, err := f.svc.LastBill(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, result.Bill.ID, last.ID)

	require.Len(t, f.hooked, 1)
	assert.Equal(t, []string{"completed"}, f.metrics.outcomes)
	assert.InDelta(t, 236, f.metrics.total, 1e-9)

	_, err = f.svc.Review(ctx, "u1")
	require.ErrorIs(t, err, ErrCartEmpty)
}

func TestServiceInsufficientPaymentKeepsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "u1")

	_, err := f.svc.Checkout(ctx, Request{UserID: "u1", Payment: Payment{Amount: 200}, IdempotencyKey: "k1"})
	require.ErrorIs(t, err, ErrInsufficientPayment)
	assert.Zero(t, f.bills.Count())
	assert.Equal(t, 5, f.stock.Quantity("p1"))
	assert.Empty(t, f.hooked)

	still, err := f.carts.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, still.Units())

	// The key was released, so the corrected submission goes through.
	_, err = f.svc.Checkout(ctx, Request{UserID: "u1", Payment: Payment{Amount: 236}, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"insufficient_payment", "completed"}, f.metrics.outcomes)
}

func TestServiceRejectsDuplicateSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t, "u1")

	_, err := f.svc.Checkout(ctx, Request{UserID: "u1", Payment: Payment{Amount: 300}, IdempotencyKey: "same"})
	require.NoError(t, err)
	f.fillCart(t, "u1")
	_, err = f.svc.Checkout(ctx, Request{UserID: "u1", Payment: Payment{Amount: 300}, IdempotencyKey: "same"})
	require.ErrorIs(t, err, ErrDuplicateSubmission)

	assert.Equal(t, 1, f.bills.Count())
	assert.Equal(t, 3, f.stock.Quantity("p1"))
}

func TestServiceLastBillMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.LastBill(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNoLastBill)
}
