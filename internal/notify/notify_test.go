package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog/catalogtest"
	"github.com/odyssey-erp/odyssey-pos/internal/checkout"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger/ledgertest"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/mailer"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type outbox struct{ sent []mailer.Message }

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.sent = append(o.sent, msg)
	return nil
}

type staticProfile shop.Profile

func (p staticProfile) Get(context.Context) (shop.Profile, error) { return shop.Profile(p), nil }

type pdfStub struct{ err error }

func (p pdfStub) PDF(context.Context, ledger.Bill) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF"), nil
}

func fixture(t *testing.T, email string) (*Service, *outbox) {
	t.Helper()
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, ist)
	bills := ledgertest.New(
		ledger.Bill{ID: "b-00000000aa11bb", Items: []ledger.Item{{Name: "Pen", Price: 10, Quantity: 3}}, Subtotal: 30, Total: 30, Paid: 30, PaymentMethod: ledger.PaymentUPI, CreatedAt: day.Add(10 * time.Hour)},
		ledger.Bill{ID: "b-2", Items: []ledger.Item{{Name: "Ink", Price: 50, Quantity: 1}}, Subtotal: 50, Total: 50, Paid: 50, PaymentMethod: ledger.PaymentCash, CreatedAt: day.Add(18 * time.Hour)},
	)
	products := catalogtest.New(catalog.Product{ID: "p1", Name: "Pen", Price: 10, Quantity: 7})
	box := &outbox{}
	svc := NewService(Deps{
		Sender:   box,
		Profiles: staticProfile{Name: "Corner Mart", Email: email},
		Bills:    bills,
		Products: products,
		Reports:  reports.NewService(bills, nil, ist),
		Receipts: pdfStub{},
		Location: ist,
	})
	return svc, box
}

func TestSendBill(t *testing.T) {
	svc, box := fixture(t, "owner@shop.test")
	require.NoError(t, svc.SendBill(context.Background(), "b-00000000aa11bb"))
	require.Len(t, box.sent, 1)
	msg := box.sent[0]
	assert.Equal(t, "New Sale - Bill #AA11BB", msg.Subject)
	assert.Equal(t, []string{"owner@shop.test"}, msg.To)
	assert.Contains(t, msg.HTML, "May 04, 2026 10:00")
	assert.Contains(t, msg.HTML, "₹30.00")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "receipt-00AA11BB.pdf", msg.Attachments[0].Name)
}

func TestSendBillReceiptFailureStillSends(t *testing.T) {
	svc, box := fixture(t, "owner@shop.test")
	svc.deps.Receipts = pdfStub{err: errors.New("gotenberg down")}
	require.NoError(t, svc.SendBill(context.Background(), "b-2"))
	require.Len(t, box.sent, 1)
	assert.Empty(t, box.sent[0].Attachments)
}

func TestSkippedWithoutShopEmail(t *testing.T) {
	svc, box := fixture(t, "")
	require.ErrorIs(t, svc.SendLowStock(context.Background(), "p1"), ErrNoRecipient)
	require.ErrorIs(t, svc.SendBill(context.Background(), "b-2"), ErrNoRecipient)
	assert.Empty(t, box.sent)
}

func TestSendLowStock(t *testing.T) {
	svc, box := fixture(t, "owner@shop.test")
	require.NoError(t, svc.SendLowStock(context.Background(), "p1"))
	require.Len(t, box.sent, 1)
	assert.Equal(t, "Low Stock Alert: Pen", box.sent[0].Subject)
	assert.Contains(t, box.sent[0].HTML, "7 units")
	assert.Contains(t, box.sent[0].HTML, "N/A")

	err := svc.SendLowStock(context.Background(), "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSendDailyReport(t *testing.T) {
	svc, box := fixture(t, "owner@shop.test")
	day := time.Date(2026, 5, 4, 20, 0, 0, 0, ist)
	require.NoError(t, svc.SendDailyReport(context.Background(), day))
	require.Len(t, box.sent, 1)
	msg := box.sent[0]
	assert.Equal(t, "Daily Sales Report - May 04, 2026", msg.Subject)
	assert.Contains(t, msg.HTML, "Monday, May 04, 2026")
	assert.Contains(t, msg.HTML, "₹80.00")
	assert.Contains(t, msg.HTML, "18:00")
	assert.NotContains(t, msg.HTML, "No transactions today.")
}

func TestDailyReportEmptyDay(t *testing.T) {
	svc, box := fixture(t, "owner@shop.test")
	require.NoError(t, svc.SendDailyReport(context.Background(), time.Date(2026, 5, 5, 20, 0, 0, 0, ist)))
	assert.Contains(t, box.sent[0].HTML, "No transactions today.")
}

type recordingQueue struct {
	bills    []string
	lowStock []string
}

func (q *recordingQueue) EnqueueBillMail(_ context.Context, id string) error {
	q.bills = append(q.bills, id)
	return nil
}

func (q *recordingQueue) EnqueueLowStock(_ context.Context, id string) error {
	q.lowStock = append(q.lowStock, id)
	return nil
}

func TestHookEnqueues(t *testing.T) {
	q := &recordingQueue{}
	h := NewHook(q)
	err := h.AfterCheckout(context.Background(), checkout.Result{
		Bill:     ledger.Bill{ID: "b-9"},
		LowStock: []catalog.Product{{ID: "p1"}, {ID: "p2"}},
	})
	require.NoError(t, err)
	require.NoError(t, h.LowStock(context.Background(), catalog.StockChange{Product: catalog.Product{ID: "p3"}, Before: 11, After: 10}))
	assert.Equal(t, []string{"b-9"}, q.bills)
	assert.Equal(t, []string{"p1", "p2", "p3"}, q.lowStock)
}
