package receipt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/report"
)

func sampleBill(gst bool) ledger.Bill {
	b := ledger.Bill{
		ID:            "bill-0a1b2c3d4e5f",
		Items:         []ledger.Item{{Name: "Tea <Masala>", Price: 120, Quantity: 2}, {Name: "Biscuit", Price: 30, Quantity: 1}},
		Subtotal:      270,
		Total:         270,
		Paid:          500,
		Change:        230,
		PaymentMethod: ledger.PaymentCash,
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	if gst {
		b.GSTApplied = true
		b.Tax = 48.6
		b.Total = 318.6
		b.Change = 181.4
	}
	return b
}

func TestRenderContents(t *testing.T) {
	profile := shop.Profile{Name: "Corner Mart", Address: "12 MG Road", Phone: "98450 00000", GSTNumber: "29ABCDE1234F1Z5"}
	ist := time.FixedZone("IST", 5*3600+1800)

	html, err := Render(sampleBill(true), profile, ist)
	require.NoError(t, err)
	require.Contains(t, html, "Corner Mart")
	require.Contains(t, html, "GSTIN: 29ABCDE1234F1Z5")
	require.Contains(t, html, "Bill #2C3D4E5F")
	require.Contains(t, html, "14 Mar 2026, 03:00 PM")
	require.Contains(t, html, "GST (18%)")
	require.Contains(t, html, "₹318.60")
	require.Contains(t, html, "CASH")
	require.Contains(t, html, Footer)
	require.Contains(t, html, "Tea &lt;Masala&gt;")
}

func TestRenderWithoutGST(t *testing.T) {
	html, err := Render(sampleBill(false), shop.Profile{}, nil)
	require.NoError(t, err)
	require.NotContains(t, html, "GST (")
	require.NotContains(t, html, "GSTIN")
	require.Contains(t, html, shop.DefaultName)
	require.Contains(t, html, "₹230.00")
}

type stubConverter struct {
	html string
	page report.Page
	err  error
}

func (s *stubConverter) RenderPage(_ context.Context, html string, page report.Page) ([]byte, error) {
	s.html, s.page = html, page
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF"), nil
}

type profileFunc func(context.Context) (shop.Profile, error)

func (f profileFunc) Get(ctx context.Context) (shop.Profile, error) { return f(ctx) }

func TestRendererPDF(t *testing.T) {
	conv := &stubConverter{}
	r := NewRenderer(conv, profileFunc(func(context.Context) (shop.Profile, error) {
		return shop.Profile{Name: "Ledger Shop"}, nil
	}), time.UTC)

	pdf, err := r.PDF(context.Background(), sampleBill(false))
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(pdf))
	require.Equal(t, report.ReceiptPage, conv.page)
	require.True(t, strings.Contains(conv.html, "Ledger Shop"))
}

func TestRendererProfileError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRenderer(&stubConverter{}, profileFunc(func(context.Context) (shop.Profile, error) {
		return shop.Profile{}, boom
	}), nil)
	_, err := r.PDF(context.Background(), sampleBill(false))
	require.ErrorIs(t, err, boom)
}
