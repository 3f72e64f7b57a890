package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type line struct {
	price float64
	qty   int
}

func (l line) UnitPrice() float64 { return l.price }
func (l line) Units() int         { return l.qty }

func TestComputeWithTax(t *testing.T) {
	totals := Compute([]line{{price: 100, qty: 2}}, true)
	require.InDelta(t, 200.0, totals.Subtotal, 1e-9)
	require.InDelta(t, 36.0, totals.Tax, 1e-9)
	require.InDelta(t, 236.0, totals.Total, 1e-9)
	require.True(t, totals.TaxApplied)
	require.InDelta(t, 14.0, totals.Change(250), 1e-9)
	require.True(t, totals.Covers(236))
	require.False(t, totals.Covers(200))
}

func TestComputeWithoutTax(t *testing.T) {
	totals := Compute([]line{{price: 49.5, qty: 3}, {price: 10, qty: 1}}, false)
	require.InDelta(t, 158.5, totals.Subtotal, 1e-9)
	require.Zero(t, totals.Tax)
	require.InDelta(t, totals.Subtotal, totals.Total, 1e-9)
	require.False(t, totals.TaxApplied)
}

func TestComputeIsIdempotent(t *testing.T) {
	lines := []line{{price: 12.34, qty: 7}, {price: 0.99, qty: 11}}
	first := Compute(lines, true)
	second := Compute(lines, true)
	require.Equal(t, first, second)
	require.Equal(t, []line{{price: 12.34, qty: 7}, {price: 0.99, qty: 11}}, lines)
}

func TestComputeEmpty(t *testing.T) {
	totals := Compute([]line(nil), true)
	require.Zero(t, totals.Subtotal)
	require.Zero(t, totals.Total)
}

func TestRounded(t *testing.T) {
	totals := Compute([]line{{price: 33.333, qty: 1}}, true).Rounded()
	require.Equal(t, 33.33, totals.Subtotal)
	require.Equal(t, 6.0, totals.Tax)
	require.Equal(t, 39.33, totals.Total)
}

func TestFormatINR(t *testing.T) {
	require.Equal(t, "₹1,234.50", FormatINR(1234.5))
	require.Equal(t, "₹0.00", FormatINR(0))
	require.Equal(t, "-₹14.00", FormatINR(-14))
}
