// Package pricing derives sale totals from cart lines.
package pricing

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TaxRate is the fixed GST rate applied when tax is enabled.
const TaxRate = 0.18

// Line is the minimum a priced line must expose.
type Line interface {
	UnitPrice() float64
	Units() int
}

// Totals summarises a priced cart.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	TaxApplied bool    `json:"taxApplied"`
}

// Compute returns subtotal, tax and total for the given lines. It never mutates its input.
func Compute[L Line](lines []L, taxEnabled bool) Totals {
	subtotal := 0.0
	for _, line := range lines {
		subtotal += line.UnitPrice() * float64(line.Units())
	}
	tax := 0.0
	if taxEnabled {
		tax = subtotal * TaxRate
	}
	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      subtotal + tax,
		TaxApplied: taxEnabled,
	}
}

// Change returns the change due for the paid amount.
func (t Totals) Change(paid float64) float64 {
	return paid - t.Total
}

// Covers reports whether paid is enough to settle the total.
func (t Totals) Covers(paid float64) bool {
	return paid >= t.Total
}

// Rounded returns a copy with every amount rounded to two decimals for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:   Round2(t.Subtotal),
		Tax:        Round2(t.Tax),
		Total:      Round2(t.Total),
		TaxApplied: t.TaxApplied,
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var printer = message.NewPrinter(language.English)

// FormatINR renders an amount as rupees with thousands grouping, e.g. ₹1,234.50.
func FormatINR(amount float64) string {
	if amount < 0 {
		return "-" + printer.Sprintf("₹%.2f", -amount)
	}
	return printer.Sprintf("₹%.2f", amount)
}
