// Package receipt renders printable bills.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/report"
)

// Footer closes every receipt.
const Footer = "Thank you for shopping with us!"

const dateLayout = "02 Jan 2006, 03:04 PM"

var page = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"inr":   pricing.FormatINR,
	"upper": strings.ToUpper,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Bill - {{.Code}}</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: 'Courier New', monospace; font-size: 12px; padding: 10px; max-width: 300px; margin: 0 auto; }
.header, .footer { text-align: center; }
.shop-name { font-size: 18px; font-weight: bold; }
.divider { border-top: 1px dashed #000; margin: 10px 0; }
table { width: 100%; border-collapse: collapse; }
td.num, th.num { text-align: right; }
.grand-total td { font-size: 14px; font-weight: bold; }
</style>
</head>
<body>
<div class="header">
<div class="shop-name">{{.Shop.Name}}</div>
{{- with .Shop.Address}}
<div>{{.}}</div>
{{- end}}
{{- with .Shop.Phone}}
<div>Tel: {{.}}</div>
{{- end}}
{{- with .Shop.GSTNumber}}
<div>GSTIN: {{.}}</div>
{{- end}}
</div>
<div class="divider"></div>
<div class="bill-info">
<div>Bill #{{.Code}}</div>
<div>Date: {{.Date}}</div>
</div>
<div class="divider"></div>
<table class="items">
<tr><th>Item</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Amount</th></tr>
{{- range .Bill.Items}}
<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{inr .Price}}</td><td class="num">{{inr .Amount}}</td></tr>
{{- end}}
</table>
<div class="divider"></div>
<table class="totals">
<tr><td>Subtotal</td><td class="num">{{inr .Bill.Subtotal}}</td></tr>
{{- if .Bill.GSTApplied}}
<tr><td>GST ({{.TaxPercent}}%)</td><td class="num">{{inr .Bill.Tax}}</td></tr>
{{- end}}
<tr class="grand-total"><td>TOTAL</td><td class="num">{{inr .Bill.Total}}</td></tr>
<tr><td>Paid</td><td class="num">{{inr .Bill.Paid}}</td></tr>
<tr><td>Change</td><td class="num">{{inr .Bill.Change}}</td></tr>
<tr><td>Payment</td><td class="num">{{upper (printf "%s" .Bill.PaymentMethod)}}</td></tr>
</table>
<div class="divider"></div>
<div class="footer"><p>{{.Footer}}</p></div>
</body>
</html>
`))

type view struct {
	Bill       ledger.Bill
	Shop       shop.Profile
	Code       string
	Date       string
	TaxPercent int
	Footer     string
}

// Render builds the receipt HTML. Times are shown in loc; nil means UTC.
func Render(bill ledger.Bill, profile shop.Profile, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	if strings.TrimSpace(profile.Name) == "" {
		profile.Name = shop.DefaultName
	}
	var buf bytes.Buffer
	err := page.Execute(&buf, view{
		Bill:       bill,
		Shop:       profile,
		Code:       bill.ShortCode(8),
		Date:       bill.CreatedAt.In(loc).Format(dateLayout),
		TaxPercent: int(pricing.TaxRate * 100),
		Footer:     Footer,
	})
	if err != nil {
		return "", fmt.Errorf("receipt: render: %w", err)
	}
	return buf.String(), nil
}

// ProfileSource supplies the shop header.
type ProfileSource interface {
	Get(ctx context.Context) (shop.Profile, error)
}

// Converter turns HTML into PDF.
type Converter interface {
	RenderPage(ctx context.Context, html string, page report.Page) ([]byte, error)
}

// Renderer produces PDF receipts. It satisfies ledger.ReceiptRenderer.
type Renderer struct {
	converter Converter
	profiles  ProfileSource
	loc       *time.Location
}

// NewRenderer wires the PDF converter and shop profile source.
func NewRenderer(converter Converter, profiles ProfileSource, loc *time.Location) *Renderer {
	return &Renderer{converter: converter, profiles: profiles, loc: loc}
}

// HTML renders bill with the current shop profile.
func (r *Renderer) HTML(ctx context.Context, bill ledger.Bill) (string, error) {
	profile := shop.Defaults()
	if r.profiles != nil {
		p, err := r.profiles.Get(ctx)
		if err != nil {
			return "", fmt.Errorf("receipt: load shop: %w", err)
		}
		profile = p
	}
	return Render(bill, profile, r.loc)
}

// PDF renders bill and converts it on a receipt-sized page.
func (r *Renderer) PDF(ctx context.Context, bill ledger.Bill) ([]byte, error) {
	html, err := r.HTML(ctx, bill)
	if err != nil {
		return nil, err
	}
	return r.converter.RenderPage(ctx, html, report.ReceiptPage)
}

var _ ledger.ReceiptRenderer = (*Renderer)(nil)
