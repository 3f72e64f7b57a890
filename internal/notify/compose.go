// Package notify composes and sends the shop's transactional emails.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/mailer"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
)

var funcs = template.FuncMap{"inr": pricing.FormatINR}

var billTmpl = template.Must(template.New("bill").Funcs(funcs).Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #6366f1;">New Sale Notification</h2>
<p>A new sale has been completed:</p>
<div style="background: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
<p><strong>Bill ID:</strong> {{.Code}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Items:</strong> {{len .Bill.Items}}</p>
<p><strong>Total:</strong> {{inr .Bill.Total}}</p>
<p><strong>Payment:</strong> {{.Bill.PaymentMethod}}</p>
</div>
<h3>Items:</h3>
<table style="width: 100%; border-collapse: collapse;">
<tr style="background: #e5e7eb;"><th style="text-align: left;">Product</th><th>Qty</th><th style="text-align: right;">Amount</th></tr>
{{- range .Bill.Items}}
<tr><td>{{.Name}}</td><td style="text-align: center;">{{.Quantity}}</td><td style="text-align: right;">{{inr .Amount}}</td></tr>
{{- end}}
</table>
</div>`))

var lowStockTmpl = template.Must(template.New("low").Funcs(funcs).Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<div style="background: #fef3c7; padding: 20px; border-radius: 8px; border-left: 4px solid #f59e0b;">
<h2 style="color: #92400e; margin-top: 0;">Low Stock Alert</h2>
<p>The following product is running low on stock:</p>
<p><strong>Product:</strong> {{.Name}}</p>
<p><strong>Current Stock:</strong> {{.Quantity}} units</p>
<p><strong>SKU:</strong> {{if .SKU}}{{.SKU}}{{else}}N/A{{end}}</p>
<p><strong>Price:</strong> {{inr .Price}}</p>
<p>Please restock this item soon to avoid running out.</p>
</div>
</div>`))

var dailyTmpl = template.Must(template.New("daily").Funcs(funcs).Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #6366f1;">Daily Sales Report</h2>
<p>{{.LongDate}}</p>
<table style="width: 100%; margin: 20px 0;">
<tr>
<td><div style="font-size: 32px; font-weight: bold;">{{inr .Report.TotalSales}}</div><div>Total Sales</div></td>
<td><div style="font-size: 32px; font-weight: bold;">{{.Report.Transactions}}</div><div>Transactions</div></td>
<td><div style="font-size: 32px; font-weight: bold;">{{.Report.ItemsSold}}</div><div>Items Sold</div></td>
</tr>
</table>
{{- if .Rows}}
<h3>Recent Transactions</h3>
<table style="width: 100%; border-collapse: collapse;">
<tr style="background: #e5e7eb;"><th style="text-align: left;">Time</th><th>Items</th><th style="text-align: right;">Amount</th></tr>
{{- range .Rows}}
<tr><td>{{.Time}}</td><td style="text-align: center;">{{.Items}}</td><td style="text-align: right;">{{inr .Total}}</td></tr>
{{- end}}
</table>
{{- else}}
<p>No transactions today.</p>
{{- end}}
</div>`))

// Composer builds email messages in the shop's timezone.
type Composer struct {
	loc *time.Location
}

// NewComposer returns a Composer. A nil loc means UTC.
func NewComposer(loc *time.Location) Composer {
	if loc == nil {
		loc = time.UTC
	}
	return Composer{loc: loc}
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// BillSubject is "New Sale - Bill #" plus the last six id characters.
func BillSubject(bill ledger.Bill) string {
	return "New Sale - Bill #" + bill.ShortCode(6)
}

// LowStockSubject names the product running low.
func LowStockSubject(p catalog.Product) string {
	return "Low Stock Alert: " + p.Name
}

// DailySubject carries the report date as "Jan 02, 2006".
func DailySubject(day time.Time) string {
	return "Daily Sales Report - " + day.Format("Jan 02, 2006")
}

// Bill composes the new-sale email.
func (c Composer) Bill(bill ledger.Bill, profile shop.Profile) (mailer.Message, error) {
	html, err := execute(billTmpl, struct {
		Bill ledger.Bill
		Code string
		Date string
	}{bill, bill.ShortCode(6), bill.CreatedAt.In(c.loc).Format("Jan 02, 2006 15:04")})
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{To: []string{profile.Email}, FromName: profile.Name, Subject: BillSubject(bill), HTML: html}, nil
}

// LowStock composes the low-stock alert.
func (c Composer) LowStock(p catalog.Product, profile shop.Profile) (mailer.Message, error) {
	html, err := execute(lowStockTmpl, p)
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{To: []string{profile.Email}, FromName: profile.Name + " Alerts", Subject: LowStockSubject(p), HTML: html}, nil
}

type dailyRow struct {
	Time  string
	Items int
	Total float64
}

// Daily composes the end-of-day report for day.
func (c Composer) Daily(report reports.DailyReport, day time.Time, profile shop.Profile) (mailer.Message, error) {
	day = day.In(c.loc)
	rows := make([]dailyRow, 0, len(report.RecentBills))
	for _, b := range report.RecentBills {
		rows = append(rows, dailyRow{Time: b.CreatedAt.In(c.loc).Format("15:04"), Items: len(b.Items), Total: b.Total})
	}
	html, err := execute(dailyTmpl, struct {
		Report   reports.DailyReport
		LongDate string
		Rows     []dailyRow
	}{report, day.Format("Monday, January 02, 2006"), rows})
	if err != nil {
		return mailer.Message{}, err
	}
	return mailer.Message{To: []string{profile.Email}, FromName: profile.Name + " Reports", Subject: DailySubject(day), HTML: html}, nil
}
