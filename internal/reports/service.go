// Package reports computes sales summaries and analytics over the ledger.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
)

const (
	// DefaultWindowDays is the analytics window when none is given.
	DefaultWindowDays = 30
	// MaxWindowDays bounds the analytics window.
	MaxWindowDays = 366

	summaryTopProducts   = 5
	summaryRecentBills   = 10
	analyticsTopProducts = 10
	dailyRecentBills     = 10
)

// ErrInvalidWindow indicates an empty or oversized date window.
var ErrInvalidWindow = errors.New("reports: invalid window")

// BillReader reads the ledger.
type BillReader interface {
	List(ctx context.Context, filter ledger.ListFilter) ([]ledger.Bill, error)
	Recent(ctx context.Context, n int) ([]ledger.Bill, error)
}

// ProductSales aggregates one product name across bills.
type ProductSales struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SalesSummary is the reports landing payload.
type SalesSummary struct {
	TodaySales         float64        `json:"todaySales"`
	MonthSales         float64        `json:"monthSales"`
	TotalSales         float64        `json:"totalSales"`
	TotalTransactions  int            `json:"totalTransactions"`
	AverageTransaction float64        `json:"averageTransaction"`
	TopProducts        []ProductSales `json:"topProducts"`
	RecentBills        []ledger.Bill  `json:"recentBills"`
}

// Window is a half-open date range [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DayPoint is one day of the revenue trend.
type DayPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// Analytics is the advanced analytics payload.
type Analytics struct {
	Window             Window         `json:"window"`
	Revenue            float64        `json:"revenue"`
	Transactions       int            `json:"transactions"`
	AverageTransaction float64        `json:"averageTransaction"`
	TopProducts        []ProductSales `json:"topProducts"`
	Trend              []DayPoint     `json:"trend"`
	PaymentMethods     map[string]int `json:"paymentMethods"`
	Hourly             [24]float64    `json:"hourly"`
}

// DailyReport summarises one calendar day.
type DailyReport struct {
	Date         string        `json:"date"`
	TotalSales   float64       `json:"totalSales"`
	Transactions int           `json:"transactions"`
	ItemsSold    int           `json:"itemsSold"`
	RecentBills  []ledger.Bill `json:"recentBills"`
}

// Service coordinates report computation with the cache layer.
type Service struct {
	bills BillReader
	cache *Cache
	loc   *time.Location
	now   func() time.Time
}

// NewService wires the ledger reader with a cache. Calendar boundaries are cut in loc.
func NewService(bills BillReader, cache *Cache, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{bills: bills, cache: cache, loc: loc, now: time.Now}
}

// WithClock overrides time.Now, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Location returns the reporting timezone.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) startOfDay(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

// LastDays returns the window covering today and the days-1 days before it.
func (s *Service) LastDays(days int) (Window, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if days > MaxWindowDays {
		return Window{}, fmt.Errorf("%w: at most %d days", ErrInvalidWindow, MaxWindowDays)
	}
	end := s.startOfDay(s.now()).AddDate(0, 0, 1)
	return Window{From: end.AddDate(0, 0, -days), To: end}, nil
}

// Dates returns the window covering the calendar days from..to inclusive.
func (s *Service) Dates(from, to time.Time) (Window, error) {
	w := Window{From: s.startOfDay(from), To: s.startOfDay(to).AddDate(0, 0, 1)}
	if !w.From.Before(w.To) {
		return Window{}, fmt.Errorf("%w: from must not be after to", ErrInvalidWindow)
	}
	if w.To.Sub(w.From) > MaxWindowDays*24*time.Hour+time.Hour {
		return Window{}, fmt.Errorf("%w: at most %d days", ErrInvalidWindow, MaxWindowDays)
	}
	return w, nil
}

// SalesSummary returns today, month and all-time totals plus top sellers.
func (s *Service) SalesSummary(ctx context.Context) (SalesSummary, error) {
	today := s.startOfDay(s.now())
	key, err := s.cache.BuildKey(ctx, "summary", today.Format("2006-01-02"))
	if err != nil {
		return SalesSummary{}, err
	}
	var out SalesSummary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.computeSummary(ctx, today)
	})
	return out, err
}

func (s *Service) computeSummary(ctx context.Context, today time.Time) (SalesSummary, error) {
	var all, recent []ledger.Bill
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.bills.List(gctx, ledger.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.bills.Recent(gctx, summaryRecentBills)
		return err
	})
	if err := g.Wait(); err != nil {
		return SalesSummary{}, fmt.Errorf("reports: summary: %w", err)
	}

	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
	tomorrow := today.AddDate(0, 0, 1)
	var out SalesSummary
	for _, b := range all {
		out.TotalSales += b.Total
		at := b.CreatedAt.In(s.loc)
		if !at.Before(today) && at.Before(tomorrow) {
			out.TodaySales += b.Total
		}
		if !at.Before(month) && at.Before(month.AddDate(0, 1, 0)) {
			out.MonthSales += b.Total
		}
	}
	out.TotalTransactions = len(all)
	if len(all) > 0 {
		out.AverageTransaction = pricing.Round2(out.TotalSales / float64(len(all)))
	}
	out.TodaySales = pricing.Round2(out.TodaySales)
	out.MonthSales = pricing.Round2(out.MonthSales)
	out.TotalSales = pricing.Round2(out.TotalSales)
	out.TopProducts = topProducts(all, summaryTopProducts, byQuantity)
	if recent == nil {
		recent = []ledger.Bill{}
	}
	out.RecentBills = recent
	return out, nil
}

// Analytics computes revenue figures for the window.
func (s *Service) Analytics(ctx context.Context, w Window) (Analytics, error) {
	if !w.From.Before(w.To) {
		return Analytics{}, ErrInvalidWindow
	}
	key, err := s.cache.BuildKey(ctx, "analytics", w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339))
	if err != nil {
		return Analytics{}, err
	}
	var out Analytics
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		bills, err := s.bills.List(ctx, ledger.ListFilter{From: w.From, To: w.To})
		if err != nil {
			return nil, fmt.Errorf("reports: analytics: %w", err)
		}
		return s.computeAnalytics(w, bills), nil
	})
	return out, err
}

func (s *Service) computeAnalytics(w Window, bills []ledger.Bill) Analytics {
	out := Analytics{Window: w, Transactions: len(bills), PaymentMethods: map[string]int{}}
	daily := map[string]float64{}
	for _, b := range bills {
		out.Revenue += b.Total
		at := b.CreatedAt.In(s.loc)
		daily[at.Format("2006-01-02")] += b.Total
		out.Hourly[at.Hour()] += b.Total
		out.PaymentMethods[string(b.PaymentMethod)]++
	}
	if len(bills) > 0 {
		out.AverageTransaction = pricing.Round2(out.Revenue / float64(len(bills)))
	}
	out.Revenue = pricing.Round2(out.Revenue)
	for day := s.startOfDay(w.From); day.Before(w.To); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		out.Trend = append(out.Trend, DayPoint{Date: key, Revenue: pricing.Round2(daily[key])})
	}
	for i := range out.Hourly {
		out.Hourly[i] = pricing.Round2(out.Hourly[i])
	}
	out.TopProducts = topProducts(bills, analyticsTopProducts, byRevenue)
	return out
}

// DailyReport summarises the calendar day containing day.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (DailyReport, error) {
	from := s.startOfDay(day)
	bills, err := s.bills.List(ctx, ledger.ListFilter{From: from, To: from.AddDate(0, 0, 1)})
	if err != nil {
		return DailyReport{}, fmt.Errorf("reports: daily: %w", err)
	}
	out := DailyReport{Date: from.Format("2006-01-02"), Transactions: len(bills), RecentBills: []ledger.Bill{}}
	for _, b := range bills {
		out.TotalSales += b.Total
		out.ItemsSold += b.Units()
	}
	out.TotalSales = pricing.Round2(out.TotalSales)
	for i := len(bills) - 1; i >= 0 && len(out.RecentBills) < dailyRecentBills; i-- {
		out.RecentBills = append(out.RecentBills, bills[i])
	}
	return out, nil
}

type ranking func(a, b ProductSales) bool

func byQuantity(a, b ProductSales) bool {
	if a.Quantity != b.Quantity {
		return a.Quantity > b.Quantity
	}
	return a.Name < b.Name
}

func byRevenue(a, b ProductSales) bool {
	if a.Revenue != b.Revenue {
		return a.Revenue > b.Revenue
	}
	return a.Name < b.Name
}

// topProducts groups bill items by name, since bills keep only a name snapshot.
func topProducts(bills []ledger.Bill, n int, less ranking) []ProductSales {
	agg := map[string]*ProductSales{}
	for _, b := range bills {
		for _, it := range b.Items {
			ps, ok := agg[it.Name]
			if !ok {
				ps = &ProductSales{Name: it.Name}
				agg[it.Name] = ps
			}
			ps.Quantity += it.Quantity
			ps.Revenue += it.Amount()
		}
	}
	out := make([]ProductSales, 0, len(agg))
	for _, ps := range agg {
		ps.Revenue = pricing.Round2(ps.Revenue)
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
