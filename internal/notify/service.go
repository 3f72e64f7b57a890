package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/mailer"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
)

// ErrNoRecipient means the shop profile has no email address, so nothing is sent.
var ErrNoRecipient = errors.New("notify: shop email not configured")

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// ProfileSource loads the shop profile.
type ProfileSource interface {
	Get(ctx context.Context) (shop.Profile, error)
}

// BillGetter loads a bill by id.
type BillGetter interface {
	Get(ctx context.Context, id string) (ledger.Bill, error)
}

// ProductGetter loads a product by id.
type ProductGetter interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// DailyReporter computes the end-of-day summary.
type DailyReporter interface {
	DailyReport(ctx context.Context, day time.Time) (reports.DailyReport, error)
}

// Deps wires a Service. Receipts is optional; when set the bill email carries the PDF.
type Deps struct {
	Sender   Sender
	Profiles ProfileSource
	Bills    BillGetter
	Products ProductGetter
	Reports  DailyReporter
	Receipts ledger.ReceiptRenderer
	Location *time.Location
	Logger   *slog.Logger
}

// Service loads the data behind each email and sends it.
type Service struct {
	deps     Deps
	composer Composer
}

// NewService constructs a Service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, composer: NewComposer(deps.Location)}
}

func (s *Service) recipient(ctx context.Context) (shop.Profile, error) {
	profile, err := s.deps.Profiles.Get(ctx)
	if err != nil {
		return shop.Profile{}, fmt.Errorf("notify: load shop: %w", err)
	}
	if profile.Email == "" {
		return shop.Profile{}, ErrNoRecipient
	}
	return profile, nil
}

// SendBill emails the new-sale notification for billID.
func (s *Service) SendBill(ctx context.Context, billID string) error {
	profile, err := s.recipient(ctx)
	if err != nil {
		return err
	}
	bill, err := s.deps.Bills.Get(ctx, billID)
	if err != nil {
		return fmt.Errorf("notify: load bill: %w", err)
	}
	msg, err := s.composer.Bill(bill, profile)
	if err != nil {
		return err
	}
	if s.deps.Receipts != nil {
		pdf, err := s.deps.Receipts.PDF(ctx, bill)
		if err != nil {
			s.deps.Logger.Warn("attach receipt", slog.String("bill_id", bill.ID), slog.Any("error", err))
		} else {
			msg.Attachments = append(msg.Attachments, mailer.Attachment{
				Name:        "receipt-" + bill.ShortCode(8) + ".pdf",
				ContentType: "application/pdf",
				Content:     pdf,
			})
		}
	}
	return s.deps.Sender.Send(ctx, msg)
}

// SendLowStock emails the low-stock alert for productID with its current quantity.
func (s *Service) SendLowStock(ctx context.Context, productID string) error {
	profile, err := s.recipient(ctx)
	if err != nil {
		return err
	}
	product, err := s.deps.Products.Get(ctx, productID)
	if err != nil {
		return fmt.Errorf("notify: load product: %w", err)
	}
	msg, err := s.composer.LowStock(product, profile)
	if err != nil {
		return err
	}
	return s.deps.Sender.Send(ctx, msg)
}

// SendDailyReport emails the summary of the day containing day.
func (s *Service) SendDailyReport(ctx context.Context, day time.Time) error {
	profile, err := s.recipient(ctx)
	if err != nil {
		return err
	}
	report, err := s.deps.Reports.DailyReport(ctx, day)
	if err != nil {
		return err
	}
	msg, err := s.composer.Daily(report, day, profile)
	if err != nil {
		return err
	}
	return s.deps.Sender.Send(ctx, msg)
}
