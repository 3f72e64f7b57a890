package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/backup"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/notify"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/mailer"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Notifier sends the shop emails.
type Notifier interface {
	SendBill(ctx context.Context, billID string) error
	SendLowStock(ctx context.Context, productID string) error
	SendDailyReport(ctx context.Context, day time.Time) error
}

// Backups runs and prunes snapshots.
type Backups interface {
	Run(ctx context.Context) (backup.Entry, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Sender delivers a raw message.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Handlers implements every task type. Nil collaborators make their tasks fail without retry.
type Handlers struct {
	Notifier  Notifier
	Backups   Backups
	Mail      Sender
	Retention time.Duration
	Location  *time.Location
	Metrics   *jobmetrics.Metrics
	Logger    *slog.Logger
	clock     func() time.Time
}

// TaskHandlers lists the mux registrations.
func (h *Handlers) TaskHandlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskTypeSendEmail, Handler: h.HandleSendEmail},
		{Type: TaskBillMail, Handler: h.HandleBillMail},
		{Type: TaskLowStockAlert, Handler: h.HandleLowStock},
		{Type: TaskDailySales, Handler: h.HandleDailySales},
		{Type: TaskWeeklyBackup, Handler: h.HandleBackup},
	}
}

func (h *Handlers) logger(job string) *slog.Logger {
	base := h.Logger
	if base == nil {
		base = slog.Default()
	}
	return base.With(slog.String("job", job))
}

func (h *Handlers) metrics() *jobmetrics.Metrics {
	if h.Metrics != nil {
		return h.Metrics
	}
	return defaultJobMetrics
}

func (h *Handlers) now() time.Time {
	if h.clock != nil {
		return h.clock()
	}
	return time.Now()
}

func (h *Handlers) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.UTC
}

func decode(t *asynq.Task, target any) error {
	if err := json.Unmarshal(t.Payload(), target); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func notConfigured(what string) error {
	return fmt.Errorf("%s not configured: %w", what, asynq.SkipRetry)
}

// settle maps delivery outcomes that retrying cannot fix.
func settle(logger *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notify.ErrNoRecipient):
		logger.Info("skipped: shop email not configured")
		return nil
	case errors.Is(err, mailer.ErrNotConfigured):
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (h *Handlers) HandleSendEmail(ctx context.Context, t *asynq.Task) (err error) {
	var payload SendEmailPayload
	if err := decode(t, &payload); err != nil {
		return err
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("send email: recipient required: %w", asynq.SkipRetry)
	}
	if h.Mail == nil {
		return notConfigured("mailer")
	}
	tracker := h.metrics().Track(TaskTypeSendEmail)
	defer func() { err = tracker.End(err) }()

	logger := h.logger(TaskTypeSendEmail)
	err = settle(logger, h.Mail.Send(ctx, mailer.Message{To: []string{payload.To}, Subject: payload.Subject, HTML: payload.Body}))
	if err == nil {
		h.metrics().AddItems(TaskTypeSendEmail, "email", 1)
	}
	return err
}

// HandleBillMail processes TaskBillMail tasks.
func (h *Handlers) HandleBillMail(ctx context.Context, t *asynq.Task) (err error) {
	var payload BillMailPayload
	if err := decode(t, &payload); err != nil {
		return err
	}
	if payload.BillID == "" {
		return fmt.Errorf("bill mail: bill id required: %w", asynq.SkipRetry)
	}
	if h.Notifier == nil {
		return notConfigured("notifier")
	}
	tracker := h.metrics().Track(TaskBillMail)
	defer func() { err = tracker.End(err) }()

	logger := h.logger(TaskBillMail).With(slog.String("bill_id", payload.BillID))
	if err = settle(logger, h.Notifier.SendBill(ctx, payload.BillID)); err != nil {
		logger.Error("send bill email", slog.Any("error", err))
		return err
	}
	logger.Info("bill email processed")
	return nil
}

// HandleLowStock processes TaskLowStockAlert tasks.
func (h *Handlers) HandleLowStock(ctx context.Context, t *asynq.Task) (err error) {
	var payload LowStockPayload
	if err := decode(t, &payload); err != nil {
		return err
	}
	if payload.ProductID == "" {
		return fmt.Errorf("low stock: product id required: %w", asynq.SkipRetry)
	}
	if h.Notifier == nil {
		return notConfigured("notifier")
	}
	tracker := h.metrics().Track(TaskLowStockAlert)
	defer func() { err = tracker.End(err) }()

	logger := h.logger(TaskLowStockAlert).With(slog.String("product_id", payload.ProductID))
	if err = settle(logger, h.Notifier.SendLowStock(ctx, payload.ProductID)); err != nil {
		logger.Error("send low stock alert", slog.Any("error", err))
		return err
	}
	return nil
}

// HandleDailySales processes TaskDailySales tasks.
func (h *Handlers) HandleDailySales(ctx context.Context, t *asynq.Task) (err error) {
	var payload DailySalesPayload
	if err := decode(t, &payload); err != nil {
		return err
	}
	day := h.now().In(h.location())
	if payload.Date != "" {
		parsed, perr := time.ParseInLocation(time.DateOnly, payload.Date, h.location())
		if perr != nil {
			return fmt.Errorf("daily sales: date %q: %w", payload.Date, asynq.SkipRetry)
		}
		day = parsed
	}
	if h.Notifier == nil {
		return notConfigured("notifier")
	}
	tracker := h.metrics().Track(TaskDailySales)
	defer func() { err = tracker.End(err) }()

	logger := h.logger(TaskDailySales).With(slog.String("date", day.Format(time.DateOnly)))
	if err = settle(logger, h.Notifier.SendDailyReport(ctx, day)); err != nil {
		logger.Error("send daily report", slog.Any("error", err))
		return err
	}
	logger.Info("daily report processed")
	return nil
}

// HandleBackup processes TaskWeeklyBackup tasks.
func (h *Handlers) HandleBackup(ctx context.Context, t *asynq.Task) (err error) {
	var payload BackupPayload
	if err := decode(t, &payload); err != nil {
		return err
	}
	if h.Backups == nil {
		return notConfigured("backups")
	}
	tracker := h.metrics().Track(TaskWeeklyBackup)
	defer func() { err = tracker.End(err) }()

	logger := h.logger(TaskWeeklyBackup)
	entry, err := h.Backups.Run(ctx)
	if err != nil {
		logger.Error("run backup", slog.Any("error", err))
		return err
	}
	retention := h.Retention
	if retention <= 0 {
		retention = backup.DefaultRetention
	}
	removed, err := h.Backups.Prune(ctx, h.now().Add(-retention))
	if err != nil {
		logger.Error("prune backups", slog.Any("error", err))
		return err
	}
	h.metrics().AddItems(TaskWeeklyBackup, "pruned", removed)
	logger.Info("backup completed", slog.String("backup_id", entry.ID), slog.Int("pruned", removed))
	return nil
}
