package checkout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/odyssey-erp/odyssey-pos/internal/cart"
	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const idempotencyModule = "checkout"

// CartStore loads and clears per-user carts.
type CartStore interface {
	Load(ctx context.Context, userID string) (cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// TaxFlag reports whether tax applies for a user.
type TaxFlag interface {
	TaxEnabled(ctx context.Context, userID string) (bool, error)
}

// Hook runs after a sale committed. Failures are logged and never undo the sale.
type Hook interface {
	AfterCheckout(ctx context.Context, result Result) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, result Result) error

// AfterCheckout implements Hook.
func (f HookFunc) AfterCheckout(ctx context.Context, result Result) error {
	return f(ctx, result)
}

// Recorder receives checkout metrics.
type Recorder interface {
	CheckoutOutcome(outcome string)
	SaleCompleted(total float64, units int)
	StockSkipped(reason string, count int)
}

// Request is a checkout submission.
type Request struct {
	UserID         string
	Payment        Payment
	IdempotencyKey string
}

// Review is the cart shown before payment.
type Review struct {
	Lines  []cart.Line    `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// Config wires a Service.
type Config struct {
	Carts       CartStore
	Stock       Stock
	Ledger      Ledger
	Tax         TaxFlag
	LastBills   *LastBillStore
	Idempotency shared.IdempotencyGuard
	Audit       shared.AuditRecorder
	Metrics     Recorder
	Guard       StockGuard
	Logger      *slog.Logger
	Hooks       []Hook
}

// Service runs checkouts for authenticated cashiers.
type Service struct {
	cfg Config
}

// NewService constructs a Service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{cfg: cfg}
}

func (s *Service) taxEnabled(ctx context.Context, userID string) (bool, error) {
	if s.cfg.Tax == nil {
		return true, nil
	}
	return s.cfg.Tax.TaxEnabled(ctx, userID)
}

func (s *Service) coordinator(taxOn bool, userID string) *Coordinator {
	return NewCoordinator(Deps{
		Stock:  s.cfg.Stock,
		Ledger: s.cfg.Ledger,
		Guard:  s.cfg.Guard,
		Logger: s.cfg.Logger,
	}, taxOn, userID)
}

// Review returns the totals the customer is about to pay.
func (s *Service) Review(ctx context.Context, userID string) (Review, error) {
	current, err := s.cfg.Carts.Load(ctx, userID)
	if err != nil {
		return Review{}, err
	}
	taxOn, err := s.taxEnabled(ctx, userID)
	if err != nil {
		return Review{}, err
	}
	coord := s.coordinator(taxOn, userID)
	if err := coord.Begin(current); err != nil {
		return Review{}, err
	}
	totals, err := coord.Quote()
	if err != nil {
		return Review{}, err
	}
	_ = coord.Cancel()
	return Review{Lines: current.Lines(), Totals: totals}, nil
}

// Checkout commits the user's cart.
func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	logger := s.cfg.Logger.With(slog.String("user_id", req.UserID))

	if req.IdempotencyKey != "" && s.cfg.Idempotency != nil {
		if err := s.cfg.Idempotency.CheckAndInsert(ctx, req.IdempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.outcome("duplicate")
				return Result{}, ErrDuplicateSubmission
			}
			return Result{}, err
		}
	}

	result, err := s.run(ctx, req)
	if err != nil {
		s.outcome(outcomeFor(err))
		// Keys stay claimed once stores were touched so a retry cannot decrement twice.
		if !errors.Is(err, ErrCommitFailed) && req.IdempotencyKey != "" && s.cfg.Idempotency != nil {
			if delErr := s.cfg.Idempotency.Delete(ctx, req.IdempotencyKey, idempotencyModule); delErr != nil {
				logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return result, err
	}

	s.outcome("completed")
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SaleCompleted(result.Bill.Total, result.Bill.Units())
		s.cfg.Metrics.StockSkipped("insufficient", len(result.Skipped))
		s.cfg.Metrics.StockSkipped("missing", len(result.Dropped))
	}

	if err := s.cfg.Carts.Clear(ctx, req.UserID); err != nil {
		logger.Error("clear cart after checkout", slog.Any("error", err))
	}
	if s.cfg.LastBills != nil {
		if err := s.cfg.LastBills.Set(ctx, req.UserID, result.Bill); err != nil {
			logger.Error("store last bill", slog.Any("error", err))
		}
	}
	shared.RecordAudit(ctx, s.cfg.Audit, logger, shared.AuditLog{
		ActorID:  req.UserID,
		Action:   "sale.complete",
		Entity:   "bill",
		EntityID: result.Bill.ID,
		Meta: map[string]any{
			"total":   result.Bill.Total,
			"items":   len(result.Bill.Items),
			"skipped": len(result.Skipped),
			"dropped": len(result.Dropped),
		},
	})
	for _, hook := range s.cfg.Hooks {
		if err := hook.AfterCheckout(ctx, result); err != nil {
			logger.Warn("post checkout hook", slog.String("bill_id", result.Bill.ID), slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, req Request) (Result, error) {
	current, err := s.cfg.Carts.Load(ctx, req.UserID)
	if err != nil {
		return Result{}, err
	}
	taxOn, err := s.taxEnabled(ctx, req.UserID)
	if err != nil {
		return Result{}, err
	}
	coord := s.coordinator(taxOn, req.UserID)
	if err := coord.Begin(current); err != nil {
		return Result{}, err
	}
	return coord.Submit(ctx, req.Payment)
}

// LastBill returns the most recent bill completed by userID.
func (s *Service) LastBill(ctx context.Context, userID string) (ledger.Bill, error) {
	if s.cfg.LastBills == nil {
		return ledger.Bill{}, ErrNoLastBill
	}
	return s.cfg.LastBills.Get(ctx, userID)
}

func (s *Service) outcome(outcome string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.CheckoutOutcome(outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, ErrInvalidPaymentMethod):
		return "invalid_payment_method"
	case errors.Is(err, ErrCommitFailed):
		return "commit_failed"
	default:
		return "error"
	}
}
