package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-pos/internal/barcode"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Reader is the read side used by cart and checkout.
type Reader interface {
	Get(ctx context.Context, id string) (Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
}

// AlertSink receives products whose stock crossed the low-stock threshold.
type AlertSink interface {
	LowStock(ctx context.Context, change StockChange) error
}

// Input carries the fields of a new product.
type Input struct {
	Name            string  `json:"name"`
	SKU             string  `json:"sku"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Barcode         string  `json:"barcode"`
	GenerateBarcode bool    `json:"generateBarcode"`
}

// Service implements product management.
type Service struct {
	repo     Repository
	validate *validator.Validate
	audit    shared.AuditRecorder
	alerts   AlertSink
	logger   *slog.Logger
	barcodes barcode.Source
	now      func() time.Time
}

// ServiceOption customises Service.
type ServiceOption func(*Service)

// WithAudit records product mutations.
func WithAudit(recorder shared.AuditRecorder) ServiceOption {
	return func(s *Service) { s.audit = recorder }
}

// WithAlerts routes threshold crossings to sink.
func WithAlerts(sink AlertSink) ServiceOption {
	return func(s *Service) { s.alerts = sink }
}

// WithBarcodeSource overrides the randomness used for generated barcodes.
func WithBarcodeSource(src barcode.Source) ServiceOption {
	return func(s *Service) { s.barcodes = src }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs the catalog service.
func NewService(repo Repository, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

// GetMany returns the products that still exist among ids.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	return s.repo.GetMany(ctx, ids)
}

// FindByBarcode resolves a scanned barcode.
func (s *Service) FindByBarcode(ctx context.Context, code string) (Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Product{}, ErrNotFound
	}
	return s.repo.FindByBarcode(ctx, code)
}

// Categories lists distinct categories.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (Product, error) {
	now := s.now().UTC()
	p := Product{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		SKU:       strings.ToUpper(strings.TrimSpace(in.SKU)),
		Category:  strings.TrimSpace(in.Category),
		Price:     in.Price,
		Quantity:  in.Quantity,
		Barcode:   strings.TrimSpace(in.Barcode),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Barcode == "" && in.GenerateBarcode {
		p.Barcode = barcode.Generate(s.barcodes)
	}
	if err := s.validate.Struct(p); err != nil {
		return Product{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	if err := s.ensureBarcodeFree(ctx, p.Barcode, ""); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actorID,
		Action:   "product.create",
		Entity:   "product",
		EntityID: created.ID,
		Meta:     map[string]any{"name": created.Name, "quantity": created.Quantity},
	})
	return created, nil
}

// Update applies a partial change. A quantity moving from above the
// low-stock threshold to at or below it is forwarded to the alert sink.
func (s *Service) Update(ctx context.Context, actorID, id string, patch Patch) (Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name required", ErrInvalidProduct)
		}
		patch.Name = &name
	}
	if patch.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*patch.SKU))
		patch.SKU = &sku
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		patch.Category = &category
	}
	if patch.Barcode != nil {
		code := strings.TrimSpace(*patch.Barcode)
		patch.Barcode = &code
	}
	if err := s.validate.Struct(patch); err != nil {
		return Product{}, fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	if patch.Empty() {
		return s.repo.Get(ctx, id)
	}
	if patch.Barcode != nil {
		if err := s.ensureBarcodeFree(ctx, *patch.Barcode, id); err != nil {
			return Product{}, err
		}
	}
	before, after, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return Product{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actorID,
		Action:   "product.update",
		Entity:   "product",
		EntityID: id,
		Meta:     map[string]any{"quantity_before": before.Quantity, "quantity_after": after.Quantity},
	})
	s.NotifyStockChanges(ctx, []StockChange{{Product: after, Before: before.Quantity, After: after.Quantity}})
	return after, nil
}

// Delete removes a product. Bills referencing it are left untouched.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actorID,
		Action:   "product.delete",
		Entity:   "product",
		EntityID: id,
	})
	return nil
}

// NotifyStockChanges forwards threshold crossings to the alert sink and
// returns the products that crossed.
func (s *Service) NotifyStockChanges(ctx context.Context, changes []StockChange) []Product {
	var crossed []Product
	for _, c := range changes {
		if !CrossedLowStock(c.Before, c.After) {
			continue
		}
		crossed = append(crossed, c.Product)
		if s.alerts == nil {
			continue
		}
		if err := s.alerts.LowStock(ctx, c); err != nil {
			s.logger.Warn("low stock alert", slog.String("product_id", c.Product.ID), slog.Any("error", err))
		}
	}
	return crossed
}

func (s *Service) ensureBarcodeFree(ctx context.Context, code, selfID string) error {
	if code == "" {
		return nil
	}
	existing, err := s.repo.FindByBarcode(ctx, code)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return ErrDuplicateBarcode
	}
	return nil
}
