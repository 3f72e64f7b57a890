package cart

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/pricing"
)

// ProductReader resolves catalog products by id.
type ProductReader interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// TaxFlag reports whether tax applies for a user.
type TaxFlag interface {
	TaxEnabled(ctx context.Context, userID string) (bool, error)
}

// View is the cart together with its computed totals.
type View struct {
	Lines  []Line         `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// Service composes the store, the catalog and the engine.
type Service struct {
	store    *Store
	products ProductReader
	tax      TaxFlag
}

// NewService constructs a Service.
func NewService(store *Store, products ProductReader, tax TaxFlag) *Service {
	return &Service{store: store, products: products, tax: tax}
}

// Load returns the current cart.
func (s *Service) Load(ctx context.Context, userID string) (Cart, error) {
	return s.store.Load(ctx, userID)
}

// View returns the cart and its totals.
func (s *Service) View(ctx context.Context, userID string) (View, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, userID, c)
}

// Add puts one unit of productID in the cart using the live catalog quantity as ceiling.
func (s *Service) Add(ctx context.Context, userID, productID string) (View, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	snapshot, err := s.snapshot(ctx, productID)
	if err != nil {
		return View{}, err
	}
	next, err := c.Add(snapshot)
	if err != nil {
		return View{}, err
	}
	return s.save(ctx, userID, next)
}

// ChangeQuantity applies delta to the line for productID.
func (s *Service) ChangeQuantity(ctx context.Context, userID, productID string, delta int) (View, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	next, err := c.ChangeQuantity(productID, delta)
	if err != nil {
		return View{}, err
	}
	return s.save(ctx, userID, next)
}

// Remove drops the line for productID.
func (s *Service) Remove(ctx context.Context, userID, productID string) (View, error) {
	c, err := s.store.Load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.save(ctx, userID, c.Remove(productID))
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) (View, error) {
	if err := s.store.Clear(ctx, userID); err != nil {
		return View{}, err
	}
	return s.view(ctx, userID, Cart{})
}

func (s *Service) snapshot(ctx context.Context, productID string) (*ProductSnapshot, error) {
	if productID == "" {
		return nil, ErrUnknownProduct
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrUnknownProduct
		}
		return nil, err
	}
	return &ProductSnapshot{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: p.Quantity}, nil
}

func (s *Service) save(ctx context.Context, userID string, c Cart) (View, error) {
	if err := s.store.Save(ctx, userID, c); err != nil {
		return View{}, err
	}
	return s.view(ctx, userID, c)
}

func (s *Service) view(ctx context.Context, userID string, c Cart) (View, error) {
	taxOn := true
	if s.tax != nil {
		on, err := s.tax.TaxEnabled(ctx, userID)
		if err != nil {
			return View{}, err
		}
		taxOn = on
	}
	lines := c.Lines()
	return View{Lines: lines, Totals: pricing.Compute(lines, taxOn)}, nil
}
