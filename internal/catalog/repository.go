package catalog

import "context"

// Repository persists products.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	FindByBarcode(ctx context.Context, barcode string) (Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, product Product) (Product, error)
	// Update applies the patch and returns the product before and after the change.
	Update(ctx context.Context, id string, patch Patch) (Product, Product, error)
	Delete(ctx context.Context, id string) error
	// DecrementIfAvailable subtracts qty only while quantity >= qty.
	// It returns ErrInsufficientStock when the guard fails.
	DecrementIfAvailable(ctx context.Context, id string, qty int) (Product, error)
	SetQuantity(ctx context.Context, id string, qty int) (Product, error)
	// Upsert writes the product as-is, used by restore and import.
	Upsert(ctx context.Context, product Product) error
}
