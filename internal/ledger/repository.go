package ledger

import "context"

// Repository persists bills. Implementations never update a stored bill.
type Repository interface {
	Append(ctx context.Context, bill Bill) error
	// List returns bills in creation order, oldest first.
	List(ctx context.Context, filter ListFilter) ([]Bill, error)
	Get(ctx context.Context, id string) (Bill, error)
	// Recent returns up to n bills, newest first.
	Recent(ctx context.Context, n int) ([]Bill, error)
	// Upsert writes a bill by id, used by restore.
	Upsert(ctx context.Context, bill Bill) error
}
