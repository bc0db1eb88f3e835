package order

import "context"

type Repository interface {
	Save(ctx context.Context, o *Order) error
	// FindForMerchant returns ErrNotFound when the order does not exist or
	// belongs to another merchant.
	FindForMerchant(ctx context.Context, id, merchantID string) (*Order, error)
}
