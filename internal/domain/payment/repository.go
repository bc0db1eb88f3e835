package payment

import (
	"context"
	"time"
)

// Stats aggregates a merchant's payments.
type Stats struct {
	Total         int64
	Successful    int64
	SuccessAmount int64
}

type Repository interface {
	Save(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	FindForMerchant(ctx context.Context, id, merchantID string) (*Payment, error)
	// Settle moves a pending payment to a terminal status. It reports false
	// when the payment was no longer pending.
	Settle(ctx context.Context, id string, status Status, errorCode, errorDescription string, at time.Time) (bool, error)
	// MarkCaptured flips captured for a successful, uncaptured payment. It
	// reports false when the payment was not in that state.
	MarkCaptured(ctx context.Context, id string, at time.Time) (bool, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]*Payment, error)
	Stats(ctx context.Context, merchantID string) (Stats, error)
}
