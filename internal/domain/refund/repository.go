package refund

import (
	"context"
	"time"
)

type Repository interface {
	Save(ctx context.Context, r *Refund) error
	FindByID(ctx context.Context, id string) (*Refund, error)
	FindForMerchant(ctx context.Context, id, merchantID string) (*Refund, error)
	// SumActive totals pending and processed refunds of a payment, leaving
	// out excludeID. An empty excludeID counts every refund.
	SumActive(ctx context.Context, paymentID, excludeID string) (int64, error)
	// MarkProcessed reports false when the refund was no longer pending.
	MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string) (bool, error)
}
