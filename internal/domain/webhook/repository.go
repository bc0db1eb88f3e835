package webhook

import "context"

type Repository interface {
	Create(ctx context.Context, l *Log) error
	FindByID(ctx context.Context, id string) (*Log, error)
	FindForMerchant(ctx context.Context, id, merchantID string) (*Log, error)
	// SaveAttempt records a on a pending log that still has prev attempts.
	// It reports false when the log has moved on.
	SaveAttempt(ctx context.Context, id string, prev int, a Attempt) (bool, error)
	// ResetForRetry sets the log back to pending with zero attempts.
	ResetForRetry(ctx context.Context, id string) error
	ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*Log, int, error)
}
