package contracts

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
)

// JobQueue is the producer side of the job queue.
type JobQueue interface {
	Enqueue(ctx context.Context, t job.Type, payload any) error
	EnqueueDelayed(ctx context.Context, t job.Type, payload any, delay time.Duration) error
}

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
