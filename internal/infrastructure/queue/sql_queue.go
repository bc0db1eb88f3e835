package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
)

// SQLQueue writes jobs to the jobs table. A Dispatcher delivers them.
type SQLQueue struct {
	Repo  Repository
	Clock contracts.Clock
}

func (q *SQLQueue) Enqueue(ctx context.Context, t job.Type, payload any) error {
	return q.EnqueueDelayed(ctx, t, payload, 0)
}

func (q *SQLQueue) EnqueueDelayed(ctx context.Context, t job.Type, payload any, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", t, err)
	}

	now := q.Clock.Now()

	return q.Repo.Insert(ctx, Record{
		ID:          ids.UUID(),
		Type:        t,
		Payload:     body,
		Status:      StatusQueued,
		AvailableAt: now.Add(delay),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
