package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
)

// EnqueueWebhook wraps data in the event envelope and schedules its delivery.
func EnqueueWebhook(ctx context.Context, q contracts.JobQueue, merchantID, event string, at time.Time, data any) error {
	body, err := json.Marshal(webhook.NewEnvelope(event, at, data))
	if err != nil {
		return fmt.Errorf("encode %s webhook: %w", event, err)
	}

	return q.Enqueue(ctx, job.DeliverWebhook, job.DeliverWebhookPayload{
		MerchantID: merchantID,
		Event:      event,
		Payload:    body,
	})
}
