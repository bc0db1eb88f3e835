package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	domainWebhook "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type LogSummary struct {
	ID            string               `json:"id"`
	Event         string               `json:"event"`
	Status        domainWebhook.Status `json:"status"`
	Attempts      int                  `json:"attempts"`
	CreatedAt     time.Time            `json:"created_at"`
	LastAttemptAt *time.Time           `json:"last_attempt_at"`
	NextRetryAt   *time.Time           `json:"next_retry_at"`
	ResponseCode  *int                 `json:"response_code"`
}

type ListResult struct {
	Data   []LogSummary `json:"data"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type RetryResult struct {
	ID      string               `json:"id"`
	Status  domainWebhook.Status `json:"status"`
	Message string               `json:"message"`
}

type Service struct {
	Logs   domainWebhook.Repository
	Queue  contracts.JobQueue
	Clock  contracts.Clock
	Logger logging.Logger
}

// List pages through a merchant's webhook logs, newest first. A limit of 0
// means DefaultLimit.
func (s *Service) List(ctx context.Context, merchantID string, limit, offset int) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := s.Logs.ListByMerchant(ctx, merchantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list webhook logs: %w", err)
	}

	out := &ListResult{Data: make([]LogSummary, 0, len(logs)), Total: total, Limit: limit, Offset: offset}
	for _, l := range logs {
		out.Data = append(out.Data, LogSummary{
			ID:            l.ID,
			Event:         l.Event,
			Status:        l.Status,
			Attempts:      l.Attempts,
			CreatedAt:     l.CreatedAt,
			LastAttemptAt: l.LastAttemptAt,
			NextRetryAt:   l.NextRetryAt,
			ResponseCode:  l.ResponseCode,
		})
	}
	return out, nil
}

// Retry resets a log to pending with no attempts and schedules a fresh
// delivery of the stored payload.
func (s *Service) Retry(ctx context.Context, merchantID, id string) (*RetryResult, error) {
	l, err := s.Logs.FindForMerchant(ctx, id, merchantID)
	if errors.Is(err, domainWebhook.ErrNotFound) {
		return nil, apperr.NotFound("Webhook log not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find webhook log: %w", err)
	}

	if err := s.Logs.ResetForRetry(ctx, l.ID); err != nil {
		return nil, fmt.Errorf("reset webhook log %s: %w", l.ID, err)
	}

	err = s.Queue.Enqueue(ctx, job.DeliverWebhook, job.DeliverWebhookPayload{
		MerchantID:   l.MerchantID,
		Event:        l.Event,
		Payload:      l.Payload,
		WebhookLogID: l.ID,
		Attempt:      0,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue webhook retry %s: %w", l.ID, err)
	}

	s.Logger.Info("webhook retry scheduled", map[string]any{
		"webhook_log_id": l.ID,
		"merchant_id":    merchantID,
		"event":          l.Event,
	})

	return &RetryResult{ID: l.ID, Status: domainWebhook.StatusPending, Message: "Webhook retry scheduled"}, nil
}

// SendTest schedules a test.event delivery to the merchant's webhook URL.
func (s *Service) SendTest(ctx context.Context, merchantID string) error {
	now := s.Clock.Now()
	data := map[string]any{
		"message":      "This is a test webhook from the dashboard",
		"triggered_at": now,
	}
	if err := worker.EnqueueWebhook(ctx, s.Queue, merchantID, domainWebhook.EventTest, now, data); err != nil {
		return err
	}

	s.Logger.Info("test webhook scheduled", map[string]any{"merchant_id": merchantID})
	return nil
}
