package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

// WebhookSender POSTs a signed body. Transport failures are reported in the
// returned Delivery, never as an error.
type WebhookSender interface {
	Send(ctx context.Context, url string, body []byte, signature string) webhook.Delivery
}

// WebhookDeliverer delivers one attempt of a webhook log and schedules the
// next one when the attempt failed. A job whose attempt number no longer
// matches the log is dropped, so redelivered jobs never fork a retry chain.
type WebhookDeliverer struct {
	Merchants merchant.Repository
	Logs      webhook.Repository
	Queue     contracts.JobQueue
	Sender    WebhookSender
	Schedule  RetrySchedule
	Clock     contracts.Clock
	Logger    logging.Logger
	Metrics   *metrics.Counters
}

func (d *WebhookDeliverer) Handle(ctx context.Context, j job.Job) error {
	var payload job.DeliverWebhookPayload
	if err := j.Decode(&payload); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", j.Type, err)
	}

	m, err := d.Merchants.FindByID(ctx, payload.MerchantID)
	if err != nil {
		return fmt.Errorf("load merchant %s: %w", payload.MerchantID, err)
	}

	if !m.HasWebhook() {
		d.Logger.Debug("merchant has no webhook url", map[string]any{
			"merchant_id": m.ID,
			"event":       payload.Event,
		})
		return nil
	}

	log, err := d.resolveLog(ctx, j.ID, payload)
	if err != nil {
		return err
	}
	if log.Status != webhook.StatusPending || log.Attempts != payload.Attempt {
		d.Logger.Info("webhook job is stale", map[string]any{
			"webhook_log_id": log.ID,
			"status":         string(log.Status),
			"attempts":       log.Attempts,
			"job_attempt":    payload.Attempt,
		})
		return nil
	}

	body := []byte(log.Payload)
	delivery := d.Sender.Send(ctx, *m.WebhookURL, body, webhook.Sign(m.WebhookSecret, body))

	now := d.Clock.Now()
	attempts := log.Attempts + 1
	decision := d.Schedule.Next(attempts, delivery.OK())

	attempt := webhook.Attempt{
		Attempts:     attempts,
		ResponseCode: delivery.StatusCode,
		ResponseBody: delivery.Body,
		AttemptedAt:  now,
		Status:       decision.Status,
	}
	if decision.Retry {
		next := now.Add(decision.Delay)
		attempt.NextRetryAt = &next
	}

	fields := map[string]any{
		"webhook_log_id": log.ID,
		"event":          log.Event,
		"attempts":       attempts,
		"response_code":  delivery.StatusCode,
	}

	saved, err := d.Logs.SaveAttempt(ctx, log.ID, log.Attempts, attempt)
	if err != nil {
		return fmt.Errorf("save webhook attempt %s: %w", log.ID, err)
	}
	if !saved {
		d.Logger.Info("webhook attempt lost to a concurrent delivery", fields)
		return nil
	}

	switch decision.Status {
	case webhook.StatusSuccess:
		d.Metrics.IncWebhookDelivered()
		d.Logger.Info("webhook delivered", fields)
	case webhook.StatusFailed:
		d.Metrics.IncWebhookFailed()
		d.Logger.Warn("webhook failed permanently", fields)
	default:
		d.Metrics.IncWebhookRetried()
		fields["retry_in"] = decision.Delay.String()
		d.Logger.Info("webhook delivery failed, retry scheduled", fields)
	}

	if !decision.Retry {
		return nil
	}

	err = d.Queue.EnqueueDelayed(ctx, job.DeliverWebhook, job.DeliverWebhookPayload{
		MerchantID:   log.MerchantID,
		Event:        log.Event,
		Payload:      log.Payload,
		WebhookLogID: log.ID,
		Attempt:      attempts,
	}, decision.Delay)
	if err != nil {
		return fmt.Errorf("schedule webhook retry %s: %w", log.ID, err)
	}
	return nil
}

// resolveLog loads the log a retry job points at. A first delivery job owns a
// log keyed by the job id, so a redelivered first job finds the same log.
func (d *WebhookDeliverer) resolveLog(ctx context.Context, jobID string, payload job.DeliverWebhookPayload) (*webhook.Log, error) {
	id := payload.WebhookLogID
	if id == "" {
		id = jobID
	}

	if id != "" {
		log, err := d.Logs.FindByID(ctx, id)
		if err == nil {
			return log, nil
		}
		if !errors.Is(err, webhook.ErrNotFound) || payload.WebhookLogID != "" {
			return nil, fmt.Errorf("load webhook log %s: %w", id, err)
		}
	} else {
		id = ids.UUID()
	}

	log := &webhook.Log{
		ID:         id,
		MerchantID: payload.MerchantID,
		Event:      payload.Event,
		Payload:    payload.Payload,
		Status:     webhook.StatusPending,
		CreatedAt:  d.Clock.Now(),
	}
	if err := d.Logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("create webhook log: %w", err)
	}
	return log, nil
}
