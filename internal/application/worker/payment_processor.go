package worker

import (
	"context"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

// PaymentProcessor settles pending payments and announces the outcome.
type PaymentProcessor struct {
	Repo       payment.Repository
	Queue      contracts.JobQueue
	Clock      contracts.Clock
	Logger     logging.Logger
	Metrics    *metrics.Counters
	Settlement SettlementSimulator
}

func (p *PaymentProcessor) Handle(ctx context.Context, j job.Job) error {
	var payload job.ProcessPaymentPayload
	if err := j.Decode(&payload); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", j.Type, err)
	}

	pay, err := p.Repo.FindByID(ctx, payload.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", payload.PaymentID, err)
	}

	if pay.Status != payment.StatusPending {
		p.Logger.Info("payment already settled", map[string]any{
			"payment_id": pay.ID,
			"status":     string(pay.Status),
			"job_id":     j.ID,
		})
		return nil
	}

	kind := payment.KindOf(pay.Method)

	p.Logger.Info("processing payment", map[string]any{
		"payment_id": pay.ID,
		"method":     string(kind),
		"job_id":     j.ID,
	})

	if err := p.Clock.Sleep(ctx, p.Settlement.PaymentDelay(kind)); err != nil {
		return err
	}

	p.Metrics.IncProcessed()

	status, code, description := payment.StatusSuccess, "", ""
	event := webhook.EventPaymentSuccess
	if !p.Settlement.PaymentSucceeds(kind) {
		status = payment.StatusFailed
		code, description = payment.ErrorCodePaymentFailed, payment.ErrorDescriptionPaymentFailed
		event = webhook.EventPaymentFailed
	}

	updated, err := p.Repo.Settle(ctx, pay.ID, status, code, description, p.Clock.Now())
	if err != nil {
		return fmt.Errorf("settle payment %s: %w", pay.ID, err)
	}
	if !updated {
		p.Logger.Warn("payment settled concurrently", map[string]any{"payment_id": pay.ID})
		return nil
	}

	if status == payment.StatusSuccess {
		p.Metrics.IncSucceeded()
		p.Logger.Info("payment succeeded", map[string]any{"payment_id": pay.ID})
	} else {
		p.Metrics.IncFailed()
		p.Logger.Info("payment failed", map[string]any{"payment_id": pay.ID, "error_code": code})
	}

	pay, err = p.Repo.FindByID(ctx, pay.ID)
	if err != nil {
		return fmt.Errorf("reload payment: %w", err)
	}

	return EnqueueWebhook(ctx, p.Queue, pay.MerchantID, event, p.Clock.Now(), map[string]any{
		"payment": pay,
	})
}
