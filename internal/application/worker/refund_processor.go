package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

var ErrPaymentNotRefundable = errors.New("payment not in success state")

// RefundProcessor moves pending refunds to processed or failed.
type RefundProcessor struct {
	Refunds    refund.Repository
	Payments   payment.Repository
	Queue      contracts.JobQueue
	Clock      contracts.Clock
	Logger     logging.Logger
	Metrics    *metrics.Counters
	Settlement SettlementSimulator
}

func (p *RefundProcessor) Handle(ctx context.Context, j job.Job) error {
	var payload job.ProcessRefundPayload
	if err := j.Decode(&payload); err != nil {
		return fmt.Errorf("invalid payload for %s: %w", j.Type, err)
	}

	rf, err := p.Refunds.FindByID(ctx, payload.RefundID)
	if err != nil {
		return fmt.Errorf("load refund %s: %w", payload.RefundID, err)
	}

	if rf.Status != refund.StatusPending {
		p.Logger.Info("refund already settled", map[string]any{
			"refund_id": rf.ID,
			"status":    string(rf.Status),
			"job_id":    j.ID,
		})
		return nil
	}

	pay, err := p.Payments.FindByID(ctx, rf.PaymentID)
	if err != nil {
		return fmt.Errorf("load payment %s for refund %s: %w", rf.PaymentID, rf.ID, err)
	}

	if pay.Status != payment.StatusSuccess {
		return fmt.Errorf("refund %s: payment %s is %s: %w", rf.ID, pay.ID, pay.Status, ErrPaymentNotRefundable)
	}

	existing, err := p.Refunds.SumActive(ctx, pay.ID, rf.ID)
	if err != nil {
		return fmt.Errorf("sum refunds of %s: %w", pay.ID, err)
	}

	if err := refund.CheckAvailable(pay.Amount, existing, rf.Amount); err != nil {
		if _, markErr := p.Refunds.MarkFailed(ctx, rf.ID); markErr != nil {
			return fmt.Errorf("mark refund %s failed: %w", rf.ID, markErr)
		}
		p.Metrics.IncRefundFailed()
		p.Logger.Warn("refund rejected", map[string]any{
			"refund_id":  rf.ID,
			"payment_id": pay.ID,
			"amount":     rf.Amount,
			"refunded":   existing,
			"error":      err,
		})
		return nil
	}

	p.Logger.Info("processing refund", map[string]any{
		"refund_id":  rf.ID,
		"payment_id": pay.ID,
		"job_id":     j.ID,
	})

	if err := p.Clock.Sleep(ctx, p.Settlement.RefundDelay()); err != nil {
		return err
	}

	updated, err := p.Refunds.MarkProcessed(ctx, rf.ID, p.Clock.Now())
	if err != nil {
		return fmt.Errorf("mark refund %s processed: %w", rf.ID, err)
	}
	if !updated {
		p.Logger.Warn("refund settled concurrently", map[string]any{"refund_id": rf.ID})
		return nil
	}
	p.Metrics.IncRefundProcessed()

	rf, err = p.Refunds.FindByID(ctx, rf.ID)
	if err != nil {
		return fmt.Errorf("reload refund: %w", err)
	}

	return EnqueueWebhook(ctx, p.Queue, rf.MerchantID, webhook.EventRefundProcessed, p.Clock.Now(), map[string]any{
		"refund":  rf,
		"payment": pay,
	})
}
