package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	domainRefund "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
)

type CreateInput struct {
	Amount int64
	Reason *string
}

type Service struct {
	Refunds  domainRefund.Repository
	Payments payment.Repository
	Queue    contracts.JobQueue
	Clock    contracts.Clock
	Logger   logging.Logger
}

// Create records a pending refund and schedules its processing. The
// available amount is checked here and again by the refund worker.
func (s *Service) Create(ctx context.Context, merchantID, paymentID string, in CreateInput) (*domainRefund.Refund, error) {
	p, err := s.Payments.FindForMerchant(ctx, paymentID, merchantID)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, apperr.NotFound("Payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}

	if p.Status != payment.StatusSuccess {
		return nil, apperr.BadRequest("Payment not in refundable state")
	}

	refunded, err := s.Refunds.SumActive(ctx, p.ID, "")
	if err != nil {
		return nil, fmt.Errorf("sum refunds of %s: %w", p.ID, err)
	}

	switch err := domainRefund.CheckAvailable(p.Amount, refunded, in.Amount); {
	case errors.Is(err, domainRefund.ErrInvalidAmount):
		return nil, apperr.BadRequest("Refund amount must be greater than 0")
	case errors.Is(err, domainRefund.ErrExceedsPayment):
		return nil, apperr.BadRequest("Refund amount exceeds available amount")
	}

	r := &domainRefund.Refund{
		ID:         ids.New(ids.PrefixRefund),
		PaymentID:  p.ID,
		MerchantID: merchantID,
		Amount:     in.Amount,
		Reason:     in.Reason,
		Status:     domainRefund.StatusPending,
		CreatedAt:  s.Clock.Now(),
	}

	if err := s.Refunds.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save refund: %w", err)
	}

	if err := s.Queue.Enqueue(ctx, job.ProcessRefund, job.ProcessRefundPayload{RefundID: r.ID}); err != nil {
		return nil, fmt.Errorf("enqueue refund %s: %w", r.ID, err)
	}

	s.Logger.Info("refund created", map[string]any{
		"refund_id":   r.ID,
		"payment_id":  p.ID,
		"merchant_id": merchantID,
		"amount":      r.Amount,
	})

	return r, nil
}

func (s *Service) Get(ctx context.Context, merchantID, id string) (*domainRefund.Refund, error) {
	r, err := s.Refunds.FindForMerchant(ctx, id, merchantID)
	if errors.Is(err, domainRefund.ErrNotFound) {
		return nil, apperr.NotFound("Refund not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find refund: %w", err)
	}
	return r, nil
}
