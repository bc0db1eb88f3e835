package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/idempotency"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/order"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
)

// CardInput carries raw card details. Expiry parts arrive as JSON strings or
// numbers.
type CardInput struct {
	Number      string `json:"number"`
	ExpiryMonth any    `json:"expiry_month"`
	ExpiryYear  any    `json:"expiry_year"`
}

type CreateInput struct {
	OrderID        string
	Method         string
	VPA            string
	Card           *CardInput
	IdempotencyKey string
}

type Service struct {
	Payments    payment.Repository
	Orders      order.Repository
	Queue       contracts.JobQueue
	Idempotency *idempotency.Cache
	Clock       contracts.Clock
	Logger      logging.Logger
}

// Create validates the request, stores a pending payment and schedules its
// processing. It returns the response body, which is replayed verbatim for a
// repeated idempotency key.
func (s *Service) Create(ctx context.Context, merchantID string, in CreateInput) ([]byte, error) {
	if in.IdempotencyKey != "" {
		body, hit, err := s.Idempotency.Lookup(ctx, in.IdempotencyKey, merchantID)
		if err != nil {
			return nil, err
		}
		if hit {
			s.Logger.Info("idempotent replay", map[string]any{
				"merchant_id":     merchantID,
				"idempotency_key": in.IdempotencyKey,
			})
			return body, nil
		}
	}

	o, err := s.Orders.FindForMerchant(ctx, in.OrderID, merchantID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	now := s.Clock.Now()
	method, err := s.method(in, now)
	if err != nil {
		return nil, err
	}

	p := &payment.Payment{
		ID:         ids.New(ids.PrefixPayment),
		OrderID:    o.ID,
		MerchantID: merchantID,
		Amount:     o.Amount,
		Currency:   o.Currency,
		Method:     method,
		Status:     payment.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Payments.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	if err := s.Queue.Enqueue(ctx, job.ProcessPayment, job.ProcessPaymentPayload{PaymentID: p.ID}); err != nil {
		return nil, fmt.Errorf("enqueue payment %s: %w", p.ID, err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payment: %w", err)
	}

	if in.IdempotencyKey != "" {
		if err := s.Idempotency.Store(ctx, in.IdempotencyKey, merchantID, body); err != nil {
			return nil, err
		}
	}

	s.Logger.Info("payment created", map[string]any{
		"payment_id":  p.ID,
		"order_id":    o.ID,
		"merchant_id": merchantID,
		"method":      method.Kind(),
	})

	return body, nil
}

func (s *Service) method(in CreateInput, now time.Time) (payment.Method, error) {
	switch payment.MethodKind(in.Method) {
	case payment.MethodUPI:
		if err := payment.ValidateVPA(in.VPA); err != nil {
			return nil, apperr.New(apperr.CodeInvalidVPA, "Invalid VPA")
		}
		return payment.UPI{VPA: in.VPA}, nil

	case payment.MethodCard:
		if in.Card == nil {
			return nil, apperr.New(apperr.CodeInvalidCard, "Invalid card details")
		}
		if err := payment.ValidateCardNumber(in.Card.Number); err != nil {
			return nil, apperr.New(apperr.CodeInvalidCard, "Invalid card number")
		}
		month, errM := expiryPart(in.Card.ExpiryMonth)
		year, errY := expiryPart(in.Card.ExpiryYear)
		if errM != nil || errY != nil || payment.ValidateExpiry(month, year, now) != nil {
			return nil, apperr.New(apperr.CodeExpiredCard, "Card expired")
		}
		return payment.Card{
			Network: payment.DetectCardNetwork(in.Card.Number),
			Last4:   payment.Last4(in.Card.Number),
		}, nil
	}

	return nil, apperr.BadRequest("Unsupported payment method")
}

// expiryPart accepts 7, "7" and "07".
func expiryPart(v any) (int, error) {
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	if s, ok := v.(string); ok {
		s = strings.TrimLeft(strings.TrimSpace(s), "0")
		if s == "" {
			return 0, nil
		}
		v = s
	}
	return cast.ToIntE(v)
}

func (s *Service) Get(ctx context.Context, merchantID, id string) (*payment.Payment, error) {
	p, err := s.Payments.FindForMerchant(ctx, id, merchantID)
	if errors.Is(err, payment.ErrNotFound) {
		return nil, apperr.NotFound("Payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

// Capture marks a successful payment as captured. A payment is captured at
// most once, even under concurrent requests.
func (s *Service) Capture(ctx context.Context, merchantID, id string) (*payment.Payment, error) {
	p, err := s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if err := p.CheckCapturable(); err != nil {
		return nil, captureError(err)
	}

	updated, err := s.Payments.MarkCaptured(ctx, p.ID, s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("capture payment %s: %w", p.ID, err)
	}

	p, err = s.Get(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if !updated {
		// lost a race with another capture
		return nil, captureError(payment.ErrAlreadyCaptured)
	}

	s.Logger.Info("payment captured", map[string]any{
		"payment_id":  p.ID,
		"merchant_id": merchantID,
	})

	return p, nil
}

func captureError(err error) error {
	switch {
	case errors.Is(err, payment.ErrAlreadyCaptured):
		return apperr.BadRequest("Payment already captured")
	case errors.Is(err, payment.ErrNotCapturable):
		return apperr.BadRequest("Payment not in capturable state")
	}
	return err
}
