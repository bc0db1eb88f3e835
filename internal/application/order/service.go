package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	domainOrder "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/order"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
)

type CreateInput struct {
	Amount   int64
	Currency string
	Receipt  *string
	Notes    map[string]any
}

type Service struct {
	Repo   domainOrder.Repository
	Clock  contracts.Clock
	Logger logging.Logger
}

func (s *Service) Create(ctx context.Context, merchantID string, in CreateInput) (*domainOrder.Order, error) {
	if err := payment.ValidateAmount(in.Amount); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	currency := in.Currency
	if currency == "" {
		currency = domainOrder.DefaultCurrency
	}
	notes := in.Notes
	if notes == nil {
		notes = map[string]any{}
	}

	now := s.Clock.Now()
	o := &domainOrder.Order{
		ID:         ids.New(ids.PrefixOrder),
		MerchantID: merchantID,
		Amount:     in.Amount,
		Currency:   currency,
		Receipt:    in.Receipt,
		Notes:      notes,
		Status:     domainOrder.StatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.Logger.Info("order created", map[string]any{
		"order_id":    o.ID,
		"merchant_id": merchantID,
		"amount":      o.Amount,
	})

	return o, nil
}

func (s *Service) Get(ctx context.Context, merchantID, id string) (*domainOrder.Order, error) {
	o, err := s.Repo.FindForMerchant(ctx, id, merchantID)
	if errors.Is(err, domainOrder.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}
