// Package dashboard serves the merchant dashboard: payment statistics,
// recent transactions and webhook configuration.
package dashboard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
)

const secretPrefix = "whsec_"

var hundred = decimal.NewFromInt(100)

type Stats struct {
	TotalTransactions int64 `json:"total_transactions"`
	TotalAmount       int64 `json:"total_amount"`
	SuccessRate       int64 `json:"success_rate"`
}

type Transaction struct {
	ID        string             `json:"id"`
	OrderID   string             `json:"order_id"`
	Amount    int64              `json:"amount"`
	Method    payment.MethodKind `json:"method"`
	Status    payment.Status     `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

type Config struct {
	WebhookURL    *string `json:"webhook_url"`
	WebhookSecret string  `json:"webhook_secret"`
}

type Service struct {
	Payments  payment.Repository
	Merchants merchant.Repository
	Logger    logging.Logger
}

// Stats counts all payments, sums successful ones and reports the success
// rate as a whole percentage.
func (s *Service) Stats(ctx context.Context, merchantID string) (*Stats, error) {
	st, err := s.Payments.Stats(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("payment stats: %w", err)
	}
	return &Stats{
		TotalTransactions: st.Total,
		TotalAmount:       st.SuccessAmount,
		SuccessRate:       SuccessRate(st.Successful, st.Total),
	}, nil
}

// SuccessRate returns successful/total as a percentage rounded half up.
func SuccessRate(successful, total int64) int64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(successful).
		Mul(hundred).
		Div(decimal.NewFromInt(total)).
		Round(0).
		IntPart()
}

func (s *Service) Transactions(ctx context.Context, merchantID string) ([]Transaction, error) {
	payments, err := s.Payments.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	out := make([]Transaction, 0, len(payments))
	for _, p := range payments {
		out = append(out, Transaction{
			ID:        p.ID,
			OrderID:   p.OrderID,
			Amount:    p.Amount,
			Method:    payment.KindOf(p.Method),
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) Config(ctx context.Context, merchantID string) (*Config, error) {
	m, err := s.Merchants.FindByID(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("find merchant: %w", err)
	}
	return &Config{WebhookURL: m.WebhookURL, WebhookSecret: m.WebhookSecret}, nil
}

// UpdateWebhookURL sets the delivery URL. An empty URL disables webhooks.
func (s *Service) UpdateWebhookURL(ctx context.Context, merchantID, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)

	var target *string
	if rawURL != "" {
		if err := validateWebhookURL(rawURL); err != nil {
			return err
		}
		target = &rawURL
	}

	if err := s.Merchants.UpdateWebhookURL(ctx, merchantID, target); err != nil {
		return fmt.Errorf("update webhook url: %w", err)
	}

	s.Logger.Info("webhook url updated", map[string]any{
		"merchant_id": merchantID,
		"enabled":     target != nil,
	})
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.BadRequest("Invalid webhook URL")
	}
	return nil
}

// RegenerateSecret replaces the signing secret with a fresh random one.
func (s *Service) RegenerateSecret(ctx context.Context, merchantID string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	secret := secretPrefix + hex.EncodeToString(b)

	if err := s.Merchants.UpdateWebhookSecret(ctx, merchantID, secret); err != nil {
		return "", fmt.Errorf("update webhook secret: %w", err)
	}

	s.Logger.Info("webhook secret regenerated", map[string]any{"merchant_id": merchantID})
	return secret, nil
}
