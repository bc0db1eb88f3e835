package merchant

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("merchant not found")

// The test merchant is seeded into every store.
const (
	TestMerchantID            = "550e8400-e29b-41d4-a716-446655440000"
	TestMerchantEmail         = "test@example.com"
	TestMerchantAPIKey        = "key_test_abc123"
	TestMerchantAPISecret     = "secret_test_xyz789"
	TestMerchantWebhookSecret = "whsec_test_abc123"
)

type Merchant struct {
	ID            string
	Name          string
	Email         string
	APIKey        string
	APISecret     string
	WebhookURL    *string
	WebhookSecret string
	CreatedAt     time.Time
}

// HasWebhook reports whether the merchant configured a delivery URL.
func (m *Merchant) HasWebhook() bool {
	return m.WebhookURL != nil && *m.WebhookURL != ""
}

func TestMerchant(now time.Time) Merchant {
	return Merchant{
		ID:            TestMerchantID,
		Name:          "Test Merchant",
		Email:         TestMerchantEmail,
		APIKey:        TestMerchantAPIKey,
		APISecret:     TestMerchantAPISecret,
		WebhookSecret: TestMerchantWebhookSecret,
		CreatedAt:     now.UTC(),
	}
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*Merchant, error)
	FindByCredentials(ctx context.Context, apiKey, apiSecret string) (*Merchant, error)
	UpdateWebhookURL(ctx context.Context, id string, url *string) error
	UpdateWebhookSecret(ctx context.Context, id, secret string) error
}
