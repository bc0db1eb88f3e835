package inmemory

import (
	"context"
	"sync"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
)

type MerchantRepository struct {
	mu        sync.RWMutex
	merchants map[string]merchant.Merchant
}

func NewMerchantRepository(seed ...merchant.Merchant) *MerchantRepository {
	r := &MerchantRepository{
		merchants: make(map[string]merchant.Merchant),
	}
	for _, m := range seed {
		r.merchants[m.ID] = m
	}
	return r
}

func (r *MerchantRepository) FindByID(_ context.Context, id string) (*merchant.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.merchants[id]
	if !ok {
		return nil, merchant.ErrNotFound
	}
	return &m, nil
}

func (r *MerchantRepository) FindByCredentials(_ context.Context, apiKey, apiSecret string) (*merchant.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.merchants {
		if m.APIKey == apiKey && m.APISecret == apiSecret {
			return &m, nil
		}
	}
	return nil, merchant.ErrNotFound
}

func (r *MerchantRepository) UpdateWebhookURL(_ context.Context, id string, url *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.merchants[id]
	if !ok {
		return merchant.ErrNotFound
	}
	if url != nil {
		u := *url
		url = &u
	}
	m.WebhookURL = url
	r.merchants[id] = m
	return nil
}

func (r *MerchantRepository) UpdateWebhookSecret(_ context.Context, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.merchants[id]
	if !ok {
		return merchant.ErrNotFound
	}
	m.WebhookSecret = secret
	r.merchants[id] = m
	return nil
}
