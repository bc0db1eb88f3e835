package inmemory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
)

type WebhookRepository struct {
	mu   sync.RWMutex
	logs map[string]webhook.Log
}

func NewWebhookRepository() *WebhookRepository {
	return &WebhookRepository{
		logs: make(map[string]webhook.Log),
	}
}

func (r *WebhookRepository) Create(_ context.Context, l *webhook.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logs[l.ID]; ok {
		return fmt.Errorf("webhook log %s already exists", l.ID)
	}
	r.logs[l.ID] = *l
	return nil
}

func (r *WebhookRepository) FindByID(_ context.Context, id string) (*webhook.Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.logs[id]
	if !ok {
		return nil, webhook.ErrNotFound
	}
	return &l, nil
}

func (r *WebhookRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*webhook.Log, error) {
	l, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.MerchantID != merchantID {
		return nil, webhook.ErrNotFound
	}
	return l, nil
}

func (r *WebhookRepository) SaveAttempt(_ context.Context, id string, prev int, a webhook.Attempt) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.logs[id]
	if !ok || l.Status != webhook.StatusPending || l.Attempts != prev {
		return false, nil
	}

	code, body, at := a.ResponseCode, a.ResponseBody, a.AttemptedAt
	l.Attempts = a.Attempts
	l.ResponseCode = &code
	l.ResponseBody = &body
	l.LastAttemptAt = &at
	l.Status = a.Status
	l.NextRetryAt = a.NextRetryAt
	r.logs[id] = l
	return true, nil
}

func (r *WebhookRepository) ResetForRetry(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.logs[id]
	if !ok {
		return webhook.ErrNotFound
	}
	l.Attempts = 0
	l.Status = webhook.StatusPending
	l.NextRetryAt = nil
	r.logs[id] = l
	return nil
}

func (r *WebhookRepository) ListByMerchant(_ context.Context, merchantID string, limit, offset int) ([]*webhook.Log, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*webhook.Log{}
	for _, l := range r.logs {
		if l.MerchantID == merchantID {
			all = append(all, &l)
		}
	}

	slices.SortFunc(all, func(a, b *webhook.Log) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	total := len(all)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)
	return all[start:end], total, nil
}

// Logs returns a snapshot of every stored log.
func (r *WebhookRepository) Logs() []webhook.Log {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]webhook.Log, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l)
	}
	return out
}
