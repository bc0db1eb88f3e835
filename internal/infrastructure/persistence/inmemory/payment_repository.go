package inmemory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
)

type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]payment.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]payment.Payment),
	}
}

func (r *PaymentRepository) Save(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepository) FindByID(_ context.Context, id string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return &p, nil
}

func (r *PaymentRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*payment.Payment, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.MerchantID != merchantID {
		return nil, payment.ErrNotFound
	}
	return p, nil
}

func (r *PaymentRepository) Settle(_ context.Context, id string, status payment.Status, errorCode, errorDescription string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.Status != payment.StatusPending {
		return false, nil
	}

	p.Status = status
	p.ErrorCode = errorCode
	p.ErrorDescription = errorDescription
	p.UpdatedAt = at
	r.payments[id] = p
	return true, nil
}

func (r *PaymentRepository) MarkCaptured(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.Status != payment.StatusSuccess || p.Captured {
		return false, nil
	}

	p.Captured = true
	p.UpdatedAt = at
	r.payments[id] = p
	return true, nil
}

func (r *PaymentRepository) ListByMerchant(_ context.Context, merchantID string) ([]*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*payment.Payment
	for _, p := range r.payments {
		if p.MerchantID == merchantID {
			out = append(out, &p)
		}
	}

	slices.SortFunc(out, func(a, b *payment.Payment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *PaymentRepository) Stats(_ context.Context, merchantID string) (payment.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s payment.Stats
	for _, p := range r.payments {
		if p.MerchantID != merchantID {
			continue
		}
		s.Total++
		if p.Status == payment.StatusSuccess {
			s.Successful++
			s.SuccessAmount += p.Amount
		}
	}
	return s, nil
}

// Payments returns a snapshot of every stored payment.
func (r *PaymentRepository) Payments() map[string]payment.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]payment.Payment, len(r.payments))
	for id, p := range r.payments {
		out[id] = p
	}
	return out
}
