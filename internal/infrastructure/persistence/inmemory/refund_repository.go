package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/refund"
)

type RefundRepository struct {
	mu      sync.RWMutex
	refunds map[string]refund.Refund
}

func NewRefundRepository() *RefundRepository {
	return &RefundRepository{
		refunds: make(map[string]refund.Refund),
	}
}

func (r *RefundRepository) Save(_ context.Context, rf *refund.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refunds[rf.ID] = *rf
	return nil
}

func (r *RefundRepository) FindByID(_ context.Context, id string) (*refund.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rf, ok := r.refunds[id]
	if !ok {
		return nil, refund.ErrNotFound
	}
	return &rf, nil
}

func (r *RefundRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*refund.Refund, error) {
	rf, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rf.MerchantID != merchantID {
		return nil, refund.ErrNotFound
	}
	return rf, nil
}

func (r *RefundRepository) SumActive(_ context.Context, paymentID, excludeID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, rf := range r.refunds {
		if rf.PaymentID != paymentID || rf.ID == excludeID {
			continue
		}
		if rf.Status == refund.StatusPending || rf.Status == refund.StatusProcessed {
			total += rf.Amount
		}
	}
	return total, nil
}

func (r *RefundRepository) MarkProcessed(_ context.Context, id string, at time.Time) (bool, error) {
	return r.transition(id, func(rf *refund.Refund) {
		rf.Status = refund.StatusProcessed
		rf.ProcessedAt = &at
	})
}

func (r *RefundRepository) MarkFailed(_ context.Context, id string) (bool, error) {
	return r.transition(id, func(rf *refund.Refund) {
		rf.Status = refund.StatusFailed
	})
}

func (r *RefundRepository) transition(id string, apply func(*refund.Refund)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rf, ok := r.refunds[id]
	if !ok || rf.Status != refund.StatusPending {
		return false, nil
	}
	apply(&rf)
	r.refunds[id] = rf
	return true, nil
}
