package inmemory

import (
	"context"
	"sync"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/idempotency"
)

type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[[2]string]idempotency.Record
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{
		records: make(map[[2]string]idempotency.Record),
	}
}

func (r *IdempotencyRepository) Find(_ context.Context, key, merchantID string) (*idempotency.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[[2]string{key, merchantID}]
	if !ok {
		return nil, idempotency.ErrNotFound
	}
	return &rec, nil
}

func (r *IdempotencyRepository) Insert(_ context.Context, rec *idempotency.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := [2]string{rec.Key, rec.MerchantID}
	if _, exists := r.records[k]; exists {
		return false, nil
	}
	r.records[k] = *rec
	return true, nil
}

func (r *IdempotencyRepository) Delete(_ context.Context, key, merchantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, [2]string{key, merchantID})
	return nil
}
