package inmemory

import (
	"context"
	"maps"
	"sync"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]order.Order),
	}
}

func (r *OrderRepository) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *o
	cp.Notes = maps.Clone(o.Notes)
	r.orders[o.ID] = cp
	return nil
}

func (r *OrderRepository) FindForMerchant(_ context.Context, id, merchantID string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok || o.MerchantID != merchantID {
		return nil, order.ErrNotFound
	}
	o.Notes = maps.Clone(o.Notes)
	return &o, nil
}
