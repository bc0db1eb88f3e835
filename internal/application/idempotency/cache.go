// Package idempotency replays API responses for a repeated Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/idempotency"
)

// Cache is a read-through store of response bodies keyed by
// (key, merchant). Lookup and Store are separate calls, so two requests
// carrying the same new key can both miss.
type Cache struct {
	Repo  idempotency.Repository
	Clock contracts.Clock
}

func NewCache(repo idempotency.Repository, clk contracts.Clock) *Cache {
	return &Cache{Repo: repo, Clock: clk}
}

// Lookup returns the cached body for key. An expired record is deleted and
// reported as a miss.
func (c *Cache) Lookup(ctx context.Context, key, merchantID string) ([]byte, bool, error) {
	rec, err := c.Repo.Find(ctx, key, merchantID)
	if errors.Is(err, idempotency.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	if rec.Expired(c.Clock.Now()) {
		if err := c.Repo.Delete(ctx, key, merchantID); err != nil {
			return nil, false, fmt.Errorf("idempotency delete expired: %w", err)
		}
		return nil, false, nil
	}

	return rec.Response, true, nil
}

// Store caches body for key. The first body stored for a key wins.
func (c *Cache) Store(ctx context.Context, key, merchantID string, body []byte) error {
	now := c.Clock.Now()
	_, err := c.Repo.Insert(ctx, &idempotency.Record{
		Key:        key,
		MerchantID: merchantID,
		Response:   body,
		ExpiresAt:  now.Add(idempotency.TTL),
		CreatedAt:  now,
	})
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	return nil
}
