package idempotency

import (
	"context"
	"errors"
	"time"
)

// TTL is how long a cached response stays valid.
const TTL = 24 * time.Hour

var ErrNotFound = errors.New("idempotency record not found")

type Record struct {
	Key        string
	MerchantID string
	Response   []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type Repository interface {
	Find(ctx context.Context, key, merchantID string) (*Record, error)
	// Insert stores rec unless a record with the same key and merchant
	// exists. It reports whether rec was written.
	Insert(ctx context.Context, rec *Record) (bool, error)
	Delete(ctx context.Context, key, merchantID string) error
}
