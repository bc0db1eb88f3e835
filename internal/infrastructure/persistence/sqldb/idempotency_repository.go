package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/idempotency"
)

type IdempotencyRepository struct {
	db *DB
}

func NewIdempotencyRepository(db *DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Find(ctx context.Context, key, merchantID string) (*idempotency.Record, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT idempotency_key, merchant_id, response, expires_at, created_at
		 FROM idempotency_keys
		 WHERE idempotency_key = ? AND merchant_id = ?`),
		key, merchantID,
	)

	var rec idempotency.Record
	if err := row.Scan(&rec.Key, &rec.MerchantID, &rec.Response, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, idempotency.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Insert keeps the first response stored for a key.
func (r *IdempotencyRepository) Insert(ctx context.Context, rec *idempotency.Record) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO idempotency_keys (idempotency_key, merchant_id, response, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (idempotency_key, merchant_id) DO NOTHING`),
		rec.Key,
		rec.MerchantID,
		rec.Response,
		rec.ExpiresAt.UTC(),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return false, err
	}

	// 0 rows = another request stored first
	return affectedOne(res)
}

func (r *IdempotencyRepository) Delete(ctx context.Context, key, merchantID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`DELETE FROM idempotency_keys WHERE idempotency_key = ? AND merchant_id = ?`),
		key, merchantID,
	)
	return err
}
