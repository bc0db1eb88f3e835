package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS merchants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL UNIQUE,
		api_secret TEXT NOT NULL,
		webhook_url TEXT,
		webhook_secret TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL REFERENCES merchants(id),
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		receipt TEXT,
		notes TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		merchant_id TEXT NOT NULL REFERENCES merchants(id),
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		method TEXT NOT NULL,
		vpa TEXT NOT NULL DEFAULT '',
		card_network TEXT NOT NULL DEFAULT '',
		card_last4 TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		captured BOOLEAN NOT NULL DEFAULT FALSE,
		error_code TEXT NOT NULL DEFAULT '',
		error_description TEXT NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_merchant ON payments (merchant_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS refunds (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL REFERENCES payments(id),
		merchant_id TEXT NOT NULL REFERENCES merchants(id),
		amount BIGINT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		processed_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refunds_payment ON refunds (payment_id)`,

	`CREATE TABLE IF NOT EXISTS webhook_logs (
		id TEXT PRIMARY KEY,
		merchant_id TEXT NOT NULL REFERENCES merchants(id),
		event TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		response_code INTEGER,
		response_body TEXT,
		last_attempt_at {{ts}},
		next_retry_at {{ts}},
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_merchant ON webhook_logs (merchant_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		idempotency_key TEXT NOT NULL,
		merchant_id TEXT NOT NULL,
		response {{blob}} NOT NULL,
		expires_at {{ts}} NOT NULL,
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (idempotency_key, merchant_id)
	)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		available_at BIGINT NOT NULL,
		locked_until BIGINT NOT NULL DEFAULT 0,
		deliveries INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs (status, available_at)`,
}

var seed = `INSERT INTO merchants (id, name, email, api_key, api_secret, webhook_secret, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING`

func (db *DB) expand(stmt string) string {
	ts, blob := "TIMESTAMP", "BLOB"
	if db.dialect == DialectPostgres {
		ts, blob = "TIMESTAMPTZ", "BYTEA"
	}
	return strings.NewReplacer("{{ts}}", ts, "{{blob}}", blob).Replace(stmt)
}

// RunMigrations creates the schema and seeds the test merchant. It is safe
// to run repeatedly.
func RunMigrations(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, db.expand(stmt)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	m := merchant.TestMerchant(time.Now())
	_, err := db.ExecContext(ctx, db.Rebind(seed),
		m.ID,
		m.Name,
		m.Email,
		m.APIKey,
		m.APISecret,
		m.WebhookSecret,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("seed test merchant: %w", err)
	}

	return nil
}
