package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
)

type WebhookRepository struct {
	db *DB
}

func NewWebhookRepository(db *DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

const webhookColumns = `id, merchant_id, event, payload, status, attempts, response_code, response_body,
	last_attempt_at, next_retry_at, created_at`

func scanWebhookLog(row scanner) (*webhook.Log, error) {
	var (
		l             webhook.Log
		payload       string
		status        string
		responseCode  sql.NullInt64
		responseBody  sql.NullString
		lastAttemptAt sql.NullTime
		nextRetryAt   sql.NullTime
	)

	if err := row.Scan(
		&l.ID,
		&l.MerchantID,
		&l.Event,
		&payload,
		&status,
		&l.Attempts,
		&responseCode,
		&responseBody,
		&lastAttemptAt,
		&nextRetryAt,
		&l.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webhook.ErrNotFound
		}
		return nil, err
	}

	l.Payload = []byte(payload)
	l.Status = webhook.Status(status)
	if responseCode.Valid {
		code := int(responseCode.Int64)
		l.ResponseCode = &code
	}
	l.ResponseBody = stringPtr(responseBody)
	l.LastAttemptAt = timePtr(lastAttemptAt)
	l.NextRetryAt = timePtr(nextRetryAt)
	return &l, nil
}

func (r *WebhookRepository) Create(ctx context.Context, l *webhook.Log) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO webhook_logs (id, merchant_id, event, payload, status, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		l.ID,
		l.MerchantID,
		l.Event,
		string(l.Payload),
		string(l.Status),
		l.Attempts,
		l.CreatedAt.UTC(),
	)
	return err
}

func (r *WebhookRepository) FindByID(ctx context.Context, id string) (*webhook.Log, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+webhookColumns+` FROM webhook_logs WHERE id = ?`), id)
	return scanWebhookLog(row)
}

func (r *WebhookRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*webhook.Log, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+webhookColumns+` FROM webhook_logs WHERE id = ? AND merchant_id = ?`), id, merchantID)
	return scanWebhookLog(row)
}

func (r *WebhookRepository) SaveAttempt(ctx context.Context, id string, prev int, a webhook.Attempt) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE webhook_logs
		 SET attempts = ?, response_code = ?, response_body = ?, last_attempt_at = ?,
		     status = ?, next_retry_at = ?
		 WHERE id = ? AND status = ? AND attempts = ?`),
		a.Attempts,
		a.ResponseCode,
		a.ResponseBody,
		a.AttemptedAt.UTC(),
		string(a.Status),
		nullTime(a.NextRetryAt),
		id,
		string(webhook.StatusPending),
		prev,
	)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *WebhookRepository) ResetForRetry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE webhook_logs SET attempts = 0, status = ?, next_retry_at = NULL WHERE id = ?`),
		string(webhook.StatusPending),
		id,
	)
	if err != nil {
		return err
	}
	return requireOne(res, webhook.ErrNotFound)
}

func (r *WebhookRepository) ListByMerchant(ctx context.Context, merchantID string, limit, offset int) ([]*webhook.Log, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT COUNT(*) FROM webhook_logs WHERE merchant_id = ?`), merchantID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT `+webhookColumns+`
		 FROM webhook_logs
		 WHERE merchant_id = ?
		 ORDER BY created_at DESC, id
		 LIMIT ? OFFSET ?`),
		merchantID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []*webhook.Log{}
	for rows.Next() {
		l, err := scanWebhookLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
