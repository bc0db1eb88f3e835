package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
)

type MerchantRepository struct {
	db *DB
}

func NewMerchantRepository(db *DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

const merchantColumns = `id, name, email, api_key, api_secret, webhook_url, webhook_secret, created_at`

func scanMerchant(row scanner) (*merchant.Merchant, error) {
	var (
		m   merchant.Merchant
		url sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.APIKey, &m.APISecret, &url, &m.WebhookSecret, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, merchant.ErrNotFound
		}
		return nil, err
	}
	m.WebhookURL = stringPtr(url)
	return &m, nil
}

func (r *MerchantRepository) FindByID(ctx context.Context, id string) (*merchant.Merchant, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+merchantColumns+` FROM merchants WHERE id = ?`), id)
	return scanMerchant(row)
}

func (r *MerchantRepository) FindByCredentials(ctx context.Context, apiKey, apiSecret string) (*merchant.Merchant, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+merchantColumns+` FROM merchants WHERE api_key = ? AND api_secret = ?`), apiKey, apiSecret)
	return scanMerchant(row)
}

func (r *MerchantRepository) UpdateWebhookURL(ctx context.Context, id string, url *string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE merchants SET webhook_url = ? WHERE id = ?`), nullString(url), id)
	if err != nil {
		return err
	}
	return requireOne(res, merchant.ErrNotFound)
}

func (r *MerchantRepository) UpdateWebhookSecret(ctx context.Context, id, secret string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE merchants SET webhook_secret = ? WHERE id = ?`), secret, id)
	if err != nil {
		return err
	}
	return requireOne(res, merchant.ErrNotFound)
}

func requireOne(res sql.Result, notFound error) error {
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}
