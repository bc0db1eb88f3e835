package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/order"
)

type OrderRepository struct {
	db *DB
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	notes := o.Notes
	if notes == nil {
		notes = map[string]any{}
	}
	encoded, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("encode order notes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO orders
		 (id, merchant_id, amount, currency, receipt, notes, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		o.ID,
		o.MerchantID,
		o.Amount,
		o.Currency,
		nullString(o.Receipt),
		string(encoded),
		string(o.Status),
		o.CreatedAt.UTC(),
		o.UpdatedAt.UTC(),
	)
	return err
}

func (r *OrderRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*order.Order, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT id, merchant_id, amount, currency, receipt, notes, status, created_at, updated_at
		 FROM orders
		 WHERE id = ? AND merchant_id = ?`),
		id, merchantID,
	)

	var (
		o       order.Order
		receipt sql.NullString
		notes   string
		status  string
	)

	if err := row.Scan(&o.ID, &o.MerchantID, &o.Amount, &o.Currency, &receipt, &notes, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(notes), &o.Notes); err != nil {
		return nil, fmt.Errorf("decode order notes: %w", err)
	}
	o.Receipt = stringPtr(receipt)
	o.Status = order.Status(status)
	return &o, nil
}
