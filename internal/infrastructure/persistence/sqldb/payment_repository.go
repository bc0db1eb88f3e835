package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
)

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, order_id, merchant_id, amount, currency, method, vpa, card_network, card_last4,
	status, captured, error_code, error_description, created_at, updated_at`

func scanPayment(row scanner) (*payment.Payment, error) {
	var (
		p       payment.Payment
		method  string
		vpa     string
		network string
		last4   string
		status  string
	)

	if err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.MerchantID,
		&p.Amount,
		&p.Currency,
		&method,
		&vpa,
		&network,
		&last4,
		&status,
		&p.Captured,
		&p.ErrorCode,
		&p.ErrorDescription,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, err
	}

	m, err := payment.MethodFromColumns(method, vpa, network, last4)
	if err != nil {
		return nil, err
	}
	p.Method = m
	p.Status = payment.Status(status)
	return &p, nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	method, vpa, network, last4 := payment.MethodColumns(p.Method)

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID,
		p.OrderID,
		p.MerchantID,
		p.Amount,
		p.Currency,
		method,
		vpa,
		network,
		last4,
		string(p.Status),
		p.Captured,
		p.ErrorCode,
		p.ErrorDescription,
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	return err
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*payment.Payment, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`), id)
	return scanPayment(row)
}

func (r *PaymentRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*payment.Payment, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ? AND merchant_id = ?`), id, merchantID)
	return scanPayment(row)
}

func (r *PaymentRepository) Settle(ctx context.Context, id string, status payment.Status, errorCode, errorDescription string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE payments
		 SET status = ?, error_code = ?, error_description = ?, updated_at = ?
		 WHERE id = ? AND status = ?`),
		string(status),
		errorCode,
		errorDescription,
		at.UTC(),
		id,
		string(payment.StatusPending),
	)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *PaymentRepository) MarkCaptured(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE payments
		 SET captured = TRUE, updated_at = ?
		 WHERE id = ? AND status = ? AND captured = FALSE`),
		at.UTC(),
		id,
		string(payment.StatusSuccess),
	)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *PaymentRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*payment.Payment, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE merchant_id = ?
		 ORDER BY created_at DESC, id`), merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) Stats(ctx context.Context, merchantID string) (payment.Stats, error) {
	var s payment.Stats
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0)
		 FROM payments
		 WHERE merchant_id = ?`),
		string(payment.StatusSuccess),
		string(payment.StatusSuccess),
		merchantID,
	).Scan(&s.Total, &s.Successful, &s.SuccessAmount)
	return s, err
}
