package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/refund"
)

type RefundRepository struct {
	db *DB
}

func NewRefundRepository(db *DB) *RefundRepository {
	return &RefundRepository{db: db}
}

const refundColumns = `id, payment_id, merchant_id, amount, reason, status, created_at, processed_at`

func scanRefund(row scanner) (*refund.Refund, error) {
	var (
		rf          refund.Refund
		reason      sql.NullString
		status      string
		processedAt sql.NullTime
	)
	if err := row.Scan(&rf.ID, &rf.PaymentID, &rf.MerchantID, &rf.Amount, &reason, &status, &rf.CreatedAt, &processedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, refund.ErrNotFound
		}
		return nil, err
	}
	rf.Reason = stringPtr(reason)
	rf.Status = refund.Status(status)
	rf.ProcessedAt = timePtr(processedAt)
	return &rf, nil
}

func (r *RefundRepository) Save(ctx context.Context, rf *refund.Refund) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO refunds (`+refundColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rf.ID,
		rf.PaymentID,
		rf.MerchantID,
		rf.Amount,
		nullString(rf.Reason),
		string(rf.Status),
		rf.CreatedAt.UTC(),
		nullTime(rf.ProcessedAt),
	)
	return err
}

func (r *RefundRepository) FindByID(ctx context.Context, id string) (*refund.Refund, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+refundColumns+` FROM refunds WHERE id = ?`), id)
	return scanRefund(row)
}

func (r *RefundRepository) FindForMerchant(ctx context.Context, id, merchantID string) (*refund.Refund, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT `+refundColumns+` FROM refunds WHERE id = ? AND merchant_id = ?`), id, merchantID)
	return scanRefund(row)
}

func (r *RefundRepository) SumActive(ctx context.Context, paymentID, excludeID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM refunds
		 WHERE payment_id = ? AND status IN (?, ?) AND id <> ?`),
		paymentID,
		string(refund.StatusPending),
		string(refund.StatusProcessed),
		excludeID,
	).Scan(&total)
	return total, err
}

func (r *RefundRepository) MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE refunds SET status = ?, processed_at = ? WHERE id = ? AND status = ?`),
		string(refund.StatusProcessed),
		at.UTC(),
		id,
		string(refund.StatusPending),
	)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *RefundRepository) MarkFailed(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE refunds SET status = ? WHERE id = ? AND status = ?`),
		string(refund.StatusFailed),
		id,
		string(refund.StatusPending),
	)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}
