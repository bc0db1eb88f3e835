package refund

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound       = errors.New("refund not found")
	ErrInvalidAmount  = errors.New("refund amount must be positive")
	ErrExceedsPayment = errors.New("refund amount exceeds available amount")
)

type Refund struct {
	ID          string     `json:"id"`
	PaymentID   string     `json:"payment_id"`
	MerchantID  string     `json:"merchant_id"`
	Amount      int64      `json:"amount"`
	Reason      *string    `json:"reason"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// CheckAvailable reports whether amount can be refunded from a payment of
// paymentAmount given the amount already refunded or pending.
func CheckAvailable(paymentAmount, alreadyRefunded, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if alreadyRefunded+amount > paymentAmount {
		return ErrExceedsPayment
	}
	return nil
}
