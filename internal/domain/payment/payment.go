package payment

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

const (
	ErrorCodePaymentFailed        = "PAYMENT_FAILED"
	ErrorDescriptionPaymentFailed = "Simulated payment failure"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrNotCapturable   = errors.New("payment not in capturable state")
	ErrAlreadyCaptured = errors.New("payment already captured")
)

type Payment struct {
	ID               string
	OrderID          string
	MerchantID       string
	Amount           int64
	Currency         string
	Method           Method
	Status           Status
	Captured         bool
	ErrorCode        string
	ErrorDescription string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CheckCapturable reports why p cannot be captured, or nil.
func (p *Payment) CheckCapturable() error {
	if p.Status != StatusSuccess {
		return ErrNotCapturable
	}
	if p.Captured {
		return ErrAlreadyCaptured
	}
	return nil
}

type paymentError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type paymentJSON struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	MerchantID  string        `json:"merchant_id"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Method      MethodKind    `json:"method"`
	VPA         string        `json:"vpa,omitempty"`
	CardNetwork Network       `json:"card_network,omitempty"`
	CardLast4   string        `json:"card_last4,omitempty"`
	Status      Status        `json:"status"`
	Captured    bool          `json:"captured"`
	Error       *paymentError `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MarshalJSON flattens the method variant into the wire representation.
func (p Payment) MarshalJSON() ([]byte, error) {
	out := paymentJSON{
		ID:         p.ID,
		OrderID:    p.OrderID,
		MerchantID: p.MerchantID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     p.Status,
		Captured:   p.Captured,
		CreatedAt:  p.CreatedAt.UTC(),
		UpdatedAt:  p.UpdatedAt.UTC(),
	}

	switch m := p.Method.(type) {
	case UPI:
		out.Method = MethodUPI
		out.VPA = m.VPA
	case Card:
		out.Method = MethodCard
		out.CardNetwork = m.Network
		out.CardLast4 = m.Last4
	}

	if p.Status == StatusFailed {
		out.Error = &paymentError{Code: p.ErrorCode, Description: p.ErrorDescription}
	}

	return json.Marshal(out)
}
