package order

import (
	"errors"
	"time"
)

type Status string

const StatusCreated Status = "created"

const DefaultCurrency = "INR"

var ErrNotFound = errors.New("order not found")

type Order struct {
	ID         string         `json:"id"`
	MerchantID string         `json:"merchant_id"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	Receipt    *string        `json:"receipt"`
	Notes      map[string]any `json:"notes"`
	Status     Status         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
