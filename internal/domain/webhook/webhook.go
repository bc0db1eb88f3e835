package webhook

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
	EventPaymentSuccess  = "payment.success"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventTest            = "test.event"
)

const SignatureHeader = "X-Webhook-Signature"

var ErrNotFound = errors.New("webhook log not found")

// Log records every delivery attempt of one event to one merchant.
type Log struct {
	ID            string          `json:"id"`
	MerchantID    string          `json:"merchant_id"`
	Event         string          `json:"event"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	ResponseCode  *int            `json:"response_code"`
	ResponseBody  *string         `json:"response_body"`
	LastAttemptAt *time.Time      `json:"last_attempt_at"`
	NextRetryAt   *time.Time      `json:"next_retry_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Attempt is the outcome of one delivery, persisted as a whole.
type Attempt struct {
	Attempts     int
	ResponseCode int
	ResponseBody string
	AttemptedAt  time.Time
	Status       Status
	NextRetryAt  *time.Time
}

// Envelope is the body POSTed to the merchant.
type Envelope struct {
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

func NewEnvelope(event string, at time.Time, data any) Envelope {
	return Envelope{Event: event, Timestamp: at.Unix(), Data: data}
}

// Delivery is what the merchant endpoint answered. StatusCode 0 means the
// request never got a response and Body holds the transport error.
type Delivery struct {
	StatusCode int
	Body       string
}

func (d Delivery) OK() bool {
	return d.StatusCode >= 200 && d.StatusCode < 300
}
