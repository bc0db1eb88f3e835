package job

import "encoding/json"

type ProcessPaymentPayload struct {
	PaymentID string `json:"payment_id"`
}

type ProcessRefundPayload struct {
	RefundID string `json:"refund_id"`
}

// DeliverWebhookPayload schedules one delivery attempt. Attempt is the number
// of attempts the log must already have for the job to run.
type DeliverWebhookPayload struct {
	MerchantID   string          `json:"merchant_id"`
	Event        string          `json:"event"`
	Payload      json.RawMessage `json:"payload"`
	WebhookLogID string          `json:"webhook_log_id,omitempty"`
	Attempt      int             `json:"attempt"`
}
