package job

import (
	"context"
	"encoding/json"
)

type Type string

const (
	ProcessPayment Type = "process-payment"
	ProcessRefund  Type = "process-refund"
	DeliverWebhook Type = "deliver-webhook"
)

// Types lists every job type a worker consumes.
var Types = []Type{ProcessPayment, ProcessRefund, DeliverWebhook}

type Job struct {
	ID         string
	Type       Type
	Payload    []byte
	Deliveries int
}

// Decode unmarshals the job payload into v.
func (j Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

type HandlerFunc func(ctx context.Context, j Job) error
