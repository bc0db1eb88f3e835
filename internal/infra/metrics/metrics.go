package metrics

import "sync/atomic"

type Counters struct {
	PaymentsProcessed uint64
	PaymentsFailed    uint64
	PaymentsSucceeded uint64
	RefundsProcessed  uint64
	RefundsFailed     uint64
	WebhooksDelivered uint64
	WebhooksFailed    uint64
	WebhooksRetried   uint64
	JobsDispatched    uint64
	JobsFailed        uint64
}

func (c *Counters) IncProcessed() {
	atomic.AddUint64(&c.PaymentsProcessed, 1)
}

func (c *Counters) IncFailed() {
	atomic.AddUint64(&c.PaymentsFailed, 1)
}

func (c *Counters) IncSucceeded() {
	atomic.AddUint64(&c.PaymentsSucceeded, 1)
}

func (c *Counters) IncRefundProcessed() {
	atomic.AddUint64(&c.RefundsProcessed, 1)
}

func (c *Counters) IncRefundFailed() {
	atomic.AddUint64(&c.RefundsFailed, 1)
}

func (c *Counters) IncWebhookDelivered() {
	atomic.AddUint64(&c.WebhooksDelivered, 1)
}

func (c *Counters) IncWebhookFailed() {
	atomic.AddUint64(&c.WebhooksFailed, 1)
}

func (c *Counters) IncWebhookRetried() {
	atomic.AddUint64(&c.WebhooksRetried, 1)
}

func (c *Counters) IncJobDispatched() {
	atomic.AddUint64(&c.JobsDispatched, 1)
}

func (c *Counters) IncJobFailed() {
	atomic.AddUint64(&c.JobsFailed, 1)
}

// Snapshot reads every counter atomically, keyed by name.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"payments_processed": atomic.LoadUint64(&c.PaymentsProcessed),
		"payments_succeeded": atomic.LoadUint64(&c.PaymentsSucceeded),
		"payments_failed":    atomic.LoadUint64(&c.PaymentsFailed),
		"refunds_processed":  atomic.LoadUint64(&c.RefundsProcessed),
		"refunds_failed":     atomic.LoadUint64(&c.RefundsFailed),
		"webhooks_delivered": atomic.LoadUint64(&c.WebhooksDelivered),
		"webhooks_failed":    atomic.LoadUint64(&c.WebhooksFailed),
		"webhooks_retried":   atomic.LoadUint64(&c.WebhooksRetried),
		"jobs_dispatched":    atomic.LoadUint64(&c.JobsDispatched),
		"jobs_failed":        atomic.LoadUint64(&c.JobsFailed),
	}
}
