package worker

import "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"

// Subscriber is implemented by every queue consumer.
type Subscriber interface {
	Subscribe(t job.Type, h job.HandlerFunc)
}

type Workers struct {
	Payments *PaymentProcessor
	Refunds  *RefundProcessor
	Webhooks *WebhookDeliverer
}

// Register binds each job type to its processor.
func (w *Workers) Register(s Subscriber) {
	s.Subscribe(job.ProcessPayment, w.Payments.Handle)
	s.Subscribe(job.ProcessRefund, w.Refunds.Handle)
	s.Subscribe(job.DeliverWebhook, w.Webhooks.Handle)
}
