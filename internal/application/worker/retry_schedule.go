package worker

import (
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
)

// MaxWebhookAttempts is the number of deliveries before a log fails.
const MaxWebhookAttempts = 5

// RetrySchedule maps the attempt count to the wait before the next delivery.
type RetrySchedule struct {
	Intervals   []time.Duration
	MaxAttempts int
}

var ProductionSchedule = RetrySchedule{
	Intervals:   []time.Duration{0, time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour},
	MaxAttempts: MaxWebhookAttempts,
}

var TestSchedule = RetrySchedule{
	Intervals:   []time.Duration{0, 5 * time.Second, 10 * time.Second, 15 * time.Second, 20 * time.Second},
	MaxAttempts: MaxWebhookAttempts,
}

type Decision struct {
	Status webhook.Status
	Retry  bool
	Delay  time.Duration
}

// Next decides what happens after a delivery. attempts already counts the
// delivery that just finished.
func (s RetrySchedule) Next(attempts int, ok bool) Decision {
	if ok {
		return Decision{Status: webhook.StatusSuccess}
	}
	if attempts >= s.MaxAttempts {
		return Decision{Status: webhook.StatusFailed}
	}

	idx := min(max(attempts, 0), len(s.Intervals)-1)
	return Decision{
		Status: webhook.StatusPending,
		Retry:  true,
		Delay:  s.Intervals[idx],
	}
}
