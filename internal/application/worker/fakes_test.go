package worker_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
)

type enqueued struct {
	Type    job.Type
	Payload []byte
	Delay   time.Duration
}

func (e enqueued) job() job.Job {
	return job.Job{ID: "job-test", Type: e.Type, Payload: e.Payload, Deliveries: 1}
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, t job.Type, payload any) error {
	return f.EnqueueDelayed(ctx, t, payload, 0)
}

func (f *fakeQueue) EnqueueDelayed(_ context.Context, t job.Type, payload any, delay time.Duration) error {
	if f.err != nil {
		return f.err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, enqueued{Type: t, Payload: b, Delay: delay})
	return nil
}

func (f *fakeQueue) all() []enqueued {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]enqueued(nil), f.jobs...)
}

// pop removes and returns the oldest enqueued job.
func (f *fakeQueue) pop() (enqueued, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return enqueued{}, false
	}
	e := f.jobs[0]
	f.jobs = f.jobs[1:]
	return e, true
}

type sentWebhook struct {
	URL       string
	Body      []byte
	Signature string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentWebhook
	sendFn func(n int) webhook.Delivery
}

func (f *fakeSender) Send(_ context.Context, url string, body []byte, signature string) webhook.Delivery {
	f.mu.Lock()
	f.sent = append(f.sent, sentWebhook{URL: url, Body: body, Signature: signature})
	n := len(f.sent)
	f.mu.Unlock()
	return f.sendFn(n)
}

func testMerchant(url string) merchant.Merchant {
	m := merchant.Merchant{
		ID:            "merchant-1",
		Name:          "Test Merchant",
		Email:         "test@example.com",
		APIKey:        "key_test_abc123",
		APISecret:     "secret_test_xyz789",
		WebhookSecret: "whsec_test_abc123",
	}
	if url != "" {
		m.WebhookURL = &url
	}
	return m
}

func decodeWebhookJob(e enqueued) (job.DeliverWebhookPayload, map[string]any) {
	var p job.DeliverWebhookPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		panic(err)
	}
	var envelope map[string]any
	if len(p.Payload) > 0 {
		if err := json.Unmarshal(p.Payload, &envelope); err != nil {
			panic(err)
		}
	}
	return p, envelope
}
