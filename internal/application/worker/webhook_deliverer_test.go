package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/persistence/inmemory"
)

type deliveryFixture struct {
	deliverer *worker.WebhookDeliverer
	logs      *inmemory.WebhookRepository
	queue     *fakeQueue
	sender    *fakeSender
	clock     *clock.Fake
	metrics   *metrics.Counters
}

func newDeliveryFixture(url string, sendFn func(n int) webhook.Delivery) *deliveryFixture {
	f := &deliveryFixture{
		logs:    inmemory.NewWebhookRepository(),
		queue:   &fakeQueue{},
		sender:  &fakeSender{sendFn: sendFn},
		clock:   clock.NewFake(start),
		metrics: &metrics.Counters{},
	}
	f.deliverer = &worker.WebhookDeliverer{
		Merchants: inmemory.NewMerchantRepository(testMerchant(url)),
		Logs:      f.logs,
		Queue:     f.queue,
		Sender:    f.sender,
		Schedule:  worker.ProductionSchedule,
		Clock:     f.clock,
		Logger:    logging.Nop{},
		Metrics:   f.metrics,
	}
	return f
}

var eventBody = []byte(`{"event":"payment.success","timestamp":1775034000,"data":{"payment":{"id":"pay_1"}}}`)

func firstDeliveryJob() job.Job {
	b, _ := json.Marshal(job.DeliverWebhookPayload{
		MerchantID: "merchant-1",
		Event:      webhook.EventPaymentSuccess,
		Payload:    eventBody,
	})
	return job.Job{ID: "job-w", Type: job.DeliverWebhook, Payload: b}
}

func TestWebhookDeliverer_WhenEndpointAccepts_ShouldSignAndMarkSuccess(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 200, Body: "ok"}
	})

	require.NoError(t, f.deliverer.Handle(context.Background(), firstDeliveryJob()))

	require.Len(t, f.sender.sent, 1)
	sent := f.sender.sent[0]
	require.Equal(t, "https://merchant.example/hooks", sent.URL)
	require.Equal(t, eventBody, sent.Body)
	require.Equal(t, webhook.Sign("whsec_test_abc123", eventBody), sent.Signature)

	logs := f.logs.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, webhook.StatusSuccess, logs[0].Status)
	require.Equal(t, 1, logs[0].Attempts)
	require.Equal(t, 200, *logs[0].ResponseCode)
	require.Equal(t, "ok", *logs[0].ResponseBody)
	require.Nil(t, logs[0].NextRetryAt)
	require.Empty(t, f.queue.all())
	require.Equal(t, uint64(1), f.metrics.WebhooksDelivered)
}

func TestWebhookDeliverer_WhenMerchantHasNoURL_ShouldSkipWithoutLog(t *testing.T) {
	f := newDeliveryFixture("", func(int) webhook.Delivery {
		t.Fatal("no request expected")
		return webhook.Delivery{}
	})

	require.NoError(t, f.deliverer.Handle(context.Background(), firstDeliveryJob()))
	require.Empty(t, f.logs.Logs())
	require.Empty(t, f.queue.all())
}

func TestWebhookDeliverer_ProductionScheduleBacksOffThenFails(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 503, Body: "unavailable"}
	})

	ctx := context.Background()
	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))

	wantDeltas := []time.Duration{time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	for i, want := range wantDeltas {
		logs := f.logs.Logs()
		require.Len(t, logs, 1)
		l := logs[0]

		require.Equal(t, i+1, l.Attempts)
		require.Equal(t, webhook.StatusPending, l.Status)
		require.Equal(t, want, l.NextRetryAt.Sub(*l.LastAttemptAt), "attempt %d", i+1)

		next, ok := f.queue.pop()
		require.True(t, ok)
		require.Equal(t, want, next.Delay)

		payload, _ := decodeWebhookJob(next)
		require.Equal(t, l.ID, payload.WebhookLogID)

		f.clock.Advance(next.Delay)
		require.NoError(t, f.deliverer.Handle(ctx, next.job()))
	}

	logs := f.logs.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, 5, logs[0].Attempts)
	require.Equal(t, webhook.StatusFailed, logs[0].Status)
	require.Nil(t, logs[0].NextRetryAt)
	require.Empty(t, f.queue.all(), "no job after the final attempt")
	require.Len(t, f.sender.sent, 5)
	require.Equal(t, uint64(1), f.metrics.WebhooksFailed)
	require.Equal(t, uint64(4), f.metrics.WebhooksRetried)
}

func TestWebhookDeliverer_NetworkErrorRecordsCodeZero(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 0, Body: "dial tcp: connection refused"}
	})

	require.NoError(t, f.deliverer.Handle(context.Background(), firstDeliveryJob()))

	l := f.logs.Logs()[0]
	require.Equal(t, 0, *l.ResponseCode)
	require.Equal(t, "dial tcp: connection refused", *l.ResponseBody)
	require.Equal(t, webhook.StatusPending, l.Status)
}

func TestWebhookDeliverer_RecoversOnRetry(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(n int) webhook.Delivery {
		if n == 1 {
			return webhook.Delivery{StatusCode: 500}
		}
		return webhook.Delivery{StatusCode: 204}
	})

	ctx := context.Background()
	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))

	next, ok := f.queue.pop()
	require.True(t, ok)
	require.NoError(t, f.deliverer.Handle(ctx, next.job()))

	l := f.logs.Logs()[0]
	require.Equal(t, webhook.StatusSuccess, l.Status)
	require.Equal(t, 2, l.Attempts)
	require.Equal(t, eventBody, f.sender.sent[1].Body)

	// a duplicate delivery of a settled log is ignored
	require.NoError(t, f.deliverer.Handle(ctx, next.job()))
	require.Len(t, f.sender.sent, 2)
}

func TestWebhookDeliverer_WhenEnqueueFails_StillPersistsAttempt(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 500}
	})
	f.queue.err = context.DeadlineExceeded

	err := f.deliverer.Handle(context.Background(), firstDeliveryJob())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	l := f.logs.Logs()[0]
	require.Equal(t, 1, l.Attempts)
	require.Equal(t, webhook.StatusPending, l.Status)
}

func TestWebhookDeliverer_RedeliveredRetryJob_ShouldNotForkRetries(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 503}
	})

	ctx := context.Background()
	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))

	retry, ok := f.queue.pop()
	require.True(t, ok)
	require.NoError(t, f.deliverer.Handle(ctx, retry.job()))
	require.NoError(t, f.deliverer.Handle(ctx, retry.job()))

	require.Len(t, f.sender.sent, 2)
	l := f.logs.Logs()[0]
	require.Equal(t, 2, l.Attempts)

	pending := f.queue.all()
	require.Len(t, pending, 1)
	require.Equal(t, 5*time.Minute, pending[0].Delay)
	p, _ := decodeWebhookJob(pending[0])
	require.Equal(t, 2, p.Attempt)
}

func TestWebhookDeliverer_RedeliveredFirstJob_ShouldReuseItsLog(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 500}
	})

	ctx := context.Background()
	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))
	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))

	logs := f.logs.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, "job-w", logs[0].ID)
	require.Equal(t, 1, logs[0].Attempts)
	require.Len(t, f.sender.sent, 1)
	require.Len(t, f.queue.all(), 1)
}

func TestWebhookDeliverer_JobScheduledBeforeManualRetry_ShouldBeDropped(t *testing.T) {
	f := newDeliveryFixture("https://merchant.example/hooks", func(int) webhook.Delivery {
		return webhook.Delivery{StatusCode: 500}
	})

	ctx := context.Background()
	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))

	stale, ok := f.queue.pop()
	require.True(t, ok)
	require.NoError(t, f.logs.ResetForRetry(ctx, "job-w"))

	require.NoError(t, f.deliverer.Handle(ctx, stale.job()))

	require.Len(t, f.sender.sent, 1)
	require.Zero(t, f.logs.Logs()[0].Attempts)
	require.Empty(t, f.queue.all())
}

func TestWebhookDeliverer_WhenConcurrentDeliveryWins_ShouldNotScheduleRetry(t *testing.T) {
	ctx := context.Background()

	var f *deliveryFixture
	f = newDeliveryFixture("https://merchant.example/hooks", func(n int) webhook.Delivery {
		if n == 2 {
			saved, err := f.logs.SaveAttempt(ctx, "job-w", 1, webhook.Attempt{
				Attempts:     2,
				ResponseCode: 200,
				AttemptedAt:  start,
				Status:       webhook.StatusSuccess,
			})
			require.NoError(t, err)
			require.True(t, saved)
		}
		return webhook.Delivery{StatusCode: 500}
	})

	require.NoError(t, f.deliverer.Handle(ctx, firstDeliveryJob()))
	retry, ok := f.queue.pop()
	require.True(t, ok)

	require.NoError(t, f.deliverer.Handle(ctx, retry.job()))

	l := f.logs.Logs()[0]
	require.Equal(t, webhook.StatusSuccess, l.Status)
	require.Equal(t, 2, l.Attempts)
	require.Empty(t, f.queue.all())
	require.Equal(t, uint64(1), f.metrics.WebhooksRetried)
}
