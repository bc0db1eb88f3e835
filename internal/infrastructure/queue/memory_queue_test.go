package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/queue"
)

func TestMemoryQueue_RunsImmediateAndDelayedJobs(t *testing.T) {
	q := queue.NewMemoryQueue(logging.Nop{}, &metrics.Counters{})

	var got atomic.Int32
	q.Subscribe(job.ProcessPayment, func(_ context.Context, j job.Job) error {
		var p job.ProcessPaymentPayload
		if err := j.Decode(&p); err != nil {
			return err
		}
		if p.PaymentID == "pay_1" {
			got.Add(1)
		}
		return nil
	})
	q.Subscribe(job.ProcessRefund, func(context.Context, job.Job) error {
		return errors.New("boom")
	})

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job.ProcessPayment, job.ProcessPaymentPayload{PaymentID: "pay_1"}))
	require.NoError(t, q.EnqueueDelayed(ctx, job.ProcessPayment, job.ProcessPaymentPayload{PaymentID: "pay_1"}, 10*time.Millisecond))
	require.NoError(t, q.Enqueue(ctx, job.ProcessRefund, job.ProcessRefundPayload{RefundID: "rfnd_1"}))

	q.Wait()

	require.Equal(t, int32(2), got.Load())
	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats["done"])
	require.Equal(t, 1, stats["failed"])
	require.Equal(t, 0, stats["queued"])
}

func TestMemoryQueue_CloseDropsPendingTimers(t *testing.T) {
	q := queue.NewMemoryQueue(logging.Nop{}, &metrics.Counters{})

	var ran atomic.Bool
	q.Subscribe(job.DeliverWebhook, func(context.Context, job.Job) error {
		ran.Store(true)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, q.EnqueueDelayed(ctx, job.DeliverWebhook, job.DeliverWebhookPayload{}, time.Hour))
	require.NoError(t, q.Close())
	require.False(t, ran.Load())

	require.Error(t, q.Enqueue(ctx, job.DeliverWebhook, job.DeliverWebhookPayload{}))
}
