package refund_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	domainRefund "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/persistence/inmemory"
)

var start = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []job.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, t job.Type, payload any) error {
	return q.EnqueueDelayed(ctx, t, payload, 0)
}

func (q *recordingQueue) EnqueueDelayed(_ context.Context, t job.Type, payload any, _ time.Duration) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job.Job{Type: t, Payload: b})
	return nil
}

func newService(t *testing.T, status payment.Status) (*refund.Service, *recordingQueue) {
	t.Helper()

	payments := inmemory.NewPaymentRepository()
	require.NoError(t, payments.Save(context.Background(), &payment.Payment{
		ID:         "pay_1",
		OrderID:    "order_1",
		MerchantID: "merchant-1",
		Amount:     50000,
		Currency:   "INR",
		Method:     payment.UPI{VPA: "user@upi"},
		Status:     status,
		CreatedAt:  start,
		UpdatedAt:  start,
	}))

	q := &recordingQueue{}
	return &refund.Service{
		Refunds:  inmemory.NewRefundRepository(),
		Payments: payments,
		Queue:    q,
		Clock:    clock.NewFake(start),
		Logger:   logging.Nop{},
	}, q
}

func TestCreate_ShouldStorePendingAndEnqueue(t *testing.T) {
	svc, q := newService(t, payment.StatusSuccess)
	reason := "customer request"

	r, err := svc.Create(context.Background(), "merchant-1", "pay_1", refund.CreateInput{Amount: 20000, Reason: &reason})

	require.NoError(t, err)
	require.Regexp(t, `^rfnd_[A-Za-z0-9]{16}$`, r.ID)
	require.Equal(t, domainRefund.StatusPending, r.Status)
	require.Nil(t, r.ProcessedAt)

	require.Len(t, q.jobs, 1)
	require.Equal(t, job.ProcessRefund, q.jobs[0].Type)
	var p job.ProcessRefundPayload
	require.NoError(t, q.jobs[0].Decode(&p))
	require.Equal(t, r.ID, p.RefundID)

	got, err := svc.Get(context.Background(), "merchant-1", r.ID)
	require.NoError(t, err)
	require.Equal(t, "customer request", *got.Reason)
}

func TestCreate_OverRefund_ShouldBeRejected(t *testing.T) {
	ctx := context.Background()
	svc, q := newService(t, payment.StatusSuccess)

	_, err := svc.Create(ctx, "merchant-1", "pay_1", refund.CreateInput{Amount: 30000})
	require.NoError(t, err)

	// the pending refund counts against the payment
	_, err = svc.Create(ctx, "merchant-1", "pay_1", refund.CreateInput{Amount: 20001})
	require.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	require.Equal(t, "Refund amount exceeds available amount", apperr.Description(err))

	_, err = svc.Create(ctx, "merchant-1", "pay_1", refund.CreateInput{Amount: 20000})
	require.NoError(t, err)
	require.Len(t, q.jobs, 2)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		status    payment.Status
		merchant  string
		amount    int64
		wantCode  apperr.Code
		wantDescr string
	}{
		{"zero amount", payment.StatusSuccess, "merchant-1", 0, apperr.CodeBadRequest, "Refund amount must be greater than 0"},
		{"pending payment", payment.StatusPending, "merchant-1", 100, apperr.CodeBadRequest, "Payment not in refundable state"},
		{"failed payment", payment.StatusFailed, "merchant-1", 100, apperr.CodeBadRequest, "Payment not in refundable state"},
		{"foreign payment", payment.StatusSuccess, "merchant-2", 100, apperr.CodeNotFound, "Payment not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, q := newService(t, tt.status)

			_, err := svc.Create(context.Background(), tt.merchant, "pay_1", refund.CreateInput{Amount: tt.amount})

			require.Equal(t, tt.wantCode, apperr.CodeOf(err))
			require.Equal(t, tt.wantDescr, apperr.Description(err))
			require.Empty(t, q.jobs)
		})
	}
}

func TestGet_Unknown_ShouldBeNotFound(t *testing.T) {
	svc, _ := newService(t, payment.StatusSuccess)

	_, err := svc.Get(context.Background(), "merchant-1", "rfnd_missing")

	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	require.Equal(t, "Refund not found", apperr.Description(err))
}
