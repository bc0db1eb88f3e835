package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

// MemoryQueue runs every job on its own goroutine inside the process.
// Delayed jobs wait on a timer. Nothing survives a restart.
type MemoryQueue struct {
	Logger  logging.Logger
	Metrics *metrics.Counters

	mu       sync.RWMutex
	handlers map[job.Type]job.HandlerFunc
	timers   map[*time.Timer]struct{}
	closed   bool
	wg       sync.WaitGroup

	queued atomic.Int64
	done   atomic.Int64
	failed atomic.Int64
}

func NewMemoryQueue(logger logging.Logger, m *metrics.Counters) *MemoryQueue {
	return &MemoryQueue{
		Logger:   logger,
		Metrics:  m,
		handlers: make(map[job.Type]job.HandlerFunc),
		timers:   make(map[*time.Timer]struct{}),
	}
}

func (q *MemoryQueue) Subscribe(t job.Type, h job.HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[t] = h
}

func (q *MemoryQueue) Enqueue(ctx context.Context, t job.Type, payload any) error {
	return q.EnqueueDelayed(ctx, t, payload, 0)
}

func (q *MemoryQueue) EnqueueDelayed(ctx context.Context, t job.Type, payload any, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", t, err)
	}

	j := job.Job{ID: ids.UUID(), Type: t, Payload: body, Deliveries: 1}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("memory queue closed")
	}

	q.queued.Add(1)
	q.wg.Add(1)

	if delay <= 0 {
		go q.run(j)
		return nil
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		q.run(j)
	})
	q.timers[timer] = struct{}{}
	return nil
}

func (q *MemoryQueue) run(j job.Job) {
	defer q.wg.Done()
	q.queued.Add(-1)

	q.mu.RLock()
	h, ok := q.handlers[j.Type]
	q.mu.RUnlock()

	fields := map[string]any{"job_id": j.ID, "job_type": string(j.Type)}

	if !ok {
		q.failed.Add(1)
		q.Metrics.IncJobFailed()
		q.Logger.Error("no handler for job", fields)
		return
	}

	q.Metrics.IncJobDispatched()
	if err := h(context.Background(), j); err != nil {
		q.failed.Add(1)
		q.Metrics.IncJobFailed()
		fields["error"] = err
		q.Logger.Error("job failed", fields)
		return
	}
	q.done.Add(1)
}

// Wait blocks until every enqueued job, delayed ones included, has run.
func (q *MemoryQueue) Wait() {
	q.wg.Wait()
}

// Close drops pending delayed jobs and waits for running ones.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	for t := range q.timers {
		if t.Stop() {
			q.queued.Add(-1)
			q.wg.Done()
		}
		delete(q.timers, t)
	}
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *MemoryQueue) Stats(context.Context) (map[string]int, error) {
	return map[string]int{
		string(StatusQueued): int(q.queued.Load()),
		string(StatusDone):   int(q.done.Load()),
		string(StatusFailed): int(q.failed.Load()),
	}, nil
}
