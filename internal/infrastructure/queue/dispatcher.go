package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

// Dispatcher polls the jobs table and runs due jobs on a bounded pool.
type Dispatcher struct {
	Repo         Repository
	Clock        contracts.Clock
	Logger       logging.Logger
	Metrics      *metrics.Counters
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
	Lease        time.Duration

	mu       sync.RWMutex
	handlers map[job.Type]job.HandlerFunc
}

func (d *Dispatcher) Subscribe(t job.Type, h job.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handlers == nil {
		d.handlers = make(map[job.Type]job.HandlerFunc)
	}
	d.handlers[t] = h
}

func (d *Dispatcher) handler(t job.Type) (job.HandlerFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h, ok := d.handlers[t]
	return h, ok
}

// Run dispatches until ctx is done, then waits for running jobs. The pool is
// shared across polls, so a slow job only holds its own slot.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(max(d.Concurrency, 1))

	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case <-ticker.C:
			if err := d.dispatch(ctx, &g, nil); err != nil {
				d.Logger.Error("dispatch failed", map[string]any{"error": err})
			}
		}
	}
}

// DispatchOnce starts up to Concurrency due jobs and waits for them. It
// returns how many jobs it claimed.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	var g errgroup.Group
	g.SetLimit(max(d.Concurrency, 1))

	var claimed atomic.Int64
	err := d.dispatch(ctx, &g, &claimed)
	g.Wait()
	return int(claimed.Load()), err
}

// dispatch starts due jobs while g has free slots. Jobs left over wait for
// the next poll.
func (d *Dispatcher) dispatch(ctx context.Context, g *errgroup.Group, claimed *atomic.Int64) error {
	now := d.Clock.Now()

	records, err := d.Repo.FindDue(ctx, now, d.BatchSize)
	if err != nil {
		return fmt.Errorf("find due jobs: %w", err)
	}

	// handlers outlive a cancelled poll loop
	runCtx := context.WithoutCancel(ctx)

	for _, rec := range records {
		started := g.TryGo(func() error {
			ok, err := d.Repo.Claim(runCtx, rec.ID, now, now.Add(d.Lease))
			if err != nil {
				d.Logger.Error("claim job failed", map[string]any{"job_id": rec.ID, "error": err})
				return nil
			}
			if !ok {
				return nil
			}
			if claimed != nil {
				claimed.Add(1)
			}

			rec.Deliveries++
			d.run(runCtx, rec)
			return nil
		})
		if !started {
			break
		}
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, rec Record) {
	fields := map[string]any{
		"job_id":     rec.ID,
		"job_type":   string(rec.Type),
		"deliveries": rec.Deliveries,
	}

	h, ok := d.handler(rec.Type)
	if !ok {
		d.fail(ctx, rec, fmt.Errorf("no handler for job type %s", rec.Type), fields)
		return
	}

	d.Metrics.IncJobDispatched()
	d.Logger.Debug("job started", fields)

	if err := h(ctx, rec.Job()); err != nil {
		d.fail(ctx, rec, err, fields)
		return
	}

	if err := d.Repo.MarkDone(ctx, rec.ID, d.Clock.Now()); err != nil {
		d.Logger.Error("mark job done failed", map[string]any{"job_id": rec.ID, "error": err})
	}
}

func (d *Dispatcher) fail(ctx context.Context, rec Record, cause error, fields map[string]any) {
	d.Metrics.IncJobFailed()
	fields["error"] = cause
	d.Logger.Error("job failed", fields)

	if err := d.Repo.MarkFailed(ctx, rec.ID, cause.Error(), d.Clock.Now()); err != nil {
		d.Logger.Error("mark job failed failed", map[string]any{"job_id": rec.ID, "error": err})
	}
}

// Stats counts jobs per status.
func (d *Dispatcher) Stats(ctx context.Context) (map[string]int, error) {
	counts, err := d.Repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	out := map[string]int{
		string(StatusQueued):  0,
		string(StatusRunning): 0,
		string(StatusDone):    0,
		string(StatusFailed):  0,
	}
	for s, n := range counts {
		out[string(s)] = n
	}
	return out, nil
}
