package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/dashboard"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/idempotency"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/order"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/payment"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/refund"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/application/worker"
	domainIdem "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/idempotency"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/merchant"
	domainOrder "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/order"
	domainPayment "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/payment"
	domainRefund "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/refund"
	domainWebhook "github.com/rcarvalho-pb/payment_gateway-go/internal/domain/webhook"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/clock"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/config"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
	httpapi "github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/persistence/sqldb"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/queue"
	webhookSender "github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/webhook"
)

type stores struct {
	merchants   merchant.Repository
	orders      domainOrder.Repository
	payments    domainPayment.Repository
	refunds     domainRefund.Repository
	webhooks    domainWebhook.Repository
	idempotency domainIdem.Repository
	db          *sqldb.DB
}

// jobBackend is one queue implementation seen from both ends.
type jobBackend struct {
	queue      contracts.JobQueue
	subscriber worker.Subscriber
	stats      httpapi.JobStats
	run        func(ctx context.Context) error
	close      func() error
}

type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Counters
	clock   contracts.Clock
	stores  stores
	jobs    jobBackend
	workers *worker.Workers
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.NewStdoutLogger(logging.ParseLevel(cfg.Log.Level))

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: &metrics.Counters{},
		clock:   clock.Real{},
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.stores = st

	jobs, err := a.openQueue()
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.jobs = jobs

	a.workers = a.newWorkers()
	a.workers.Register(a.jobs.subscriber)

	logger.Info("gateway ready", map[string]any{
		"database":  cfg.Database.Driver,
		"queue":     cfg.Queue.Backend,
		"test_mode": cfg.Processing.TestMode,
	})
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return stores{
			merchants:   inmemory.NewMerchantRepository(merchant.TestMerchant(time.Now())),
			orders:      inmemory.NewOrderRepository(),
			payments:    inmemory.NewPaymentRepository(),
			refunds:     inmemory.NewRefundRepository(),
			webhooks:    inmemory.NewWebhookRepository(),
			idempotency: inmemory.NewIdempotencyRepository(),
		}, nil
	}

	db, err := sqldb.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return stores{}, fmt.Errorf("open database: %w", err)
	}
	if err := sqldb.RunMigrations(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}

	return stores{
		merchants:   sqldb.NewMerchantRepository(db),
		orders:      sqldb.NewOrderRepository(db),
		payments:    sqldb.NewPaymentRepository(db),
		refunds:     sqldb.NewRefundRepository(db),
		webhooks:    sqldb.NewWebhookRepository(db),
		idempotency: sqldb.NewIdempotencyRepository(db),
		db:          db,
	}, nil
}

func (a *app) openQueue() (jobBackend, error) {
	qc := a.cfg.Queue

	switch qc.Backend {
	case config.BackendSQL:
		repo := sqldb.NewJobRepository(a.stores.db)
		d := &queue.Dispatcher{
			Repo:         repo,
			Clock:        a.clock,
			Logger:       a.logger,
			Metrics:      a.metrics,
			PollInterval: qc.PollInterval,
			BatchSize:    qc.BatchSize,
			Concurrency:  qc.Concurrency,
			Lease:        qc.Lease,
		}
		return jobBackend{
			queue:      &queue.SQLQueue{Repo: repo, Clock: a.clock},
			subscriber: d,
			stats:      d,
			run:        d.Run,
			close:      func() error { return nil },
		}, nil

	case config.BackendRabbitMQ:
		q, err := queue.DialRabbitMQ(qc.RabbitMQURL, qc.Prefix, a.logger, a.metrics)
		if err != nil {
			return jobBackend{}, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return jobBackend{
			queue:      q,
			subscriber: q,
			stats:      q,
			run:        func(ctx context.Context) error { return q.Run(ctx, qc.Concurrency) },
			close:      q.Close,
		}, nil

	case config.BackendMemory:
		q := queue.NewMemoryQueue(a.logger, a.metrics)
		return jobBackend{
			queue:      q,
			subscriber: q,
			stats:      q,
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			close: q.Close,
		}, nil
	}

	return jobBackend{}, fmt.Errorf("unsupported queue backend %q", qc.Backend)
}

func (a *app) newWorkers() *worker.Workers {
	p := a.cfg.Processing

	var settlement worker.SettlementSimulator = worker.RandomSettlement{}
	if p.TestMode {
		settlement = worker.FixedSettlement{Delay: p.TestProcessingDelay, Success: p.TestPaymentSuccess}
	}

	schedule := worker.ProductionSchedule
	if p.WebhookRetryIntervalsTest {
		schedule = worker.TestSchedule
	}

	return &worker.Workers{
		Payments: &worker.PaymentProcessor{
			Repo:       a.stores.payments,
			Queue:      a.jobs.queue,
			Clock:      a.clock,
			Logger:     a.logger,
			Metrics:    a.metrics,
			Settlement: settlement,
		},
		Refunds: &worker.RefundProcessor{
			Refunds:    a.stores.refunds,
			Payments:   a.stores.payments,
			Queue:      a.jobs.queue,
			Clock:      a.clock,
			Logger:     a.logger,
			Metrics:    a.metrics,
			Settlement: settlement,
		},
		Webhooks: &worker.WebhookDeliverer{
			Merchants: a.stores.merchants,
			Logs:      a.stores.webhooks,
			Queue:     a.jobs.queue,
			Sender:    webhookSender.NewSender(p.WebhookTimeout),
			Schedule:  schedule,
			Clock:     a.clock,
			Logger:    a.logger,
			Metrics:   a.metrics,
		},
	}
}

func (a *app) Router() http.Handler {
	h := &httpapi.Handlers{
		Orders: &order.Service{Repo: a.stores.orders, Clock: a.clock, Logger: a.logger},
		Payments: &payment.Service{
			Payments:    a.stores.payments,
			Orders:      a.stores.orders,
			Queue:       a.jobs.queue,
			Idempotency: idempotency.NewCache(a.stores.idempotency, a.clock),
			Clock:       a.clock,
			Logger:      a.logger,
		},
		Refunds: &refund.Service{
			Refunds:  a.stores.refunds,
			Payments: a.stores.payments,
			Queue:    a.jobs.queue,
			Clock:    a.clock,
			Logger:   a.logger,
		},
		Webhooks: &webhook.Service{
			Logs:   a.stores.webhooks,
			Queue:  a.jobs.queue,
			Clock:  a.clock,
			Logger: a.logger,
		},
		Dashboard: &dashboard.Service{
			Payments:  a.stores.payments,
			Merchants: a.stores.merchants,
			Logger:    a.logger,
		},
		Merchants: a.stores.merchants,
		Jobs:      a.jobs.stats,
		Metrics:   a.metrics,
		Logger:    a.logger,
	}
	if a.stores.db != nil {
		h.DB = a.stores.db
	}
	return httpapi.NewRouter(h)
}

// RunWorkers consumes jobs until ctx is done.
func (a *app) RunWorkers(ctx context.Context) error {
	a.logger.Info("workers started", map[string]any{
		"queue":       a.cfg.Queue.Backend,
		"concurrency": a.cfg.Queue.Concurrency,
	})
	err := a.jobs.run(ctx)
	a.logger.Info("workers stopped", nil)
	return err
}

func (a *app) closeStores() {
	if a.stores.db != nil {
		if err := a.stores.db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close database:", err)
		}
	}
}

func (a *app) Close() {
	if err := a.jobs.close(); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("close queue", map[string]any{"error": err})
	}
	a.closeStores()
}
