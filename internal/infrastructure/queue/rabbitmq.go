package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/ids"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infra/metrics"
)

// Channel is the subset of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// RabbitMQ keeps one durable queue per job type. Delayed jobs sit in a TTL
// queue per delay that dead-letters into the job type queue. Delay queues
// never expire: publishing does not renew an x-expires lease, so an expiring
// queue would drop the messages still waiting in it.
type RabbitMQ struct {
	Logger  logging.Logger
	Metrics *metrics.Counters

	ch     Channel
	conn   io.Closer
	prefix string

	mu       sync.Mutex
	declared map[string]bool
	handlers map[job.Type]job.HandlerFunc
}

func DialRabbitMQ(url, prefix string, logger logging.Logger, m *metrics.Counters) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	q := NewRabbitMQ(ch, prefix, logger, m)
	q.conn = conn
	return q, nil
}

func NewRabbitMQ(ch Channel, prefix string, logger logging.Logger, m *metrics.Counters) *RabbitMQ {
	return &RabbitMQ{
		Logger:   logger,
		Metrics:  m,
		ch:       ch,
		prefix:   prefix,
		declared: make(map[string]bool),
		handlers: make(map[job.Type]job.HandlerFunc),
	}
}

func (q *RabbitMQ) QueueName(t job.Type) string {
	return q.prefix + "." + string(t)
}

func delayQueueName(main string, delay time.Duration) string {
	return main + ".delay." + strconv.FormatInt(delay.Milliseconds(), 10)
}

func (q *RabbitMQ) declare(name string, args amqp.Table) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.declared[name] {
		return nil
	}

	if _, err := q.ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}

	q.declared[name] = true
	return nil
}

func (q *RabbitMQ) Enqueue(ctx context.Context, t job.Type, payload any) error {
	return q.EnqueueDelayed(ctx, t, payload, 0)
}

func (q *RabbitMQ) EnqueueDelayed(ctx context.Context, t job.Type, payload any, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", t, err)
	}

	main := q.QueueName(t)
	if err := q.declare(main, nil); err != nil {
		return err
	}

	target := main
	if delay > 0 {
		ttl := delay.Milliseconds()
		target = delayQueueName(main, delay)
		if err := q.declare(target, amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": main,
			"x-message-ttl":             ttl,
		}); err != nil {
			return err
		}
	}

	return q.ch.PublishWithContext(
		ctx,
		"",     // default exchange
		target, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ids.UUID(),
			Type:         string(t),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (q *RabbitMQ) Subscribe(t job.Type, h job.HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[t] = h
}

// Run consumes every subscribed job type with up to concurrency handlers
// per type until ctx is done.
func (q *RabbitMQ) Run(ctx context.Context, concurrency int) error {
	concurrency = max(concurrency, 1)

	if err := q.ch.Qos(concurrency*len(q.subscriptions()), 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	for t, h := range q.subscriptions() {
		name := q.QueueName(t)
		if err := q.declare(name, nil); err != nil {
			return err
		}

		deliveries, err := q.ch.Consume(
			name,
			"",    // consumer
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", name, err)
		}

		for range concurrency {
			g.Go(func() error {
				return q.consume(ctx, t, h, deliveries)
			})
		}
	}

	return g.Wait()
}

func (q *RabbitMQ) subscriptions() map[job.Type]job.HandlerFunc {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[job.Type]job.HandlerFunc, len(q.handlers))
	for t, h := range q.handlers {
		out[t] = h
	}
	return out
}

func (q *RabbitMQ) consume(ctx context.Context, t job.Type, h job.HandlerFunc, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			q.handle(context.WithoutCancel(ctx), t, h, d)
		}
	}
}

func (q *RabbitMQ) handle(ctx context.Context, t job.Type, h job.HandlerFunc, d amqp.Delivery) {
	j := job.Job{ID: d.MessageId, Type: t, Payload: d.Body, Deliveries: 1}
	if d.Redelivered {
		j.Deliveries = 2
	}

	fields := map[string]any{"job_id": j.ID, "job_type": string(t)}

	q.Metrics.IncJobDispatched()
	if err := h(ctx, j); err != nil {
		q.Metrics.IncJobFailed()
		fields["error"] = err
		q.Logger.Error("job failed", fields)

		if err := d.Nack(false, false); err != nil {
			q.Logger.Error("nack failed", map[string]any{"job_id": j.ID, "error": err})
		}
		return
	}

	if err := d.Ack(false); err != nil {
		q.Logger.Error("ack failed", map[string]any{"job_id": j.ID, "error": err})
	}
}

// Stats reports the ready message count of each job type queue.
func (q *RabbitMQ) Stats(context.Context) (map[string]int, error) {
	out := make(map[string]int, len(job.Types))
	for _, t := range job.Types {
		info, err := q.ch.QueueDeclare(q.QueueName(t), true, false, false, false, nil)
		if err != nil {
			return nil, err
		}
		out[string(t)] = info.Messages
	}
	return out, nil
}

func (q *RabbitMQ) Close() error {
	if err := q.ch.Close(); err != nil {
		return err
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
