package queue

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Record is a job row of the SQL queue.
type Record struct {
	ID          string
	Type        job.Type
	Payload     []byte
	Status      Status
	AvailableAt time.Time
	LockedUntil time.Time
	Deliveries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Record) Job() job.Job {
	return job.Job{
		ID:         r.ID,
		Type:       r.Type,
		Payload:    r.Payload,
		Deliveries: r.Deliveries,
	}
}

type Repository interface {
	Insert(ctx context.Context, rec Record) error
	// FindDue returns queued jobs whose available_at has passed and running
	// jobs whose lease expired.
	FindDue(ctx context.Context, now time.Time, limit int) ([]Record, error)
	// Claim leases a due job until lockedUntil. It reports false when another
	// dispatcher claimed it first.
	Claim(ctx context.Context, id string, now, lockedUntil time.Time) (bool, error)
	MarkDone(ctx context.Context, id string, now time.Time) error
	MarkFailed(ctx context.Context, id, lastError string, now time.Time) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
