package sqldb

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/domain/job"
	"github.com/rcarvalho-pb/payment_gateway-go/internal/infrastructure/queue"
)

// JobRepository stores the SQL queue. available_at and locked_until are
// unix milliseconds so due checks compare numbers on every driver.
type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (r *JobRepository) Insert(ctx context.Context, rec queue.Record) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO jobs
		 (id, type, payload, status, available_at, locked_until, deliveries, last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID,
		string(rec.Type),
		string(rec.Payload),
		string(rec.Status),
		millis(rec.AvailableAt),
		millis(rec.LockedUntil),
		rec.Deliveries,
		rec.LastError,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	return err
}

func (r *JobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]queue.Record, error) {
	ms := now.UnixMilli()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, type, payload, status, available_at, locked_until, deliveries, last_error, created_at, updated_at
		 FROM jobs
		 WHERE (status = ? AND available_at <= ?)
		    OR (status = ? AND locked_until <= ?)
		 ORDER BY available_at, id
		 LIMIT ?`),
		string(queue.StatusQueued), ms,
		string(queue.StatusRunning), ms,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []queue.Record
	for rows.Next() {
		var (
			rec         queue.Record
			typ         string
			payload     string
			status      string
			availableAt int64
			lockedUntil int64
		)
		if err := rows.Scan(
			&rec.ID,
			&typ,
			&payload,
			&status,
			&availableAt,
			&lockedUntil,
			&rec.Deliveries,
			&rec.LastError,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rec.Type = job.Type(typ)
		rec.Payload = []byte(payload)
		rec.Status = queue.Status(status)
		rec.AvailableAt = fromMillis(availableAt)
		rec.LockedUntil = fromMillis(lockedUntil)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *JobRepository) Claim(ctx context.Context, id string, now, lockedUntil time.Time) (bool, error) {
	ms := now.UnixMilli()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE jobs
		 SET status = ?, locked_until = ?, deliveries = deliveries + 1, updated_at = ?
		 WHERE id = ?
		   AND ((status = ? AND available_at <= ?) OR (status = ? AND locked_until <= ?))`),
		string(queue.StatusRunning),
		lockedUntil.UnixMilli(),
		now.UTC(),
		id,
		string(queue.StatusQueued), ms,
		string(queue.StatusRunning), ms,
	)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *JobRepository) MarkDone(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE jobs SET status = ?, locked_until = 0, updated_at = ? WHERE id = ?`),
		string(queue.StatusDone), now.UTC(), id,
	)
	return err
}

func (r *JobRepository) MarkFailed(ctx context.Context, id, lastError string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE jobs SET status = ?, locked_until = 0, last_error = ?, updated_at = ? WHERE id = ?`),
		string(queue.StatusFailed), lastError, now.UTC(), id,
	)
	return err
}

func (r *JobRepository) CountByStatus(ctx context.Context) (map[queue.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[queue.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[queue.Status(status)] = n
	}
	return counts, rows.Err()
}
