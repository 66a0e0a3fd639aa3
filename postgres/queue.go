package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/google/uuid"
)

var _ parkwatch.Queue = (*Queue)(nil)

// Queue is a PostgreSQL-backed job queue. Workers claim jobs with
// FOR UPDATE SKIP LOCKED so several pools can share one table.
type Queue struct {
	db     *sql.DB
	logger *slog.Logger

	// Now returns the current time. Replaced in tests.
	Now func() time.Time
}

func NewQueue(db *sql.DB, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{db: db, logger: logger, Now: time.Now}
}

const jobColumns = `id, queue_name, job_type, payload, status, priority, max_attempts,
	attempt_count, scheduled_at, created_at, started_at, completed_at, result,
	error_message, worker_id`

func scanJob(row scanner) (*parkwatch.Job, error) {
	job := &parkwatch.Job{}
	var startedAt, completedAt sql.NullTime
	var result []byte
	var errorMessage, workerID sql.NullString

	err := row.Scan(
		&job.ID,
		&job.QueueName,
		&job.JobType,
		&job.Payload,
		&job.Status,
		&job.Priority,
		&job.MaxAttempts,
		&job.AttemptCount,
		&job.ScheduledAt,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&result,
		&errorMessage,
		&workerID,
	)
	if err != nil {
		return nil, err
	}

	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completedAt)
	job.Result = result
	job.ErrorMessage = errorMessage.String
	job.WorkerID = workerID.String
	return job, nil
}

func (q *Queue) now() time.Time {
	return q.Now().UTC().Truncate(time.Microsecond)
}

func (q *Queue) Enqueue(ctx context.Context, job *parkwatch.Job, opts ...parkwatch.EnqueueOption) error {
	o := parkwatch.ApplyEnqueueOptions(opts...)
	now := q.now()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.QueueName == "" {
		job.QueueName = parkwatch.QueueDistricts
	}
	if len(job.Payload) == 0 {
		job.Payload = []byte("{}")
	}
	job.Status = parkwatch.JobStatusPending
	job.Priority = o.Priority
	job.MaxAttempts = max(o.MaxAttempts, 1)
	job.AttemptCount = 0
	job.CreatedAt = now
	switch {
	case !o.ScheduledAt.IsZero():
		job.ScheduledAt = o.ScheduledAt
	case o.Delay > 0:
		job.ScheduledAt = now.Add(o.Delay)
	default:
		job.ScheduledAt = now
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, queue_name, job_type, payload, status,
			priority, max_attempts, attempt_count, scheduled_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID,
		job.QueueName,
		job.JobType,
		string(job.Payload),
		string(job.Status),
		job.Priority,
		job.MaxAttempts,
		job.AttemptCount,
		job.ScheduledAt,
		job.CreatedAt,
	)
	if err != nil {
		return parkwatch.Internal("Failed to enqueue job", err)
	}

	q.logger.Debug("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType),
		slog.String("queue", job.QueueName))
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, queueName, workerID string) (*parkwatch.Job, error) {
	now := q.now()
	job, err := scanJob(q.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $1, started_at = $2, attempt_count = attempt_count + 1, worker_id = $3
		WHERE id = (
			SELECT id FROM jobs
			WHERE queue_name = $4 AND status = $5 AND scheduled_at <= $2
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns,
		string(parkwatch.JobStatusRunning),
		now,
		workerID,
		queueName,
		string(parkwatch.JobStatusPending),
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, parkwatch.Internal("Failed to dequeue job", err)
	}
	return job, nil
}

func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID, result []byte) error {
	var res any
	if len(result) > 0 {
		res = string(result)
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2, result = $3, error_message = NULL WHERE id = $4`,
		string(parkwatch.JobStatusCompleted), q.now(), res, jobID,
	)
	if err != nil {
		return parkwatch.Internal("Failed to complete job", err)
	}
	return nil
}

// Fail reschedules the job with a 2^attempt second backoff while attempts
// remain and marks it failed otherwise.
func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	var attempts, maxAttempts int
	err := q.db.QueryRowContext(ctx,
		`SELECT attempt_count, max_attempts FROM jobs WHERE id = $1`, jobID,
	).Scan(&attempts, &maxAttempts)
	if err != nil {
		if isNoRows(err) {
			return parkwatch.NotFound("Job not found")
		}
		return parkwatch.Internal("Failed to fetch job", err)
	}

	now := q.now()
	if attempts < maxAttempts {
		retryAt := now.Add(backoff(attempts))
		_, err = q.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1, scheduled_at = $2, error_message = $3 WHERE id = $4`,
			string(parkwatch.JobStatusPending), retryAt, errMsg, jobID,
		)
		q.logger.Debug("job rescheduled",
			slog.String("job_id", jobID.String()),
			slog.Int("attempt", attempts),
			slog.Time("retry_at", retryAt))
	} else {
		_, err = q.db.ExecContext(ctx,
			`UPDATE jobs SET status = $1, completed_at = $2, error_message = $3 WHERE id = $4`,
			string(parkwatch.JobStatusFailed), now, errMsg, jobID,
		)
	}
	if err != nil {
		return parkwatch.Internal("Failed to record job failure", err)
	}
	return nil
}

func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 10 {
		attempt = 10
	}
	return time.Duration(1<<attempt) * time.Second
}

func (q *Queue) GetJob(ctx context.Context, jobID uuid.UUID) (*parkwatch.Job, error) {
	job, err := scanJob(q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.NotFound("Job not found")
		}
		return nil, parkwatch.Internal("Failed to fetch job", err)
	}
	return job, nil
}

func (q *Queue) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`,
		string(parkwatch.JobStatusCancelled), q.now(), jobID, string(parkwatch.JobStatusPending),
	)
	if err != nil {
		return parkwatch.Internal("Failed to cancel job", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return parkwatch.Invalid("Can only cancel pending jobs")
	}
	return nil
}

func (q *Queue) DeleteFinishedJobs(ctx context.Context, before time.Time) (int, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN ($1, $2, $3) AND completed_at < $4`,
		string(parkwatch.JobStatusCompleted),
		string(parkwatch.JobStatusFailed),
		string(parkwatch.JobStatusCancelled),
		before,
	)
	if err != nil {
		return 0, parkwatch.Internal("Failed to delete finished jobs", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
