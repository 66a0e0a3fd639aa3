package parkwatch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Queue is a durable background job queue.
type Queue interface {
	// Enqueue stores job, filling in ID, status and schedule defaults.
	Enqueue(ctx context.Context, job *Job, opts ...EnqueueOption) error

	// Dequeue claims the next runnable job of queueName for workerID.
	// Returns nil, nil when nothing is runnable.
	Dequeue(ctx context.Context, queueName, workerID string) (*Job, error)

	// Complete marks a running job as done.
	Complete(ctx context.Context, jobID uuid.UUID, result []byte) error

	// Fail records errMsg. Jobs with attempts left are rescheduled with
	// exponential backoff; the rest become failed.
	Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error

	// GetJob returns ENOTFOUND if the job does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// CancelJob returns EINVALID unless the job is still pending.
	CancelJob(ctx context.Context, jobID uuid.UUID) error

	// DeleteFinishedJobs removes terminal jobs finished before t.
	DeleteFinishedJobs(ctx context.Context, before time.Time) (int, error)
}

// Job is a unit of background work.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	QueueName    string     `json:"queueName"`
	JobType      string     `json:"jobType"`
	Payload      []byte     `json:"payload"`
	Status       JobStatus  `json:"status"`
	Priority     int        `json:"priority"`
	MaxAttempts  int        `json:"maxAttempts"`
	AttemptCount int        `json:"attemptCount"`
	ScheduledAt  time.Time  `json:"scheduledAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Result       []byte     `json:"result,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	WorkerID     string     `json:"workerId,omitempty"`
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further processing will happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job types.
const (
	// JobTypeDistrictResolve resolves the district of one incident.
	JobTypeDistrictResolve = "district_resolve"

	// JobTypeDistrictBackfill enqueues resolution for every incident that
	// has no district yet.
	JobTypeDistrictBackfill = "district_backfill"
)

// QueueDistricts is the queue district jobs run on.
const QueueDistricts = "districts"

// DistrictResolvePayload is the payload of a district_resolve job.
type DistrictResolvePayload struct {
	IncidentID int64 `json:"incident_id"`
}

type EnqueueOption func(*EnqueueOptions)

// EnqueueOptions is the resolved form of a set of EnqueueOption values.
type EnqueueOptions struct {
	Priority    int
	MaxAttempts int
	ScheduledAt time.Time
	Delay       time.Duration
}

// ApplyEnqueueOptions folds opts over the defaults.
func ApplyEnqueueOptions(opts ...EnqueueOption) EnqueueOptions {
	o := EnqueueOptions{MaxAttempts: 3}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithPriority(priority int) EnqueueOption {
	return func(o *EnqueueOptions) { o.Priority = priority }
}

func WithMaxAttempts(attempts int) EnqueueOption {
	return func(o *EnqueueOptions) { o.MaxAttempts = attempts }
}

func WithScheduledAt(t time.Time) EnqueueOption {
	return func(o *EnqueueOptions) { o.ScheduledAt = t }
}

func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) { o.Delay = d }
}

// QueueConfig configures the worker pool.
type QueueConfig struct {
	WorkerCount     int
	PollInterval    time.Duration
	JobTimeout      time.Duration
	ShutdownTimeout time.Duration

	// CleanupInterval and CleanupRetention control pruning of finished jobs.
	CleanupInterval  time.Duration
	CleanupRetention time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerCount:      2,
		PollInterval:     time.Second,
		JobTimeout:       30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		CleanupInterval:  time.Hour,
		CleanupRetention: 7 * 24 * time.Hour,
	}
}

// JobHandler processes one job type. A returned error triggers a retry.
type JobHandler interface {
	Handle(ctx context.Context, job *Job) error
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job *Job) error

func (f JobHandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}
