package mock

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/google/uuid"
)

var _ parkwatch.Queue = (*Queue)(nil)

// Queue records enqueued jobs in memory; the Fn fields override behavior.
type Queue struct {
	mu   sync.Mutex
	Jobs []*parkwatch.Job

	EnqueueFn            func(ctx context.Context, job *parkwatch.Job, opts ...parkwatch.EnqueueOption) error
	DequeueFn            func(ctx context.Context, queueName, workerID string) (*parkwatch.Job, error)
	CompleteFn           func(ctx context.Context, jobID uuid.UUID, result []byte) error
	FailFn               func(ctx context.Context, jobID uuid.UUID, errMsg string) error
	GetJobFn             func(ctx context.Context, jobID uuid.UUID) (*parkwatch.Job, error)
	CancelJobFn          func(ctx context.Context, jobID uuid.UUID) error
	DeleteFinishedJobsFn func(ctx context.Context, before time.Time) (int, error)
}

func (q *Queue) Enqueue(ctx context.Context, job *parkwatch.Job, opts ...parkwatch.EnqueueOption) error {
	if q.EnqueueFn != nil {
		return q.EnqueueFn(ctx, job, opts...)
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = parkwatch.JobStatusPending

	q.mu.Lock()
	q.Jobs = append(q.Jobs, job)
	q.mu.Unlock()
	return nil
}

// Enqueued returns a snapshot of the jobs recorded by Enqueue.
func (q *Queue) Enqueued() []*parkwatch.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*parkwatch.Job(nil), q.Jobs...)
}

func (q *Queue) Dequeue(ctx context.Context, queueName, workerID string) (*parkwatch.Job, error) {
	if q.DequeueFn != nil {
		return q.DequeueFn(ctx, queueName, workerID)
	}
	return nil, nil
}

func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID, result []byte) error {
	if q.CompleteFn != nil {
		return q.CompleteFn(ctx, jobID, result)
	}
	return nil
}

func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	if q.FailFn != nil {
		return q.FailFn(ctx, jobID, errMsg)
	}
	return nil
}

func (q *Queue) GetJob(ctx context.Context, jobID uuid.UUID) (*parkwatch.Job, error) {
	if q.GetJobFn != nil {
		return q.GetJobFn(ctx, jobID)
	}
	return nil, parkwatch.NotFound("Job not found")
}

func (q *Queue) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	if q.CancelJobFn != nil {
		return q.CancelJobFn(ctx, jobID)
	}
	return nil
}

func (q *Queue) DeleteFinishedJobs(ctx context.Context, before time.Time) (int, error) {
	if q.DeleteFinishedJobsFn != nil {
		return q.DeleteFinishedJobsFn(ctx, before)
	}
	return 0, nil
}
