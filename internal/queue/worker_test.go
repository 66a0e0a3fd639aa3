package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() parkwatch.QueueConfig {
	cfg := parkwatch.DefaultQueueConfig()
	cfg.WorkerCount = 1
	cfg.PollInterval = 10 * time.Millisecond
	cfg.ShutdownTimeout = time.Second
	cfg.CleanupInterval = 0
	return cfg
}

// singleJobQueue hands out job once and records how it finished.
func singleJobQueue(job *parkwatch.Job) (*mock.Queue, chan string) {
	var once sync.Once
	done := make(chan string, 1)
	q := &mock.Queue{
		DequeueFn: func(ctx context.Context, queueName, workerID string) (*parkwatch.Job, error) {
			var out *parkwatch.Job
			once.Do(func() { out = job })
			return out, nil
		},
		CompleteFn: func(ctx context.Context, jobID uuid.UUID, result []byte) error {
			done <- "completed"
			return nil
		},
		FailFn: func(ctx context.Context, jobID uuid.UUID, errMsg string) error {
			done <- "failed: " + errMsg
			return nil
		},
	}
	return q, done
}

func waitResult(t *testing.T, done chan string) string {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
		return ""
	}
}

func TestWorkerPool_StartStop(t *testing.T) {
	pool := NewWorkerPool(&mock.Queue{}, testLogger(), testConfig())

	require.NoError(t, pool.Start(context.Background(), []string{parkwatch.QueueDistricts}))

	err := pool.Start(context.Background(), []string{parkwatch.QueueDistricts})
	assert.ErrorContains(t, err, "already started")

	require.NoError(t, pool.Stop())
	assert.ErrorContains(t, pool.Stop(), "not started")
}

func TestWorkerPool_ProcessJob_Success(t *testing.T) {
	job := &parkwatch.Job{ID: uuid.New(), QueueName: parkwatch.QueueDistricts, JobType: "test_job"}
	q, done := singleJobQueue(job)

	pool := NewWorkerPool(q, testLogger(), testConfig())
	var handled *parkwatch.Job
	pool.RegisterHandler("test_job", parkwatch.JobHandlerFunc(func(ctx context.Context, j *parkwatch.Job) error {
		handled = j
		return nil
	}))

	require.NoError(t, pool.Start(context.Background(), []string{parkwatch.QueueDistricts}))
	assert.Equal(t, "completed", waitResult(t, done))
	require.NoError(t, pool.Stop())
	assert.Equal(t, job.ID, handled.ID)
}

func TestWorkerPool_ProcessJob_Failure(t *testing.T) {
	job := &parkwatch.Job{ID: uuid.New(), QueueName: parkwatch.QueueDistricts, JobType: "test_job"}
	q, done := singleJobQueue(job)

	pool := NewWorkerPool(q, testLogger(), testConfig())
	pool.RegisterHandler("test_job", parkwatch.JobHandlerFunc(func(ctx context.Context, j *parkwatch.Job) error {
		return errors.New("geocoder unavailable")
	}))

	require.NoError(t, pool.Start(context.Background(), []string{parkwatch.QueueDistricts}))
	assert.Equal(t, "failed: geocoder unavailable", waitResult(t, done))
	require.NoError(t, pool.Stop())
}

func TestWorkerPool_ProcessJob_NoHandler(t *testing.T) {
	job := &parkwatch.Job{ID: uuid.New(), QueueName: parkwatch.QueueDistricts, JobType: "unknown"}
	q, done := singleJobQueue(job)

	pool := NewWorkerPool(q, testLogger(), testConfig())
	require.NoError(t, pool.Start(context.Background(), []string{parkwatch.QueueDistricts}))
	assert.Equal(t, "failed: no handler registered for job type: unknown", waitResult(t, done))
	require.NoError(t, pool.Stop())
}

func TestWorkerPool_JobTimeout(t *testing.T) {
	job := &parkwatch.Job{ID: uuid.New(), QueueName: parkwatch.QueueDistricts, JobType: "slow"}
	q, done := singleJobQueue(job)

	cfg := testConfig()
	cfg.JobTimeout = 20 * time.Millisecond
	pool := NewWorkerPool(q, testLogger(), cfg)
	pool.RegisterHandler("slow", parkwatch.JobHandlerFunc(func(ctx context.Context, j *parkwatch.Job) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	require.NoError(t, pool.Start(context.Background(), []string{parkwatch.QueueDistricts}))
	assert.Equal(t, "failed: "+context.DeadlineExceeded.Error(), waitResult(t, done))
	require.NoError(t, pool.Stop())
}

func TestWorkerPool_Cleanup(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	var cutoff time.Time
	q := &mock.Queue{
		DeleteFinishedJobsFn: func(ctx context.Context, before time.Time) (int, error) {
			cutoff = before
			return 4, nil
		},
	}

	cfg := testConfig()
	cfg.CleanupRetention = 48 * time.Hour
	pool := NewWorkerPool(q, testLogger(), cfg)
	pool.Now = func() time.Time { return now }

	n, err := pool.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, now.Add(-48*time.Hour), cutoff)
}

func TestWorkerPool_OnJobDone(t *testing.T) {
	job := &parkwatch.Job{ID: uuid.New(), QueueName: parkwatch.QueueDistricts, JobType: "observed"}
	q, done := singleJobQueue(job)

	pool := NewWorkerPool(q, testLogger(), testConfig())
	observed := make(chan string, 1)
	pool.OnJobDone = func(jobType string, d time.Duration, err error) {
		observed <- jobType
	}
	pool.RegisterHandler("observed", parkwatch.JobHandlerFunc(func(ctx context.Context, j *parkwatch.Job) error {
		return nil
	}))

	require.NoError(t, pool.Start(context.Background(), []string{parkwatch.QueueDistricts}))
	assert.Equal(t, "completed", waitResult(t, done))
	require.NoError(t, pool.Stop())
	assert.Equal(t, "observed", <-observed)
}
