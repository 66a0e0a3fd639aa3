// Package queue drains the parkwatch job queue with a pool of polling
// workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/parkwatch"
)

// WorkerPool runs a fixed number of workers that poll a set of queues and
// dispatch each job to the handler registered for its type.
type WorkerPool struct {
	queue    parkwatch.Queue
	logger   *slog.Logger
	config   parkwatch.QueueConfig
	handlers map[string]parkwatch.JobHandler // job_type -> handler
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex

	// Now returns the current time; cleanup uses it to compute the cutoff.
	Now func() time.Time

	// OnJobDone, when set, is called after every handler run.
	OnJobDone func(jobType string, d time.Duration, err error)
}

func NewWorkerPool(queue parkwatch.Queue, logger *slog.Logger, config parkwatch.QueueConfig) *WorkerPool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &WorkerPool{
		queue:    queue,
		logger:   logger,
		config:   config,
		handlers: make(map[string]parkwatch.JobHandler),
		Now:      time.Now,
	}
}

// RegisterHandler sets the handler for jobType, replacing any previous one.
func (wp *WorkerPool) RegisterHandler(jobType string, handler parkwatch.JobHandler) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.handlers[jobType] = handler
	wp.logger.Info("registered job handler", slog.String("job_type", jobType))
}

func (wp *WorkerPool) handler(jobType string) (parkwatch.JobHandler, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	h, ok := wp.handlers[jobType]
	return h, ok
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (wp *WorkerPool) Start(ctx context.Context, queueNames []string) error {
	wp.mu.Lock()
	if wp.cancel != nil {
		wp.mu.Unlock()
		return errors.New("worker pool already started")
	}
	workerCtx, cancel := context.WithCancel(ctx)
	wp.cancel = cancel
	wp.mu.Unlock()

	for i := 0; i < wp.config.WorkerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(workerCtx, fmt.Sprintf("worker-%d", i+1), queueNames)
	}

	if wp.config.CleanupInterval > 0 {
		wp.startCleanup(workerCtx)
	}

	wp.logger.Info("worker pool started",
		slog.Int("worker_count", wp.config.WorkerCount),
		slog.Any("queues", queueNames),
	)
	return nil
}

// Stop cancels the workers and waits up to ShutdownTimeout for in-flight
// jobs to finish.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if wp.cancel == nil {
		wp.mu.Unlock()
		return errors.New("worker pool not started")
	}
	cancel := wp.cancel
	wp.cancel = nil
	wp.mu.Unlock()

	wp.logger.Info("stopping worker pool")
	cancel()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	timeout := wp.config.ShutdownTimeout
	if timeout <= 0 {
		<-done
		return nil
	}

	select {
	case <-done:
		wp.logger.Info("worker pool stopped")
		return nil
	case <-time.After(timeout):
		wp.logger.Warn("worker pool shutdown timeout", slog.Duration("timeout", timeout))
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, workerID string, queueNames []string) {
	defer wp.wg.Done()

	wp.logger.Debug("worker started", slog.String("worker_id", workerID))

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wp.logger.Debug("worker stopping", slog.String("worker_id", workerID))
			return
		case <-ticker.C:
			// Drain every runnable job before waiting for the next tick.
			for ctx.Err() == nil {
				processed, err := wp.processNext(ctx, workerID, queueNames)
				if err != nil {
					wp.logger.Error("failed to process job",
						slog.String("worker_id", workerID),
						slog.String("error", err.Error()),
					)
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// processNext claims and runs at most one job, trying queues in order.
func (wp *WorkerPool) processNext(ctx context.Context, workerID string, queueNames []string) (bool, error) {
	for _, name := range queueNames {
		job, err := wp.queue.Dequeue(ctx, name, workerID)
		if err != nil {
			return false, fmt.Errorf("dequeue %s: %w", name, err)
		}
		if job == nil {
			continue
		}
		return true, wp.execute(ctx, job)
	}
	return false, nil
}

func (wp *WorkerPool) execute(ctx context.Context, job *parkwatch.Job) error {
	logger := wp.logger.With(
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType),
	)
	logger.Info("processing job",
		slog.String("queue", job.QueueName),
		slog.Int("attempt", job.AttemptCount),
	)

	h, ok := wp.handler(job.JobType)
	if !ok {
		logger.Error("handler not found")
		return wp.queue.Fail(ctx, job.ID, fmt.Sprintf("no handler registered for job type: %s", job.JobType))
	}

	jobCtx := ctx
	if wp.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, wp.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := h.Handle(jobCtx, job)
	duration := time.Since(start)
	if wp.OnJobDone != nil {
		wp.OnJobDone(job.JobType, duration, err)
	}

	if err != nil {
		logger.Error("job failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return wp.queue.Fail(ctx, job.ID, err.Error())
	}

	logger.Info("job completed", slog.Duration("duration", duration))
	return wp.queue.Complete(ctx, job.ID, nil)
}

func (wp *WorkerPool) startCleanup(ctx context.Context) {
	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()

		ticker := time.NewTicker(wp.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := wp.Cleanup(ctx); err != nil {
					wp.logger.Error("job cleanup failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	wp.logger.Info("background cleanup started",
		slog.Duration("interval", wp.config.CleanupInterval),
		slog.Duration("retention", wp.config.CleanupRetention),
	)
}

// Cleanup deletes finished jobs older than CleanupRetention.
func (wp *WorkerPool) Cleanup(ctx context.Context) (int, error) {
	n, err := wp.queue.DeleteFinishedJobs(ctx, wp.Now().Add(-wp.config.CleanupRetention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		wp.logger.Info("deleted finished jobs", slog.Int("count", n))
	}
	return n, nil
}
