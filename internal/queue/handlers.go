package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukerupert/parkwatch"
)

// DistrictHandlers resolve incident districts in the background.
type DistrictHandlers struct {
	incidents parkwatch.IncidentService
	resolver  parkwatch.DistrictResolver
	queue     parkwatch.Queue
	logger    *slog.Logger
}

func NewDistrictHandlers(incidents parkwatch.IncidentService, resolver parkwatch.DistrictResolver, queue parkwatch.Queue, logger *slog.Logger) *DistrictHandlers {
	return &DistrictHandlers{
		incidents: incidents,
		resolver:  resolver,
		queue:     queue,
		logger:    logger,
	}
}

// Register installs both district handlers on wp.
func (h *DistrictHandlers) Register(wp *WorkerPool) {
	wp.RegisterHandler(parkwatch.JobTypeDistrictResolve, parkwatch.JobHandlerFunc(h.Resolve))
	wp.RegisterHandler(parkwatch.JobTypeDistrictBackfill, parkwatch.JobHandlerFunc(h.Backfill))
}

// Resolve handles a district_resolve job. A deleted incident or an
// incident that already has a district completes the job without work.
func (h *DistrictHandlers) Resolve(ctx context.Context, job *parkwatch.Job) error {
	var p parkwatch.DistrictResolvePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	inc, err := h.incidents.FindIncidentByID(ctx, p.IncidentID)
	if parkwatch.IsErrorCode(err, parkwatch.ENOTFOUND) {
		return nil
	} else if err != nil {
		return err
	}
	if inc.District != nil && *inc.District != "" {
		return nil
	}

	d, ok := h.resolver.ResolveDistrict(ctx, inc.Latitude, inc.Longitude, inc.Address)
	if !ok {
		h.logger.Debug("no district for incident", slog.Int64("incident_id", inc.ID))
		return nil
	}

	if err := h.incidents.SetIncidentDistrict(ctx, inc.ID, d); err != nil {
		if parkwatch.IsErrorCode(err, parkwatch.ENOTFOUND) {
			return nil
		}
		return err
	}
	h.logger.Info("resolved incident district",
		slog.Int64("incident_id", inc.ID),
		slog.String("district", d),
	)
	return nil
}

// Backfill handles a district_backfill job by enqueueing one resolve job
// per incident with no district.
func (h *DistrictHandlers) Backfill(ctx context.Context, job *parkwatch.Job) error {
	incidents, err := h.incidents.FindIncidents(ctx, parkwatch.IncidentFilter{MissingDistrict: true})
	if err != nil {
		return err
	}
	for _, inc := range incidents {
		if err := EnqueueDistrictResolve(ctx, h.queue, inc.ID); err != nil {
			return err
		}
	}
	h.logger.Info("district backfill enqueued", slog.Int("count", len(incidents)))
	return nil
}

// EnqueueDistrictResolve schedules resolution of one incident's district.
func EnqueueDistrictResolve(ctx context.Context, q parkwatch.Queue, incidentID int64) error {
	payload, err := json.Marshal(parkwatch.DistrictResolvePayload{IncidentID: incidentID})
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, &parkwatch.Job{
		QueueName: parkwatch.QueueDistricts,
		JobType:   parkwatch.JobTypeDistrictResolve,
		Payload:   payload,
	})
}

// EnqueueDistrictBackfill schedules a backfill job.
func EnqueueDistrictBackfill(ctx context.Context, q parkwatch.Queue) (*parkwatch.Job, error) {
	job := &parkwatch.Job{
		QueueName: parkwatch.QueueDistricts,
		JobType:   parkwatch.JobTypeDistrictBackfill,
		Payload:   []byte("{}"),
	}
	if err := q.Enqueue(ctx, job, parkwatch.WithMaxAttempts(1)); err != nil {
		return nil, err
	}
	return job, nil
}
