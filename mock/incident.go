package mock

import (
	"context"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.IncidentService = (*IncidentService)(nil)

type IncidentService struct {
	FindIncidentByIDFn       func(ctx context.Context, id int64) (*parkwatch.Incident, error)
	FindIncidentsFn          func(ctx context.Context, filter parkwatch.IncidentFilter) ([]*parkwatch.Incident, error)
	CreateIncidentFn         func(ctx context.Context, incident *parkwatch.Incident, photos []string) error
	UpdateIncidentStatusFn   func(ctx context.Context, id int64, upd parkwatch.IncidentStatusUpdate) (*parkwatch.Incident, error)
	DeleteIncidentFn         func(ctx context.Context, id int64) error
	SetIncidentDistrictFn    func(ctx context.Context, id int64, district string) error
	CountIncidentsByStatusFn func(ctx context.Context) (*parkwatch.IncidentCounts, error)
}

func (s *IncidentService) FindIncidentByID(ctx context.Context, id int64) (*parkwatch.Incident, error) {
	if s.FindIncidentByIDFn != nil {
		return s.FindIncidentByIDFn(ctx, id)
	}
	return nil, parkwatch.NotFound("Incident not found")
}

func (s *IncidentService) FindIncidents(ctx context.Context, filter parkwatch.IncidentFilter) ([]*parkwatch.Incident, error) {
	if s.FindIncidentsFn != nil {
		return s.FindIncidentsFn(ctx, filter)
	}
	return []*parkwatch.Incident{}, nil
}

func (s *IncidentService) CreateIncident(ctx context.Context, incident *parkwatch.Incident, photos []string) error {
	if s.CreateIncidentFn != nil {
		return s.CreateIncidentFn(ctx, incident, photos)
	}
	incident.ID = 1
	incident.Status = parkwatch.StatusPending
	return nil
}

func (s *IncidentService) UpdateIncidentStatus(ctx context.Context, id int64, upd parkwatch.IncidentStatusUpdate) (*parkwatch.Incident, error) {
	if s.UpdateIncidentStatusFn != nil {
		return s.UpdateIncidentStatusFn(ctx, id, upd)
	}
	return nil, parkwatch.NotFound("Incident not found")
}

func (s *IncidentService) DeleteIncident(ctx context.Context, id int64) error {
	if s.DeleteIncidentFn != nil {
		return s.DeleteIncidentFn(ctx, id)
	}
	return nil
}

func (s *IncidentService) SetIncidentDistrict(ctx context.Context, id int64, district string) error {
	if s.SetIncidentDistrictFn != nil {
		return s.SetIncidentDistrictFn(ctx, id, district)
	}
	return nil
}

func (s *IncidentService) CountIncidentsByStatus(ctx context.Context) (*parkwatch.IncidentCounts, error) {
	if s.CountIncidentsByStatusFn != nil {
		return s.CountIncidentsByStatusFn(ctx)
	}
	return &parkwatch.IncidentCounts{}, nil
}
