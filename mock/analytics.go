package mock

import (
	"context"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.AnalyticsService = (*AnalyticsService)(nil)

type AnalyticsService struct {
	GetStatsFn              func(ctx context.Context, filter parkwatch.AnalyticsFilter) (*parkwatch.Stats, error)
	GetViolationsOverTimeFn func(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.ViolationPoint, error)
	GetDistrictOverviewFn   func(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.DistrictOverview, error)
}

func (s *AnalyticsService) GetStats(ctx context.Context, filter parkwatch.AnalyticsFilter) (*parkwatch.Stats, error) {
	if s.GetStatsFn != nil {
		return s.GetStatsFn(ctx, filter)
	}
	return &parkwatch.Stats{}, nil
}

func (s *AnalyticsService) GetViolationsOverTime(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.ViolationPoint, error) {
	if s.GetViolationsOverTimeFn != nil {
		return s.GetViolationsOverTimeFn(ctx, filter)
	}
	return []*parkwatch.ViolationPoint{}, nil
}

func (s *AnalyticsService) GetDistrictOverview(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.DistrictOverview, error) {
	if s.GetDistrictOverviewFn != nil {
		return s.GetDistrictOverviewFn(ctx, filter)
	}
	return []*parkwatch.DistrictOverview{}, nil
}
