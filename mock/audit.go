package mock

import (
	"context"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.AuditService = (*AuditService)(nil)

type AuditService struct {
	RecordActionFn     func(ctx context.Context, action *parkwatch.UserAction) error
	FindUserHistoryFn  func(ctx context.Context) ([]*parkwatch.UserHistoryEntry, error)
	FindUserActivityFn func(ctx context.Context, userID int64) ([]*parkwatch.UserAction, error)
}

func (s *AuditService) RecordAction(ctx context.Context, action *parkwatch.UserAction) error {
	if s.RecordActionFn != nil {
		return s.RecordActionFn(ctx, action)
	}
	action.ID = 1
	return nil
}

func (s *AuditService) FindUserHistory(ctx context.Context) ([]*parkwatch.UserHistoryEntry, error) {
	if s.FindUserHistoryFn != nil {
		return s.FindUserHistoryFn(ctx)
	}
	return []*parkwatch.UserHistoryEntry{}, nil
}

func (s *AuditService) FindUserActivity(ctx context.Context, userID int64) ([]*parkwatch.UserAction, error) {
	if s.FindUserActivityFn != nil {
		return s.FindUserActivityFn(ctx, userID)
	}
	return []*parkwatch.UserAction{}, nil
}
