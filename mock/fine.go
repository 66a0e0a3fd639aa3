package mock

import (
	"context"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.FineService = (*FineService)(nil)

type FineService struct {
	FindFinesFn    func(ctx context.Context) ([]*parkwatch.Fine, error)
	FindFineByIDFn func(ctx context.Context, id int64) (*parkwatch.Fine, error)
	CreateFineFn   func(ctx context.Context, fine *parkwatch.Fine) error
	UpdateFineFn   func(ctx context.Context, id int64, upd parkwatch.FineUpdate) (*parkwatch.Fine, error)
	DeleteFineFn   func(ctx context.Context, id int64) error
}

func (s *FineService) FindFines(ctx context.Context) ([]*parkwatch.Fine, error) {
	if s.FindFinesFn != nil {
		return s.FindFinesFn(ctx)
	}
	return []*parkwatch.Fine{}, nil
}

func (s *FineService) FindFineByID(ctx context.Context, id int64) (*parkwatch.Fine, error) {
	if s.FindFineByIDFn != nil {
		return s.FindFineByIDFn(ctx, id)
	}
	return nil, parkwatch.NotFound("Fine not found")
}

func (s *FineService) CreateFine(ctx context.Context, fine *parkwatch.Fine) error {
	if s.CreateFineFn != nil {
		return s.CreateFineFn(ctx, fine)
	}
	fine.ID = 1
	return nil
}

func (s *FineService) UpdateFine(ctx context.Context, id int64, upd parkwatch.FineUpdate) (*parkwatch.Fine, error) {
	if s.UpdateFineFn != nil {
		return s.UpdateFineFn(ctx, id, upd)
	}
	return nil, parkwatch.NotFound("Fine not found")
}

func (s *FineService) DeleteFine(ctx context.Context, id int64) error {
	if s.DeleteFineFn != nil {
		return s.DeleteFineFn(ctx, id)
	}
	return nil
}
