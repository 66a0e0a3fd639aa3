package http

import (
	"log/slog"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/validation"
	"github.com/labstack/echo/v4"
)

type createFineRequest struct {
	Name  string   `json:"name" validate:"required,max=255"`
	Value *float64 `json:"value" validate:"required,gte=0"`
}

type updateFineRequest struct {
	Name  *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Value *float64 `json:"value" validate:"omitempty,gte=0"`
}

func (s *Server) handleListFines(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	fines, err := s.fineService.FindFines(ctx)
	if err != nil {
		return err
	}
	return RespondOK(c, list(fines))
}

func (s *Server) handleGetFine(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	fine, err := s.fineService.FindFineByID(ctx, id)
	if err != nil {
		return err
	}
	return RespondOK(c, fine)
}

func (s *Server) handleCreateFine(c echo.Context) error {
	var req createFineRequest
	if err := bind(c, &req); err != nil {
		return validation.WithMessage(err, "Name and value are required")
	}

	fine := &parkwatch.Fine{
		Name:  validation.SanitizeInput(req.Name),
		Value: *req.Value,
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.fineService.CreateFine(ctx, fine); err != nil {
		return err
	}

	s.log(c).Info("fine created", slog.Int64("fine_id", fine.ID))
	return RespondCreated(c, "Fine created successfully", fine)
}

func (s *Server) handleUpdateFine(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateFineRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Name != nil {
		name := validation.SanitizeInput(*req.Name)
		req.Name = &name
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	fine, err := s.fineService.UpdateFine(ctx, id, parkwatch.FineUpdate{
		Name:  req.Name,
		Value: req.Value,
	})
	if err != nil {
		return err
	}

	s.log(c).Info("fine updated", slog.Int64("fine_id", id))
	return RespondMessage(c, "Fine updated successfully", fine)
}

func (s *Server) handleDeleteFine(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.fineService.DeleteFine(ctx, id); err != nil {
		return err
	}

	s.log(c).Info("fine deleted", slog.Int64("fine_id", id))
	return RespondMessage(c, "Fine deleted successfully", nil)
}
