package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/queue"
	"github.com/dukerupert/parkwatch/internal/validation"
	"github.com/labstack/echo/v4"
)

// incidentTimeLayouts are the datetime formats accepted from cameras.
var incidentTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

const dateLayout = "2006-01-02"

type createIncidentRequest struct {
	Address       string   `json:"address" validate:"required"`
	Latitude      *float64 `json:"latitude" validate:"required"`
	Longitude     *float64 `json:"longitude" validate:"required"`
	Datetime      string   `json:"datetime" validate:"required"`
	AIDescription string   `json:"ai_description" validate:"required"`
	District      *string  `json:"district" validate:"omitempty,district"`
	CarNumber     *string  `json:"car_number"`
	FineID        *int64   `json:"fine_id"`
	Photos        []string `json:"photos" validate:"dive,required"`
}

// incidentDetail is the single-incident read. Photos is always present,
// unlike list reads which carry none.
type incidentDetail struct {
	*parkwatch.Incident
	Photos []*parkwatch.IncidentPhoto `json:"photos"`
}

func newIncidentDetail(i *parkwatch.Incident) incidentDetail {
	photos := i.Photos
	if photos == nil {
		photos = []*parkwatch.IncidentPhoto{}
	}
	return incidentDetail{Incident: i, Photos: photos}
}

type updateIncidentRequest struct {
	Status     string  `json:"status" validate:"required,status"`
	CarNumber  *string `json:"car_number"`
	FineID     *int64  `json:"fine_id"`
	AdminNotes *string `json:"admin_notes"`
}

func parseIncidentTime(s string) (time.Time, error) {
	for _, layout := range incidentTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, parkwatch.Invalid("Invalid datetime format")
}

// nonEmpty drops blank optional strings so they store as NULL.
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Server) handleListIncidents(c echo.Context) error {
	var filter parkwatch.IncidentFilter
	if raw := c.QueryParam("status"); raw != "" {
		status, err := parkwatch.ParseIncidentStatus(raw)
		if err != nil {
			return err
		}
		filter.Status = &status
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	incidents, err := s.incidentService.FindIncidents(ctx, filter)
	if err != nil {
		return err
	}
	return RespondOK(c, list(incidents))
}

func (s *Server) handleGetIncident(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	incident, err := s.incidentService.FindIncidentByID(ctx, id)
	if err != nil {
		return err
	}
	return RespondOK(c, newIncidentDetail(incident))
}

func (s *Server) handleIncidentsByStatus(c echo.Context) error {
	status, err := parkwatch.ParseIncidentStatus(c.Param("status"))
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	incidents, err := s.incidentService.FindIncidents(ctx, parkwatch.IncidentFilter{Status: &status})
	if err != nil {
		return err
	}
	return RespondOK(c, list(incidents))
}

func (s *Server) handleIncidentStats(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	counts, err := s.incidentService.CountIncidentsByStatus(ctx)
	if err != nil {
		return err
	}
	return RespondOK(c, counts)
}

func (s *Server) handleCreateIncident(c echo.Context) error {
	var req createIncidentRequest
	if err := bind(c, &req); err != nil {
		return validation.WithMessage(err, "Missing required fields")
	}

	datetime, err := parseIncidentTime(req.Datetime)
	if err != nil {
		return err
	}

	incident := &parkwatch.Incident{
		Address:       validation.SanitizeInput(req.Address),
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		District:      nonEmpty(req.District),
		Datetime:      datetime,
		AIDescription: validation.SanitizeInput(req.AIDescription),
		CarNumber:     nonEmpty(req.CarNumber),
		FineID:        req.FineID,
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.incidentService.CreateIncident(ctx, incident, req.Photos); err != nil {
		return err
	}

	logger := s.log(c)
	logger.Info("incident created",
		slog.Int64("incident_id", incident.ID),
		slog.Int("photos", len(req.Photos)),
	)

	if incident.District == nil && s.queue != nil {
		if err := queue.EnqueueDistrictResolve(ctx, s.queue, incident.ID); err != nil {
			logger.Warn("failed to enqueue district resolution",
				slog.Int64("incident_id", incident.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return RespondCreated(c, "Incident created successfully", incident)
}

func (s *Server) handleUpdateIncident(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateIncidentRequest
	if err := bind(c, &req); err != nil {
		return validation.WithMessage(err, "Invalid status value")
	}
	status, err := parkwatch.ParseIncidentStatus(req.Status)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	incident, err := s.incidentService.UpdateIncidentStatus(ctx, id, parkwatch.IncidentStatusUpdate{
		Status:     status,
		CarNumber:  nonEmpty(req.CarNumber),
		FineID:     req.FineID,
		AdminNotes: nonEmpty(req.AdminNotes),
	})
	if err != nil {
		return err
	}

	s.log(c).Info("incident status updated",
		slog.Int64("incident_id", id),
		slog.String("status", status.String()),
	)
	return RespondMessage(c, "Incident updated successfully", incident)
}

func (s *Server) handleDeleteIncident(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.incidentService.DeleteIncident(ctx, id); err != nil {
		return err
	}

	s.log(c).Info("incident deleted", slog.Int64("incident_id", id))
	return RespondMessage(c, "Incident deleted successfully", nil)
}

// parseAnalyticsFilter reads startDate, endDate and district from the query.
func parseAnalyticsFilter(c echo.Context) (parkwatch.AnalyticsFilter, error) {
	filter := parkwatch.AnalyticsFilter{District: strings.TrimSpace(c.QueryParam("district"))}

	if raw := c.QueryParam("startDate"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, parkwatch.Invalid("Invalid startDate, expected YYYY-MM-DD")
		}
		filter.StartDate = &t
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, parkwatch.Invalid("Invalid endDate, expected YYYY-MM-DD")
		}
		filter.EndDate = &t
	}
	return filter, nil
}

func (s *Server) handleAnalytics(c echo.Context) error {
	filter, err := parseAnalyticsFilter(c)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	stats, err := s.analyticsService.GetStats(ctx, filter)
	if err != nil {
		return err
	}
	series, err := s.analyticsService.GetViolationsOverTime(ctx, filter)
	if err != nil {
		return err
	}
	overview, err := s.analyticsService.GetDistrictOverview(ctx, filter)
	if err != nil {
		return err
	}

	return RespondOK(c, parkwatch.Analytics{
		Stats:              stats,
		ViolationsOverTime: list(series),
		DistrictOverview:   list(overview),
	})
}
