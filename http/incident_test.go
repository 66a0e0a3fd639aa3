package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func TestListIncidents(t *testing.T) {
	ts := newTestServer(t)

	var got parkwatch.IncidentFilter
	ts.incidents.FindIncidentsFn = func(_ context.Context, f parkwatch.IncidentFilter) ([]*parkwatch.Incident, error) {
		got = f
		return []*parkwatch.Incident{{ID: 7, Address: "Str. Paris 2", Status: parkwatch.StatusPending}}, nil
	}

	rec := ts.do(t, http.MethodGet, "/api/incidents?status=pending", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Status)
	assert.Equal(t, parkwatch.StatusPending, *got.Status)

	var incidents []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &incidents))
	require.Len(t, incidents, 1)
	assert.Equal(t, "pending", incidents[0]["status"])
}

func TestListIncidents_Empty(t *testing.T) {
	ts := newTestServer(t)
	ts.incidents.FindIncidentsFn = func(context.Context, parkwatch.IncidentFilter) ([]*parkwatch.Incident, error) {
		return nil, nil
	}

	rec := ts.do(t, http.MethodGet, "/api/incidents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Data))
}

func TestGetIncident(t *testing.T) {
	ts := newTestServer(t)

	t.Run("not found", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/incidents/99", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		env := decode(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, parkwatch.ENOTFOUND, env.Error)
		assert.Equal(t, "Incident not found", env.Message)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/incidents/abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("photos default to empty list", func(t *testing.T) {
		ts.incidents.FindIncidentByIDFn = func(_ context.Context, id int64) (*parkwatch.Incident, error) {
			return &parkwatch.Incident{ID: id, Status: parkwatch.StatusResolved}, nil
		}

		rec := ts.do(t, http.MethodGet, "/api/incidents/3", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var incident map[string]any
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &incident))
		assert.Equal(t, []any{}, incident["photos"])
		assert.Equal(t, float64(3), incident["id"])
	})

	t.Run("photos listed", func(t *testing.T) {
		ts.incidents.FindIncidentByIDFn = func(_ context.Context, id int64) (*parkwatch.Incident, error) {
			return &parkwatch.Incident{
				ID:     id,
				Status: parkwatch.StatusPending,
				Photos: []*parkwatch.IncidentPhoto{{ID: 7, IncidentID: id, PhotoPath: "incidents/a.jpg"}},
			}, nil
		}

		rec := ts.do(t, http.MethodGet, "/api/incidents/4", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var incident struct {
			ID     int64                      `json:"id"`
			Photos []*parkwatch.IncidentPhoto `json:"photos"`
		}
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &incident))
		assert.Equal(t, int64(4), incident.ID)
		require.Len(t, incident.Photos, 1)
		assert.Equal(t, "incidents/a.jpg", incident.Photos[0].PhotoPath)
	})
}

func TestIncidentsByStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/incidents/status/resolved_and_fined", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/incidents/status/archived", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid status value", decode(t, rec).Message)
}

func TestIncidentStats(t *testing.T) {
	ts := newTestServer(t)
	ts.incidents.CountIncidentsByStatusFn = func(context.Context) (*parkwatch.IncidentCounts, error) {
		return &parkwatch.IncidentCounts{Total: 5, Pending: 2, Fined: 1, Resolved: 1, Rejected: 1}, nil
	}

	rec := ts.do(t, http.MethodGet, "/api/incidents/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":5,"pending":2,"fined":1,"resolved":1,"rejected":1}`, string(decode(t, rec).Data))
}

func TestCreateIncident(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		ts := newTestServer(t)
		called := false
		ts.incidents.CreateIncidentFn = func(context.Context, *parkwatch.Incident, []string) error {
			called = true
			return nil
		}

		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
			"address":  "Str. Paris 2",
			"latitude": 45.75,
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		env := decode(t, rec)
		assert.Equal(t, "Missing required fields", env.Message)
		assert.Contains(t, env.Fields, "longitude")
		assert.False(t, called)
	})

	t.Run("bad datetime", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
			"address":        "Str. Paris 2",
			"latitude":       45.75,
			"longitude":      21.22,
			"datetime":       "yesterday",
			"ai_description": "blocking a driveway",
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid datetime format", decode(t, rec).Message)
	})

	t.Run("unknown district", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
			"address":        "Str. Paris 2",
			"latitude":       45.75,
			"longitude":      21.22,
			"datetime":       "2024-05-01T08:30:00Z",
			"ai_description": "blocking a driveway",
			"district":       "Atlantis",
		}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "must be a known district", decode(t, rec).Fields["district"])
	})

	t.Run("enqueues district resolution", func(t *testing.T) {
		ts := newTestServer(t)

		var photos []string
		ts.incidents.CreateIncidentFn = func(_ context.Context, inc *parkwatch.Incident, p []string) error {
			photos = p
			inc.ID = 12
			inc.Status = parkwatch.StatusPending
			return nil
		}

		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
			"address":        "Str. Paris 2",
			"latitude":       45.75,
			"longitude":      21.22,
			"datetime":       "2024-05-01 08:30:00",
			"ai_description": "blocking a driveway",
			"photos":         []string{"incidents/a.jpg", "incidents/b.jpg"},
		}, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, []string{"incidents/a.jpg", "incidents/b.jpg"}, photos)

		jobs := ts.queue.Enqueued()
		require.Len(t, jobs, 1)
		assert.Equal(t, parkwatch.JobTypeDistrictResolve, jobs[0].JobType)
		assert.JSONEq(t, `{"incident_id":12}`, string(jobs[0].Payload))
	})

	t.Run("supplied district skips resolution", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
			"address":        "Str. Paris 2",
			"latitude":       45.75,
			"longitude":      21.22,
			"datetime":       "2024-05-01T08:30:00",
			"ai_description": "blocking a driveway",
			"district":       "Elisabetin",
		}, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, ts.queue.Enqueued())
	})

	t.Run("enqueue failure does not fail creation", func(t *testing.T) {
		ts := newTestServer(t)
		ts.queue.EnqueueFn = func(context.Context, *parkwatch.Job, ...parkwatch.EnqueueOption) error {
			return parkwatch.Internal("queue down", nil)
		}

		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
			"address":        "Str. Paris 2",
			"latitude":       45.75,
			"longitude":      21.22,
			"datetime":       "2024-05-01T08:30:00Z",
			"ai_description": "blocking a driveway",
		}, "")
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("ingest key", func(t *testing.T) {
		ts := newTestServer(t, func(c *Config) { c.IngestAPIKey = "camera-secret" })

		rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid API key", decode(t, rec).Message)
	})
}

func TestUpdateIncident(t *testing.T) {
	t.Run("requires session", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPut, "/api/incidents/1", map[string]any{"status": "resolved"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid status", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPut, "/api/incidents/1", map[string]any{"status": "archived"}, officerToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		assert.Equal(t, "Invalid status value", env.Message)
		assert.Contains(t, env.Fields, "status")
	})

	t.Run("not found", func(t *testing.T) {
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPut, "/api/incidents/404", map[string]any{"status": "resolved"}, officerToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("actor comes from the session", func(t *testing.T) {
		ts := newTestServer(t)

		var actor int64
		ts.incidents.UpdateIncidentStatusFn = func(ctx context.Context, id int64, upd parkwatch.IncidentStatusUpdate) (*parkwatch.Incident, error) {
			actor = parkwatch.UserIDFromContext(ctx)
			return &parkwatch.Incident{ID: id, Status: upd.Status}, nil
		}

		rec := ts.do(t, http.MethodPut, "/api/incidents/1", map[string]any{"status": "rejected"}, officerToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testOfficer.ID, actor)
	})
}

func TestDeleteIncident(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodDelete, "/api/incidents/1", nil, officerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin privileges required", decode(t, rec).Message)

	rec = ts.do(t, http.MethodDelete, "/api/incidents/1", nil, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Incident deleted successfully", decode(t, rec).Message)

	ts.incidents.DeleteIncidentFn = func(context.Context, int64) error {
		return parkwatch.NotFound("Incident not found")
	}
	rec = ts.do(t, http.MethodDelete, "/api/incidents/1", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalytics(t *testing.T) {
	ts := newTestServer(t)

	var got parkwatch.AnalyticsFilter
	ts.analytics.GetStatsFn = func(_ context.Context, f parkwatch.AnalyticsFilter) (*parkwatch.Stats, error) {
		got = f
		return &parkwatch.Stats{TotalViolations: 4, FinesIssued: 1, Revenue: 150, IncidentsReviewed: 2}, nil
	}

	rec := ts.do(t, http.MethodGet, "/api/incidents/analytics?startDate=2024-05-01&endDate=2024-05-07&district=Fabric", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *got.StartDate)
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC), *got.EndDate)
	assert.Equal(t, "Fabric", got.District)

	assert.JSONEq(t, `{
		"stats": {"total_violations":4,"fines_issued":1,"revenue":150,"incidents_reviewed":2},
		"violations_over_time": [],
		"district_overview": []
	}`, string(decode(t, rec).Data))
}

func TestAnalytics_InvalidDate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/incidents/analytics?startDate=05/01/2024", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestIncidentLifecycle walks a camera report through review.
func TestIncidentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	store := map[int64]*parkwatch.Incident{}
	ts.incidents.CreateIncidentFn = func(_ context.Context, inc *parkwatch.Incident, _ []string) error {
		inc.ID = int64(len(store) + 1)
		inc.Status = parkwatch.StatusPending
		store[inc.ID] = inc
		return nil
	}
	ts.incidents.UpdateIncidentStatusFn = func(ctx context.Context, id int64, upd parkwatch.IncidentStatusUpdate) (*parkwatch.Incident, error) {
		inc, ok := store[id]
		if !ok {
			return nil, parkwatch.NotFound("Incident not found")
		}
		now := time.Now()
		actor := parkwatch.UserIDFromContext(ctx)
		inc.Status = upd.Status
		inc.CarNumber = upd.CarNumber
		inc.FineID = upd.FineID
		inc.AdminNotes = upd.AdminNotes
		inc.ResolvedAt = &now
		inc.ResolvedBy = &actor
		return inc, nil
	}

	rec := ts.do(t, http.MethodPost, "/api/incidents", map[string]any{
		"address":        "Piața Victoriei, Timișoara",
		"latitude":       45.7535,
		"longitude":      21.2254,
		"datetime":       "2024-05-01T08:30:00Z",
		"ai_description": "double-parked car",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created parkwatch.Incident
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, parkwatch.StatusPending, created.Status)

	rec = ts.do(t, http.MethodPut, "/api/incidents/1", map[string]any{
		"status":      "resolved_and_fined",
		"car_number":  "TM-12-ABC",
		"fine_id":     3,
		"admin_notes": "confirmed from photos",
	}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.Equal(t, "Incident updated successfully", env.Message)

	var updated parkwatch.Incident
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, parkwatch.StatusResolvedAndFined, updated.Status)
	assert.Equal(t, strPtr("TM-12-ABC"), updated.CarNumber)
	assert.Equal(t, int64Ptr(3), updated.FineID)
	assert.Equal(t, int64Ptr(testAdmin.ID), updated.ResolvedBy)
	assert.NotNil(t, updated.ResolvedAt)
}
