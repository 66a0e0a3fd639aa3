package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.IncidentService = (*IncidentService)(nil)

// IncidentService implements parkwatch.IncidentService using PostgreSQL.
type IncidentService struct {
	db *DB
}

const incidentSelect = `
	SELECT i.id, i.address, i.latitude, i.longitude, i.district, i.datetime,
		i.ai_description, i.car_number, i.fine_id, i.status, i.admin_notes,
		i.resolved_at, i.resolved_by, i.created_at, f.name, f.value
	FROM incidents i
	LEFT JOIN fines f ON f.id = i.fine_id`

func scanIncident(row scanner) (*parkwatch.Incident, error) {
	var inc parkwatch.Incident
	var district, carNumber, notes, fineName sql.NullString
	var fineID, resolvedBy sql.NullInt64
	var resolvedAt sql.NullTime
	var fineValue sql.NullFloat64

	err := row.Scan(
		&inc.ID,
		&inc.Address,
		&inc.Latitude,
		&inc.Longitude,
		&district,
		&inc.Datetime,
		&inc.AIDescription,
		&carNumber,
		&fineID,
		&inc.Status,
		&notes,
		&resolvedAt,
		&resolvedBy,
		&inc.CreatedAt,
		&fineName,
		&fineValue,
	)
	if err != nil {
		return nil, err
	}

	inc.District = stringPtr(district)
	inc.CarNumber = stringPtr(carNumber)
	inc.FineID = int64Ptr(fineID)
	inc.AdminNotes = stringPtr(notes)
	inc.ResolvedAt = timePtr(resolvedAt)
	inc.ResolvedBy = int64Ptr(resolvedBy)
	inc.FineName = stringPtr(fineName)
	inc.FineValue = float64Ptr(fineValue)
	return &inc, nil
}

func (s *IncidentService) FindIncidentByID(ctx context.Context, id int64) (*parkwatch.Incident, error) {
	inc, err := scanIncident(s.db.db.QueryRowContext(ctx, incidentSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.NotFound("Incident not found")
		}
		return nil, parkwatch.Internal("Failed to fetch incident", err)
	}

	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, incident_id, photo_path
		FROM incident_photo
		WHERE incident_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, parkwatch.Internal("Failed to fetch incident photos", err)
	}
	defer rows.Close()

	inc.Photos = []*parkwatch.IncidentPhoto{}
	for rows.Next() {
		var p parkwatch.IncidentPhoto
		if err := rows.Scan(&p.ID, &p.IncidentID, &p.PhotoPath); err != nil {
			return nil, parkwatch.Internal("Failed to read incident photo", err)
		}
		inc.Photos = append(inc.Photos, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read incident photos", err)
	}
	return inc, nil
}

func (s *IncidentService) FindIncidents(ctx context.Context, filter parkwatch.IncidentFilter) ([]*parkwatch.Incident, error) {
	var p placeholders
	var where []string
	if filter.Status != nil {
		where = append(where, "i.status = "+p.add(*filter.Status))
	}
	if filter.MissingDistrict {
		where = append(where, "i.district IS NULL")
	}

	query := incidentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.datetime DESC, i.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + p.add(filter.Limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, parkwatch.Internal("Failed to fetch incidents", err)
	}
	defer rows.Close()

	incidents := []*parkwatch.Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, parkwatch.Internal("Failed to read incident", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read incidents", err)
	}
	return incidents, nil
}

func (s *IncidentService) CreateIncident(ctx context.Context, inc *parkwatch.Incident, photos []string) error {
	if err := inc.Validate(); err != nil {
		return err
	}

	inc.Status = parkwatch.StatusPending
	inc.ResolvedAt, inc.ResolvedBy = nil, nil
	inc.CreatedAt = s.db.now()

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO incidents (
				address, latitude, longitude, district, datetime,
				ai_description, car_number, fine_id, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			inc.Address,
			inc.Latitude,
			inc.Longitude,
			nullIfBlank(inc.District),
			inc.Datetime,
			inc.AIDescription,
			nullIfBlank(inc.CarNumber),
			inc.FineID,
			inc.Status,
			inc.CreatedAt,
		).Scan(&inc.ID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return parkwatch.Invalid("Fine not found")
			}
			return parkwatch.Internal("Failed to create incident", err)
		}

		paths := nonBlank(photos)
		if len(paths) == 0 {
			return nil
		}

		// One statement for the whole batch.
		var p placeholders
		id := p.add(inc.ID)
		values := make([]string, len(paths))
		for i, path := range paths {
			values[i] = "(" + id + ", " + p.add(path) + ")"
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO incident_photo (incident_id, photo_path) VALUES "+strings.Join(values, ", "),
			p.args...,
		); err != nil {
			return parkwatch.Internal("Failed to store incident photos", err)
		}
		return nil
	})
	if err != nil {
		inc.ID = 0
		return err
	}

	s.db.logger.Info("incident created",
		slog.Int64("incident_id", inc.ID),
		slog.Int("photos", len(nonBlank(photos))))
	return nil
}

func (s *IncidentService) UpdateIncidentStatus(ctx context.Context, id int64, upd parkwatch.IncidentStatusUpdate) (*parkwatch.Incident, error) {
	actor := parkwatch.UserFromContext(ctx)
	if actor == nil {
		return nil, parkwatch.Unauthorized("Authentication required")
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var from parkwatch.IncidentStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM incidents WHERE id = $1 FOR UPDATE`, id).Scan(&from)
		if err != nil {
			if isNoRows(err) {
				return parkwatch.NotFound("Incident not found")
			}
			return parkwatch.Internal("Failed to fetch incident", err)
		}

		var resolvedAt, resolvedBy any
		if upd.Status.IsDecision() {
			resolvedAt, resolvedBy = s.db.now(), actor.ID
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE incidents
			SET status = $1, car_number = $2, fine_id = $3, admin_notes = $4,
				resolved_at = $5, resolved_by = $6
			WHERE id = $7`,
			upd.Status,
			nullIfBlank(upd.CarNumber),
			upd.FineID,
			nullIfBlank(upd.AdminNotes),
			resolvedAt,
			resolvedBy,
			id,
		); err != nil {
			if isForeignKeyViolation(err) {
				return parkwatch.Invalid("Fine not found")
			}
			return parkwatch.Internal("Failed to update incident", err)
		}

		return s.db.recordAction(ctx, tx, &parkwatch.UserAction{
			ActorID:    actor.ID,
			IncidentID: &id,
			ActionType: parkwatch.TransitionAction(from, upd.Status),
			Details:    parkwatch.MarshalDetails(parkwatch.NewTransitionDetails(from, upd)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.db.logger.Info("incident status updated",
		slog.Int64("incident_id", id),
		slog.String("status", upd.Status.String()),
		slog.Int64("actor_id", actor.ID))

	return s.FindIncidentByID(ctx, id)
}

func (s *IncidentService) DeleteIncident(ctx context.Context, id int64) error {
	actorID := parkwatch.UserIDFromContext(ctx)

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var address string
		err := tx.QueryRowContext(ctx, `DELETE FROM incidents WHERE id = $1 RETURNING address`, id).Scan(&address)
		if err != nil {
			if isNoRows(err) {
				return parkwatch.NotFound("Incident not found")
			}
			return parkwatch.Internal("Failed to delete incident", err)
		}
		if actorID == 0 {
			return nil
		}
		return s.db.recordAction(ctx, tx, &parkwatch.UserAction{
			ActorID:    actorID,
			ActionType: parkwatch.ActionIncidentDeleted,
			Details: parkwatch.MarshalDetails(map[string]any{
				"incident_id": id,
				"address":     address,
			}),
		})
	})
	if err != nil {
		return err
	}

	s.db.logger.Info("incident deleted", slog.Int64("incident_id", id))
	return nil
}

func (s *IncidentService) SetIncidentDistrict(ctx context.Context, id int64, district string) error {
	result, err := s.db.db.ExecContext(ctx, `UPDATE incidents SET district = $1 WHERE id = $2`, district, id)
	if err != nil {
		return parkwatch.Internal("Failed to update incident district", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return parkwatch.NotFound("Incident not found")
	}
	return nil
}

func (s *IncidentService) CountIncidentsByStatus(ctx context.Context) (*parkwatch.IncidentCounts, error) {
	var c parkwatch.IncidentCounts
	err := s.db.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'resolved_and_fined'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM incidents`,
	).Scan(&c.Total, &c.Pending, &c.Fined, &c.Resolved, &c.Rejected)
	if err != nil {
		return nil, parkwatch.Internal("Failed to count incidents", err)
	}
	return &c, nil
}

func nonBlank(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
