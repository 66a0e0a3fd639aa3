package postgres

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.FineService = (*FineService)(nil)

// FineService implements parkwatch.FineService using PostgreSQL.
type FineService struct {
	db *DB
}

func (s *FineService) FindFines(ctx context.Context) ([]*parkwatch.Fine, error) {
	rows, err := s.db.db.QueryContext(ctx, `SELECT id, name, value FROM fines ORDER BY value ASC, id ASC`)
	if err != nil {
		return nil, parkwatch.Internal("Failed to fetch fines", err)
	}
	defer rows.Close()

	fines := []*parkwatch.Fine{}
	for rows.Next() {
		var f parkwatch.Fine
		if err := rows.Scan(&f.ID, &f.Name, &f.Value); err != nil {
			return nil, parkwatch.Internal("Failed to read fine", err)
		}
		fines = append(fines, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read fines", err)
	}
	return fines, nil
}

func (s *FineService) FindFineByID(ctx context.Context, id int64) (*parkwatch.Fine, error) {
	var f parkwatch.Fine
	err := s.db.db.QueryRowContext(ctx, `SELECT id, name, value FROM fines WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Value)
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.NotFound("Fine not found")
		}
		return nil, parkwatch.Internal("Failed to fetch fine", err)
	}
	return &f, nil
}

func (s *FineService) CreateFine(ctx context.Context, fine *parkwatch.Fine) error {
	fine.Name = strings.TrimSpace(fine.Name)
	if err := fine.Validate(); err != nil {
		return err
	}

	err := s.db.db.QueryRowContext(ctx,
		`INSERT INTO fines (name, value) VALUES ($1, $2) RETURNING id`,
		fine.Name, fine.Value,
	).Scan(&fine.ID)
	if err != nil {
		return parkwatch.Internal("Failed to create fine", err)
	}

	s.db.logger.Info("fine created", slog.Int64("fine_id", fine.ID), slog.String("name", fine.Name))
	return nil
}

func (s *FineService) UpdateFine(ctx context.Context, id int64, upd parkwatch.FineUpdate) (*parkwatch.Fine, error) {
	var p placeholders
	var sets []string
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, parkwatch.Invalid("Name and value are required")
		}
		sets = append(sets, "name = "+p.add(name))
	}
	if upd.Value != nil {
		if *upd.Value < 0 {
			return nil, parkwatch.Invalid("Value must not be negative")
		}
		sets = append(sets, "value = "+p.add(*upd.Value))
	}
	if len(sets) == 0 {
		return s.FindFineByID(ctx, id)
	}

	query := "UPDATE fines SET " + strings.Join(sets, ", ") + " WHERE id = " + p.add(id) + " RETURNING id, name, value"

	var f parkwatch.Fine
	err := s.db.db.QueryRowContext(ctx, query, p.args...).Scan(&f.ID, &f.Name, &f.Value)
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.NotFound("Fine not found")
		}
		return nil, parkwatch.Internal("Failed to update fine", err)
	}
	return &f, nil
}

// DeleteFine refuses to remove a fine that any incident still points at, so
// resolved incidents never lose their tariff.
func (s *FineService) DeleteFine(ctx context.Context, id int64) error {
	var inUse int
	if err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE fine_id = $1`, id,
	).Scan(&inUse); err != nil {
		return parkwatch.Internal("Failed to check fine usage", err)
	}
	if inUse > 0 {
		return parkwatch.Invalid("Fine is in use by %d incidents", inUse)
	}

	result, err := s.db.db.ExecContext(ctx, `DELETE FROM fines WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return parkwatch.Invalid("Fine is in use")
		}
		return parkwatch.Internal("Failed to delete fine", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return parkwatch.NotFound("Fine not found")
	}

	s.db.logger.Info("fine deleted", slog.Int64("fine_id", id))
	return nil
}
