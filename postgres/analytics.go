package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.AnalyticsService = (*AnalyticsService)(nil)

// AnalyticsService implements parkwatch.AnalyticsService using PostgreSQL.
type AnalyticsService struct {
	db *DB
}

// windowConditions renders the date bounds of filter. The end date covers
// the whole day.
func windowConditions(p *placeholders, filter parkwatch.AnalyticsFilter) []string {
	var conds []string
	if filter.StartDate != nil {
		conds = append(conds, "i.datetime >= "+p.add(startOfDay(*filter.StartDate)))
	}
	if filter.EndDate != nil {
		conds = append(conds, "i.datetime < "+p.add(startOfDay(*filter.EndDate).AddDate(0, 0, 1)))
	}
	return conds
}

// filterConditions adds the district condition to the window.
func filterConditions(p *placeholders, filter parkwatch.AnalyticsFilter) []string {
	conds := windowConditions(p, filter)
	if filter.HasDistrict() {
		conds = append(conds, "i.district = "+p.add(strings.TrimSpace(filter.District)))
	}
	return conds
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *AnalyticsService) GetStats(ctx context.Context, filter parkwatch.AnalyticsFilter) (*parkwatch.Stats, error) {
	var p placeholders
	where := whereClause(filterConditions(&p, filter))

	var st parkwatch.Stats
	err := s.db.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE i.status = 'resolved_and_fined'),
			COALESCE(SUM(f.value) FILTER (WHERE i.status = 'resolved_and_fined'), 0),
			COUNT(*) FILTER (WHERE i.status <> 'pending')
		FROM incidents i
		LEFT JOIN fines f ON f.id = i.fine_id`+where,
		p.args...,
	).Scan(&st.TotalViolations, &st.FinesIssued, &st.Revenue, &st.IncidentsReviewed)
	if err != nil {
		return nil, parkwatch.Internal("Failed to compute statistics", err)
	}
	return &st, nil
}

func (s *AnalyticsService) GetViolationsOverTime(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.ViolationPoint, error) {
	var p placeholders
	where := whereClause(filterConditions(&p, filter))
	limit := p.add(parkwatch.ViolationDays)

	rows, err := s.db.db.QueryContext(ctx, `
		SELECT DATE(i.datetime) AS day, COUNT(*)
		FROM incidents i`+where+`
		GROUP BY day
		ORDER BY day DESC
		LIMIT `+limit,
		p.args...,
	)
	if err != nil {
		return nil, parkwatch.Internal("Failed to compute violations over time", err)
	}
	defer rows.Close()

	points := []*parkwatch.ViolationPoint{}
	for rows.Next() {
		var pt parkwatch.ViolationPoint
		if err := rows.Scan(&pt.Day, &pt.Violations); err != nil {
			return nil, parkwatch.Internal("Failed to read violations over time", err)
		}
		points = append(points, &pt)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read violations over time", err)
	}
	return parkwatch.ChronologicalSeries(points), nil
}

func (s *AnalyticsService) GetDistrictOverview(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.DistrictOverview, error) {
	if filter.HasDistrict() {
		return s.districtScore(ctx, filter)
	}
	return s.districtRanking(ctx, filter)
}

// districtScore counts one district inside the filter window and over the
// trailing week, which ignores the window.
func (s *AnalyticsService) districtScore(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.DistrictOverview, error) {
	district := strings.TrimSpace(filter.District)

	var p placeholders
	districtArg := p.add(district)
	weekStart := p.add(s.db.now().Add(-parkwatch.TrailingWindow))
	window := "TRUE"
	if conds := windowConditions(&p, filter); len(conds) > 0 {
		window = strings.Join(conds, " AND ")
	}

	var count, weekly int
	err := s.db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE `+window+`),
			COUNT(*) FILTER (WHERE i.datetime >= `+weekStart+`)
		FROM incidents i
		WHERE i.district = `+districtArg,
		p.args...,
	).Scan(&count, &weekly)
	if err != nil {
		return nil, parkwatch.Internal("Failed to compute district overview", err)
	}

	if o := parkwatch.ScoreDistrict(district, count, weekly); o != nil {
		return []*parkwatch.DistrictOverview{o}, nil
	}
	return []*parkwatch.DistrictOverview{}, nil
}

func (s *AnalyticsService) districtRanking(ctx context.Context, filter parkwatch.AnalyticsFilter) ([]*parkwatch.DistrictOverview, error) {
	var p placeholders
	conds := append(windowConditions(&p, filter), "i.district IS NOT NULL")

	rows, err := s.db.db.QueryContext(ctx, `
		SELECT i.district, COUNT(*)
		FROM incidents i`+whereClause(conds)+`
		GROUP BY i.district
		ORDER BY COUNT(*) DESC, i.district`,
		p.args...,
	)
	if err != nil {
		return nil, parkwatch.Internal("Failed to compute district overview", err)
	}
	defer rows.Close()

	var counts []parkwatch.DistrictCount
	for rows.Next() {
		var c parkwatch.DistrictCount
		if err := rows.Scan(&c.District, &c.Count); err != nil {
			return nil, parkwatch.Internal("Failed to read district overview", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read district overview", err)
	}
	return parkwatch.RankDistricts(counts), nil
}
