package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dukerupert/parkwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAnalyticsService_GetStats(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE i.datetime >= $1 AND i.datetime < $2 AND i.district = $3`)).
		WithArgs(*date(2026, 10, 1), *date(2026, 10, 14), "Cetate").
		WillReturnRows(sqlmock.NewRows([]string{"total", "fined", "revenue", "reviewed"}).AddRow(9, 3, 450.0, 5))

	stats, err := db.AnalyticsService.GetStats(context.Background(), parkwatch.AnalyticsFilter{
		StartDate: date(2026, 10, 1),
		EndDate:   date(2026, 10, 13),
		District:  "Cetate",
	})
	require.NoError(t, err)
	assert.Equal(t, parkwatch.Stats{TotalViolations: 9, FinesIssued: 3, Revenue: 450, IncidentsReviewed: 5}, *stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetStats_Aggregates(t *testing.T) {
	db, mock := newTestDB(t)

	// Revenue sums fine values of resolved_and_fined incidents only, and
	// reviewed counts everything that has left pending.
	mock.ExpectQuery(
		regexp.QuoteMeta(`COUNT(*) FILTER (WHERE i.status = 'resolved_and_fined'),`) + `\s+` +
			regexp.QuoteMeta(`COALESCE(SUM(f.value) FILTER (WHERE i.status = 'resolved_and_fined'), 0),`) + `\s+` +
			regexp.QuoteMeta(`COUNT(*) FILTER (WHERE i.status <> 'pending')`),
	).WillReturnRows(sqlmock.NewRows([]string{"total", "fined", "revenue", "reviewed"}).AddRow(4, 1, 200.0, 3))

	stats, err := db.AnalyticsService.GetStats(context.Background(), parkwatch.AnalyticsFilter{})
	require.NoError(t, err)
	assert.Equal(t, parkwatch.Stats{TotalViolations: 4, FinesIssued: 1, Revenue: 200, IncidentsReviewed: 3}, *stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetStats_AllDistrictsNoWindow(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`LEFT JOIN fines f ON f.id = i.fine_id$`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "fined", "revenue", "reviewed"}).AddRow(0, 0, 0.0, 0))

	stats, err := db.AnalyticsService.GetStats(context.Background(), parkwatch.AnalyticsFilter{District: "all"})
	require.NoError(t, err)
	assert.Zero(t, stats.Revenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetViolationsOverTime(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`GROUP BY day`).
		WithArgs(parkwatch.ViolationDays).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow(*date(2026, 10, 14), 4).
			AddRow(*date(2026, 10, 12), 2).
			AddRow(*date(2026, 10, 9), 7))

	points, err := db.AnalyticsService.GetViolationsOverTime(context.Background(), parkwatch.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "Oct 09", points[0].Date)
	assert.Equal(t, 7, points[0].Violations)
	assert.Equal(t, "Oct 14", points[2].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetDistrictOverview_SingleDistrict(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`COUNT(*) FILTER (WHERE TRUE)`)).
		WithArgs("Cetate", testNow.Add(-parkwatch.TrailingWindow)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "weekly"}).AddRow(12, 6))

	overview, err := db.AnalyticsService.GetDistrictOverview(context.Background(), parkwatch.AnalyticsFilter{District: "Cetate"})
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, "Cetate", overview[0].District)
	assert.Equal(t, 12, overview[0].Count)
	assert.Equal(t, 6, *overview[0].WeeklyCount)
	assert.Equal(t, parkwatch.RiskHigh, overview[0].Score)
	assert.Equal(t, parkwatch.ColorOrange, overview[0].Color)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetDistrictOverview_SingleDistrictWindowIgnoredForWeekly(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FILTER (WHERE i.datetime >= $3 AND i.datetime < $4)`)).
		WithArgs("Fabric", testNow.Add(-parkwatch.TrailingWindow), *date(2026, 1, 1), *date(2026, 2, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "weekly"}).AddRow(3, 0))

	overview, err := db.AnalyticsService.GetDistrictOverview(context.Background(), parkwatch.AnalyticsFilter{
		StartDate: date(2026, 1, 1),
		EndDate:   date(2026, 1, 31),
		District:  "Fabric",
	})
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, parkwatch.RiskLow, overview[0].Score)
	assert.Equal(t, 0, *overview[0].WeeklyCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetDistrictOverview_SingleDistrictEmpty(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`WHERE i.district = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "weekly"}).AddRow(0, 0))

	overview, err := db.AnalyticsService.GetDistrictOverview(context.Background(), parkwatch.AnalyticsFilter{District: "Kuncz"})
	require.NoError(t, err)
	assert.Empty(t, overview)
	assert.NotNil(t, overview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsService_GetDistrictOverview_Ranking(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE i.district IS NOT NULL GROUP BY i.district`)).
		WillReturnRows(sqlmock.NewRows([]string{"district", "count"}).
			AddRow("Cetate", 20).
			AddRow("Fabric", 14).
			AddRow("Iosefin", 9).
			AddRow("Mehala", 5).
			AddRow("Soarelui", 3).
			AddRow("Kuncz", 1))

	overview, err := db.AnalyticsService.GetDistrictOverview(context.Background(), parkwatch.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, overview, 6)

	var names []string
	for _, o := range overview {
		names = append(names, o.District)
	}
	assert.Equal(t, []string{"Cetate", "Fabric", "Iosefin", "Kuncz", "Soarelui", "Mehala"}, names)
	assert.Equal(t, "top", overview[0].Type)
	assert.Equal(t, parkwatch.ColorRed, overview[0].Color)
	assert.Equal(t, "worst", overview[3].Type)
	assert.Equal(t, parkwatch.ColorGreen, overview[3].Color)
	assert.NoError(t, mock.ExpectationsWereMet())
}
