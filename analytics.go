package parkwatch

import (
	"context"
	"sort"
	"strings"
	"time"
)

// AllDistricts is the district filter value meaning no district filter.
const AllDistricts = "all"

// TrailingWindow is the span used for district risk scoring.
const TrailingWindow = 7 * 24 * time.Hour

// ViolationDays bounds the violations-over-time series.
const ViolationDays = 7

// AnalyticsFilter restricts the window analytics are computed over. Start
// and End are calendar dates; End is inclusive.
type AnalyticsFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	District  string
}

// HasDistrict reports whether the filter targets a single district.
func (f AnalyticsFilter) HasDistrict() bool {
	d := strings.TrimSpace(f.District)
	return d != "" && !strings.EqualFold(d, AllDistricts)
}

// Stats are the headline numbers of the analytics dashboard.
type Stats struct {
	TotalViolations   int     `json:"total_violations"`
	FinesIssued       int     `json:"fines_issued"`
	Revenue           float64 `json:"revenue"`
	IncidentsReviewed int     `json:"incidents_reviewed"`
}

// ViolationPoint is one day of the violations-over-time series.
type ViolationPoint struct {
	Day        time.Time `json:"-"`
	Date       string    `json:"date"`
	Violations int       `json:"violations"`
}

// DistrictOverview is a row of the district panel. Single-district queries
// fill WeeklyCount and Score; the all-districts ranking fills Type.
type DistrictOverview struct {
	District    string   `json:"district"`
	Count       int      `json:"count"`
	WeeklyCount *int     `json:"weeklyCount,omitempty"`
	Score       RiskTier `json:"score,omitempty"`
	Type        string   `json:"type,omitempty"`
	Color       string   `json:"color"`
}

// Analytics bundles the three analytics views.
type Analytics struct {
	Stats              *Stats              `json:"stats"`
	ViolationsOverTime []*ViolationPoint   `json:"violations_over_time"`
	DistrictOverview   []*DistrictOverview `json:"district_overview"`
}

// AnalyticsService computes aggregates over incidents. Nothing is cached;
// every call reads the current rows.
type AnalyticsService interface {
	GetStats(ctx context.Context, filter AnalyticsFilter) (*Stats, error)
	GetViolationsOverTime(ctx context.Context, filter AnalyticsFilter) ([]*ViolationPoint, error)
	GetDistrictOverview(ctx context.Context, filter AnalyticsFilter) ([]*DistrictOverview, error)
}

// RiskTier is the qualitative label of a district's recent activity.
type RiskTier string

const (
	RiskLow      RiskTier = "Low"
	RiskMedium   RiskTier = "Medium"
	RiskHigh     RiskTier = "High"
	RiskCritical RiskTier = "Critical"
)

// Panel colors.
const (
	ColorRed    = "#ef4444"
	ColorOrange = "#f97316"
	ColorYellow = "#eab308"
	ColorGreen  = "#10b981"
)

// RiskTierFor maps a trailing-week incident count to its tier. Each
// threshold is inclusive.
func RiskTierFor(weekly int) RiskTier {
	switch {
	case weekly >= 10:
		return RiskCritical
	case weekly >= 5:
		return RiskHigh
	case weekly >= 2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Color returns the display color of the tier.
func (t RiskTier) Color() string {
	switch t {
	case RiskCritical:
		return ColorRed
	case RiskHigh:
		return ColorOrange
	case RiskMedium:
		return ColorYellow
	default:
		return ColorGreen
	}
}

// ScoreDistrict builds the single-district overview. It returns nil when the
// district has no incidents in either window.
func ScoreDistrict(district string, count, weekly int) *DistrictOverview {
	if count == 0 && weekly == 0 {
		return nil
	}
	tier := RiskTierFor(weekly)
	return &DistrictOverview{
		District:    district,
		Count:       count,
		WeeklyCount: &weekly,
		Score:       tier,
		Color:       tier.Color(),
	}
}

// DistrictCount is a per-district incident total.
type DistrictCount struct {
	District string
	Count    int
}

// RankDistricts returns the three busiest districts followed by the three
// quietest, quietest first. Fewer than six districts means the two halves
// share entries.
func RankDistricts(counts []DistrictCount) []*DistrictOverview {
	sorted := make([]DistrictCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].District < sorted[j].District
	})

	n := min(3, len(sorted))
	out := make([]*DistrictOverview, 0, 2*n)
	for _, c := range sorted[:n] {
		out = append(out, &DistrictOverview{District: c.District, Count: c.Count, Type: "top", Color: ColorRed})
	}
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		c := sorted[i]
		out = append(out, &DistrictOverview{District: c.District, Count: c.Count, Type: "worst", Color: ColorGreen})
	}
	return out
}

// ViolationLabel formats a day for the time series, e.g. "Oct 14".
func ViolationLabel(day time.Time) string {
	return day.Format("Jan 02")
}

// ChronologicalSeries reverses a newest-first series in place and fills in
// labels.
func ChronologicalSeries(points []*ViolationPoint) []*ViolationPoint {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	for _, p := range points {
		p.Date = ViolationLabel(p.Day)
	}
	return points
}
