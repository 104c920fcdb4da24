package models

import "time"

// Timeframe selects the aggregation window applied as a date lower-bound.
type Timeframe string

const (
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeYearly  Timeframe = "yearly"
)

// Valid reports whether the timeframe is one of the supported windows.
func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeWeekly, TimeframeMonthly, TimeframeYearly:
		return true
	}
	return false
}

// WindowStart returns the lower bound of the timeframe relative to now.
func (t Timeframe) WindowStart(now time.Time) time.Time {
	switch t {
	case TimeframeMonthly:
		return now.AddDate(0, -1, 0)
	case TimeframeYearly:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

// SubjectAnalytics is a per-subject share of total study time.
type SubjectAnalytics struct {
	Name       string  `json:"name"`
	Hours      float64 `json:"hours"`
	Percentage int     `json:"percentage"`
	Color      string  `json:"color"`
}

// DailyActivity is one weekday bucket of the current week's activity.
type DailyActivity struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// ProductivityMetric is a labelled card value with an illustrative change tag.
type ProductivityMetric struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change"`
	Trend  string `json:"trend"`
}

// FocusDistribution is the share of studied minutes in a time-of-day period.
type FocusDistribution struct {
	Period     string `json:"period"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
}

// AnalyticsOverview is the full derived analytics payload, produced fresh on
// every call and never persisted.
type AnalyticsOverview struct {
	TopSubjects       []SubjectAnalytics   `json:"top_subjects"`
	WeeklyActivity    []DailyActivity      `json:"weekly_activity"`
	Metrics           []ProductivityMetric `json:"metrics"`
	TotalStudyTime    float64              `json:"total_study_time"`
	WeeklyProgress    int                  `json:"weekly_progress"`
	StudyStreak       int                  `json:"study_streak"`
	FocusDistribution []FocusDistribution  `json:"focus_distribution"`
	AverageFocusTime  int                  `json:"average_focus_time"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// StudySummary is an optional precomputed per-user totals row.
type StudySummary struct {
	UserID                string     `db:"user_id" json:"user_id"`
	TotalStudyTimeMinutes int        `db:"total_study_time" json:"total_study_time"`
	UpdatedAt             *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
