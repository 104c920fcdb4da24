package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync-api/internal/models"
)

// fixedNow is a Wednesday afternoon.
var fixedNow = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

func completedSession(subject string, date time.Time, minutes int) models.StudySession {
	return models.StudySession{
		ID:              "sess-" + subject + date.Format("20060102T1504"),
		UserID:          "user-1",
		Subject:         subject,
		Date:            date,
		DurationMinutes: minutes,
		Status:          models.SessionStatusCompleted,
	}
}

func TestComputeAnalyticsEmptyInputReturnsPlaceholderDataset(t *testing.T) {
	got := ComputeAnalytics(AnalyticsInput{}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, MockAnalyticsOverview(fixedNow), got)

	require.Len(t, got.TopSubjects, 5)
	assert.Equal(t, "Mathematics", got.TopSubjects[0].Name)
	assert.Equal(t, 24.0, got.TopSubjects[0].Hours)
	assert.Equal(t, 35, got.TopSubjects[0].Percentage)
	assert.Equal(t, "Computer Science", got.TopSubjects[1].Name)
	assert.Equal(t, 26, got.TopSubjects[1].Percentage)
}

func TestComputeAnalyticsSubjectPercentagesSumToHundred(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-2*time.Hour), 90),
		completedSession("Physics", fixedNow.Add(-26*time.Hour), 45),
		completedSession("History", fixedNow.Add(-50*time.Hour), 120),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)

	sum := 0
	for _, subject := range got.TopSubjects {
		assert.GreaterOrEqual(t, subject.Hours, 0.0)
		sum += subject.Percentage
	}
	assert.InDelta(t, 100, sum, 2)
}

func TestComputeAnalyticsFlashcardSetsCreditHalfHour(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-time.Hour), 60),
	}
	sets := []models.FlashcardSet{
		{ID: "set-1", UserID: "user-1", Subject: "Mathematics", Title: "Algebra"},
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions, FlashcardSets: sets}, models.TimeframeWeekly, fixedNow)

	require.NotEmpty(t, got.TopSubjects)
	assert.Equal(t, "Mathematics", got.TopSubjects[0].Name)
	assert.Equal(t, 1.5, got.TopSubjects[0].Hours)
}

func TestComputeAnalyticsWeeklyActivityBuckets(t *testing.T) {
	// 90 minutes on Wednesday of the current week.
	sessions := []models.StudySession{
		completedSession("Mathematics", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), 90),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)

	require.Len(t, got.WeeklyActivity, 7)
	labels := make([]string, 0, 7)
	for _, bucket := range got.WeeklyActivity {
		labels = append(labels, bucket.Day)
	}
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, labels)
	assert.Equal(t, 1.5, got.WeeklyActivity[2].Hours)
	assert.Equal(t, 0.0, got.WeeklyActivity[0].Hours)
}

func TestComputeAnalyticsStreakConsecutiveDays(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-1*time.Hour), 30),
		completedSession("Mathematics", fixedNow.AddDate(0, 0, -1), 30),
		completedSession("Mathematics", fixedNow.AddDate(0, 0, -2), 30),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 3, got.StudyStreak)
}

func TestComputeAnalyticsStreakBreaksOnGap(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-1*time.Hour), 30),
		completedSession("Mathematics", fixedNow.AddDate(0, 0, -2), 30),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 1, got.StudyStreak)
}

func TestComputeAnalyticsStreakCapsAtThirtyDays(t *testing.T) {
	sessions := make([]models.StudySession, 0, 40)
	for i := 0; i < 40; i++ {
		sessions = append(sessions, completedSession("Mathematics", fixedNow.AddDate(0, 0, -i), 30))
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeMonthly, fixedNow)
	assert.Equal(t, 30, got.StudyStreak)
}

func TestComputeAnalyticsStreakFallsBackWithoutRecentDay(t *testing.T) {
	// Rows exist in the window but none today, so the walk-back counts zero
	// days and the placeholder streak takes over.
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.AddDate(0, 0, -3), 60),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 14, got.StudyStreak)
}

func TestComputeAnalyticsCompletionRate(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-1*time.Hour), 60),
		completedSession("Mathematics", fixedNow.Add(-2*time.Hour), 60),
		completedSession("Mathematics", fixedNow.Add(-3*time.Hour), 60),
		{
			ID:              "sess-cancelled",
			UserID:          "user-1",
			Subject:         "Physics",
			Date:            fixedNow.Add(-4 * time.Hour),
			DurationMinutes: 60,
			Status:          models.SessionStatusCancelled,
		},
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)

	require.Len(t, got.Metrics, 4)
	assert.Equal(t, "Completion Rate", got.Metrics[1].Label)
	assert.Equal(t, "75%", got.Metrics[1].Value)
}

func TestComputeAnalyticsWeeklyGoalProgress(t *testing.T) {
	// 5 hours logged in the last 7 days against a 10 hour target.
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-24*time.Hour), 300),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 50, got.WeeklyProgress)
	assert.Equal(t, "50%", got.Metrics[3].Value)
}

func TestComputeAnalyticsWeeklyGoalProgressClampsAtHundred(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-24*time.Hour), 720),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 100, got.WeeklyProgress)
	assert.Equal(t, "100%", got.Metrics[3].Value)
}

func TestComputeAnalyticsGoalFallbacksDiverge(t *testing.T) {
	// A session outside the 7-day window keeps both goal computations at
	// zero, which triggers their distinct placeholder values.
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.AddDate(0, 0, -10), 60),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeMonthly, fixedNow)
	assert.Equal(t, 75, got.WeeklyProgress)
	assert.Equal(t, "92%", got.Metrics[3].Value)
}

func TestComputeAnalyticsFocusDistributionMorningOnly(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC), 60),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)

	require.Len(t, got.FocusDistribution, 3)
	assert.Equal(t, "Morning", got.FocusDistribution[0].Period)
	assert.Equal(t, 100, got.FocusDistribution[0].Percentage)
	assert.Equal(t, 0, got.FocusDistribution[1].Percentage)
	assert.Equal(t, 0, got.FocusDistribution[2].Percentage)
}

func TestComputeAnalyticsAverageFocusTime(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-1*time.Hour), 30),
		completedSession("Physics", fixedNow.Add(-2*time.Hour), 60),
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 45, got.AverageFocusTime)
	assert.Equal(t, "45 min", got.Metrics[0].Value)
}

func TestComputeAnalyticsTotalStudyTimePrefersSummaryRow(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-1*time.Hour), 60),
	}
	summary := &models.StudySummary{UserID: "user-1", TotalStudyTimeMinutes: 4500}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions, Summary: summary}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 75.0, got.TotalStudyTime)

	// Without the summary row the live sum wins.
	got = ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, 1.0, got.TotalStudyTime)
}

func TestComputeAnalyticsSkipsMalformedRows(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-1*time.Hour), 60),
		{ID: "no-date", UserID: "user-1", Subject: "Physics", DurationMinutes: 60, Status: models.SessionStatusCompleted},
		{ID: "negative", UserID: "user-1", Subject: "Physics", Date: fixedNow, DurationMinutes: -30, Status: models.SessionStatusCompleted},
	}

	got := ComputeAnalytics(AnalyticsInput{Sessions: sessions}, models.TimeframeWeekly, fixedNow)

	require.Len(t, got.TopSubjects, 1)
	assert.Equal(t, "Mathematics", got.TopSubjects[0].Name)
	assert.Equal(t, 100, got.TopSubjects[0].Percentage)
}

func TestComputeAnalyticsIsIdempotent(t *testing.T) {
	sessions := []models.StudySession{
		completedSession("Mathematics", fixedNow.Add(-2*time.Hour), 90),
		completedSession("Physics", fixedNow.AddDate(0, 0, -1), 45),
	}
	input := AnalyticsInput{Sessions: sessions}

	first := ComputeAnalytics(input, models.TimeframeWeekly, fixedNow)
	second := ComputeAnalytics(input, models.TimeframeWeekly, fixedNow)
	assert.Equal(t, first, second)
}
