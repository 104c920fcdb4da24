package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	"github.com/studysync/studysync-api/pkg/export"
	"github.com/studysync/studysync-api/pkg/storage"
)

type analyticsStub struct{}

func (analyticsStub) Overview(ctx context.Context, userID string, timeframe models.Timeframe) (models.AnalyticsOverview, bool, error) {
	return models.AnalyticsOverview{
		TopSubjects: []models.SubjectAnalytics{
			{Name: "Mathematics", Hours: 24, Percentage: 35, Color: "#3b82f6"},
			{Name: "Physics", Hours: 12, Percentage: 18, Color: "#22c55e"},
		},
		WeeklyActivity: []models.DailyActivity{
			{Day: "Mon", Hours: 2.5},
			{Day: "Tue", Hours: 3.2},
		},
		Metrics: []models.ProductivityMetric{
			{Label: "Focus Time", Value: "45 min", Change: "+8%", Trend: "up"},
		},
		FocusDistribution: []models.FocusDistribution{
			{Period: "Morning", Percentage: 45, Color: "#f59e0b"},
		},
		TotalStudyTime:   70,
		WeeklyProgress:   75,
		StudyStreak:      14,
		AverageFocusTime: 42,
		GeneratedAt:      time.Now().UTC(),
	}, false, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(analyticsStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeSubjects,
		Params:    models.ReportJobParams{UserID: "user-1", Timeframe: models.TimeframeWeekly, Format: models.ReportFormatCSV},
		CreatedBy: "user-1",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/export/")

	path := store.Path(result.RelativePath)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeOverview,
		Params:    models.ReportJobParams{UserID: "user-1", Timeframe: models.TimeframeMonthly, Format: models.ReportFormatPDF},
		CreatedBy: "user-1",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceUnsupportedType(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportType("bogus"),
		Params: models.ReportJobParams{UserID: "user-1", Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
