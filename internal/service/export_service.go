package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	"github.com/studysync/studysync-api/pkg/export"
	"github.com/studysync/studysync-api/pkg/storage"
)

type overviewProvider interface {
	Overview(ctx context.Context, userID string, timeframe models.Timeframe) (models.AnalyticsOverview, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets from analytics overviews and persists
// the rendered files.
type ExportService struct {
	analytics overviewProvider
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(analytics overviewProvider, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		analytics: analytics,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	timeframe := job.Params.Timeframe
	if !timeframe.Valid() {
		timeframe = models.TimeframeWeekly
	}
	overview, _, err := s.analytics.Overview(ctx, job.Params.UserID, timeframe)
	if err != nil {
		return nil, err
	}

	dataset, title, err := buildDataset(job.Type, timeframe, overview)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	timeframe := sanitizeFilename(string(job.Params.Timeframe))
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), timeframe, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func buildDataset(reportType models.ReportType, timeframe models.Timeframe, overview models.AnalyticsOverview) (export.Dataset, string, error) {
	switch reportType {
	case models.ReportTypeSubjects:
		return buildSubjectsDataset(timeframe, overview), fmt.Sprintf("Top Subjects (%s)", timeframe), nil
	case models.ReportTypeActivity:
		return buildActivityDataset(overview), "Weekly Activity", nil
	case models.ReportTypeMetrics:
		return buildMetricsDataset(timeframe, overview), fmt.Sprintf("Productivity Metrics (%s)", timeframe), nil
	case models.ReportTypeFocus:
		return buildFocusDataset(timeframe, overview), fmt.Sprintf("Focus Distribution (%s)", timeframe), nil
	case models.ReportTypeOverview:
		return buildOverviewDataset(timeframe, overview), fmt.Sprintf("Study Overview (%s)", timeframe), nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", reportType)
	}
}

func buildSubjectsDataset(timeframe models.Timeframe, overview models.AnalyticsOverview) export.Dataset {
	rows := make([]map[string]string, 0, len(overview.TopSubjects))
	for _, subject := range overview.TopSubjects {
		rows = append(rows, map[string]string{
			"Subject":   subject.Name,
			"Hours":     fmt.Sprintf("%.2f", subject.Hours),
			"Share (%)": fmt.Sprintf("%d", subject.Percentage),
			"Timeframe": string(timeframe),
		})
	}
	return export.Dataset{
		Headers: []string{"Subject", "Hours", "Share (%)", "Timeframe"},
		Rows:    rows,
	}
}

func buildActivityDataset(overview models.AnalyticsOverview) export.Dataset {
	rows := make([]map[string]string, 0, len(overview.WeeklyActivity))
	for _, day := range overview.WeeklyActivity {
		rows = append(rows, map[string]string{
			"Day":   day.Day,
			"Hours": fmt.Sprintf("%.1f", day.Hours),
		})
	}
	return export.Dataset{
		Headers: []string{"Day", "Hours"},
		Rows:    rows,
	}
}

func buildMetricsDataset(timeframe models.Timeframe, overview models.AnalyticsOverview) export.Dataset {
	rows := make([]map[string]string, 0, len(overview.Metrics))
	for _, metric := range overview.Metrics {
		rows = append(rows, map[string]string{
			"Metric":    metric.Label,
			"Value":     metric.Value,
			"Change":    metric.Change,
			"Trend":     metric.Trend,
			"Timeframe": string(timeframe),
		})
	}
	return export.Dataset{
		Headers: []string{"Metric", "Value", "Change", "Trend", "Timeframe"},
		Rows:    rows,
	}
}

func buildFocusDataset(timeframe models.Timeframe, overview models.AnalyticsOverview) export.Dataset {
	rows := make([]map[string]string, 0, len(overview.FocusDistribution))
	for _, bucket := range overview.FocusDistribution {
		rows = append(rows, map[string]string{
			"Period":    bucket.Period,
			"Share (%)": fmt.Sprintf("%d", bucket.Percentage),
			"Timeframe": string(timeframe),
		})
	}
	return export.Dataset{
		Headers: []string{"Period", "Share (%)", "Timeframe"},
		Rows:    rows,
	}
}

func buildOverviewDataset(timeframe models.Timeframe, overview models.AnalyticsOverview) export.Dataset {
	rows := []map[string]string{
		{"Metric": "Total Study Time (h)", "Value": fmt.Sprintf("%.1f", overview.TotalStudyTime), "Timeframe": string(timeframe)},
		{"Metric": "Weekly Progress (%)", "Value": fmt.Sprintf("%d", overview.WeeklyProgress), "Timeframe": string(timeframe)},
		{"Metric": "Study Streak (days)", "Value": fmt.Sprintf("%d", overview.StudyStreak), "Timeframe": string(timeframe)},
		{"Metric": "Average Focus Time (min)", "Value": fmt.Sprintf("%d", overview.AverageFocusTime), "Timeframe": string(timeframe)},
	}
	return export.Dataset{
		Headers: []string{"Metric", "Value", "Timeframe"},
		Rows:    rows,
	}
}
