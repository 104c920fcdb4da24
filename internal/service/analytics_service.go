package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
)

// AnalyticsReader describes the persistence reads required by AnalyticsService.
type AnalyticsReader interface {
	SessionsSince(ctx context.Context, userID string, since time.Time) ([]models.StudySession, error)
	FlashcardSetsByOwner(ctx context.Context, userID string) ([]models.FlashcardSet, error)
	ActivitySince(ctx context.Context, userID string, since time.Time) ([]models.FlashcardActivity, error)
	Summary(ctx context.Context, userID string) (*models.StudySummary, error)
}

// AnalyticsService orchestrates the analytics aggregator: it scopes the raw
// reads to the requested timeframe, runs them concurrently, feeds the
// aggregator and caches the derived overview.
type AnalyticsService struct {
	repo    AnalyticsReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// AnalyticsServiceParams bundles constructor dependencies.
type AnalyticsServiceParams struct {
	Repo    AnalyticsReader
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(params AnalyticsServiceParams) *AnalyticsService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		repo:    params.Repo,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		now:     now,
	}
}

// Overview returns the derived analytics payload for a user. The boolean
// indicates whether the payload originated from cache. A failure of the
// required reads degrades to the full placeholder dataset rather than an
// error; the HTTP layer never sees a partial result.
func (s *AnalyticsService) Overview(ctx context.Context, userID string, timeframe models.Timeframe) (models.AnalyticsOverview, bool, error) {
	if !timeframe.Valid() {
		timeframe = models.TimeframeWeekly
	}

	cacheKey := overviewCacheKey(userID, timeframe)
	var cached models.AnalyticsOverview
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	now := s.now()
	input, err := s.fetchInput(ctx, userID, timeframe, now)
	if err != nil {
		s.logger.Warn("analytics reads failed, serving placeholder dataset",
			zap.String("user_id", userID),
			zap.String("timeframe", string(timeframe)),
			zap.Error(err))
		return MockAnalyticsOverview(now), false, nil
	}

	overview := ComputeAnalytics(input, timeframe, now)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, overview, 0); err != nil {
			s.logger.Warn("cache analytics overview", zap.Error(err))
		}
	}
	return overview, false, nil
}

// InvalidateUser drops any cached overviews for the user. Called after
// session or flashcard writes so the next read recomputes.
func (s *AnalyticsService) InvalidateUser(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("analytics:overview:%s:*", userID)); err != nil {
		s.logger.Warn("invalidate analytics cache", zap.String("user_id", userID), zap.Error(err))
	}
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

// fetchInput issues the four reads concurrently. Sessions and flashcard sets
// are required; the activity log and summary row are optional and degrade to
// empty on failure.
func (s *AnalyticsService) fetchInput(ctx context.Context, userID string, timeframe models.Timeframe, now time.Time) (AnalyticsInput, error) {
	since := timeframe.WindowStart(now)

	var input AnalyticsInput
	var sessionsErr, setsErr error
	var activityErr, summaryErr error

	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()
		input.Sessions, sessionsErr = s.repo.SessionsSince(ctx, userID, since)
		s.metrics.ObserveDBQuery("analytics_sessions", time.Since(start))
	}()

	setsDone := make(chan struct{})
	go func() {
		defer close(setsDone)
		start := time.Now()
		input.FlashcardSets, setsErr = s.repo.FlashcardSetsByOwner(ctx, userID)
		s.metrics.ObserveDBQuery("analytics_flashcard_sets", time.Since(start))
	}()

	activityDone := make(chan struct{})
	go func() {
		defer close(activityDone)
		start := time.Now()
		input.Activity, activityErr = s.repo.ActivitySince(ctx, userID, since)
		s.metrics.ObserveDBQuery("analytics_activity", time.Since(start))
	}()

	summaryDone := make(chan struct{})
	go func() {
		defer close(summaryDone)
		start := time.Now()
		input.Summary, summaryErr = s.repo.Summary(ctx, userID)
		s.metrics.ObserveDBQuery("analytics_summary", time.Since(start))
	}()

	<-done
	<-setsDone
	<-activityDone
	<-summaryDone

	if sessionsErr != nil {
		return AnalyticsInput{}, fmt.Errorf("read sessions: %w", sessionsErr)
	}
	if setsErr != nil {
		return AnalyticsInput{}, fmt.Errorf("read flashcard sets: %w", setsErr)
	}
	if activityErr != nil {
		s.logger.Warn("activity read failed, continuing without it", zap.Error(activityErr))
		input.Activity = nil
	}
	if summaryErr != nil {
		s.logger.Warn("summary read failed, continuing without it", zap.Error(summaryErr))
		input.Summary = nil
	}
	return input, nil
}

func overviewCacheKey(userID string, timeframe models.Timeframe) string {
	return fmt.Sprintf("analytics:overview:%s:%s", userID, timeframe)
}
