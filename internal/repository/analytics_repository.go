package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studysync/studysync-api/internal/models"
)

// AnalyticsRepository exposes the read queries feeding the analytics
// aggregator. All reads are scoped to a single owner.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// SessionsSince returns the user's sessions dated on or after the lower bound.
func (r *AnalyticsRepository) SessionsSince(ctx context.Context, userID string, since time.Time) ([]models.StudySession, error) {
	const query = `SELECT id, user_id, subject, title, description, location, date, duration_minutes, planned_minutes, status, created_at, updated_at
        FROM study_sessions WHERE user_id = $1 AND date >= $2 ORDER BY date DESC`
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, userID, since); err != nil {
		return nil, fmt.Errorf("query sessions since: %w", err)
	}
	return sessions, nil
}

// FlashcardSetsByOwner returns every flashcard set owned by the user.
func (r *AnalyticsRepository) FlashcardSetsByOwner(ctx context.Context, userID string) ([]models.FlashcardSet, error) {
	const query = `SELECT s.id, s.user_id, s.subject, s.title, s.description, s.tags, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM flashcards f WHERE f.set_id = s.id) AS card_count
        FROM flashcard_sets s WHERE s.user_id = $1`
	var sets []models.FlashcardSet
	if err := r.db.SelectContext(ctx, &sets, query, userID); err != nil {
		return nil, fmt.Errorf("query flashcard sets: %w", err)
	}
	return sets, nil
}

// ActivitySince returns flashcard activity entries since the lower bound.
func (r *AnalyticsRepository) ActivitySince(ctx context.Context, userID string, since time.Time) ([]models.FlashcardActivity, error) {
	const query = `SELECT id, user_id, set_id, date FROM flashcard_activity WHERE user_id = $1 AND date >= $2 ORDER BY date DESC`
	var entries []models.FlashcardActivity
	if err := r.db.SelectContext(ctx, &entries, query, userID, since); err != nil {
		return nil, fmt.Errorf("query flashcard activity: %w", err)
	}
	return entries, nil
}

// Summary returns the user's precomputed totals row, or nil when absent.
func (r *AnalyticsRepository) Summary(ctx context.Context, userID string) (*models.StudySummary, error) {
	const query = `SELECT user_id, total_study_time, updated_at FROM study_summaries WHERE user_id = $1 LIMIT 1`
	var summary models.StudySummary
	if err := r.db.GetContext(ctx, &summary, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query study summary: %w", err)
	}
	return &summary, nil
}
