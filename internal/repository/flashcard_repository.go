package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studysync/studysync-api/internal/models"
)

// FlashcardRepository manages persistence for flashcard sets, cards and
// activity entries.
type FlashcardRepository struct {
	db *sqlx.DB
}

// NewFlashcardRepository constructs a FlashcardRepository.
func NewFlashcardRepository(db *sqlx.DB) *FlashcardRepository {
	return &FlashcardRepository{db: db}
}

const setColumns = `s.id, s.user_id, s.subject, s.title, s.description, s.tags, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM flashcards f WHERE f.set_id = s.id) AS card_count`

// ListSets returns flashcard sets matching the provided filters.
func (r *FlashcardRepository) ListSets(ctx context.Context, filter models.FlashcardSetFilter) ([]models.FlashcardSet, int, error) {
	baseQuery := `FROM flashcard_sets s WHERE s.user_id = $1`
	args := []interface{}{filter.UserID}
	var conditions []string

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(s.subject) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Subject))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.title) LIKE $%d OR LOWER(s.subject) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":      "s.title",
		"subject":    "s.subject",
		"created_at": "s.created_at",
		"updated_at": "s.updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.updated_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", setColumns, baseQuery, column, sortOrder, pageSize, offset)

	var sets []models.FlashcardSet
	if err := r.db.SelectContext(ctx, &sets, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list flashcard sets: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count flashcard sets: %w", err)
	}

	return sets, total, nil
}

// FindSetByID fetches a flashcard set by ID.
func (r *FlashcardRepository) FindSetByID(ctx context.Context, id string) (*models.FlashcardSet, error) {
	query := fmt.Sprintf("SELECT %s FROM flashcard_sets s WHERE s.id = $1 LIMIT 1", setColumns)
	var set models.FlashcardSet
	if err := r.db.GetContext(ctx, &set, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find flashcard set: %w", err)
	}
	return &set, nil
}

// ListSetsByOwner returns every set owned by the user.
func (r *FlashcardRepository) ListSetsByOwner(ctx context.Context, userID string) ([]models.FlashcardSet, error) {
	query := fmt.Sprintf("SELECT %s FROM flashcard_sets s WHERE s.user_id = $1 ORDER BY s.updated_at DESC", setColumns)
	var sets []models.FlashcardSet
	if err := r.db.SelectContext(ctx, &sets, query, userID); err != nil {
		return nil, fmt.Errorf("list flashcard sets by owner: %w", err)
	}
	return sets, nil
}

// CreateSet inserts a new flashcard set.
func (r *FlashcardRepository) CreateSet(ctx context.Context, set *models.FlashcardSet) error {
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now
	}
	set.UpdatedAt = now
	const query = `INSERT INTO flashcard_sets (id, user_id, subject, title, description, tags, created_at, updated_at)
        VALUES (:id, :user_id, :subject, :title, :description, :tags, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, set); err != nil {
		return fmt.Errorf("create flashcard set: %w", err)
	}
	return nil
}

// UpdateSet modifies an existing flashcard set.
func (r *FlashcardRepository) UpdateSet(ctx context.Context, set *models.FlashcardSet) error {
	set.UpdatedAt = time.Now().UTC()
	const query = `UPDATE flashcard_sets SET subject = :subject, title = :title, description = :description, tags = :tags, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, set); err != nil {
		return fmt.Errorf("update flashcard set: %w", err)
	}
	return nil
}

// DeleteSet removes a flashcard set and its cards.
func (r *FlashcardRepository) DeleteSet(ctx context.Context, id string) error {
	const query = `DELETE FROM flashcard_sets WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete flashcard set: %w", err)
	}
	return nil
}

// ListCards returns the cards of a set ordered by position.
func (r *FlashcardRepository) ListCards(ctx context.Context, setID string) ([]models.Flashcard, error) {
	const query = `SELECT id, set_id, front, back, position, created_at, updated_at FROM flashcards WHERE set_id = $1 ORDER BY position ASC, created_at ASC`
	var cards []models.Flashcard
	if err := r.db.SelectContext(ctx, &cards, query, setID); err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	return cards, nil
}

// FindCardByID fetches a single card.
func (r *FlashcardRepository) FindCardByID(ctx context.Context, id string) (*models.Flashcard, error) {
	const query = `SELECT id, set_id, front, back, position, created_at, updated_at FROM flashcards WHERE id = $1 LIMIT 1`
	var card models.Flashcard
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find flashcard: %w", err)
	}
	return &card, nil
}

// CreateCard inserts a new card into a set.
func (r *FlashcardRepository) CreateCard(ctx context.Context, card *models.Flashcard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now
	const query = `INSERT INTO flashcards (id, set_id, front, back, position, created_at, updated_at)
        VALUES (:id, :set_id, :front, :back, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("create flashcard: %w", err)
	}
	return nil
}

// UpdateCard modifies an existing card.
func (r *FlashcardRepository) UpdateCard(ctx context.Context, card *models.Flashcard) error {
	card.UpdatedAt = time.Now().UTC()
	const query = `UPDATE flashcards SET front = :front, back = :back, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("update flashcard: %w", err)
	}
	return nil
}

// DeleteCard removes a card.
func (r *FlashcardRepository) DeleteCard(ctx context.Context, id string) error {
	const query = `DELETE FROM flashcards WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	return nil
}

// RecordActivity logs a study interaction with a set.
func (r *FlashcardRepository) RecordActivity(ctx context.Context, activity *models.FlashcardActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.Date.IsZero() {
		activity.Date = time.Now().UTC()
	}
	const query = `INSERT INTO flashcard_activity (id, user_id, set_id, date) VALUES (:id, :user_id, :set_id, :date)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("record flashcard activity: %w", err)
	}
	return nil
}

// ListActivitySince returns activity entries for a user since the lower bound.
func (r *FlashcardRepository) ListActivitySince(ctx context.Context, userID string, since time.Time) ([]models.FlashcardActivity, error) {
	const query = `SELECT id, user_id, set_id, date FROM flashcard_activity WHERE user_id = $1 AND date >= $2 ORDER BY date DESC`
	var entries []models.FlashcardActivity
	if err := r.db.SelectContext(ctx, &entries, query, userID, since); err != nil {
		return nil, fmt.Errorf("list flashcard activity: %w", err)
	}
	return entries, nil
}
