package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type flashcardRepository interface {
	ListSets(ctx context.Context, filter models.FlashcardSetFilter) ([]models.FlashcardSet, int, error)
	FindSetByID(ctx context.Context, id string) (*models.FlashcardSet, error)
	CreateSet(ctx context.Context, set *models.FlashcardSet) error
	UpdateSet(ctx context.Context, set *models.FlashcardSet) error
	DeleteSet(ctx context.Context, id string) error
	ListCards(ctx context.Context, setID string) ([]models.Flashcard, error)
	FindCardByID(ctx context.Context, id string) (*models.Flashcard, error)
	CreateCard(ctx context.Context, card *models.Flashcard) error
	UpdateCard(ctx context.Context, card *models.Flashcard) error
	DeleteCard(ctx context.Context, id string) error
	RecordActivity(ctx context.Context, activity *models.FlashcardActivity) error
}

// CreateFlashcardSetRequest holds payload for creating a set.
type CreateFlashcardSetRequest struct {
	Subject     string   `json:"subject" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// UpdateFlashcardSetRequest holds payload for updating a set.
type UpdateFlashcardSetRequest struct {
	Subject     string   `json:"subject" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// CardRequest holds payload for creating or updating a card.
type CardRequest struct {
	Front    string `json:"front" validate:"required"`
	Back     string `json:"back" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

// FlashcardService handles flashcard set and card use-cases.
type FlashcardService struct {
	repo      flashcardRepository
	analytics analyticsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFlashcardService constructs the flashcard service.
func NewFlashcardService(repo flashcardRepository, analytics analyticsInvalidator, validate *validator.Validate, logger *zap.Logger) *FlashcardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlashcardService{repo: repo, analytics: analytics, validator: validate, logger: logger}
}

// ListSets returns the user's flashcard sets with pagination metadata.
func (s *FlashcardService) ListSets(ctx context.Context, filter models.FlashcardSetFilter) ([]models.FlashcardSet, *models.Pagination, error) {
	sets, total, err := s.repo.ListSets(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list flashcard sets")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return sets, pagination, nil
}

// GetSet returns a set owned by the user.
func (s *FlashcardService) GetSet(ctx context.Context, userID, id string) (*models.FlashcardSet, error) {
	return s.findOwnedSet(ctx, userID, id)
}

// CreateSet creates a new flashcard set for the user.
func (s *FlashcardService) CreateSet(ctx context.Context, userID string, req CreateFlashcardSetRequest) (*models.FlashcardSet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flashcard set payload")
	}
	set := &models.FlashcardSet{
		UserID:      userID,
		Subject:     req.Subject,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if err := s.repo.CreateSet(ctx, set); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create flashcard set")
	}
	s.invalidate(ctx, userID)
	return set, nil
}

// UpdateSet modifies a set owned by the user.
func (s *FlashcardService) UpdateSet(ctx context.Context, userID, id string, req UpdateFlashcardSetRequest) (*models.FlashcardSet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flashcard set payload")
	}
	set, err := s.findOwnedSet(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	set.Subject = req.Subject
	set.Title = req.Title
	set.Description = req.Description
	set.Tags = req.Tags
	if err := s.repo.UpdateSet(ctx, set); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update flashcard set")
	}
	s.invalidate(ctx, userID)
	return set, nil
}

// DeleteSet removes a set owned by the user along with its cards.
func (s *FlashcardService) DeleteSet(ctx context.Context, userID, id string) error {
	if _, err := s.findOwnedSet(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSet(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete flashcard set")
	}
	s.invalidate(ctx, userID)
	return nil
}

// ListCards returns the cards of a set owned by the user.
func (s *FlashcardService) ListCards(ctx context.Context, userID, setID string) ([]models.Flashcard, error) {
	if _, err := s.findOwnedSet(ctx, userID, setID); err != nil {
		return nil, err
	}
	cards, err := s.repo.ListCards(ctx, setID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list flashcards")
	}
	return cards, nil
}

// AddCard appends a card to a set owned by the user.
func (s *FlashcardService) AddCard(ctx context.Context, userID, setID string, req CardRequest) (*models.Flashcard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flashcard payload")
	}
	if _, err := s.findOwnedSet(ctx, userID, setID); err != nil {
		return nil, err
	}
	card := &models.Flashcard{
		SetID:    setID,
		Front:    req.Front,
		Back:     req.Back,
		Position: req.Position,
	}
	if err := s.repo.CreateCard(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create flashcard")
	}
	return card, nil
}

// UpdateCard modifies a card within a set owned by the user.
func (s *FlashcardService) UpdateCard(ctx context.Context, userID, setID, cardID string, req CardRequest) (*models.Flashcard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flashcard payload")
	}
	card, err := s.findOwnedCard(ctx, userID, setID, cardID)
	if err != nil {
		return nil, err
	}
	card.Front = req.Front
	card.Back = req.Back
	card.Position = req.Position
	if err := s.repo.UpdateCard(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update flashcard")
	}
	return card, nil
}

// DeleteCard removes a card from a set owned by the user.
func (s *FlashcardService) DeleteCard(ctx context.Context, userID, setID, cardID string) error {
	if _, err := s.findOwnedCard(ctx, userID, setID, cardID); err != nil {
		return err
	}
	if err := s.repo.DeleteCard(ctx, cardID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete flashcard")
	}
	return nil
}

// RecordReview logs a study interaction with a set; the entry feeds the
// analytics activity input.
func (s *FlashcardService) RecordReview(ctx context.Context, userID, setID string) error {
	if _, err := s.findOwnedSet(ctx, userID, setID); err != nil {
		return err
	}
	activity := &models.FlashcardActivity{UserID: userID, SetID: setID}
	if err := s.repo.RecordActivity(ctx, activity); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record flashcard activity")
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *FlashcardService) findOwnedSet(ctx context.Context, userID, id string) (*models.FlashcardSet, error) {
	set, err := s.repo.FindSetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "flashcard set not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flashcard set")
	}
	if set.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "flashcard set belongs to another user")
	}
	return set, nil
}

func (s *FlashcardService) findOwnedCard(ctx context.Context, userID, setID, cardID string) (*models.Flashcard, error) {
	if _, err := s.findOwnedSet(ctx, userID, setID); err != nil {
		return nil, err
	}
	card, err := s.repo.FindCardByID(ctx, cardID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "flashcard not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load flashcard")
	}
	if card.SetID != setID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "flashcard not found in set")
	}
	return card, nil
}

func (s *FlashcardService) invalidate(ctx context.Context, userID string) {
	if s.analytics != nil {
		s.analytics.InvalidateUser(ctx, userID)
	}
}
