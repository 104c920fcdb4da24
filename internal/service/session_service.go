package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.StudySession, int, error)
	FindByID(ctx context.Context, id string) (*models.StudySession, error)
	Create(ctx context.Context, session *models.StudySession) error
	Update(ctx context.Context, session *models.StudySession) error
	Delete(ctx context.Context, id string) error
}

// analyticsInvalidator lets write paths drop stale cached overviews.
type analyticsInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

// ScheduleSessionRequest holds payload for scheduling a study session.
type ScheduleSessionRequest struct {
	Subject        string    `json:"subject" validate:"required"`
	Title          string    `json:"title" validate:"required"`
	Description    *string   `json:"description"`
	Location       *string   `json:"location"`
	Date           time.Time `json:"date" validate:"required"`
	PlannedMinutes int       `json:"planned_minutes" validate:"gte=0"`
}

// UpdateSessionRequest holds payload for updating a study session.
type UpdateSessionRequest struct {
	Subject         string    `json:"subject" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	Description     *string   `json:"description"`
	Location        *string   `json:"location"`
	Date            time.Time `json:"date" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0"`
	PlannedMinutes  int       `json:"planned_minutes" validate:"gte=0"`
}

// SessionService handles study session use-cases. All operations are
// owner-scoped.
type SessionService struct {
	repo      sessionRepository
	analytics analyticsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, analytics analyticsInvalidator, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, analytics: analytics, validator: validate, logger: logger}
}

// List returns the user's sessions and pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.StudySession, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown session status")
	}
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
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
	return sessions, pagination, nil
}

// Get returns a session owned by the user.
func (s *SessionService) Get(ctx context.Context, userID, id string) (*models.StudySession, error) {
	session, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Schedule creates a new session in the scheduled state.
func (s *SessionService) Schedule(ctx context.Context, userID string, req ScheduleSessionRequest) (*models.StudySession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	session := &models.StudySession{
		UserID:         userID,
		Subject:        req.Subject,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Date:           req.Date,
		PlannedMinutes: req.PlannedMinutes,
		Status:         models.SessionStatusScheduled,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.invalidate(ctx, userID)
	return session, nil
}

// Update modifies an existing session owned by the user.
func (s *SessionService) Update(ctx context.Context, userID, id string, req UpdateSessionRequest) (*models.StudySession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	session, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	session.Subject = req.Subject
	session.Title = req.Title
	session.Description = req.Description
	session.Location = req.Location
	session.Date = req.Date
	session.DurationMinutes = req.DurationMinutes
	session.PlannedMinutes = req.PlannedMinutes
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.invalidate(ctx, userID)
	return session, nil
}

// Transition moves a session to a new lifecycle state. A transition to
// cancelled deletes the row; participants cascade away with it.
func (s *SessionService) Transition(ctx context.Context, userID, id string, status models.SessionStatus, durationMinutes int) (*models.StudySession, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session status")
	}
	session, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if status == models.SessionStatusCancelled {
		if err := s.repo.Delete(ctx, id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel session")
		}
		session.Status = models.SessionStatusCancelled
		s.invalidate(ctx, userID)
		return session, nil
	}

	session.Status = status
	if status == models.SessionStatusCompleted && durationMinutes > 0 {
		session.DurationMinutes = durationMinutes
	}
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}
	s.invalidate(ctx, userID)
	return session, nil
}

func (s *SessionService) findOwned(ctx context.Context, userID, id string) (*models.StudySession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another user")
	}
	return session, nil
}

func (s *SessionService) invalidate(ctx context.Context, userID string) {
	if s.analytics != nil {
		s.analytics.InvalidateUser(ctx, userID)
	}
}
