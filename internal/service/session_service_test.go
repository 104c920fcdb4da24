package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type mockSessionRepo struct {
	sessions map[string]*models.StudySession
	listErr  error
	deleted  []string
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.StudySession, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []models.StudySession
	for _, s := range m.sessions {
		if s.UserID == filter.UserID {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.StudySession, error) {
	if s, ok := m.sessions[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.StudySession) error {
	if m.sessions == nil {
		m.sessions = make(map[string]*models.StudySession)
	}
	if session.ID == "" {
		session.ID = "generated"
	}
	copy := *session
	m.sessions[session.ID] = &copy
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.StudySession) error {
	copy := *session
	m.sessions[session.ID] = &copy
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type invalidatorSpy struct {
	users []string
}

func (s *invalidatorSpy) InvalidateUser(ctx context.Context, userID string) {
	s.users = append(s.users, userID)
}

func TestSessionServiceSchedule(t *testing.T) {
	repo := &mockSessionRepo{}
	spy := &invalidatorSpy{}
	svc := NewSessionService(repo, spy, validator.New(), zap.NewNop())

	session, err := svc.Schedule(context.Background(), "user-1", ScheduleSessionRequest{
		Subject:        "Physics",
		Title:          "Optics review",
		Date:           time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		PlannedMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusScheduled, session.Status)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, []string{"user-1"}, spy.users)
}

func TestSessionServiceGetForbiddenForOtherUser(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]*models.StudySession{
		"s1": {ID: "s1", UserID: "owner", Subject: "Math"},
	}}
	svc := NewSessionService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "intruder", "s1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSessionServiceTransitionCompleted(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]*models.StudySession{
		"s1": {ID: "s1", UserID: "user-1", Subject: "Math", Status: models.SessionStatusInProgress, PlannedMinutes: 60},
	}}
	spy := &invalidatorSpy{}
	svc := NewSessionService(repo, spy, validator.New(), zap.NewNop())

	session, err := svc.Transition(context.Background(), "user-1", "s1", models.SessionStatusCompleted, 75)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.Equal(t, 75, session.DurationMinutes)
	assert.Equal(t, models.SessionStatusCompleted, repo.sessions["s1"].Status)
	assert.NotEmpty(t, spy.users)
}

func TestSessionServiceTransitionCancelledDeletes(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]*models.StudySession{
		"s1": {ID: "s1", UserID: "user-1", Subject: "Math", Status: models.SessionStatusScheduled},
	}}
	svc := NewSessionService(repo, nil, validator.New(), zap.NewNop())

	session, err := svc.Transition(context.Background(), "user-1", "s1", models.SessionStatusCancelled, 0)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCancelled, session.Status)
	assert.Equal(t, []string{"s1"}, repo.deleted)
	assert.NotContains(t, repo.sessions, "s1")
}

func TestSessionServiceTransitionUnknownStatus(t *testing.T) {
	repo := &mockSessionRepo{sessions: map[string]*models.StudySession{
		"s1": {ID: "s1", UserID: "user-1", Status: models.SessionStatusScheduled},
	}}
	svc := NewSessionService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Transition(context.Background(), "user-1", "s1", models.SessionStatus("bogus"), 0)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSessionServiceListRejectsUnknownStatusFilter(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := NewSessionService(repo, nil, validator.New(), zap.NewNop())

	bogus := models.SessionStatus("bogus")
	_, _, err := svc.List(context.Background(), models.SessionFilter{UserID: "user-1", Status: &bogus})
	require.Error(t, err)
}
