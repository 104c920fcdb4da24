package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type stubDrafter struct {
	cards   []GeneratedCard
	err     error
	subject string
	topic   string
	count   int
}

func (d *stubDrafter) Draft(ctx context.Context, subject, topic string, count int) ([]GeneratedCard, error) {
	d.subject = subject
	d.topic = topic
	d.count = count
	if d.err != nil {
		return nil, d.err
	}
	return d.cards, nil
}

func newGenerationFixture(drafter cardDrafter) (*GenerationService, *mockFlashcardRepo) {
	repo := &mockFlashcardRepo{sets: map[string]*models.FlashcardSet{
		"set-1": {ID: "set-1", UserID: "user-1", Subject: "Chemistry", Title: "Bonds"},
	}}
	flashcards := NewFlashcardService(repo, nil, validator.New(), zap.NewNop())
	return NewGenerationService(drafter, flashcards, 2, zap.NewNop()), repo
}

func TestGenerationServiceDraftCards(t *testing.T) {
	drafter := &stubDrafter{cards: []GeneratedCard{
		{Front: "Ionic bond", Back: "Electron transfer between atoms"},
		{Front: "Covalent bond", Back: "Shared electron pairs"},
	}}
	svc, _ := newGenerationFixture(drafter)

	cards, err := svc.DraftCards(context.Background(), "user-1", "set-1", "chemical bonds", 2)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, "Chemistry", drafter.subject)
	assert.Equal(t, "chemical bonds", drafter.topic)
	assert.Equal(t, 2, drafter.count)
}

func TestGenerationServiceDraftRequiresTopic(t *testing.T) {
	svc, _ := newGenerationFixture(&stubDrafter{})

	_, err := svc.DraftCards(context.Background(), "user-1", "set-1", "   ", 5)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGenerationServiceDraftOwnerScoped(t *testing.T) {
	svc, _ := newGenerationFixture(&stubDrafter{cards: []GeneratedCard{{Front: "Q", Back: "A"}}})

	_, err := svc.DraftCards(context.Background(), "intruder", "set-1", "bonds", 3)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGenerationServiceDraftBackendFailure(t *testing.T) {
	svc, _ := newGenerationFixture(&stubDrafter{err: errors.New("model unavailable")})

	_, err := svc.DraftCards(context.Background(), "user-1", "set-1", "bonds", 3)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGenerationFailed.Code, appErr.Code)
}

func TestGenerationServiceNotConfigured(t *testing.T) {
	repo := &mockFlashcardRepo{}
	flashcards := NewFlashcardService(repo, nil, validator.New(), zap.NewNop())
	svc := NewGenerationService(nil, flashcards, 0, zap.NewNop())

	_, err := svc.DraftCards(context.Background(), "user-1", "set-1", "bonds", 3)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGenerationFailed.Code, appErr.Code)
}

func TestGenerationServiceAcceptCards(t *testing.T) {
	svc, repo := newGenerationFixture(&stubDrafter{})

	saved, err := svc.AcceptCards(context.Background(), "user-1", "set-1", []GeneratedCard{
		{Front: "Ionic bond", Back: "Electron transfer"},
		{Front: "Covalent bond", Back: "Shared pairs"},
	})
	require.NoError(t, err)
	assert.Len(t, saved, 2)
	assert.Equal(t, 1, saved[1].Position)
	assert.NotEmpty(t, repo.cards)
}

func TestGenerationServiceAcceptEmpty(t *testing.T) {
	svc, _ := newGenerationFixture(&stubDrafter{})

	_, err := svc.AcceptCards(context.Background(), "user-1", "set-1", nil)
	require.Error(t, err)
}
