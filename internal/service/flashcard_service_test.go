package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

type mockFlashcardRepo struct {
	sets       map[string]*models.FlashcardSet
	cards      map[string]*models.Flashcard
	activities []*models.FlashcardActivity
}

func (m *mockFlashcardRepo) ListSets(ctx context.Context, filter models.FlashcardSetFilter) ([]models.FlashcardSet, int, error) {
	var out []models.FlashcardSet
	for _, s := range m.sets {
		if s.UserID == filter.UserID {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

func (m *mockFlashcardRepo) FindSetByID(ctx context.Context, id string) (*models.FlashcardSet, error) {
	if s, ok := m.sets[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFlashcardRepo) CreateSet(ctx context.Context, set *models.FlashcardSet) error {
	if m.sets == nil {
		m.sets = make(map[string]*models.FlashcardSet)
	}
	if set.ID == "" {
		set.ID = "generated-set"
	}
	copy := *set
	m.sets[set.ID] = &copy
	return nil
}

func (m *mockFlashcardRepo) UpdateSet(ctx context.Context, set *models.FlashcardSet) error {
	copy := *set
	m.sets[set.ID] = &copy
	return nil
}

func (m *mockFlashcardRepo) DeleteSet(ctx context.Context, id string) error {
	delete(m.sets, id)
	return nil
}

func (m *mockFlashcardRepo) ListCards(ctx context.Context, setID string) ([]models.Flashcard, error) {
	var out []models.Flashcard
	for _, c := range m.cards {
		if c.SetID == setID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockFlashcardRepo) FindCardByID(ctx context.Context, id string) (*models.Flashcard, error) {
	if c, ok := m.cards[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFlashcardRepo) CreateCard(ctx context.Context, card *models.Flashcard) error {
	if m.cards == nil {
		m.cards = make(map[string]*models.Flashcard)
	}
	if card.ID == "" {
		card.ID = "generated-card"
	}
	copy := *card
	m.cards[card.ID] = &copy
	return nil
}

func (m *mockFlashcardRepo) UpdateCard(ctx context.Context, card *models.Flashcard) error {
	copy := *card
	m.cards[card.ID] = &copy
	return nil
}

func (m *mockFlashcardRepo) DeleteCard(ctx context.Context, id string) error {
	delete(m.cards, id)
	return nil
}

func (m *mockFlashcardRepo) RecordActivity(ctx context.Context, activity *models.FlashcardActivity) error {
	m.activities = append(m.activities, activity)
	return nil
}

func TestFlashcardServiceCreateSet(t *testing.T) {
	repo := &mockFlashcardRepo{}
	spy := &invalidatorSpy{}
	svc := NewFlashcardService(repo, spy, validator.New(), zap.NewNop())

	set, err := svc.CreateSet(context.Background(), "user-1", CreateFlashcardSetRequest{
		Subject: "Biology",
		Title:   "Cell structure",
		Tags:    []string{"bio", "exam"},
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", set.UserID)
	assert.Equal(t, []string{"user-1"}, spy.users)
}

func TestFlashcardServiceSetOwnership(t *testing.T) {
	repo := &mockFlashcardRepo{sets: map[string]*models.FlashcardSet{
		"set-1": {ID: "set-1", UserID: "owner", Subject: "Biology", Title: "Cells"},
	}}
	svc := NewFlashcardService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.GetSet(context.Background(), "intruder", "set-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.GetSet(context.Background(), "owner", "set-1")
	require.NoError(t, err)
}

func TestFlashcardServiceAddCard(t *testing.T) {
	repo := &mockFlashcardRepo{sets: map[string]*models.FlashcardSet{
		"set-1": {ID: "set-1", UserID: "user-1", Subject: "Biology", Title: "Cells"},
	}}
	svc := NewFlashcardService(repo, nil, validator.New(), zap.NewNop())

	card, err := svc.AddCard(context.Background(), "user-1", "set-1", CardRequest{
		Front: "Mitochondria",
		Back:  "Powerhouse of the cell",
	})
	require.NoError(t, err)
	assert.Equal(t, "set-1", card.SetID)
	assert.Contains(t, repo.cards, card.ID)
}

func TestFlashcardServiceCardNotInSet(t *testing.T) {
	repo := &mockFlashcardRepo{
		sets: map[string]*models.FlashcardSet{
			"set-1": {ID: "set-1", UserID: "user-1"},
			"set-2": {ID: "set-2", UserID: "user-1"},
		},
		cards: map[string]*models.Flashcard{
			"card-1": {ID: "card-1", SetID: "set-2", Front: "Q", Back: "A"},
		},
	}
	svc := NewFlashcardService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.UpdateCard(context.Background(), "user-1", "set-1", "card-1", CardRequest{Front: "Q2", Back: "A2"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestFlashcardServiceRecordReview(t *testing.T) {
	repo := &mockFlashcardRepo{sets: map[string]*models.FlashcardSet{
		"set-1": {ID: "set-1", UserID: "user-1"},
	}}
	spy := &invalidatorSpy{}
	svc := NewFlashcardService(repo, spy, validator.New(), zap.NewNop())

	err := svc.RecordReview(context.Background(), "user-1", "set-1")
	require.NoError(t, err)
	require.Len(t, repo.activities, 1)
	assert.Equal(t, "user-1", repo.activities[0].UserID)
	assert.Equal(t, []string{"user-1"}, spy.users)
}
