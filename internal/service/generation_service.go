package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/studysync/studysync-api/internal/models"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
)

// GeneratedCard is a single drafted flashcard returned by the model.
type GeneratedCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// cardDrafter abstracts the generative backend so tests can stub it.
type cardDrafter interface {
	Draft(ctx context.Context, subject, topic string, count int) ([]GeneratedCard, error)
}

// GenerationService drafts flashcards for a set from a topic prompt. Drafted
// cards are returned to the caller for review; nothing is written until the
// user accepts them.
type GenerationService struct {
	drafter   cardDrafter
	flashcard *FlashcardService
	logger    *zap.Logger
	slots     chan struct{}
}

// NewGenerationService constructs the generation service. maxConcurrency
// bounds in-flight model calls.
func NewGenerationService(drafter cardDrafter, flashcard *FlashcardService, maxConcurrency int, logger *zap.Logger) *GenerationService {
	if maxConcurrency <= 0 {
		maxConcurrency = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		drafter:   drafter,
		flashcard: flashcard,
		logger:    logger,
		slots:     make(chan struct{}, maxConcurrency),
	}
}

// DraftCards generates candidate cards for a set the user owns.
func (s *GenerationService) DraftCards(ctx context.Context, userID, setID, topic string, count int) ([]GeneratedCard, error) {
	if s.drafter == nil {
		return nil, appErrors.Clone(appErrors.ErrGenerationFailed, "flashcard generation is not configured")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "topic is required")
	}
	if count <= 0 || count > 20 {
		count = 10
	}

	set, err := s.flashcard.GetSet(ctx, userID, setID)
	if err != nil {
		return nil, err
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrGenerationFailed.Code, appErrors.ErrGenerationFailed.Status, "generation cancelled")
	}

	cards, err := s.drafter.Draft(ctx, set.Subject, topic, count)
	if err != nil {
		s.logger.Warn("flashcard generation failed",
			zap.String("set_id", setID),
			zap.String("topic", topic),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrGenerationFailed.Code, appErrors.ErrGenerationFailed.Status, "flashcard generation failed")
	}
	return cards, nil
}

// AcceptCards persists previously drafted cards into the set.
func (s *GenerationService) AcceptCards(ctx context.Context, userID, setID string, cards []GeneratedCard) ([]models.Flashcard, error) {
	if len(cards) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no cards to accept")
	}
	saved := make([]models.Flashcard, 0, len(cards))
	for i, card := range cards {
		created, err := s.flashcard.AddCard(ctx, userID, setID, CardRequest{Front: card.Front, Back: card.Back, Position: i})
		if err != nil {
			return nil, err
		}
		saved = append(saved, *created)
	}
	return saved, nil
}

// GeminiDrafter generates flashcards with the Gemini API.
type GeminiDrafter struct {
	client *genai.Client
	model  string
}

// NewGeminiDrafter dials the Gemini API.
func NewGeminiDrafter(ctx context.Context, apiKey, model string) (*GeminiDrafter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation api key missing")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiDrafter{client: client, model: model}, nil
}

// Close releases the underlying client.
func (d *GeminiDrafter) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Draft asks the model for a JSON array of front/back pairs. A response that
// cannot be parsed is an error; partial results are never returned.
func (d *GeminiDrafter) Draft(ctx context.Context, subject, topic string, count int) ([]GeneratedCard, error) {
	model := d.client.GenerativeModel(d.model)
	model.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(
		"Create exactly %d study flashcards for the subject %q on the topic %q. "+
			"Respond with a JSON array of objects with keys \"front\" and \"back\". "+
			"Front is a question or term, back is a concise answer or definition.",
		count, subject, topic)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty generation response")
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}

	raw := strings.TrimSpace(builder.String())
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var cards []GeneratedCard
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &cards); err != nil {
		return nil, fmt.Errorf("parse generated cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("model returned no cards")
	}
	for _, card := range cards {
		if strings.TrimSpace(card.Front) == "" || strings.TrimSpace(card.Back) == "" {
			return nil, fmt.Errorf("model returned an incomplete card")
		}
	}
	return cards, nil
}
