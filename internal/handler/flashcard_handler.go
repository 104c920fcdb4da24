package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studysync/studysync-api/internal/models"
	"github.com/studysync/studysync-api/internal/service"
	appErrors "github.com/studysync/studysync-api/pkg/errors"
	"github.com/studysync/studysync-api/pkg/response"
)

// FlashcardHandler exposes flashcard set and card endpoints.
type FlashcardHandler struct {
	flashcards *service.FlashcardService
	generation *service.GenerationService
}

// NewFlashcardHandler constructs FlashcardHandler.
func NewFlashcardHandler(flashcards *service.FlashcardService, generation *service.GenerationService) *FlashcardHandler {
	return &FlashcardHandler{flashcards: flashcards, generation: generation}
}

// ListSets godoc
// @Summary List flashcard sets
// @Tags Flashcards
// @Produce json
// @Param subject query string false "Filter by subject"
// @Param search query string false "Search by title"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /flashcards [get]
func (h *FlashcardHandler) ListSets(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.FlashcardSetFilter{
		UserID:  claims.UserID,
		Subject: c.Query("subject"),
		Search:  strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sets, pagination, err := h.flashcards.ListSets(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sets, pagination)
}

// GetSet godoc
// @Summary Get flashcard set detail
// @Tags Flashcards
// @Produce json
// @Param id path string true "Set ID"
// @Success 200 {object} response.Envelope
// @Router /flashcards/{id} [get]
func (h *FlashcardHandler) GetSet(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	set, err := h.flashcards.GetSet(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

// CreateSet godoc
// @Summary Create flashcard set
// @Tags Flashcards
// @Accept json
// @Produce json
// @Param payload body service.CreateFlashcardSetRequest true "Set payload"
// @Success 201 {object} response.Envelope
// @Router /flashcards [post]
func (h *FlashcardHandler) CreateSet(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateFlashcardSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	set, err := h.flashcards.CreateSet(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, set)
}

// UpdateSet godoc
// @Summary Update flashcard set
// @Tags Flashcards
// @Accept json
// @Produce json
// @Param id path string true "Set ID"
// @Param payload body service.UpdateFlashcardSetRequest true "Set payload"
// @Success 200 {object} response.Envelope
// @Router /flashcards/{id} [put]
func (h *FlashcardHandler) UpdateSet(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateFlashcardSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	set, err := h.flashcards.UpdateSet(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

// DeleteSet godoc
// @Summary Delete flashcard set
// @Tags Flashcards
// @Produce json
// @Param id path string true "Set ID"
// @Success 204
// @Router /flashcards/{id} [delete]
func (h *FlashcardHandler) DeleteSet(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.flashcards.DeleteSet(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCards godoc
// @Summary List cards in a set
// @Tags Flashcards
// @Produce json
// @Param id path string true "Set ID"
// @Success 200 {object} response.Envelope
// @Router /flashcards/{id}/cards [get]
func (h *FlashcardHandler) ListCards(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cards, err := h.flashcards.ListCards(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// AddCard godoc
// @Summary Add card to set
// @Tags Flashcards
// @Accept json
// @Produce json
// @Param id path string true "Set ID"
// @Param payload body service.CardRequest true "Card payload"
// @Success 201 {object} response.Envelope
// @Router /flashcards/{id}/cards [post]
func (h *FlashcardHandler) AddCard(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	card, err := h.flashcards.AddCard(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// UpdateCard godoc
// @Summary Update card
// @Tags Flashcards
// @Accept json
// @Produce json
// @Param id path string true "Set ID"
// @Param cardId path string true "Card ID"
// @Param payload body service.CardRequest true "Card payload"
// @Success 200 {object} response.Envelope
// @Router /flashcards/{id}/cards/{cardId} [put]
func (h *FlashcardHandler) UpdateCard(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	card, err := h.flashcards.UpdateCard(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// DeleteCard godoc
// @Summary Delete card
// @Tags Flashcards
// @Produce json
// @Param id path string true "Set ID"
// @Param cardId path string true "Card ID"
// @Success 204
// @Router /flashcards/{id}/cards/{cardId} [delete]
func (h *FlashcardHandler) DeleteCard(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.flashcards.DeleteCard(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("cardId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordReview godoc
// @Summary Record a study review of a set
// @Tags Flashcards
// @Produce json
// @Param id path string true "Set ID"
// @Success 204
// @Router /flashcards/{id}/review [post]
func (h *FlashcardHandler) RecordReview(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.flashcards.RecordReview(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GenerateCards godoc
// @Summary Draft flashcards with AI
// @Description Generates candidate cards for review; nothing is persisted
// @Tags Flashcards
// @Accept json
// @Produce json
// @Param id path string true "Set ID"
// @Param payload body object true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /flashcards/{id}/generate [post]
func (h *FlashcardHandler) GenerateCards(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.generation == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrGenerationFailed, "flashcard generation is not configured"))
		return
	}
	var payload struct {
		Topic string `json:"topic" binding:"required"`
		Count int    `json:"count"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cards, err := h.generation.DraftCards(c.Request.Context(), claims.UserID, c.Param("id"), payload.Topic, payload.Count)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// AcceptCards godoc
// @Summary Accept drafted flashcards
// @Tags Flashcards
// @Accept json
// @Produce json
// @Param id path string true "Set ID"
// @Param payload body object true "Accepted cards"
// @Success 201 {object} response.Envelope
// @Router /flashcards/{id}/generate/accept [post]
func (h *FlashcardHandler) AcceptCards(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.generation == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrGenerationFailed, "flashcard generation is not configured"))
		return
	}
	var payload struct {
		Cards []service.GeneratedCard `json:"cards" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	saved, err := h.generation.AcceptCards(c.Request.Context(), claims.UserID, c.Param("id"), payload.Cards)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, saved)
}
