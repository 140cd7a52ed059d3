package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

// CoachHandler handles AI coaching conversation endpoints
type CoachHandler struct {
	coachService service.CoachService
	validate     *validator.Validate
}

// NewCoachHandler creates a new CoachHandler
func NewCoachHandler(coachService service.CoachService, validate *validator.Validate) *CoachHandler {
	return &CoachHandler{coachService: coachService, validate: validate}
}

// RegisterRoutes mounts coach routes
func (h *CoachHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/coach/conversations", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/coach/conversations/", authMw(http.HandlerFunc(h.handleConversation)))
}

func toConversationDTO(c *model.Conversation) dto.ConversationResponseDTO {
	return dto.ConversationResponseDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toMessageDTO(m *model.Message) dto.MessageResponseDTO {
	return dto.MessageResponseDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func (h *CoachHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createConversation(w, r)
	case http.MethodGet:
		h.listConversations(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createConversation godoc
// @Summary Start a coaching conversation
// @Tags coach
// @Accept json
// @Produce json
// @Param conversation body dto.ConversationCreateDTO true "Conversation request"
// @Success 201 {object} dto.ConversationResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /coach/conversations [post]
func (h *CoachHandler) createConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	var req dto.ConversationCreateDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
			return
		}
	}
	conversation, err := h.coachService.CreateConversation(r.Context(), userID, req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	writeJSON(w, http.StatusCreated, toConversationDTO(conversation))
}

// listConversations godoc
// @Summary List coaching conversations
// @Tags coach
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} dto.ConversationListResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /coach/conversations [get]
func (h *CoachHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	limit, before, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	conversations, next, err := h.coachService.ListConversations(r.Context(), userID, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	resp := dto.ConversationListResponseDTO{Conversations: make([]dto.ConversationResponseDTO, 0, len(conversations)), NextCursor: next}
	for i := range conversations {
		resp.Conversations = append(resp.Conversations, toConversationDTO(&conversations[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CoachHandler) handleConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/coach/conversations/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getConversation(w, r, parts[0], userID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.deleteConversation(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "messages" && r.Method == http.MethodGet:
		h.listMessages(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "messages" && r.Method == http.MethodPost:
		h.sendMessage(w, r, parts[0], userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *CoachHandler) getConversation(w http.ResponseWriter, r *http.Request, conversationID, userID string) {
	conversation, err := h.coachService.GetConversation(r.Context(), conversationID, userID)
	if err != nil {
		h.writeCoachError(w, err, "Failed to retrieve conversation")
		return
	}
	writeJSON(w, http.StatusOK, toConversationDTO(conversation))
}

func (h *CoachHandler) deleteConversation(w http.ResponseWriter, r *http.Request, conversationID, userID string) {
	if err := h.coachService.DeleteConversation(r.Context(), conversationID, userID); err != nil {
		h.writeCoachError(w, err, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listMessages godoc
// @Summary List messages in a conversation
// @Tags coach
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Param limit query int false "Page size"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} dto.MessageListResponseDTO
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /coach/conversations/{conversationId}/messages [get]
func (h *CoachHandler) listMessages(w http.ResponseWriter, r *http.Request, conversationID, userID string) {
	limit, before, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	messages, next, err := h.coachService.ListMessages(r.Context(), conversationID, userID, limit, before)
	if err != nil {
		h.writeCoachError(w, err, "Failed to list messages")
		return
	}
	resp := dto.MessageListResponseDTO{Messages: make([]dto.MessageResponseDTO, 0, len(messages)), NextCursor: next}
	for i := range messages {
		resp.Messages = append(resp.Messages, toMessageDTO(&messages[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// sendMessage godoc
// @Summary Send a message to the AI coach
// @Description Consumes one coach-message quota unit and returns the reply.
// @Tags coach
// @Accept json
// @Produce json
// @Param conversationId path string true "Conversation ID"
// @Param message body dto.MessageSendDTO true "Message request"
// @Success 201 {object} dto.ChatResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 429 {object} dto.QuotaExceededDTO
// @Failure 500 {object} map[string]string
// @Router /coach/conversations/{conversationId}/messages [post]
func (h *CoachHandler) sendMessage(w http.ResponseWriter, r *http.Request, conversationID, userID string) {
	var req dto.MessageSendDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	reply, quota, err := h.coachService.SendMessage(r.Context(), conversationID, userID, req.Content)
	if err != nil {
		h.writeCoachError(w, err, "Failed to send message")
		return
	}
	if reply == nil {
		writeQuotaExceeded(w, model.FeatureCoachMessages, quota)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ChatResponseDTO{
		UserMessage:      toMessageDTO(reply.UserMessage),
		AssistantMessage: toMessageDTO(reply.AssistantMessage),
	})
}

func (h *CoachHandler) writeCoachError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}
