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

// JournalHandler handles journal entry endpoints
type JournalHandler struct {
	journalService service.JournalService
	validate       *validator.Validate
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journalService service.JournalService, validate *validator.Validate) *JournalHandler {
	return &JournalHandler{journalService: journalService, validate: validate}
}

// RegisterRoutes mounts journal routes
func (h *JournalHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/journal", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/journal/", authMw(http.HandlerFunc(h.handleEntry)))
}

func toJournalDTO(e *model.JournalEntry) dto.JournalEntryResponseDTO {
	return dto.JournalEntryResponseDTO{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Body:      e.Body,
		MoodScore: e.MoodScore,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (h *JournalHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createEntry(w, r)
	case http.MethodGet:
		h.listEntries(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createEntry godoc
// @Summary Create a journal entry
// @Description Creates a private journal entry for the authenticated user.
// @Tags journal
// @Accept json
// @Produce json
// @Param entry body dto.JournalEntryCreateDTO true "Journal entry request"
// @Success 201 {object} dto.JournalEntryResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /journal [post]
func (h *JournalHandler) createEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	var req dto.JournalEntryCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	entry, err := h.journalService.CreateEntry(r.Context(), userID, req.Title, req.Body, req.MoodScore)
	if err != nil {
		if errors.Is(err, service.ErrBadMoodScore) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create journal entry")
		return
	}
	writeJSON(w, http.StatusCreated, toJournalDTO(entry))
}

// listEntries godoc
// @Summary List journal entries
// @Description Returns the user's entries newest first with cursor pagination.
// @Tags journal
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query string false "Cursor from the previous page"
// @Param search query string false "Free-text search over title and body"
// @Success 200 {object} dto.JournalListResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /journal [get]
func (h *JournalHandler) listEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	limit, before, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	entries, next, err := h.journalService.ListEntries(r.Context(), userID, limit, before, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list journal entries")
		return
	}
	resp := dto.JournalListResponseDTO{Entries: make([]dto.JournalEntryResponseDTO, 0, len(entries)), NextCursor: next}
	for i := range entries {
		resp.Entries = append(resp.Entries, toJournalDTO(&entries[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *JournalHandler) handleEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	entryID := strings.TrimPrefix(r.URL.Path, "/journal/")
	if entryID == "" || strings.Contains(entryID, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		entry, err := h.journalService.GetEntry(r.Context(), entryID, userID)
		if err != nil {
			if errors.Is(err, service.ErrEntryNotFound) {
				writeError(w, http.StatusNotFound, "Journal entry not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to retrieve journal entry")
			return
		}
		writeJSON(w, http.StatusOK, toJournalDTO(entry))
	case http.MethodDelete:
		if err := h.journalService.DeleteEntry(r.Context(), entryID, userID); err != nil {
			if errors.Is(err, service.ErrEntryNotFound) {
				writeError(w, http.StatusNotFound, "Journal entry not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to delete journal entry")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
