package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// TranscriptionHandler receives transcription results from the worker.
type TranscriptionHandler struct {
	evidenceService service.EvidenceService
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewTranscriptionHandler creates a new TranscriptionHandler
func NewTranscriptionHandler(evidenceService service.EvidenceService, validate *validator.Validate, logger zerolog.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{
		evidenceService: evidenceService,
		validate:        validate,
		logger:          logger.With().Str("handler", "TranscriptionHandler").Logger(),
	}
}

// RegisterRoutes mounts the worker callback route behind the push auth
// middleware.
func (h *TranscriptionHandler) RegisterRoutes(mux *http.ServeMux, pushAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/transcriptions/callback", pushAuthMw(http.HandlerFunc(h.handleCallback)))
}

// handleCallback godoc
// @Summary Apply a transcription result
// @Description Stores the transcript or marks the evidence file failed.
// @Tags transcriptions
// @Accept json
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transcriptions/callback [post]
func (h *TranscriptionHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dto.TranscriptionCallbackDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	failed := req.Error != ""
	if failed {
		h.logger.Warn().Str("evidence_id", req.EvidenceID).Str("worker_error", req.Error).Msg("Transcription job failed")
	}
	if err := h.evidenceService.ApplyTranscription(r.Context(), req.EvidenceID, req.Transcript, failed); err != nil {
		if errors.Is(err, service.ErrEvidenceNotFound) {
			writeError(w, http.StatusNotFound, "Evidence file not found")
			return
		}
		h.logger.Error().Err(err).Str("evidence_id", req.EvidenceID).Msg("Failed to apply transcription result")
		writeError(w, http.StatusInternalServerError, "Failed to apply transcription result")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
