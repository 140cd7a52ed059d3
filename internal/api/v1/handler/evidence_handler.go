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

// EvidenceHandler handles evidence file endpoints
type EvidenceHandler struct {
	evidenceService service.EvidenceService
	quotaService    service.QuotaService
	validate        *validator.Validate
}

// NewEvidenceHandler creates a new EvidenceHandler
func NewEvidenceHandler(evidenceService service.EvidenceService, quotaService service.QuotaService, validate *validator.Validate) *EvidenceHandler {
	return &EvidenceHandler{evidenceService: evidenceService, quotaService: quotaService, validate: validate}
}

// RegisterRoutes mounts evidence routes
func (h *EvidenceHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/evidence", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/evidence/", authMw(http.HandlerFunc(h.handleFile)))
}

func toEvidenceDTO(e *model.EvidenceFile) dto.EvidenceResponseDTO {
	return dto.EvidenceResponseDTO{
		ID:              e.ID,
		UserID:          e.UserID,
		JournalEntryID:  e.JournalEntryID,
		Filename:        e.Filename,
		SizeBytes:       e.SizeBytes,
		DurationSeconds: e.DurationSeconds,
		Status:          e.Status,
		Transcript:      e.Transcript,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func (h *EvidenceHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.initiateUpload(w, r)
	case http.MethodGet:
		h.listEvidence(w, r)
	default:
		http.NotFound(w, r)
	}
}

// initiateUpload godoc
// @Summary Initiate an evidence file upload
// @Description Checks the storage quota and returns a presigned upload URL.
// @Tags evidence
// @Accept json
// @Produce json
// @Param upload body dto.EvidenceUploadRequestDTO true "Upload request"
// @Success 201 {object} dto.EvidenceUploadResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 429 {object} dto.QuotaExceededDTO
// @Failure 500 {object} map[string]string
// @Router /evidence [post]
func (h *EvidenceHandler) initiateUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	var req dto.EvidenceUploadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	evidence, uploadURL, quota, err := h.evidenceService.InitiateUpload(r.Context(), userID, req.Filename, req.SizeBytes, req.DurationSeconds, req.JournalEntryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to initiate upload")
		return
	}
	if quota != nil && !quota.Allowed {
		writeQuotaExceeded(w, model.FeatureEvidenceStorage, quota)
		return
	}
	writeJSON(w, http.StatusCreated, dto.EvidenceUploadResponseDTO{
		Evidence:  toEvidenceDTO(evidence),
		UploadURL: uploadURL,
	})
}

// listEvidence godoc
// @Summary List evidence files
// @Description Returns the user's evidence files newest first with cursor pagination.
// @Tags evidence
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} dto.EvidenceListResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /evidence [get]
func (h *EvidenceHandler) listEvidence(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	limit, before, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	files, next, err := h.evidenceService.ListEvidence(r.Context(), userID, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list evidence files")
		return
	}
	resp := dto.EvidenceListResponseDTO{Files: make([]dto.EvidenceResponseDTO, 0, len(files)), NextCursor: next}
	for i := range files {
		resp.Files = append(resp.Files, toEvidenceDTO(&files[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EvidenceHandler) handleFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/evidence/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] == "quota-check" && r.Method == http.MethodPost:
		h.quotaCheck(w, r, userID)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getEvidence(w, r, parts[0], userID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.deleteEvidence(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
		h.completeUpload(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "download" && r.Method == http.MethodGet:
		h.getDownloadURL(w, r, parts[0], userID)
	default:
		http.NotFound(w, r)
	}
}

// quotaCheck godoc
// @Summary Check the storage quota for a prospective upload
// @Description Reports whether an upload of the given size fits the caller's remaining storage allowance.
// @Tags evidence
// @Accept json
// @Produce json
// @Param check body dto.QuotaCheckRequestDTO false "Prospective upload size"
// @Success 200 {object} dto.QuotaCheckResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 429 {object} dto.QuotaCheckResponseDTO
// @Failure 500 {object} map[string]string
// @Router /evidence/quota-check [post]
func (h *EvidenceHandler) quotaCheck(w http.ResponseWriter, r *http.Request, userID string) {
	var req dto.QuotaCheckRequestDTO
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
	quota, err := h.quotaService.Check(r.Context(), userID, model.FeatureEvidenceStorage, model.LimitTypeBytes, req.IncomingBytes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check storage quota")
		return
	}
	resp := dto.QuotaCheckResponseDTO{
		Allowed:        quota.Allowed,
		CapBytes:       quota.Cap,
		UsedBytes:      quota.Used,
		RemainingBytes: quota.Remaining,
	}
	if !quota.Allowed {
		resp.Error = "Usage limit exceeded"
		resp.UpgradeRequired = quota.UpgradeRequired
		writeJSON(w, http.StatusTooManyRequests, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EvidenceHandler) getEvidence(w http.ResponseWriter, r *http.Request, evidenceID, userID string) {
	evidence, err := h.evidenceService.GetEvidence(r.Context(), evidenceID, userID)
	if err != nil {
		h.writeEvidenceError(w, err, "Failed to retrieve evidence file")
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceDTO(evidence))
}

// completeUpload godoc
// @Summary Complete an evidence file upload
// @Description Verifies the uploaded object and queues transcription for audio files.
// @Tags evidence
// @Produce json
// @Param evidenceId path string true "Evidence file ID"
// @Success 200 {object} dto.EvidenceResponseDTO
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /evidence/{evidenceId}/complete [post]
func (h *EvidenceHandler) completeUpload(w http.ResponseWriter, r *http.Request, evidenceID, userID string) {
	evidence, _, err := h.evidenceService.CompleteUpload(r.Context(), evidenceID, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotUploaded) {
			writeError(w, http.StatusConflict, "File not found in storage")
			return
		}
		h.writeEvidenceError(w, err, "Failed to complete upload")
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceDTO(evidence))
}

func (h *EvidenceHandler) getDownloadURL(w http.ResponseWriter, r *http.Request, evidenceID, userID string) {
	url, err := h.evidenceService.GetDownloadURL(r.Context(), evidenceID, userID)
	if err != nil {
		h.writeEvidenceError(w, err, "Failed to generate download URL")
		return
	}
	writeJSON(w, http.StatusOK, dto.EvidenceDownloadResponseDTO{DownloadURL: url})
}

func (h *EvidenceHandler) deleteEvidence(w http.ResponseWriter, r *http.Request, evidenceID, userID string) {
	if err := h.evidenceService.DeleteEvidence(r.Context(), evidenceID, userID); err != nil {
		h.writeEvidenceError(w, err, "Failed to delete evidence file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EvidenceHandler) writeEvidenceError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrEvidenceNotFound) {
		writeError(w, http.StatusNotFound, "Evidence file not found")
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}
