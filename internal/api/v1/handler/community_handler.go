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

// CommunityHandler handles community forum endpoints
type CommunityHandler struct {
	communityService service.CommunityService
	validate         *validator.Validate
}

// NewCommunityHandler creates a new CommunityHandler
func NewCommunityHandler(communityService service.CommunityService, validate *validator.Validate) *CommunityHandler {
	return &CommunityHandler{communityService: communityService, validate: validate}
}

// RegisterRoutes mounts community routes
func (h *CommunityHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/community/posts", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/community/posts/", authMw(http.HandlerFunc(h.handlePost)))
}

func toPostDTO(p *model.Post) dto.PostResponseDTO {
	return dto.PostResponseDTO{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Title:        p.Title,
		Body:         p.Body,
		Category:     p.Category,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toCommentDTO(c *model.Comment) dto.CommentResponseDTO {
	return dto.CommentResponseDTO{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

func (h *CommunityHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createPost(w, r)
	case http.MethodGet:
		h.listPosts(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createPost godoc
// @Summary Create a community post
// @Tags community
// @Accept json
// @Produce json
// @Param post body dto.PostCreateDTO true "Post request"
// @Success 201 {object} dto.PostResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /community/posts [post]
func (h *CommunityHandler) createPost(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	var req dto.PostCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	post, err := h.communityService.CreatePost(r.Context(), userID, req.Title, req.Body, req.Category)
	if err != nil {
		if errors.Is(err, service.ErrBadPostCategory) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, toPostDTO(post))
}

// listPosts godoc
// @Summary List community posts
// @Description Returns posts newest first with cursor pagination, optionally filtered by category or search text.
// @Tags community
// @Produce json
// @Param limit query int false "Page size"
// @Param cursor query string false "Cursor from the previous page"
// @Param category query string false "Filter by category"
// @Param search query string false "Free-text search over title and body"
// @Success 200 {object} dto.PostListResponseDTO
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /community/posts [get]
func (h *CommunityHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromRequest(w, r); !ok {
		return
	}
	limit, before, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	posts, next, err := h.communityService.ListPosts(r.Context(), limit, before, q.Get("category"), q.Get("search"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list posts")
		return
	}
	resp := dto.PostListResponseDTO{Posts: make([]dto.PostResponseDTO, 0, len(posts)), NextCursor: next}
	for i := range posts {
		resp.Posts = append(resp.Posts, toPostDTO(&posts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CommunityHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/community/posts/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getPost(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.deletePost(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodGet:
		h.listComments(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodPost:
		h.createComment(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "like" && r.Method == http.MethodPost:
		h.likePost(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "like" && r.Method == http.MethodDelete:
		h.unlikePost(w, r, parts[0], userID)
	case len(parts) == 2 && parts[1] == "report" && r.Method == http.MethodPost:
		h.reportPost(w, r, parts[0], userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *CommunityHandler) getPost(w http.ResponseWriter, r *http.Request, postID string) {
	post, err := h.communityService.GetPost(r.Context(), postID)
	if err != nil {
		h.writeCommunityError(w, err, "Failed to retrieve post")
		return
	}
	writeJSON(w, http.StatusOK, toPostDTO(post))
}

func (h *CommunityHandler) deletePost(w http.ResponseWriter, r *http.Request, postID, userID string) {
	if err := h.communityService.DeletePost(r.Context(), postID, userID); err != nil {
		if errors.Is(err, service.ErrNotPostAuthor) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.writeCommunityError(w, err, "Failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) listComments(w http.ResponseWriter, r *http.Request, postID string) {
	limit, before, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	comments, next, err := h.communityService.ListComments(r.Context(), postID, limit, before)
	if err != nil {
		h.writeCommunityError(w, err, "Failed to list comments")
		return
	}
	resp := dto.CommentListResponseDTO{Comments: make([]dto.CommentResponseDTO, 0, len(comments)), NextCursor: next}
	for i := range comments {
		resp.Comments = append(resp.Comments, toCommentDTO(&comments[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CommunityHandler) createComment(w http.ResponseWriter, r *http.Request, postID, userID string) {
	var req dto.CommentCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	comment, err := h.communityService.CreateComment(r.Context(), postID, userID, req.Body)
	if err != nil {
		h.writeCommunityError(w, err, "Failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, toCommentDTO(comment))
}

func (h *CommunityHandler) likePost(w http.ResponseWriter, r *http.Request, postID, userID string) {
	if err := h.communityService.LikePost(r.Context(), postID, userID); err != nil {
		h.writeCommunityError(w, err, "Failed to like post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) unlikePost(w http.ResponseWriter, r *http.Request, postID, userID string) {
	if err := h.communityService.UnlikePost(r.Context(), postID, userID); err != nil {
		h.writeCommunityError(w, err, "Failed to unlike post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommunityHandler) reportPost(w http.ResponseWriter, r *http.Request, postID, userID string) {
	var req dto.ReportCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if err := h.communityService.ReportPost(r.Context(), postID, userID, req.Reason); err != nil {
		h.writeCommunityError(w, err, "Failed to report post")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *CommunityHandler) writeCommunityError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, service.ErrPostNotFound) {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeError(w, http.StatusInternalServerError, fallback)
}
