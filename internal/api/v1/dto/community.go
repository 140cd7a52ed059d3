package dto

import "time"

// PostCreateDTO is used for incoming post creation requests
type PostCreateDTO struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category" validate:"required,oneof=story question support milestone resource"`
}

// PostResponseDTO is returned in API responses for community posts
type PostResponseDTO struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Category     string    `json:"category"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostListResponseDTO is a page of posts with a cursor for the next page.
type PostListResponseDTO struct {
	Posts      []PostResponseDTO `json:"posts"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// CommentCreateDTO is used for incoming comment creation requests
type CommentCreateDTO struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// CommentResponseDTO is returned in API responses for comments
type CommentResponseDTO struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentListResponseDTO is a page of comments with a cursor for the next
// page.
type CommentListResponseDTO struct {
	Comments   []CommentResponseDTO `json:"comments"`
	NextCursor *string              `json:"next_cursor,omitempty"`
}

// ReportCreateDTO is used for incoming post report requests
type ReportCreateDTO struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}
