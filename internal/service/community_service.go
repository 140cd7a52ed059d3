package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrNotPostAuthor   = errors.New("only the author can delete a post")
	ErrBadPostCategory = errors.New("unknown post category")
)

// CommunityService manages the peer-support forum.
type CommunityService interface {
	CreatePost(ctx context.Context, authorID, title, body, category string) (*model.Post, error)
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	ListPosts(ctx context.Context, limit int, before *time.Time, category, search string) ([]model.Post, *string, error)
	DeletePost(ctx context.Context, postID, authorID string) error
	CreateComment(ctx context.Context, postID, authorID, body string) (*model.Comment, error)
	ListComments(ctx context.Context, postID string, limit int, before *time.Time) ([]model.Comment, *string, error)
	LikePost(ctx context.Context, postID, userID string) error
	UnlikePost(ctx context.Context, postID, userID string) error
	ReportPost(ctx context.Context, postID, reporterID, reason string) error
}

type communityService struct {
	communityRepo repository.CommunityRepository
	logger        zerolog.Logger
}

// NewCommunityService creates a new CommunityService with a scoped logger.
func NewCommunityService(communityRepo repository.CommunityRepository, logger zerolog.Logger) CommunityService {
	return &communityService{
		communityRepo: communityRepo,
		logger:        logger.With().Str("service", "CommunityService").Logger(),
	}
}

func (s *communityService) CreatePost(ctx context.Context, authorID, title, body, category string) (*model.Post, error) {
	if !slices.Contains(model.PostCategories, category) {
		return nil, ErrBadPostCategory
	}
	post, err := s.communityRepo.CreatePost(ctx, &model.Post{
		AuthorID: authorID,
		Title:    title,
		Body:     body,
		Category: category,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("author_id", authorID).Msg("Failed to create post")
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return post, nil
}

func (s *communityService) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.communityRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("getting post: %w", err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *communityService) ListPosts(ctx context.Context, limit int, before *time.Time, category, search string) ([]model.Post, *string, error) {
	rows, err := s.communityRepo.ListPosts(ctx, limit+1, before, category, search)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		return nil, nil, fmt.Errorf("listing posts: %w", err)
	}
	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		cursor := FormatCursor(rows[len(rows)-1].CreatedAt)
		next = &cursor
	}
	return rows, next, nil
}

func (s *communityService) DeletePost(ctx context.Context, postID, authorID string) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != authorID {
		return ErrNotPostAuthor
	}
	if err := s.communityRepo.DeletePost(ctx, postID, authorID); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to delete post")
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

func (s *communityService) CreateComment(ctx context.Context, postID, authorID, body string) (*model.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comment, err := s.communityRepo.CreateComment(ctx, &model.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Body:     body,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to create comment")
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	return comment, nil
}

func (s *communityService) ListComments(ctx context.Context, postID string, limit int, before *time.Time) ([]model.Comment, *string, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, nil, err
	}
	rows, err := s.communityRepo.ListComments(ctx, postID, limit+1, before)
	if err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to list comments")
		return nil, nil, fmt.Errorf("listing comments: %w", err)
	}
	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		cursor := FormatCursor(rows[len(rows)-1].CreatedAt)
		next = &cursor
	}
	return rows, next, nil
}

func (s *communityService) LikePost(ctx context.Context, postID, userID string) error {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return err
	}
	if err := s.communityRepo.AddLike(ctx, postID, userID); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to add like")
		return fmt.Errorf("adding like: %w", err)
	}
	return nil
}

func (s *communityService) UnlikePost(ctx context.Context, postID, userID string) error {
	if err := s.communityRepo.RemoveLike(ctx, postID, userID); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to remove like")
		return fmt.Errorf("removing like: %w", err)
	}
	return nil
}

func (s *communityService) ReportPost(ctx context.Context, postID, reporterID, reason string) error {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return err
	}
	if err := s.communityRepo.CreateReport(ctx, &model.Report{
		PostID:     postID,
		ReporterID: reporterID,
		Reason:     reason,
	}); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("Failed to create report")
		return fmt.Errorf("creating report: %w", err)
	}
	return nil
}
