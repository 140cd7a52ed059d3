package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommunityRepository defines methods for accessing community posts,
// comments, likes and reports.
type CommunityRepository interface {
	CreatePost(ctx context.Context, p *model.Post) (*model.Post, error)
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	// ListPosts returns up to limit posts across all authors, newest first,
	// optionally filtered by category equality and free-text search.
	ListPosts(ctx context.Context, limit int, before *time.Time, category, search string) ([]model.Post, error)
	DeletePost(ctx context.Context, postID, authorID string) error
	CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error)
	ListComments(ctx context.Context, postID string, limit int, before *time.Time) ([]model.Comment, error)
	// AddLike inserts the like if absent; a duplicate like is a no-op.
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	CreateReport(ctx context.Context, rep *model.Report) error
}

type communityRepo struct {
	pool *pgxpool.Pool
}

// NewCommunityRepo creates a new CommunityRepository.
func NewCommunityRepo(pool *pgxpool.Pool) CommunityRepository {
	return &communityRepo{pool: pool}
}

const postColumns = `id, author_id, title, body, category, like_count, comment_count, created_at, updated_at`

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.Category, &p.LikeCount, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *communityRepo) CreatePost(ctx context.Context, p *model.Post) (*model.Post, error) {
	const q = `
        INSERT INTO posts (author_id, title, body, category)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + postColumns
	created, err := scanPost(r.pool.QueryRow(ctx, q, p.AuthorID, p.Title, p.Body, p.Category))
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return created, nil
}

func (r *communityRepo) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	const q = `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	p, err := scanPost(r.pool.QueryRow(ctx, q, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting post %s: %w", postID, err)
	}
	return p, nil
}

func (r *communityRepo) ListPosts(ctx context.Context, limit int, before *time.Time, category, search string) ([]model.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE 1=1`
	var args []any
	if before != nil {
		args = append(args, *before)
		q += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	if category != "" {
		args = append(args, category)
		q += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		q += fmt.Sprintf(` AND (title ILIKE $%d OR body ILIKE $%d)`, len(args), len(args))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}
	return posts, nil
}

func (r *communityRepo) DeletePost(ctx context.Context, postID, authorID string) error {
	const q = `DELETE FROM posts WHERE id = $1 AND author_id = $2`
	result, err := r.pool.Exec(ctx, q, postID, authorID)
	if err != nil {
		return fmt.Errorf("deleting post %s: %w", postID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("post not found or access denied")
	}
	return nil
}

func (r *communityRepo) CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	const q = `
        WITH inserted AS (
            INSERT INTO comments (post_id, author_id, body)
            VALUES ($1, $2, $3)
            RETURNING id, post_id, author_id, body, created_at
        ), bump AS (
            UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1
        )
        SELECT id, post_id, author_id, body, created_at FROM inserted
    `
	var created model.Comment
	err := r.pool.QueryRow(ctx, q, c.PostID, c.AuthorID, c.Body).Scan(
		&created.ID, &created.PostID, &created.AuthorID, &created.Body, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating comment on post %s: %w", c.PostID, err)
	}
	return &created, nil
}

func (r *communityRepo) ListComments(ctx context.Context, postID string, limit int, before *time.Time) ([]model.Comment, error) {
	q := `SELECT id, post_id, author_id, body, created_at FROM comments WHERE post_id = $1`
	args := []any{postID}
	if before != nil {
		q += ` AND created_at < $2`
		args = append(args, *before)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}
	return comments, nil
}

func (r *communityRepo) AddLike(ctx context.Context, postID, userID string) error {
	const q = `
        WITH inserted AS (
            INSERT INTO post_likes (post_id, user_id)
            VALUES ($1, $2)
            ON CONFLICT (post_id, user_id) DO NOTHING
            RETURNING post_id
        )
        UPDATE posts SET like_count = like_count + 1
        WHERE id IN (SELECT post_id FROM inserted)
    `
	if _, err := r.pool.Exec(ctx, q, postID, userID); err != nil {
		return fmt.Errorf("liking post %s: %w", postID, err)
	}
	return nil
}

func (r *communityRepo) RemoveLike(ctx context.Context, postID, userID string) error {
	const q = `
        WITH removed AS (
            DELETE FROM post_likes
            WHERE post_id = $1 AND user_id = $2
            RETURNING post_id
        )
        UPDATE posts SET like_count = like_count - 1
        WHERE id IN (SELECT post_id FROM removed)
    `
	if _, err := r.pool.Exec(ctx, q, postID, userID); err != nil {
		return fmt.Errorf("unliking post %s: %w", postID, err)
	}
	return nil
}

func (r *communityRepo) CreateReport(ctx context.Context, rep *model.Report) error {
	const q = `
        INSERT INTO post_reports (post_id, reporter_id, reason)
        VALUES ($1, $2, $3)
        ON CONFLICT (post_id, reporter_id) DO NOTHING
    `
	if _, err := r.pool.Exec(ctx, q, rep.PostID, rep.ReporterID, rep.Reason); err != nil {
		return fmt.Errorf("reporting post %s: %w", rep.PostID, err)
	}
	return nil
}
