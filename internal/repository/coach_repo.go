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

// CoachRepository defines methods for accessing coaching conversations and
// their messages.
type CoachRepository interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int, before *time.Time) ([]model.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) error
	CreateMessage(ctx context.Context, conversationID, role, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]model.Message, error)
	// RecentMessages returns the latest limit messages in chronological order,
	// for prompt assembly.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

type coachRepo struct {
	pool *pgxpool.Pool
}

// NewCoachRepo creates a new CoachRepository.
func NewCoachRepo(pool *pgxpool.Pool) CoachRepository {
	return &coachRepo{pool: pool}
}

func (r *coachRepo) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	const q = `
        INSERT INTO conversations (user_id, title)
        VALUES ($1, $2)
        RETURNING id, user_id, title, created_at, updated_at
    `
	var c model.Conversation
	err := r.pool.QueryRow(ctx, q, userID, title).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return &c, nil
}

func (r *coachRepo) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	const q = `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE id = $1 AND user_id = $2
    `
	var c model.Conversation
	err := r.pool.QueryRow(ctx, q, conversationID, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting conversation %s: %w", conversationID, err)
	}
	return &c, nil
}

func (r *coachRepo) ListConversations(ctx context.Context, userID string, limit int, before *time.Time) ([]model.Conversation, error) {
	q := `SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE user_id = $1`
	args := []any{userID}
	if before != nil {
		q += ` AND created_at < $2`
		args = append(args, *before)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return conversations, nil
}

func (r *coachRepo) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	const q = `DELETE FROM conversations WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, q, conversationID, userID)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", conversationID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation not found or access denied")
	}
	return nil
}

func (r *coachRepo) CreateMessage(ctx context.Context, conversationID, role, content string) (*model.Message, error) {
	const q = `
        INSERT INTO messages (conversation_id, role, content)
        VALUES ($1, $2, $3)
        RETURNING id, conversation_id, role, content, created_at
    `
	var m model.Message
	err := r.pool.QueryRow(ctx, q, conversationID, role, content).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return &m, nil
}

func (r *coachRepo) ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]model.Message, error) {
	q := `SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = $1`
	args := []any{conversationID}
	if before != nil {
		q += ` AND created_at < $2`
		args = append(args, *before)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

func (r *coachRepo) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	messages, err := r.ListMessages(ctx, conversationID, limit, nil)
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order (oldest first).
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
