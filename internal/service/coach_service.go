package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
)

// promptHistoryTurns bounds how many prior turns are replayed to the model.
const promptHistoryTurns = 10

// CoachReply is the stored pair of messages produced by one coaching turn.
type CoachReply struct {
	UserMessage      *model.Message
	AssistantMessage *model.Message
}

// CoachService manages AI coaching conversations.
type CoachService interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int, before *time.Time) ([]model.Conversation, *string, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) error
	ListMessages(ctx context.Context, conversationID, userID string, limit int, before *time.Time) ([]model.Message, *string, error)
	// SendMessage consumes one coach-message quota unit, stores the user
	// message, generates the assistant reply and stores it. When the quota is
	// exhausted the returned QuotaResult has Allowed=false and no messages
	// are stored.
	SendMessage(ctx context.Context, conversationID, userID, content string) (*CoachReply, *QuotaResult, error)
}

type coachService struct {
	coachRepo repository.CoachRepository
	quotaSvc  QuotaService
	gemini    GeminiClient
	logger    zerolog.Logger
}

// NewCoachService creates a new CoachService with a scoped logger.
func NewCoachService(coachRepo repository.CoachRepository, quotaSvc QuotaService, gemini GeminiClient, logger zerolog.Logger) CoachService {
	return &coachService{
		coachRepo: coachRepo,
		quotaSvc:  quotaSvc,
		gemini:    gemini,
		logger:    logger.With().Str("service", "CoachService").Logger(),
	}
}

func (s *coachService) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	if title == "" {
		title = "New conversation"
	}
	conversation, err := s.coachRepo.CreateConversation(ctx, userID, title)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create conversation")
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conversation, nil
}

func (s *coachService) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conversation, err := s.coachRepo.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

func (s *coachService) ListConversations(ctx context.Context, userID string, limit int, before *time.Time) ([]model.Conversation, *string, error) {
	rows, err := s.coachRepo.ListConversations(ctx, userID, limit+1, before)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		return nil, nil, fmt.Errorf("listing conversations: %w", err)
	}
	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		cursor := FormatCursor(rows[len(rows)-1].CreatedAt)
		next = &cursor
	}
	return rows, next, nil
}

func (s *coachService) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.coachRepo.DeleteConversation(ctx, conversationID, userID); err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to delete conversation")
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

func (s *coachService) ListMessages(ctx context.Context, conversationID, userID string, limit int, before *time.Time) ([]model.Message, *string, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, nil, err
	}
	rows, err := s.coachRepo.ListMessages(ctx, conversationID, limit+1, before)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to list messages")
		return nil, nil, fmt.Errorf("listing messages: %w", err)
	}
	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		cursor := FormatCursor(rows[len(rows)-1].CreatedAt)
		next = &cursor
	}
	return rows, next, nil
}

// buildCoachPrompt renders the system preamble plus the bounded recent
// history and the new user message.
func buildCoachPrompt(history []model.Message, content string) string {
	var sb strings.Builder
	sb.WriteString("You are a supportive, trauma-informed recovery coach. Validate the user's feelings, never give medical or legal advice, and keep replies under 200 words.\n\n")
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&sb, "user: %s\ncoach:", content)
	return sb.String()
}

func (s *coachService) SendMessage(ctx context.Context, conversationID, userID, content string) (*CoachReply, *QuotaResult, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, nil, err
	}

	quota, err := s.quotaSvc.ConsumeCoachMessage(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("checking coach message quota: %w", err)
	}
	if !quota.Allowed {
		return nil, quota, nil
	}

	history, err := s.coachRepo.RecentMessages(ctx, conversationID, promptHistoryTurns)
	if err != nil {
		return nil, quota, fmt.Errorf("loading conversation history: %w", err)
	}

	userMessage, err := s.coachRepo.CreateMessage(ctx, conversationID, model.RoleUser, content)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to store user message")
		return nil, quota, fmt.Errorf("storing user message: %w", err)
	}

	reply, err := s.gemini.GenerateText(ctx, buildCoachPrompt(history, content))
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Coach reply generation failed")
		return nil, quota, fmt.Errorf("generating coach reply: %w", err)
	}

	assistantMessage, err := s.coachRepo.CreateMessage(ctx, conversationID, model.RoleAssistant, strings.TrimSpace(reply))
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to store assistant message")
		return nil, quota, fmt.Errorf("storing assistant message: %w", err)
	}

	return &CoachReply{UserMessage: userMessage, AssistantMessage: assistantMessage}, quota, nil
}
