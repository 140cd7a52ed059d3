package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

type fakeCoachRepo struct {
	repository.CoachRepository
	conversation *model.Conversation
	history      []model.Message
	stored       []model.Message
}

func (f *fakeCoachRepo) GetConversation(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	if f.conversation != nil && f.conversation.ID == conversationID && f.conversation.UserID == userID {
		return f.conversation, nil
	}
	return nil, nil
}

func (f *fakeCoachRepo) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	return f.history, nil
}

func (f *fakeCoachRepo) CreateMessage(ctx context.Context, conversationID, role, content string) (*model.Message, error) {
	m := model.Message{
		ID:             fmt.Sprintf("msg-%d", len(f.stored)+1),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.stored = append(f.stored, m)
	return &m, nil
}

type fakeQuotaService struct {
	QuotaService
	result   *QuotaResult
	err      error
	consumed int
}

func (f *fakeQuotaService) ConsumeCoachMessage(ctx context.Context, userID string) (*QuotaResult, error) {
	f.consumed++
	return f.result, f.err
}

func testConversation() *model.Conversation {
	return &model.Conversation{ID: "conv-1", UserID: "user-1", Title: "Check-in"}
}

func TestSendMessageStoresBothTurns(t *testing.T) {
	repo := &fakeCoachRepo{
		conversation: testConversation(),
		history: []model.Message{
			{Role: model.RoleUser, Content: "I had a rough night."},
			{Role: model.RoleAssistant, Content: "That sounds hard. What helped before?"},
		},
	}
	quota := &fakeQuotaService{result: &QuotaResult{Allowed: true, Cap: 50, Used: 3, Remaining: 47}}
	gemini := &fakeGemini{response: "  Thank you for sharing that. \n"}
	svc := NewCoachService(repo, quota, gemini, zerolog.Nop())

	reply, q, err := svc.SendMessage(context.Background(), "conv-1", "user-1", "Today was better.")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !q.Allowed {
		t.Fatal("expected quota to allow the message")
	}
	if reply.UserMessage.Role != model.RoleUser || reply.UserMessage.Content != "Today was better." {
		t.Errorf("unexpected user message %+v", reply.UserMessage)
	}
	if reply.AssistantMessage.Role != model.RoleAssistant {
		t.Errorf("unexpected assistant role %q", reply.AssistantMessage.Role)
	}
	if reply.AssistantMessage.Content != "Thank you for sharing that." {
		t.Errorf("assistant content not trimmed: %q", reply.AssistantMessage.Content)
	}
	if len(repo.stored) != 2 {
		t.Fatalf("stored %d messages, want 2", len(repo.stored))
	}

	if len(gemini.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(gemini.prompts))
	}
	prompt := gemini.prompts[0]
	if !strings.Contains(prompt, "user: I had a rough night.") {
		t.Errorf("prompt missing history: %q", prompt)
	}
	if !strings.Contains(prompt, "assistant: That sounds hard. What helped before?") {
		t.Errorf("prompt missing assistant history: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "user: Today was better.\ncoach:") {
		t.Errorf("prompt missing trailing turn: %q", prompt)
	}
}

func TestSendMessageQuotaDeniedStoresNothing(t *testing.T) {
	repo := &fakeCoachRepo{conversation: testConversation()}
	quota := &fakeQuotaService{result: &QuotaResult{Allowed: false, Cap: 5, Used: 5, Remaining: 0, UpgradeRequired: true}}
	gemini := &fakeGemini{response: "unused"}
	svc := NewCoachService(repo, quota, gemini, zerolog.Nop())

	reply, q, err := svc.SendMessage(context.Background(), "conv-1", "user-1", "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply != nil {
		t.Error("expected no reply when quota is exhausted")
	}
	if q == nil || q.Allowed {
		t.Fatalf("expected denied quota result, got %+v", q)
	}
	if len(repo.stored) != 0 {
		t.Errorf("stored %d messages, want 0", len(repo.stored))
	}
	if len(gemini.prompts) != 0 {
		t.Error("model must not be called when quota is exhausted")
	}
}

func TestSendMessageUnknownConversation(t *testing.T) {
	repo := &fakeCoachRepo{conversation: testConversation()}
	quota := &fakeQuotaService{result: &QuotaResult{Allowed: true}}
	svc := NewCoachService(repo, quota, &fakeGemini{}, zerolog.Nop())

	_, _, err := svc.SendMessage(context.Background(), "conv-1", "someone-else", "hello")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
	if quota.consumed != 0 {
		t.Error("quota must not be consumed for a foreign conversation")
	}
}

func TestCreateConversationDefaultTitle(t *testing.T) {
	repo := &titleCapturingCoachRepo{}
	svc := NewCoachService(repo, &fakeQuotaService{}, &fakeGemini{}, zerolog.Nop())

	if _, err := svc.CreateConversation(context.Background(), "user-1", ""); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if repo.title != "New conversation" {
		t.Errorf("title = %q, want default", repo.title)
	}

	if _, err := svc.CreateConversation(context.Background(), "user-1", "Morning check-in"); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if repo.title != "Morning check-in" {
		t.Errorf("title = %q, want caller's title", repo.title)
	}
}

type titleCapturingCoachRepo struct {
	repository.CoachRepository
	title string
}

func (f *titleCapturingCoachRepo) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	f.title = title
	return &model.Conversation{ID: "conv-1", UserID: userID, Title: title}, nil
}
