package dto

import "time"

// ConversationCreateDTO is used for incoming conversation creation requests
type ConversationCreateDTO struct {
	Title string `json:"title,omitempty" validate:"omitempty,max=200"`
}

// ConversationResponseDTO is returned in API responses for conversations
type ConversationResponseDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationListResponseDTO is a page of conversations with a cursor for
// the next page.
type ConversationListResponseDTO struct {
	Conversations []ConversationResponseDTO `json:"conversations"`
	NextCursor    *string                   `json:"next_cursor,omitempty"`
}

// MessageSendDTO is used for incoming chat messages
type MessageSendDTO struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// MessageResponseDTO is returned in API responses for chat messages
type MessageResponseDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageListResponseDTO is a page of messages with a cursor for the next
// page.
type MessageListResponseDTO struct {
	Messages   []MessageResponseDTO `json:"messages"`
	NextCursor *string              `json:"next_cursor,omitempty"`
}

// ChatResponseDTO pairs the stored user message with the coach reply.
type ChatResponseDTO struct {
	UserMessage      MessageResponseDTO `json:"user_message"`
	AssistantMessage MessageResponseDTO `json:"assistant_message"`
}
