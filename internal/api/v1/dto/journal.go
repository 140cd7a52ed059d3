package dto

import "time"

// JournalEntryCreateDTO is used for incoming journal entry creation requests
type JournalEntryCreateDTO struct {
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"required"`
	MoodScore *int   `json:"mood_score,omitempty" validate:"omitempty,min=1,max=10"`
}

// JournalEntryResponseDTO is returned in API responses for journal entries
type JournalEntryResponseDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	MoodScore *int      `json:"mood_score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JournalListResponseDTO is a page of journal entries with a cursor for the
// next page.
type JournalListResponseDTO struct {
	Entries    []JournalEntryResponseDTO `json:"entries"`
	NextCursor *string                   `json:"next_cursor,omitempty"`
}
