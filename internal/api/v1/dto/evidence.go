package dto

import "time"

// EvidenceUploadRequestDTO is used for incoming upload initiation requests
type EvidenceUploadRequestDTO struct {
	Filename        string  `json:"filename" validate:"required,max=255"`
	SizeBytes       int64   `json:"size_bytes" validate:"required,min=1"`
	DurationSeconds int64   `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
	JournalEntryID  *string `json:"journal_entry_id,omitempty"`
}

// EvidenceResponseDTO is returned in API responses for evidence files
type EvidenceResponseDTO struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	JournalEntryID  *string   `json:"journal_entry_id,omitempty"`
	Filename        string    `json:"filename"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds int64     `json:"duration_seconds"`
	Status          string    `json:"status"`
	Transcript      *string   `json:"transcript,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EvidenceUploadResponseDTO pairs the created record with its presigned
// upload URL.
type EvidenceUploadResponseDTO struct {
	Evidence  EvidenceResponseDTO `json:"evidence"`
	UploadURL string              `json:"upload_url"`
}

// EvidenceDownloadResponseDTO carries a short-lived presigned download URL.
type EvidenceDownloadResponseDTO struct {
	DownloadURL string `json:"download_url"`
}

// EvidenceListResponseDTO is a page of evidence files with a cursor for the
// next page.
type EvidenceListResponseDTO struct {
	Files      []EvidenceResponseDTO `json:"files"`
	NextCursor *string               `json:"next_cursor,omitempty"`
}

// TranscriptionCallbackDTO is the payload delivered by the transcription
// worker when a job finishes.
type TranscriptionCallbackDTO struct {
	EvidenceID string `json:"evidence_id" validate:"required"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}
