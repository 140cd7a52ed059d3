package model

import "time"

// Evidence file lifecycle states.
const (
	EvidenceStatusUploading            = "uploading"
	EvidenceStatusStored               = "stored"
	EvidenceStatusPendingTranscription = "pending_transcription"
	EvidenceStatusTranscribed          = "transcribed"
	EvidenceStatusFailed               = "failed"
)

// EvidenceFile represents an uploaded evidence file row. Storage bytes and
// audio duration feed the storage-cap and transcription-minute quotas.
type EvidenceFile struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	JournalEntryID  *string   `db:"journal_entry_id" json:"journal_entry_id,omitempty"`
	Filename        string    `db:"filename" json:"filename"`
	SizeBytes       int64     `db:"size_bytes" json:"size_bytes"`
	DurationSeconds int64     `db:"duration_seconds" json:"duration_seconds"`
	StoragePath     string    `db:"storage_path" json:"storage_path"`
	Status          string    `db:"status" json:"status"`
	Transcript      *string   `db:"transcript" json:"transcript,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
