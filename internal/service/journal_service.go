package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrEntryNotFound = errors.New("journal entry not found")
	ErrBadMoodScore  = errors.New("mood score must be between 1 and 10")
)

// JournalService manages journal entries.
type JournalService interface {
	CreateEntry(ctx context.Context, userID, title, body string, moodScore *int) (*model.JournalEntry, error)
	GetEntry(ctx context.Context, entryID, userID string) (*model.JournalEntry, error)
	ListEntries(ctx context.Context, userID string, limit int, before *time.Time, search string) ([]model.JournalEntry, *string, error)
	DeleteEntry(ctx context.Context, entryID, userID string) error
}

type journalService struct {
	journalRepo repository.JournalRepository
	logger      zerolog.Logger
}

// NewJournalService creates a new JournalService with a scoped logger.
func NewJournalService(journalRepo repository.JournalRepository, logger zerolog.Logger) JournalService {
	return &journalService{
		journalRepo: journalRepo,
		logger:      logger.With().Str("service", "JournalService").Logger(),
	}
}

func (s *journalService) CreateEntry(ctx context.Context, userID, title, body string, moodScore *int) (*model.JournalEntry, error) {
	if moodScore != nil && (*moodScore < 1 || *moodScore > 10) {
		return nil, ErrBadMoodScore
	}
	entry, err := s.journalRepo.CreateEntry(ctx, &model.JournalEntry{
		UserID:    userID,
		Title:     title,
		Body:      body,
		MoodScore: moodScore,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create journal entry")
		return nil, fmt.Errorf("creating journal entry: %w", err)
	}
	return entry, nil
}

func (s *journalService) GetEntry(ctx context.Context, entryID, userID string) (*model.JournalEntry, error) {
	entry, err := s.journalRepo.GetEntry(ctx, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting journal entry: %w", err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

func (s *journalService) ListEntries(ctx context.Context, userID string, limit int, before *time.Time, search string) ([]model.JournalEntry, *string, error) {
	rows, err := s.journalRepo.ListEntries(ctx, userID, limit+1, before, search)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list journal entries")
		return nil, nil, fmt.Errorf("listing journal entries: %w", err)
	}
	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		cursor := FormatCursor(rows[len(rows)-1].CreatedAt)
		next = &cursor
	}
	return rows, next, nil
}

func (s *journalService) DeleteEntry(ctx context.Context, entryID, userID string) error {
	if _, err := s.GetEntry(ctx, entryID, userID); err != nil {
		return err
	}
	if err := s.journalRepo.DeleteEntry(ctx, entryID, userID); err != nil {
		s.logger.Error().Err(err).Str("entry_id", entryID).Msg("Failed to delete journal entry")
		return fmt.Errorf("deleting journal entry: %w", err)
	}
	return nil
}
