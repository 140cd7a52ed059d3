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

// JournalRepository defines methods for accessing journal entries.
type JournalRepository interface {
	CreateEntry(ctx context.Context, e *model.JournalEntry) (*model.JournalEntry, error)
	GetEntry(ctx context.Context, entryID, userID string) (*model.JournalEntry, error)
	// ListEntries returns up to limit entries owned by userID, newest first,
	// restricted to rows strictly older than before when it is non-nil and to
	// rows matching search (title or body, case-insensitive) when non-empty.
	ListEntries(ctx context.Context, userID string, limit int, before *time.Time, search string) ([]model.JournalEntry, error)
	DeleteEntry(ctx context.Context, entryID, userID string) error
}

type journalRepo struct {
	pool *pgxpool.Pool
}

// NewJournalRepo creates a new JournalRepository.
func NewJournalRepo(pool *pgxpool.Pool) JournalRepository {
	return &journalRepo{pool: pool}
}

const journalColumns = `id, user_id, title, body, mood_score, created_at, updated_at`

func scanEntry(row pgx.Row) (*model.JournalEntry, error) {
	var e model.JournalEntry
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Body, &e.MoodScore, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *journalRepo) CreateEntry(ctx context.Context, e *model.JournalEntry) (*model.JournalEntry, error) {
	const q = `
        INSERT INTO journal_entries (user_id, title, body, mood_score)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + journalColumns
	created, err := scanEntry(r.pool.QueryRow(ctx, q, e.UserID, e.Title, e.Body, e.MoodScore))
	if err != nil {
		return nil, fmt.Errorf("creating journal entry: %w", err)
	}
	return created, nil
}

func (r *journalRepo) GetEntry(ctx context.Context, entryID, userID string) (*model.JournalEntry, error) {
	const q = `SELECT ` + journalColumns + ` FROM journal_entries WHERE id = $1 AND user_id = $2`
	e, err := scanEntry(r.pool.QueryRow(ctx, q, entryID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting journal entry %s: %w", entryID, err)
	}
	return e, nil
}

func (r *journalRepo) ListEntries(ctx context.Context, userID string, limit int, before *time.Time, search string) ([]model.JournalEntry, error) {
	q := `SELECT ` + journalColumns + ` FROM journal_entries WHERE user_id = $1`
	args := []any{userID}
	if before != nil {
		args = append(args, *before)
		q += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		q += fmt.Sprintf(` AND (title ILIKE $%d OR body ILIKE $%d)`, len(args), len(args))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal rows: %w", err)
	}
	return entries, nil
}

func (r *journalRepo) DeleteEntry(ctx context.Context, entryID, userID string) error {
	const q = `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, q, entryID, userID)
	if err != nil {
		return fmt.Errorf("deleting journal entry %s: %w", entryID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("journal entry not found or access denied")
	}
	return nil
}
