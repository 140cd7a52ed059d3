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

// EvidenceRepository defines methods for accessing evidence file rows.
type EvidenceRepository interface {
	CreateEvidence(ctx context.Context, e *model.EvidenceFile) (*model.EvidenceFile, error)
	GetEvidence(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, error)
	// GetEvidenceByID looks up a row without an ownership filter; used by the
	// transcription callback, which is authenticated at the transport layer.
	GetEvidenceByID(ctx context.Context, evidenceID string) (*model.EvidenceFile, error)
	// ListEvidence returns up to limit rows owned by userID, newest first,
	// restricted to rows strictly older than before when it is non-nil.
	ListEvidence(ctx context.Context, userID string, limit int, before *time.Time) ([]model.EvidenceFile, error)
	UpdateEvidence(ctx context.Context, e *model.EvidenceFile) error
	DeleteEvidence(ctx context.Context, evidenceID, userID string) error
	// SumSizeBytesSince aggregates stored bytes uploaded in the billing period.
	SumSizeBytesSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// SumDurationSecondsSince aggregates audio seconds committed to
	// transcription in the billing period. Files still uploading or stored
	// without transcription consume no minutes.
	SumDurationSecondsSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

type evidenceRepo struct {
	pool *pgxpool.Pool
}

// NewEvidenceRepo creates a new EvidenceRepository.
func NewEvidenceRepo(pool *pgxpool.Pool) EvidenceRepository {
	return &evidenceRepo{pool: pool}
}

const evidenceColumns = `id, user_id, journal_entry_id, filename, size_bytes, duration_seconds, storage_path, status, transcript, created_at, updated_at`

func scanEvidence(row pgx.Row) (*model.EvidenceFile, error) {
	var e model.EvidenceFile
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.JournalEntryID,
		&e.Filename,
		&e.SizeBytes,
		&e.DurationSeconds,
		&e.StoragePath,
		&e.Status,
		&e.Transcript,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *evidenceRepo) CreateEvidence(ctx context.Context, e *model.EvidenceFile) (*model.EvidenceFile, error) {
	const q = `
        INSERT INTO evidence_files (user_id, journal_entry_id, filename, size_bytes, duration_seconds, storage_path, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + evidenceColumns
	created, err := scanEvidence(r.pool.QueryRow(ctx, q,
		e.UserID, e.JournalEntryID, e.Filename, e.SizeBytes, e.DurationSeconds, e.StoragePath, e.Status))
	if err != nil {
		return nil, fmt.Errorf("creating evidence file: %w", err)
	}
	return created, nil
}

func (r *evidenceRepo) GetEvidence(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, error) {
	const q = `SELECT ` + evidenceColumns + ` FROM evidence_files WHERE id = $1 AND user_id = $2`
	e, err := scanEvidence(r.pool.QueryRow(ctx, q, evidenceID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting evidence file %s: %w", evidenceID, err)
	}
	return e, nil
}

func (r *evidenceRepo) GetEvidenceByID(ctx context.Context, evidenceID string) (*model.EvidenceFile, error) {
	const q = `SELECT ` + evidenceColumns + ` FROM evidence_files WHERE id = $1`
	e, err := scanEvidence(r.pool.QueryRow(ctx, q, evidenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting evidence file %s: %w", evidenceID, err)
	}
	return e, nil
}

func (r *evidenceRepo) ListEvidence(ctx context.Context, userID string, limit int, before *time.Time) ([]model.EvidenceFile, error) {
	q := `SELECT ` + evidenceColumns + ` FROM evidence_files WHERE user_id = $1`
	args := []any{userID}
	if before != nil {
		q += ` AND created_at < $2`
		args = append(args, *before)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying evidence files: %w", err)
	}
	defer rows.Close()

	var files []model.EvidenceFile
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning evidence row: %w", err)
		}
		files = append(files, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating evidence rows: %w", err)
	}
	return files, nil
}

func (r *evidenceRepo) UpdateEvidence(ctx context.Context, e *model.EvidenceFile) error {
	const q = `
        UPDATE evidence_files
        SET storage_path = $3, status = $4, transcript = $5, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
    `
	result, err := r.pool.Exec(ctx, q, e.ID, e.UserID, e.StoragePath, e.Status, e.Transcript)
	if err != nil {
		return fmt.Errorf("updating evidence file %s: %w", e.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("evidence file not found or access denied")
	}
	return nil
}

func (r *evidenceRepo) DeleteEvidence(ctx context.Context, evidenceID, userID string) error {
	const q = `DELETE FROM evidence_files WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, q, evidenceID, userID)
	if err != nil {
		return fmt.Errorf("deleting evidence file %s: %w", evidenceID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("evidence file not found or access denied")
	}
	return nil
}

func (r *evidenceRepo) SumSizeBytesSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	const q = `
        SELECT COALESCE(SUM(size_bytes), 0)
        FROM evidence_files
        WHERE user_id = $1
          AND status <> 'failed'
          AND created_at >= $2
    `
	var total int64
	if err := r.pool.QueryRow(ctx, q, userID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing evidence bytes for user %s: %w", userID, err)
	}
	return total, nil
}

func (r *evidenceRepo) SumDurationSecondsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	const q = `
        SELECT COALESCE(SUM(duration_seconds), 0)
        FROM evidence_files
        WHERE user_id = $1
          AND status IN ('pending_transcription', 'transcribed')
          AND created_at >= $2
    `
	var total int64
	if err := r.pool.QueryRow(ctx, q, userID, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing evidence duration for user %s: %w", userID, err)
	}
	return total, nil
}
