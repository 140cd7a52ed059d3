package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectStore is the subset of the S3 API used to verify and delete stored
// objects.
type ObjectStore interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectPresigner issues presigned upload and download URLs.
type ObjectPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	ErrEvidenceNotFound = errors.New("evidence file not found")
	ErrNotUploaded      = errors.New("file not found in storage")
)

const presignExpiry = 15 * time.Minute

// audioExtensions lists upload extensions routed through transcription.
var audioExtensions = map[string]bool{
	".m4a":  true,
	".mp3":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// TranscriptionJob is the payload published for each audio upload.
type TranscriptionJob struct {
	EvidenceID  string `json:"evidence_id"`
	UserID      string `json:"user_id"`
	StoragePath string `json:"storage_path"`
	CallbackURL string `json:"callback_url"`
}

// EvidenceService manages evidence file uploads, storage quotas and the
// transcription pipeline.
type EvidenceService interface {
	// InitiateUpload checks the storage quota, creates an evidence record in
	// the uploading state and returns a presigned PUT URL for the client to
	// upload against. When the quota is exceeded the returned QuotaResult has
	// Allowed=false and no record is created.
	InitiateUpload(ctx context.Context, userID, filename string, sizeBytes, durationSeconds int64, journalEntryID *string) (*model.EvidenceFile, string, *QuotaResult, error)
	// CompleteUpload verifies the object exists in storage and transitions
	// the record to stored, or to pending_transcription for audio files
	// (subject to the transcription-minute quota).
	CompleteUpload(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, *QuotaResult, error)
	GetEvidence(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, error)
	GetDownloadURL(ctx context.Context, evidenceID, userID string) (string, error)
	ListEvidence(ctx context.Context, userID string, limit int, before *time.Time) ([]model.EvidenceFile, *string, error)
	DeleteEvidence(ctx context.Context, evidenceID, userID string) error
	// ApplyTranscription stores the transcript delivered by the worker
	// callback, or marks the file failed when the worker reported an error.
	ApplyTranscription(ctx context.Context, evidenceID, transcript string, failed bool) error
}

type evidenceService struct {
	evidenceRepo       repository.EvidenceRepository
	quotaSvc           QuotaService
	store              ObjectStore
	presignClient      ObjectPresigner
	bucketName         string
	publisher          pubsub.Publisher
	transcriptionTopic string
	callbackURL        string
	logger             zerolog.Logger
}

// NewEvidenceService creates a new EvidenceService with a scoped logger.
func NewEvidenceService(
	evidenceRepo repository.EvidenceRepository,
	quotaSvc QuotaService,
	store ObjectStore,
	presigner ObjectPresigner,
	bucketName string,
	publisher pubsub.Publisher,
	transcriptionTopic string,
	callbackURL string,
	logger zerolog.Logger,
) EvidenceService {
	return &evidenceService{
		evidenceRepo:       evidenceRepo,
		quotaSvc:           quotaSvc,
		store:              store,
		presignClient:      presigner,
		bucketName:         bucketName,
		publisher:          publisher,
		transcriptionTopic: transcriptionTopic,
		callbackURL:        callbackURL,
		logger:             logger.With().Str("service", "EvidenceService").Logger(),
	}
}

func isAudioFilename(filename string) bool {
	return audioExtensions[strings.ToLower(path.Ext(filename))]
}

func (s *evidenceService) InitiateUpload(ctx context.Context, userID, filename string, sizeBytes, durationSeconds int64, journalEntryID *string) (*model.EvidenceFile, string, *QuotaResult, error) {
	quota, err := s.quotaSvc.Check(ctx, userID, model.FeatureEvidenceStorage, model.LimitTypeBytes, sizeBytes)
	if err != nil {
		return nil, "", nil, fmt.Errorf("checking storage quota: %w", err)
	}
	if !quota.Allowed {
		return nil, "", quota, nil
	}

	evidence, err := s.evidenceRepo.CreateEvidence(ctx, &model.EvidenceFile{
		UserID:          userID,
		JournalEntryID:  journalEntryID,
		Filename:        filename,
		SizeBytes:       sizeBytes,
		DurationSeconds: durationSeconds,
		Status:          model.EvidenceStatusUploading,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create evidence record")
		return nil, "", quota, fmt.Errorf("creating evidence record: %w", err)
	}

	storagePath := fmt.Sprintf("evidence/%s/%s", evidence.ID, filename)
	uploadURL, err := s.getPresignedPutURL(ctx, storagePath)
	if err != nil {
		_ = s.evidenceRepo.DeleteEvidence(ctx, evidence.ID, userID)
		s.logger.Error().Err(err).Str("evidence_id", evidence.ID).Msg("Failed to generate presigned PUT URL")
		return nil, "", quota, fmt.Errorf("generating upload URL: %w", err)
	}

	evidence.StoragePath = storagePath
	if err := s.evidenceRepo.UpdateEvidence(ctx, evidence); err != nil {
		_ = s.evidenceRepo.DeleteEvidence(ctx, evidence.ID, userID)
		s.logger.Error().Err(err).Str("evidence_id", evidence.ID).Msg("Failed to set storage path")
		return nil, "", quota, fmt.Errorf("updating evidence record: %w", err)
	}

	return evidence, uploadURL, quota, nil
}

func (s *evidenceService) CompleteUpload(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, *QuotaResult, error) {
	evidence, err := s.GetEvidence(ctx, evidenceID, userID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.store.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(evidence.StoragePath),
	}); err != nil {
		s.logger.Error().Err(err).Str("storage_path", evidence.StoragePath).Msg("Uploaded file not found in storage")
		evidence.Status = model.EvidenceStatusFailed
		_ = s.evidenceRepo.UpdateEvidence(ctx, evidence)
		return nil, nil, ErrNotUploaded
	}

	if !isAudioFilename(evidence.Filename) {
		evidence.Status = model.EvidenceStatusStored
		if err := s.evidenceRepo.UpdateEvidence(ctx, evidence); err != nil {
			return nil, nil, fmt.Errorf("updating evidence status: %w", err)
		}
		return evidence, nil, nil
	}

	// Audio uploads count against transcription minutes, rounded up.
	minutes := (evidence.DurationSeconds + 59) / 60
	quota, err := s.quotaSvc.Check(ctx, userID, model.FeatureTranscription, model.LimitTypeMinutes, minutes)
	if err != nil {
		return nil, nil, fmt.Errorf("checking transcription quota: %w", err)
	}
	if !quota.Allowed {
		// Keep the file, skip transcription.
		evidence.Status = model.EvidenceStatusStored
		if err := s.evidenceRepo.UpdateEvidence(ctx, evidence); err != nil {
			return nil, quota, fmt.Errorf("updating evidence status: %w", err)
		}
		return evidence, quota, nil
	}

	evidence.Status = model.EvidenceStatusPendingTranscription
	if err := s.evidenceRepo.UpdateEvidence(ctx, evidence); err != nil {
		return nil, quota, fmt.Errorf("updating evidence status: %w", err)
	}

	job := TranscriptionJob{
		EvidenceID:  evidence.ID,
		UserID:      userID,
		StoragePath: evidence.StoragePath,
		CallbackURL: s.callbackURL,
	}
	data, err := json.Marshal(job)
	if err != nil {
		s.logger.Error().Err(err).Str("evidence_id", evidence.ID).Msg("Failed to marshal transcription job")
	} else if _, err := s.publisher.Publish(ctx, s.transcriptionTopic, data); err != nil {
		// The file is stored either way; transcription needs a manual retrigger.
		s.logger.Error().Err(err).Str("topic", s.transcriptionTopic).Msg("Failed to publish transcription job")
	}

	return evidence, quota, nil
}

func (s *evidenceService) GetEvidence(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, error) {
	evidence, err := s.evidenceRepo.GetEvidence(ctx, evidenceID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting evidence: %w", err)
	}
	if evidence == nil {
		return nil, ErrEvidenceNotFound
	}
	return evidence, nil
}

func (s *evidenceService) GetDownloadURL(ctx context.Context, evidenceID, userID string) (string, error) {
	evidence, err := s.GetEvidence(ctx, evidenceID, userID)
	if err != nil {
		return "", err
	}
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(evidence.StoragePath),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		s.logger.Error().Err(err).Str("evidence_id", evidenceID).Msg("Failed to generate presigned GET URL")
		return "", fmt.Errorf("generating download URL: %w", err)
	}
	return resp.URL, nil
}

func (s *evidenceService) getPresignedPutURL(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presigning put object: %w", err)
	}
	return request.URL, nil
}

func (s *evidenceService) ListEvidence(ctx context.Context, userID string, limit int, before *time.Time) ([]model.EvidenceFile, *string, error) {
	rows, err := s.evidenceRepo.ListEvidence(ctx, userID, limit+1, before)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list evidence files")
		return nil, nil, fmt.Errorf("listing evidence files: %w", err)
	}
	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		cursor := FormatCursor(rows[len(rows)-1].CreatedAt)
		next = &cursor
	}
	return rows, next, nil
}

func (s *evidenceService) DeleteEvidence(ctx context.Context, evidenceID, userID string) error {
	evidence, err := s.GetEvidence(ctx, evidenceID, userID)
	if err != nil {
		return err
	}
	if evidence.StoragePath != "" {
		if _, err := s.store.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(evidence.StoragePath),
		}); err != nil {
			// Leave the row so cleanup can be retried.
			s.logger.Error().Err(err).Str("storage_path", evidence.StoragePath).Msg("Failed to delete object from storage")
			return fmt.Errorf("deleting stored object: %w", err)
		}
	}
	if err := s.evidenceRepo.DeleteEvidence(ctx, evidenceID, userID); err != nil {
		s.logger.Error().Err(err).Str("evidence_id", evidenceID).Msg("Failed to delete evidence record")
		return fmt.Errorf("deleting evidence record: %w", err)
	}
	return nil
}

func (s *evidenceService) ApplyTranscription(ctx context.Context, evidenceID, transcript string, failed bool) error {
	evidence, err := s.evidenceRepo.GetEvidenceByID(ctx, evidenceID)
	if err != nil {
		return fmt.Errorf("getting evidence for transcription callback: %w", err)
	}
	if evidence == nil {
		return ErrEvidenceNotFound
	}
	if failed {
		evidence.Status = model.EvidenceStatusFailed
	} else {
		evidence.Status = model.EvidenceStatusTranscribed
		evidence.Transcript = &transcript
	}
	if err := s.evidenceRepo.UpdateEvidence(ctx, evidence); err != nil {
		s.logger.Error().Err(err).Str("evidence_id", evidenceID).Msg("Failed to apply transcription result")
		return fmt.Errorf("applying transcription result: %w", err)
	}
	return nil
}
