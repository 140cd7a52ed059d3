package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakeEvidenceFileRepo struct {
	repository.EvidenceRepository
	file    *model.EvidenceFile
	created int
}

func (f *fakeEvidenceFileRepo) CreateEvidence(ctx context.Context, e *model.EvidenceFile) (*model.EvidenceFile, error) {
	f.created++
	e.ID = "ev-1"
	e.CreatedAt = time.Now()
	f.file = e
	return e, nil
}

func (f *fakeEvidenceFileRepo) GetEvidence(ctx context.Context, evidenceID, userID string) (*model.EvidenceFile, error) {
	if f.file != nil && f.file.ID == evidenceID && f.file.UserID == userID {
		return f.file, nil
	}
	return nil, nil
}

func (f *fakeEvidenceFileRepo) UpdateEvidence(ctx context.Context, e *model.EvidenceFile) error {
	f.file = e
	return nil
}

type fakeObjectStore struct {
	headErr error
}

func (f *fakeObjectStore) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct{}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://storage.example/put"}, nil
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://storage.example/get"}, nil
}

type fakeTopicPublisher struct {
	topics   []string
	payloads [][]byte
}

func (f *fakeTopicPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return "msg-1", nil
}

// newTestEvidenceService wires an evidence service against a real quota
// service. committedSeconds is what the period's transcription sum reports;
// a file that is still uploading contributes nothing to it.
func newTestEvidenceService(repo *fakeEvidenceFileRepo, store *fakeObjectStore, pub *fakeTopicPublisher, limits map[string]int64, committedSeconds int64) EvidenceService {
	quota := newTestQuotaService(model.TierFree, limits, nil, &fakeEvidenceRepo{durationSeconds: committedSeconds})
	return NewEvidenceService(repo, quota, store, &fakePresigner{}, "evidence", pub, "transcription_jobs", "https://api.example/v1/transcriptions/callback", zerolog.Nop())
}

func uploadedAudioFile(durationSeconds int64) *model.EvidenceFile {
	return &model.EvidenceFile{
		ID:              "ev-1",
		UserID:          "u1",
		Filename:        "statement.m4a",
		SizeBytes:       1 << 20,
		DurationSeconds: durationSeconds,
		StoragePath:     "evidence/ev-1/statement.m4a",
		Status:          model.EvidenceStatusUploading,
		CreatedAt:       time.Now(),
	}
}

func TestCompleteUploadQueuesTranscription(t *testing.T) {
	// 40 minutes of audio against a fresh 60-minute allowance: the file being
	// completed must not count against the period sum it is checked against.
	repo := &fakeEvidenceFileRepo{file: uploadedAudioFile(2400)}
	pub := &fakeTopicPublisher{}
	svc := newTestEvidenceService(repo, &fakeObjectStore{}, pub, map[string]int64{
		"free/transcription/minutes": 60,
	}, 0)

	evidence, quota, err := svc.CompleteUpload(context.Background(), "ev-1", "u1")
	if err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
	if !quota.Allowed {
		t.Fatalf("40 minutes against a 60-minute limit should be allowed, got %+v", quota)
	}
	if evidence.Status != model.EvidenceStatusPendingTranscription {
		t.Errorf("status = %q, want pending_transcription", evidence.Status)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "transcription_jobs" {
		t.Fatalf("expected one job on transcription_jobs, got %v", pub.topics)
	}
	var job TranscriptionJob
	if err := json.Unmarshal(pub.payloads[0], &job); err != nil {
		t.Fatalf("unmarshal job payload: %v", err)
	}
	if job.EvidenceID != "ev-1" || job.StoragePath != "evidence/ev-1/statement.m4a" {
		t.Errorf("unexpected job payload %+v", job)
	}
	if job.CallbackURL == "" {
		t.Error("job payload missing callback URL")
	}
}

func TestCompleteUploadSkipsTranscriptionWhenQuotaExhausted(t *testing.T) {
	// 30 minutes already transcribed this period; a 40-minute file exceeds the
	// remaining 30 and stays stored without a transcription job.
	repo := &fakeEvidenceFileRepo{file: uploadedAudioFile(2400)}
	pub := &fakeTopicPublisher{}
	svc := newTestEvidenceService(repo, &fakeObjectStore{}, pub, map[string]int64{
		"free/transcription/minutes": 60,
	}, 1800)

	evidence, quota, err := svc.CompleteUpload(context.Background(), "ev-1", "u1")
	if err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
	if quota == nil || quota.Allowed {
		t.Fatalf("expected a denied quota result, got %+v", quota)
	}
	if evidence.Status != model.EvidenceStatusStored {
		t.Errorf("status = %q, want stored", evidence.Status)
	}
	if len(pub.topics) != 0 {
		t.Error("no transcription job may be published when the quota is exhausted")
	}
}

func TestCompleteUploadNonAudio(t *testing.T) {
	file := uploadedAudioFile(0)
	file.Filename = "police-report.pdf"
	repo := &fakeEvidenceFileRepo{file: file}
	pub := &fakeTopicPublisher{}
	svc := newTestEvidenceService(repo, &fakeObjectStore{}, pub, map[string]int64{
		"free/transcription/minutes": 60,
	}, 0)

	evidence, quota, err := svc.CompleteUpload(context.Background(), "ev-1", "u1")
	if err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
	if quota != nil {
		t.Errorf("non-audio files should not touch the transcription quota, got %+v", quota)
	}
	if evidence.Status != model.EvidenceStatusStored {
		t.Errorf("status = %q, want stored", evidence.Status)
	}
	if len(pub.topics) != 0 {
		t.Error("no transcription job expected for a non-audio file")
	}
}

func TestCompleteUploadMissingObject(t *testing.T) {
	repo := &fakeEvidenceFileRepo{file: uploadedAudioFile(2400)}
	svc := newTestEvidenceService(repo, &fakeObjectStore{headErr: errors.New("not found")}, &fakeTopicPublisher{}, map[string]int64{
		"free/transcription/minutes": 60,
	}, 0)

	_, _, err := svc.CompleteUpload(context.Background(), "ev-1", "u1")
	if !errors.Is(err, ErrNotUploaded) {
		t.Fatalf("err = %v, want ErrNotUploaded", err)
	}
	if repo.file.Status != model.EvidenceStatusFailed {
		t.Errorf("status = %q, want failed", repo.file.Status)
	}
}

func TestInitiateUploadQuotaDenied(t *testing.T) {
	repo := &fakeEvidenceFileRepo{}
	svc := newTestEvidenceService(repo, &fakeObjectStore{}, &fakeTopicPublisher{}, map[string]int64{
		"free/evidence_storage/bytes": 100,
	}, 0)

	evidence, uploadURL, quota, err := svc.InitiateUpload(context.Background(), "u1", "photo.jpg", 200, 0, nil)
	if err != nil {
		t.Fatalf("InitiateUpload: %v", err)
	}
	if evidence != nil || uploadURL != "" {
		t.Error("denied upload must not create a record or a URL")
	}
	if quota == nil || quota.Allowed {
		t.Fatalf("expected a denied quota result, got %+v", quota)
	}
	if repo.created != 0 {
		t.Errorf("created %d rows, want 0", repo.created)
	}
}
