package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/clients/gcs"
	"github.com/studyline/studyline-backend/internal/clients/meetings"
	"github.com/studyline/studyline-backend/internal/data/repos/jobs"
	"github.com/studyline/studyline-backend/internal/data/repos/media"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

const (
	RecordingStatusPending      = "pending"
	RecordingStatusTransferring = "transferring"
	RecordingStatusReady        = "ready"
	RecordingStatusFailed       = "failed"
)

// RecordingAvailableEvent is the provider's "a recording exists" webhook,
// already verified by the handler.
type RecordingAvailableEvent struct {
	ProviderMeetingID   string
	ProviderRecordingID string
	SourceURL           string
	DurationSeconds     int
}

// RecordingTransferService moves provider recordings into our bucket and
// hands them to the transcode pipeline. The transfer itself runs in the
// background; the webhook only creates the rows.
type RecordingTransferService struct {
	log        *logger.Logger
	meetings   meetings.Client
	bucket     gcs.BucketService
	liveRepo   media.LiveClassRepo
	recordings media.RecordingRepo
	jobRepo    jobs.JobRecordRepo
}

func NewRecordingTransferService(
	log *logger.Logger,
	meetingsClient meetings.Client,
	bucket gcs.BucketService,
	liveRepo media.LiveClassRepo,
	recordings media.RecordingRepo,
	jobRepo jobs.JobRecordRepo,
) *RecordingTransferService {
	return &RecordingTransferService{
		log:        log.With("service", "RecordingTransferService"),
		meetings:   meetingsClient,
		bucket:     bucket,
		liveRepo:   liveRepo,
		recordings: recordings,
		jobRepo:    jobRepo,
	}
}

// HandleRecordingAvailable is idempotent on the provider recording id: the
// first delivery creates the recording row and its transfer job, redeliveries
// find the existing row and do nothing.
func (s *RecordingTransferService) HandleRecordingAvailable(ctx context.Context, ev RecordingAvailableEvent) (*domain.JobRecord, error) {
	dbc := dbctx.New(ctx)

	lc, err := s.liveRepo.GetByProviderMeetingID(dbc, ev.ProviderMeetingID)
	if err != nil {
		return nil, err
	}

	rec, created, err := s.recordings.CreateIfAbsent(dbc, &domain.Recording{
		LiveClassID:         lc.ID,
		ProviderRecordingID: ev.ProviderRecordingID,
		SourceURL:           ev.SourceURL,
		DurationSeconds:     ev.DurationSeconds,
		Status:              RecordingStatusPending,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		s.log.Info("recording already known, ignoring redelivery", "provider_recording_id", ev.ProviderRecordingID)
		return nil, nil
	}

	payload, err := json.Marshal(recordingJobPayload{RecordingID: rec.ID})
	if err != nil {
		return nil, err
	}
	job, err := s.jobRepo.Create(dbc, &domain.JobRecord{
		OwnerUserID: lc.HostUserID,
		JobType:     domain.JobTypeRecordingTransfer,
		Payload:     datatypes.JSON(payload),
	})
	if err != nil {
		return nil, err
	}

	go s.transfer(job.ID, rec)
	return job, nil
}

// transfer downloads the recording from the provider, parks it in our bucket,
// and submits the transcode. The transcode's completion comes back through
// the reconciler like any other external job.
func (s *RecordingTransferService) transfer(jobID uuid.UUID, rec *domain.Recording) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	dbc := dbctx.New(ctx)

	fail := func(stage string, err error) {
		s.log.Error("recording transfer failed", "job_id", jobID, "recording_id", rec.ID, "stage", stage, "error", err)
		if _, fErr := s.jobRepo.Fail(dbc, jobID, stage+": "+err.Error()); fErr != nil {
			s.log.Error("could not mark transfer job failed", "job_id", jobID, "error", fErr)
		}
		if uErr := s.recordings.UpdateFields(dbc, rec.ID, map[string]interface{}{"status": RecordingStatusFailed}); uErr != nil {
			s.log.Error("could not mark recording failed", "recording_id", rec.ID, "error", uErr)
		}
	}

	if _, err := s.jobRepo.UpdateProgress(dbc, jobID, 10, "downloading"); err != nil {
		s.log.Warn("progress update failed", "job_id", jobID, "error", err)
	}
	body, err := s.meetings.DownloadRecording(ctx, rec.SourceURL)
	if err != nil {
		fail("download", err)
		return
	}
	defer body.Close()

	key := fmt.Sprintf("recordings/%s/%s.mp4", rec.LiveClassID, rec.ProviderRecordingID)
	if _, err := s.jobRepo.UpdateProgress(dbc, jobID, 40, "uploading"); err != nil {
		s.log.Warn("progress update failed", "job_id", jobID, "error", err)
	}
	if err := s.bucket.Upload(ctx, key, body, "video/mp4"); err != nil {
		fail("upload", err)
		return
	}
	if err := s.recordings.UpdateFields(dbc, rec.ID, map[string]interface{}{
		"storage_key": key,
		"status":      RecordingStatusTransferring,
	}); err != nil {
		fail("persist storage key", err)
		return
	}

	if _, err := s.jobRepo.UpdateProgress(dbc, jobID, 70, "transcoding"); err != nil {
		s.log.Warn("progress update failed", "job_id", jobID, "error", err)
	}
	handle, err := s.meetings.SubmitTranscode(ctx, s.bucket.StorageURL(key))
	if err != nil {
		fail("submit transcode", err)
		return
	}
	if err := s.jobRepo.SetExternalHandle(dbc, jobID, handle); err != nil {
		fail("persist transcode handle", err)
		return
	}
	s.log.Info("recording handed to transcode", "job_id", jobID, "recording_id", rec.ID, "handle", handle)
}
