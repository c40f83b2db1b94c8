package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/clients/assistant"
	"github.com/studyline/studyline-backend/internal/clients/meetings"
	"github.com/studyline/studyline-backend/internal/clients/speech"
	"github.com/studyline/studyline-backend/internal/data/repos/jobs"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

// JobService is the read side of job tracking. Reads of non-terminal jobs
// piggyback a provider poll, so clients that miss a webhook still converge on
// the terminal state.
type JobService struct {
	log        *logger.Logger
	jobRepo    jobs.JobRecordRepo
	reconciler *Reconciler
	assistant  assistant.Client
	meetings   meetings.Client
	speech     speech.Client
}

func NewJobService(
	log *logger.Logger,
	jobRepo jobs.JobRecordRepo,
	reconciler *Reconciler,
	assistantClient assistant.Client,
	meetingsClient meetings.Client,
	speechClient speech.Client,
) *JobService {
	return &JobService{
		log:        log.With("service", "JobService"),
		jobRepo:    jobRepo,
		reconciler: reconciler,
		assistant:  assistantClient,
		meetings:   meetingsClient,
		speech:     speechClient,
	}
}

// GetForUser returns the caller's view of one job. Jobs owned by other users
// read as not found.
func (s *JobService) GetForUser(ctx context.Context, userID, jobID uuid.UUID) (*domain.JobRecord, error) {
	dbc := dbctx.New(ctx)
	job, err := s.jobRepo.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerUserID != userID {
		return nil, apperr.NotFound("job record not found")
	}
	if job.Terminal() || job.ExternalHandle == "" {
		return job, nil
	}

	ev, ok := s.poll(ctx, job)
	if ok {
		if err := s.reconciler.Apply(ctx, ev); err != nil {
			s.log.Warn("poll reconciliation failed", "job_id", job.ID, "error", err)
		}
		// Return the row as reconciliation left it.
		return s.jobRepo.GetByID(dbc, jobID)
	}
	return job, nil
}

func (s *JobService) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.JobRecord, error) {
	return s.jobRepo.ListByOwner(dbctx.New(ctx), userID, limit)
}

// poll asks the owning provider for the job's current status. A failed poll
// is not a failed job; the caller just sees the stored row.
func (s *JobService) poll(ctx context.Context, job *domain.JobRecord) (StatusEvent, bool) {
	ev := StatusEvent{Source: EventSourcePoll, JobID: job.ID}
	switch job.JobType {
	case domain.JobTypeTutorAnswer:
		st, err := s.assistant.FetchStatus(ctx, job.ExternalHandle)
		if err != nil {
			s.log.Warn("assistant status poll failed", "job_id", job.ID, "error", err)
			return ev, false
		}
		ev.Status, ev.Progress, ev.Result, ev.Error = st.Status, st.Progress, st.Result, st.Error
	case domain.JobTypeRecordingTransfer:
		st, err := s.meetings.FetchTranscodeStatus(ctx, job.ExternalHandle)
		if err != nil {
			s.log.Warn("transcode status poll failed", "job_id", job.ID, "error", err)
			return ev, false
		}
		ev.Status, ev.Progress, ev.Result, ev.Error = st.Status, st.Progress, st.Result, st.Error
	case domain.JobTypeNarration:
		st, err := s.speech.FetchStatus(ctx, job.ExternalHandle)
		if err != nil {
			s.log.Warn("synthesis status poll failed", "job_id", job.ID, "error", err)
			return ev, false
		}
		ev.Status, ev.Progress, ev.Result, ev.Error = st.Status, st.Progress, st.Result, st.Error
	default:
		return ev, false
	}
	return ev, true
}
