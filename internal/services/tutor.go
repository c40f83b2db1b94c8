package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/clients/assistant"
	"github.com/studyline/studyline-backend/internal/clients/redis"
	"github.com/studyline/studyline-backend/internal/data/repos/jobs"
	"github.com/studyline/studyline-backend/internal/data/repos/tutor"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/normalize"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

const (
	AskSourceCache   = "cache"
	AskSourcePending = "pending"
)

// AskResult is what a learner gets back immediately: either the cached
// answer, or the job to watch while the provider works.
type AskResult struct {
	Source string          `json:"source"`
	Answer json.RawMessage `json:"answer,omitempty"`
	JobID  uuid.UUID       `json:"job_id,omitempty"`
}

// TutorService answers learner questions. Identical questions (after
// normalization, within one scope and language) share a fingerprint; the
// first ask pays for a provider submission, every later ask reads the cache.
type TutorService struct {
	log        *logger.Logger
	assistant  assistant.Client
	answerRepo tutor.AnswerCacheRepo
	jobRepo    jobs.JobRecordRepo
	hotCache   redis.AnswerHotCache
	inflight   singleflight.Group
}

func NewTutorService(
	log *logger.Logger,
	assistantClient assistant.Client,
	answerRepo tutor.AnswerCacheRepo,
	jobRepo jobs.JobRecordRepo,
	hotCache redis.AnswerHotCache,
) *TutorService {
	return &TutorService{
		log:        log.With("service", "TutorService"),
		assistant:  assistantClient,
		answerRepo: answerRepo,
		jobRepo:    jobRepo,
		hotCache:   hotCache,
	}
}

func (s *TutorService) Ask(ctx context.Context, userID uuid.UUID, question, scopeID, language string) (*AskResult, error) {
	if language == "" {
		language = "en"
	}
	canonical := normalize.Normalize(question)
	if canonical == "" {
		return nil, apperr.Permanent("question is empty", nil)
	}
	fp := normalize.Fingerprint(canonical, scopeID, language)
	dbc := dbctx.New(ctx)

	if s.hotCache != nil {
		if raw, ok := s.hotCache.Get(ctx, fp); ok {
			s.answerRepo.IncrementUsage(dbc, fp)
			return &AskResult{Source: AskSourceCache, Answer: raw}, nil
		}
	}

	cached, err := s.answerRepo.Get(dbc, fp)
	if err == nil {
		s.answerRepo.IncrementUsage(dbc, fp)
		if s.hotCache != nil {
			s.hotCache.Set(ctx, fp, json.RawMessage(cached.Answer))
		}
		return &AskResult{Source: AskSourceCache, Answer: json.RawMessage(cached.Answer)}, nil
	}
	if !apperr.IsNotFound(err) {
		// A broken cache store reads as a miss; the ask still goes out.
		s.log.Error("durable answer cache read failed, treating as miss", "fingerprint", fp, "error", err)
	}

	// Concurrent asks of the same fingerprint by one user collapse into a
	// single provider submission within this process. Different users submit
	// separately so each receives a job it is allowed to poll.
	v, err, _ := s.inflight.Do(fp+":"+userID.String(), func() (interface{}, error) {
		return s.submit(ctx, userID, fp, canonical, scopeID, language)
	})
	if err != nil {
		return nil, err
	}
	jobID := v.(uuid.UUID)
	return &AskResult{Source: AskSourcePending, JobID: jobID}, nil
}

func (s *TutorService) submit(ctx context.Context, userID uuid.UUID, fp, canonical, scopeID, language string) (uuid.UUID, error) {
	dbc := dbctx.New(ctx)

	payload, err := json.Marshal(tutorJobPayload{
		Fingerprint: fp,
		ScopeID:     scopeID,
		Language:    language,
		Question:    canonical,
	})
	if err != nil {
		return uuid.Nil, err
	}

	// The row exists before the provider is invoked so a webhook that beats
	// the submit response still finds its job by handle after SetExternalHandle.
	job, err := s.jobRepo.Create(dbc, &domain.JobRecord{
		OwnerUserID: userID,
		JobType:     domain.JobTypeTutorAnswer,
		Payload:     datatypes.JSON(payload),
	})
	if err != nil {
		return uuid.Nil, err
	}

	handle, err := s.assistant.Submit(ctx, assistant.SubmitRequest{
		Question: canonical,
		ScopeID:  scopeID,
		Language: language,
	})
	if err != nil {
		if _, failErr := s.jobRepo.Fail(dbc, job.ID, "submission failed: "+err.Error()); failErr != nil {
			s.log.Error("could not mark job failed after submit error", "job_id", job.ID, "error", failErr)
		}
		return uuid.Nil, err
	}
	if err := s.jobRepo.SetExternalHandle(dbc, job.ID, handle); err != nil {
		return uuid.Nil, err
	}
	s.log.Info("tutor question submitted", "job_id", job.ID, "fingerprint", fp)
	return job.ID, nil
}
