package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/clients/speech"
	"github.com/studyline/studyline-backend/internal/data/repos/jobs"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

// NarrationService turns lesson text into audio through the speech provider.
// Synthesis is asynchronous; completion attaches the audio to the lesson via
// the reconciler.
type NarrationService struct {
	log     *logger.Logger
	speech  speech.Client
	lessons LessonAccess
	jobRepo jobs.JobRecordRepo
}

func NewNarrationService(
	log *logger.Logger,
	speechClient speech.Client,
	lessons LessonAccess,
	jobRepo jobs.JobRecordRepo,
) *NarrationService {
	return &NarrationService{
		log:     log.With("service", "NarrationService"),
		speech:  speechClient,
		lessons: lessons,
		jobRepo: jobRepo,
	}
}

func (s *NarrationService) RequestNarration(ctx context.Context, userID, lessonID uuid.UUID, voice, language string) (*domain.JobRecord, error) {
	lesson, err := s.lessons.GetLessonForUser(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.ContentMD == "" {
		return nil, apperr.Permanent("lesson has no narratable text", nil)
	}
	if language == "" {
		language = "en"
	}
	dbc := dbctx.New(ctx)

	payload, err := json.Marshal(narrationJobPayload{LessonID: lesson.ID, Voice: voice})
	if err != nil {
		return nil, err
	}
	job, err := s.jobRepo.Create(dbc, &domain.JobRecord{
		OwnerUserID: userID,
		JobType:     domain.JobTypeNarration,
		Payload:     datatypes.JSON(payload),
	})
	if err != nil {
		return nil, err
	}

	handle, err := s.speech.SubmitSynthesis(ctx, lesson.ContentMD, voice, language)
	if err != nil {
		if _, fErr := s.jobRepo.Fail(dbc, job.ID, "submission failed: "+err.Error()); fErr != nil {
			s.log.Error("could not mark narration job failed", "job_id", job.ID, "error", fErr)
		}
		return nil, err
	}
	if err := s.jobRepo.SetExternalHandle(dbc, job.ID, handle); err != nil {
		return nil, err
	}
	s.log.Info("narration submitted", "job_id", job.ID, "lesson_id", lessonID)
	return job, nil
}
