package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/clients/meetings"
	"github.com/studyline/studyline-backend/internal/data/repos/media"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

const (
	LiveClassStatusScheduled = "scheduled"
	LiveClassStatusEnded     = "ended"
)

// LiveClassService schedules live classes on the meetings provider and keeps
// the local rows in step.
type LiveClassService struct {
	log        *logger.Logger
	meetings   meetings.Client
	liveRepo   media.LiveClassRepo
	recordings media.RecordingRepo
}

func NewLiveClassService(
	log *logger.Logger,
	meetingsClient meetings.Client,
	liveRepo media.LiveClassRepo,
	recordings media.RecordingRepo,
) *LiveClassService {
	return &LiveClassService{
		log:        log.With("service", "LiveClassService"),
		meetings:   meetingsClient,
		liveRepo:   liveRepo,
		recordings: recordings,
	}
}

func (s *LiveClassService) Schedule(ctx context.Context, hostUserID, courseID uuid.UUID, topic string, startsAt time.Time, durationMinutes int) (*domain.LiveClass, error) {
	if topic == "" {
		return nil, apperr.Permanent("topic is required", nil)
	}
	if durationMinutes <= 0 {
		durationMinutes = 60
	}
	meeting, err := s.meetings.CreateMeeting(ctx, topic, startsAt, durationMinutes)
	if err != nil {
		return nil, err
	}
	lc, err := s.liveRepo.Create(dbctx.New(ctx), &domain.LiveClass{
		CourseID:          courseID,
		HostUserID:        hostUserID,
		Topic:             topic,
		ProviderMeetingID: meeting.ID,
		JoinURL:           meeting.JoinURL,
		StartsAt:          startsAt,
		DurationMinutes:   durationMinutes,
		Status:            LiveClassStatusScheduled,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("live class scheduled", "live_class_id", lc.ID, "provider_meeting_id", meeting.ID)
	return lc, nil
}

func (s *LiveClassService) Get(ctx context.Context, id uuid.UUID) (*domain.LiveClass, error) {
	return s.liveRepo.GetByID(dbctx.New(ctx), id)
}

func (s *LiveClassService) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*domain.LiveClass, error) {
	return s.liveRepo.ListByCourse(dbctx.New(ctx), courseID)
}

func (s *LiveClassService) ListRecordings(ctx context.Context, liveClassID uuid.UUID) ([]*domain.Recording, error) {
	return s.recordings.ListByLiveClass(dbctx.New(ctx), liveClassID)
}
