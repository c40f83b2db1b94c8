package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/clients/gcs"
	"github.com/studyline/studyline-backend/internal/data/repos/media"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/utils"
)

// DownloadService issues time-limited signed URLs for offline lesson media.
// Unexpired grants count against a per-user quota.
type DownloadService struct {
	log     *logger.Logger
	bucket  gcs.BucketService
	grants  media.DownloadGrantRepo
	lessons LessonAccess
	quota   int
	ttl     time.Duration
}

func NewDownloadService(
	log *logger.Logger,
	bucket gcs.BucketService,
	grants media.DownloadGrantRepo,
	lessons LessonAccess,
) *DownloadService {
	quota := utils.GetEnvAsInt("DOWNLOAD_QUOTA", 10, log)
	ttlHours := utils.GetEnvAsInt("DOWNLOAD_TTL_HOURS", 48, log)
	return &DownloadService{
		log:     log.With("service", "DownloadService"),
		bucket:  bucket,
		grants:  grants,
		lessons: lessons,
		quota:   quota,
		ttl:     time.Duration(ttlHours) * time.Hour,
	}
}

func (s *DownloadService) RequestDownload(ctx context.Context, userID, lessonID uuid.UUID) (*domain.DownloadGrant, error) {
	lesson, err := s.lessons.GetLessonForUser(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.MediaKey == "" {
		return nil, apperr.NotFound("lesson has no downloadable media")
	}
	dbc := dbctx.New(ctx)

	active, err := s.grants.CountActive(dbc, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if active >= int64(s.quota) {
		return nil, apperr.Conflict("download quota exceeded")
	}

	signed, err := s.bucket.SignedDownloadURL(lesson.MediaKey, s.ttl)
	if err != nil {
		return nil, err
	}
	grant, err := s.grants.Create(dbc, &domain.DownloadGrant{
		UserID:     userID,
		LessonID:   lesson.ID,
		StorageKey: lesson.MediaKey,
		SignedURL:  signed,
		ExpiresAt:  time.Now().Add(s.ttl),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("download granted", "user_id", userID, "lesson_id", lessonID, "grant_id", grant.ID)
	return grant, nil
}

func (s *DownloadService) ListGrants(ctx context.Context, userID uuid.UUID) ([]*domain.DownloadGrant, error) {
	return s.grants.ListByUser(dbctx.New(ctx), userID)
}
