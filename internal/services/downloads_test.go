package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

func TestRequestDownloadIssuesSignedURL(t *testing.T) {
	t.Setenv("DOWNLOAD_QUOTA", "2")
	lesson := &domain.Lesson{ID: uuid.New(), MediaKey: "lessons/l1/audio.mp3"}
	svc := NewDownloadService(logger.NewNop(), fakeBucket{}, &fakeGrantRepo{}, &fakeLessonAccess{lesson: lesson})
	userID := uuid.New()

	grant, err := svc.RequestDownload(context.Background(), userID, lesson.ID)
	if err != nil {
		t.Fatalf("RequestDownload: %v", err)
	}
	if !strings.Contains(grant.SignedURL, lesson.MediaKey) {
		t.Fatalf("signed URL does not reference the media key: %s", grant.SignedURL)
	}
	if grant.UserID != userID || grant.LessonID != lesson.ID {
		t.Fatalf("grant row wrong: %+v", grant)
	}
}

func TestRequestDownloadEnforcesQuota(t *testing.T) {
	t.Setenv("DOWNLOAD_QUOTA", "2")
	lesson := &domain.Lesson{ID: uuid.New(), MediaKey: "lessons/l1/video.mp4"}
	grants := &fakeGrantRepo{}
	svc := NewDownloadService(logger.NewNop(), fakeBucket{}, grants, &fakeLessonAccess{lesson: lesson})
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := svc.RequestDownload(context.Background(), userID, lesson.ID); err != nil {
			t.Fatalf("grant %d: %v", i, err)
		}
	}
	_, err := svc.RequestDownload(context.Background(), userID, lesson.ID)
	if !apperr.IsConflict(err) {
		t.Fatalf("expected quota conflict, got %v", err)
	}

	// Another user's quota is untouched.
	if _, err := svc.RequestDownload(context.Background(), uuid.New(), lesson.ID); err != nil {
		t.Fatalf("other user should still get a grant: %v", err)
	}
}

func TestRequestDownloadWithoutMediaIsNotFound(t *testing.T) {
	lesson := &domain.Lesson{ID: uuid.New()}
	svc := NewDownloadService(logger.NewNop(), fakeBucket{}, &fakeGrantRepo{}, &fakeLessonAccess{lesson: lesson})
	_, err := svc.RequestDownload(context.Background(), uuid.New(), lesson.ID)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
