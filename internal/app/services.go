package app

import (
	"fmt"

	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
	"github.com/studyline/studyline-backend/internal/services"
)

type Services struct {
	Notifier   services.Notifier
	Reconciler *services.Reconciler

	Auth      *services.AuthService
	Tutor     *services.TutorService
	Job       *services.JobService
	Course    *services.CourseService
	Live      *services.LiveClassService
	Transfer  *services.RecordingTransferService
	Download  *services.DownloadService
	Narration *services.NarrationService
	Support   *services.SupportService
}

func wireServices(log *logger.Logger, repos Repos, clients Clients, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	notifier := services.NewNotifier(log, hub, clients.SSEBus)
	reconciler := services.NewReconciler(
		log,
		repos.JobRecord,
		repos.AnswerCache,
		clients.HotCache,
		repos.Recording,
		repos.Lesson,
		notifier,
	)

	auth, err := services.NewAuthService(log, repos.User, repos.UserToken)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	tutorSvc := services.NewTutorService(log, clients.Assistant, repos.AnswerCache, repos.JobRecord, clients.HotCache)
	jobSvc := services.NewJobService(log, repos.JobRecord, reconciler, clients.Assistant, clients.Meetings, clients.Speech)
	courseSvc := services.NewCourseService(log, repos.Course, repos.Module, repos.Lesson, repos.Enrollment)
	liveSvc := services.NewLiveClassService(log, clients.Meetings, repos.LiveClass, repos.Recording)
	transferSvc := services.NewRecordingTransferService(log, clients.Meetings, clients.Bucket, repos.LiveClass, repos.Recording, repos.JobRecord)
	downloadSvc := services.NewDownloadService(log, clients.Bucket, repos.DownloadGrant, courseSvc)
	narrationSvc := services.NewNarrationService(log, clients.Speech, courseSvc, repos.JobRecord)
	supportSvc := services.NewSupportService(log, repos.SupportThread, repos.SupportMessage, notifier)

	return Services{
		Notifier:   notifier,
		Reconciler: reconciler,
		Auth:       auth,
		Tutor:      tutorSvc,
		Job:        jobSvc,
		Course:     courseSvc,
		Live:       liveSvc,
		Transfer:   transferSvc,
		Download:   downloadSvc,
		Narration:  narrationSvc,
		Support:    supportSvc,
	}, nil
}
