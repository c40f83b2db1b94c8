package app

import (
	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/http"
	httpH "github.com/studyline/studyline-backend/internal/http/handlers"
	httpMW "github.com/studyline/studyline-backend/internal/http/middleware"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Tutor    *httpH.TutorHandler
	Job      *httpH.JobHandler
	Webhook  *httpH.WebhookHandler
	Course   *httpH.CourseHandler
	Lesson   *httpH.LessonHandler
	Live     *httpH.LiveHandler
	Support  *httpH.SupportHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(services.Auth),
		Tutor:    httpH.NewTutorHandler(services.Tutor),
		Job:      httpH.NewJobHandler(services.Job),
		Webhook:  httpH.NewWebhookHandler(log, services.Reconciler, services.Transfer),
		Course:   httpH.NewCourseHandler(services.Course),
		Lesson:   httpH.NewLessonHandler(services.Course, services.Narration, services.Download),
		Live:     httpH.NewLiveHandler(services.Live),
		Support:  httpH.NewSupportHandler(services.Support),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, services.Auth)}
}

func wireRouter(handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		AuthMiddleware:  middleware.Auth,
		AuthHandler:     handlers.Auth,
		TutorHandler:    handlers.Tutor,
		JobHandler:      handlers.Job,
		WebhookHandler:  handlers.Webhook,
		CourseHandler:   handlers.Course,
		LessonHandler:   handlers.Lesson,
		LiveHandler:     handlers.Live,
		SupportHandler:  handlers.Support,
		RealtimeHandler: handlers.Realtime,
		HealthHandler:   handlers.Health,
	})
}
