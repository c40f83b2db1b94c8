package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/studyline/studyline-backend/internal/http/handlers"
	httpMW "github.com/studyline/studyline-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler     *httpH.AuthHandler
	TutorHandler    *httpH.TutorHandler
	JobHandler      *httpH.JobHandler
	WebhookHandler  *httpH.WebhookHandler
	CourseHandler   *httpH.CourseHandler
	LessonHandler   *httpH.LessonHandler
	LiveHandler     *httpH.LiveHandler
	SupportHandler  *httpH.SupportHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Provider callbacks authenticate by shared secret, not user tokens.
	if cfg.WebhookHandler != nil {
		webhooks := r.Group("/webhooks")
		webhooks.POST("/status", cfg.WebhookHandler.Status)
		webhooks.POST("/recordings", cfg.WebhookHandler.RecordingAvailable)
	}

	api := r.Group("/api")
	if cfg.AuthHandler != nil {
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		api.POST("/refresh", cfg.AuthHandler.Refresh)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.AuthHandler != nil {
		protected.GET("/me", cfg.AuthHandler.Me)
		protected.POST("/logout", cfg.AuthHandler.Logout)
	}

	if cfg.RealtimeHandler != nil {
		protected.GET("/sse/stream", cfg.RealtimeHandler.Stream)
	}

	if cfg.TutorHandler != nil {
		protected.POST("/tutor/ask", cfg.TutorHandler.Ask)
	}

	if cfg.JobHandler != nil {
		protected.GET("/jobs", cfg.JobHandler.ListJobs)
		protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
	}

	if cfg.CourseHandler != nil {
		protected.GET("/courses", cfg.CourseHandler.ListPublished)
		protected.GET("/courses/mine", cfg.CourseHandler.ListOwned)
		protected.GET("/courses/:id", cfg.CourseHandler.Get)
		protected.POST("/courses/:id/enroll", cfg.CourseHandler.Enroll)
	}

	if cfg.LessonHandler != nil {
		protected.GET("/lessons/:id", cfg.LessonHandler.Get)
		protected.POST("/lessons/:id/narration", cfg.LessonHandler.RequestNarration)
		protected.POST("/lessons/:id/downloads", cfg.LessonHandler.RequestDownload)
		protected.GET("/downloads", cfg.LessonHandler.ListDownloads)
	}

	if cfg.LiveHandler != nil {
		protected.GET("/courses/:id/live-classes", cfg.LiveHandler.ListByCourse)
		protected.GET("/live-classes/:id/recordings", cfg.LiveHandler.ListRecordings)
	}

	if cfg.SupportHandler != nil {
		protected.POST("/support/threads", cfg.SupportHandler.OpenThread)
		protected.GET("/support/threads", cfg.SupportHandler.ListThreads)
		protected.GET("/support/threads/:id/messages", cfg.SupportHandler.ListMessages)
		protected.POST("/support/threads/:id/messages", cfg.SupportHandler.PostMessage)
	}

	staff := protected.Group("/")
	if cfg.AuthMiddleware != nil {
		staff.Use(cfg.AuthMiddleware.RequireStaff())
	}
	if cfg.CourseHandler != nil {
		staff.POST("/courses", cfg.CourseHandler.Create)
		staff.POST("/courses/:id/publish", cfg.CourseHandler.Publish)
		staff.POST("/courses/:id/modules", cfg.CourseHandler.AddModule)
		staff.POST("/courses/:id/modules/:moduleID/lessons", cfg.CourseHandler.AddLesson)
	}
	if cfg.LiveHandler != nil {
		staff.POST("/courses/:id/live-classes", cfg.LiveHandler.Schedule)
	}

	return r
}
