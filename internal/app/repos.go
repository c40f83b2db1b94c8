package app

import (
	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/data/repos/courses"
	"github.com/studyline/studyline-backend/internal/data/repos/jobs"
	"github.com/studyline/studyline-backend/internal/data/repos/media"
	"github.com/studyline/studyline-backend/internal/data/repos/support"
	"github.com/studyline/studyline-backend/internal/data/repos/tutor"
	"github.com/studyline/studyline-backend/internal/data/repos/users"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type Repos struct {
	User      users.UserRepo
	UserToken users.UserTokenRepo

	Course     courses.CourseRepo
	Module     courses.ModuleRepo
	Lesson     courses.LessonRepo
	Enrollment courses.EnrollmentRepo

	LiveClass     media.LiveClassRepo
	Recording     media.RecordingRepo
	DownloadGrant media.DownloadGrantRepo

	SupportThread  support.ThreadRepo
	SupportMessage support.MessageRepo

	AnswerCache tutor.AnswerCacheRepo
	JobRecord   jobs.JobRecordRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      users.NewUserRepo(db, log),
		UserToken: users.NewUserTokenRepo(db, log),

		Course:     courses.NewCourseRepo(db, log),
		Module:     courses.NewModuleRepo(db, log),
		Lesson:     courses.NewLessonRepo(db, log),
		Enrollment: courses.NewEnrollmentRepo(db, log),

		LiveClass:     media.NewLiveClassRepo(db, log),
		Recording:     media.NewRecordingRepo(db, log),
		DownloadGrant: media.NewDownloadGrantRepo(db, log),

		SupportThread:  support.NewThreadRepo(db, log),
		SupportMessage: support.NewMessageRepo(db, log),

		AnswerCache: tutor.NewAnswerCacheRepo(db, log),
		JobRecord:   jobs.NewJobRecordRepo(db, log),
	}
}
