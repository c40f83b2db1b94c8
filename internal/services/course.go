package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/data/repos/courses"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
)

// CourseDetail is a course with its module tree, the shape the catalog and
// course pages render from.
type CourseDetail struct {
	Course  *domain.Course  `json:"course"`
	Modules []*ModuleDetail `json:"modules"`
}

type ModuleDetail struct {
	Module  *domain.CourseModule `json:"module"`
	Lessons []*domain.Lesson     `json:"lessons"`
}

// LessonAccess is the read gate other services go through when acting on a
// lesson for a user.
type LessonAccess interface {
	GetLessonForUser(ctx context.Context, userID, lessonID uuid.UUID) (*domain.Lesson, error)
}

type CourseService struct {
	log         *logger.Logger
	courseRepo  courses.CourseRepo
	moduleRepo  courses.ModuleRepo
	lessonRepo  courses.LessonRepo
	enrollments courses.EnrollmentRepo
}

func NewCourseService(
	log *logger.Logger,
	courseRepo courses.CourseRepo,
	moduleRepo courses.ModuleRepo,
	lessonRepo courses.LessonRepo,
	enrollments courses.EnrollmentRepo,
) *CourseService {
	return &CourseService{
		log:         log.With("service", "CourseService"),
		courseRepo:  courseRepo,
		moduleRepo:  moduleRepo,
		lessonRepo:  lessonRepo,
		enrollments: enrollments,
	}
}

func (s *CourseService) Create(ctx context.Context, ownerUserID uuid.UUID, title, description, language string) (*domain.Course, error) {
	if title == "" {
		return nil, apperr.Permanent("course title is required", nil)
	}
	if language == "" {
		language = "en"
	}
	return s.courseRepo.Create(dbctx.New(ctx), &domain.Course{
		OwnerUserID: ownerUserID,
		Title:       title,
		Description: description,
		Language:    language,
		Status:      CourseStatusDraft,
	})
}

func (s *CourseService) Publish(ctx context.Context, actorUserID, courseID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return err
	}
	if course.OwnerUserID != actorUserID {
		return apperr.NotFound("course not found")
	}
	if course.Status == CourseStatusPublished {
		return nil
	}
	return s.courseRepo.UpdateFields(dbc, courseID, map[string]interface{}{"status": CourseStatusPublished})
}

func (s *CourseService) ListPublished(ctx context.Context) ([]*domain.Course, error) {
	return s.courseRepo.ListPublished(dbctx.New(ctx))
}

func (s *CourseService) ListOwned(ctx context.Context, ownerUserID uuid.UUID) ([]*domain.Course, error) {
	return s.courseRepo.ListByOwner(dbctx.New(ctx), ownerUserID)
}

// Get returns the full course tree. Drafts are visible to their owner only.
func (s *CourseService) Get(ctx context.Context, actorUserID, courseID uuid.UUID) (*CourseDetail, error) {
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != CourseStatusPublished && course.OwnerUserID != actorUserID {
		return nil, apperr.NotFound("course not found")
	}

	modules, err := s.moduleRepo.ListByCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	detail := &CourseDetail{Course: course, Modules: make([]*ModuleDetail, 0, len(modules))}
	for _, m := range modules {
		lessons, err := s.lessonRepo.ListByModule(dbc, m.ID)
		if err != nil {
			return nil, err
		}
		detail.Modules = append(detail.Modules, &ModuleDetail{Module: m, Lessons: lessons})
	}
	return detail, nil
}

func (s *CourseService) AddModule(ctx context.Context, actorUserID, courseID uuid.UUID, index int, title string) (*domain.CourseModule, error) {
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if course.OwnerUserID != actorUserID {
		return nil, apperr.NotFound("course not found")
	}
	return s.moduleRepo.Create(dbc, &domain.CourseModule{CourseID: courseID, Index: index, Title: title})
}

func (s *CourseService) AddLesson(ctx context.Context, actorUserID, courseID, moduleID uuid.UUID, lesson *domain.Lesson) (*domain.Lesson, error) {
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if course.OwnerUserID != actorUserID {
		return nil, apperr.NotFound("course not found")
	}
	lesson.ModuleID = moduleID
	return s.lessonRepo.Create(dbc, lesson)
}

// Enroll is idempotent. Only published courses accept enrollments.
func (s *CourseService) Enroll(ctx context.Context, userID, courseID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return err
	}
	if course.Status != CourseStatusPublished {
		return apperr.Conflict("course is not open for enrollment")
	}
	return s.enrollments.Enroll(dbc, userID, courseID)
}

func (s *CourseService) ListEnrolledCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.enrollments.ListCourseIDs(dbctx.New(ctx), userID)
}

// GetLessonForUser enforces access: the lesson's course owner and enrolled
// learners may read it, everyone else sees not found.
func (s *CourseService) GetLessonForUser(ctx context.Context, userID, lessonID uuid.UUID) (*domain.Lesson, error) {
	dbc := dbctx.New(ctx)
	lesson, err := s.lessonRepo.GetByID(dbc, lessonID)
	if err != nil {
		return nil, err
	}
	module, err := s.moduleRepo.GetByID(dbc, lesson.ModuleID)
	if err != nil {
		return nil, err
	}
	courseID := module.CourseID
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, err
	}
	if course.OwnerUserID == userID {
		return lesson, nil
	}
	enrolled, err := s.enrollments.IsEnrolled(dbc, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, apperr.NotFound("lesson not found")
	}
	return lesson, nil
}
