package courses

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type ModuleRepo interface {
	Create(dbc dbctx.Context, module *domain.CourseModule) (*domain.CourseModule, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CourseModule, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.CourseModule, error)
}

type LessonRepo interface {
	Create(dbc dbctx.Context, lesson *domain.Lesson) (*domain.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Lesson, error)
	ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*domain.Lesson, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *moduleRepo) Create(dbc dbctx.Context, module *domain.CourseModule) (*domain.CourseModule, error) {
	if module.ID == uuid.Nil {
		module.ID = uuid.New()
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(module).Error; err != nil {
		return nil, err
	}
	return module, nil
}

func (r *moduleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CourseModule, error) {
	var module domain.CourseModule
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&module).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("course module not found")
	}
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *moduleRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.CourseModule, error) {
	var out []*domain.CourseModule
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order(`"index" ASC`).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *lessonRepo) Create(dbc dbctx.Context, lesson *domain.Lesson) (*domain.Lesson, error) {
	if lesson.ID == uuid.Nil {
		lesson.ID = uuid.New()
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(lesson).Error; err != nil {
		return nil, err
	}
	return lesson, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Lesson, error) {
	var lesson domain.Lesson
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("lesson not found")
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Lesson{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *lessonRepo) ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*domain.Lesson, error) {
	var out []*domain.Lesson
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("module_id = ?", moduleID).
		Order(`"index" ASC`).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
