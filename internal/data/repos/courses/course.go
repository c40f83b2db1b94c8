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

type CourseRepo interface {
	Create(dbc dbctx.Context, course *domain.Course) (*domain.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Course, error)
	ListPublished(dbc dbctx.Context) ([]*domain.Course, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.Course, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *courseRepo) Create(dbc dbctx.Context, course *domain.Course) (*domain.Course, error) {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("course not found")
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) ListPublished(dbc dbctx.Context) ([]*domain.Course, error) {
	var out []*domain.Course
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("status = ?", "published").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*domain.Course, error) {
	var out []*domain.Course
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Course{}).
		Where("id = ?", id).
		Updates(updates).Error
}
