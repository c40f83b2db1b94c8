package courses

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type EnrollmentRepo interface {
	// Enroll is idempotent; re-enrolling is a no-op.
	Enroll(dbc dbctx.Context, userID, courseID uuid.UUID) error
	IsEnrolled(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error)
	ListCourseIDs(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *enrollmentRepo) Enroll(dbc dbctx.Context, userID, courseID uuid.UUID) error {
	row := &domain.Enrollment{ID: uuid.New(), UserID: userID, CourseID: courseID}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *enrollmentRepo) IsEnrolled(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error) {
	var count int64
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *enrollmentRepo) ListCourseIDs(dbc dbctx.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Enrollment{}).
		Where("user_id = ?", userID).
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
