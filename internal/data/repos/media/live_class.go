package media

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

type LiveClassRepo interface {
	Create(dbc dbctx.Context, lc *domain.LiveClass) (*domain.LiveClass, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.LiveClass, error)
	GetByProviderMeetingID(dbc dbctx.Context, providerMeetingID string) (*domain.LiveClass, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.LiveClass, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type liveClassRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLiveClassRepo(db *gorm.DB, baseLog *logger.Logger) LiveClassRepo {
	return &liveClassRepo{db: db, log: baseLog.With("repo", "LiveClassRepo")}
}

func (r *liveClassRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *liveClassRepo) Create(dbc dbctx.Context, lc *domain.LiveClass) (*domain.LiveClass, error) {
	if lc.ID == uuid.Nil {
		lc.ID = uuid.New()
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(lc).Error; err != nil {
		return nil, err
	}
	return lc, nil
}

func (r *liveClassRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.LiveClass, error) {
	var lc domain.LiveClass
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&lc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("live class not found")
	}
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

func (r *liveClassRepo) GetByProviderMeetingID(dbc dbctx.Context, providerMeetingID string) (*domain.LiveClass, error) {
	if providerMeetingID == "" {
		return nil, apperr.NotFound("live class not found")
	}
	var lc domain.LiveClass
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("provider_meeting_id = ?", providerMeetingID).
		First(&lc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("live class not found")
	}
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

func (r *liveClassRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.LiveClass, error) {
	var out []*domain.LiveClass
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("starts_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *liveClassRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&domain.LiveClass{}).
		Where("id = ?", id).
		Updates(updates).Error
}
