package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type DownloadGrantRepo interface {
	Create(dbc dbctx.Context, grant *domain.DownloadGrant) (*domain.DownloadGrant, error)
	// CountActive counts unexpired grants, the number the quota is checked
	// against.
	CountActive(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.DownloadGrant, error)
}

type downloadGrantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDownloadGrantRepo(db *gorm.DB, baseLog *logger.Logger) DownloadGrantRepo {
	return &downloadGrantRepo{db: db, log: baseLog.With("repo", "DownloadGrantRepo")}
}

func (r *downloadGrantRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *downloadGrantRepo) Create(dbc dbctx.Context, grant *domain.DownloadGrant) (*domain.DownloadGrant, error) {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(grant).Error; err != nil {
		return nil, err
	}
	return grant, nil
}

func (r *downloadGrantRepo) CountActive(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.DownloadGrant{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *downloadGrantRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.DownloadGrant, error) {
	var out []*domain.DownloadGrant
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
