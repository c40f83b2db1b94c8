package media

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type RecordingRepo interface {
	// CreateIfAbsent inserts a recording row keyed by the provider recording
	// id; redelivered webhooks collapse into the existing row. Returns the
	// row and whether this call created it.
	CreateIfAbsent(dbc dbctx.Context, rec *domain.Recording) (*domain.Recording, bool, error)
	GetByProviderID(dbc dbctx.Context, providerRecordingID string) (*domain.Recording, error)
	ListByLiveClass(dbc dbctx.Context, liveClassID uuid.UUID) ([]*domain.Recording, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type recordingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordingRepo(db *gorm.DB, baseLog *logger.Logger) RecordingRepo {
	return &recordingRepo{db: db, log: baseLog.With("repo", "RecordingRepo")}
}

func (r *recordingRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *recordingRepo) CreateIfAbsent(dbc dbctx.Context, rec *domain.Recording) (*domain.Recording, bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_recording_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return rec, true, nil
	}
	existing, err := r.GetByProviderID(dbc, rec.ProviderRecordingID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *recordingRepo) GetByProviderID(dbc dbctx.Context, providerRecordingID string) (*domain.Recording, error) {
	var rec domain.Recording
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("provider_recording_id = ?", providerRecordingID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("recording not found")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recordingRepo) ListByLiveClass(dbc dbctx.Context, liveClassID uuid.UUID) ([]*domain.Recording, error) {
	var out []*domain.Recording
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("live_class_id = ?", liveClassID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordingRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&domain.Recording{}).
		Where("id = ?", id).
		Updates(updates).Error
}
