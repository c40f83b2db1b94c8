package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

// JobRecordRepo owns job_record rows. All transitions are guarded single-row
// updates so duplicate and out-of-order deliveries collapse into no-ops.
type JobRecordRepo interface {
	Create(dbc dbctx.Context, job *domain.JobRecord) (*domain.JobRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobRecord, error)
	GetByExternalHandle(dbc dbctx.Context, handle string) (*domain.JobRecord, error)
	SetExternalHandle(dbc dbctx.Context, id uuid.UUID, handle string) error
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*domain.JobRecord, error)

	// UpdateProgress moves a non-terminal row forward. Progress never
	// decreases; a terminal or stale update, and an exact redelivery of the
	// current progress and stage, report applied=false, not an error. An
	// unknown id is apperr.ErrNotFound.
	UpdateProgress(dbc dbctx.Context, id uuid.UUID, percent int, stage string) (bool, error)
	// Complete / Fail set the terminal state. Repeating the same terminal
	// state is a no-op (false, nil); a *different* terminal state after one
	// is set returns apperr.ErrConflict for the caller to log.
	Complete(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) (bool, error)
	Fail(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error)
}

type jobRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRecordRepo(db *gorm.DB, baseLog *logger.Logger) JobRecordRepo {
	return &jobRecordRepo{
		db:  db,
		log: baseLog.With("repo", "JobRecordRepo"),
	}
}

func (r *jobRecordRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *jobRecordRepo) Create(dbc dbctx.Context, job *domain.JobRecord) (*domain.JobRecord, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.Stage == "" {
		job.Stage = job.Status
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRecordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobRecord, error) {
	var job domain.JobRecord
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job record not found")
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRecordRepo) GetByExternalHandle(dbc dbctx.Context, handle string) (*domain.JobRecord, error) {
	if handle == "" {
		return nil, apperr.NotFound("job record not found")
	}
	var job domain.JobRecord
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("external_handle = ?", handle).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job record not found")
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRecordRepo) SetExternalHandle(dbc dbctx.Context, id uuid.UUID, handle string) error {
	return r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.JobRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"external_handle": handle,
			"updated_at":      time.Now(),
		}).Error
}

func (r *jobRecordRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID, limit int) ([]*domain.JobRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*domain.JobRecord
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRecordRepo) UpdateProgress(dbc dbctx.Context, id uuid.UUID, percent int, stage string) (bool, error) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	updates := map[string]interface{}{
		"status":     domain.JobStatusRunning,
		"progress":   percent,
		"updated_at": time.Now(),
	}
	if stage != "" {
		updates["stage"] = stage
	}
	q := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.JobRecord{}).
		Where("id = ? AND status NOT IN ?", id, domain.TerminalStatuses())
	// Only apply when the event carries new information, so redelivered
	// webhooks do not fan out duplicate progress notifications. A pending row
	// still flips to running at the same percent.
	if stage != "" {
		q = q.Where("progress < ? OR status <> ? OR stage <> ?", percent, domain.JobStatusRunning, stage)
	} else {
		q = q.Where("progress < ? OR status <> ?", percent, domain.JobStatusRunning)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// Distinguish "gone" from "terminal or stale" for the caller.
	job, err := r.GetByID(dbc, id)
	if err != nil {
		return false, err
	}
	r.log.Debug("progress update skipped", "job_id", id, "status", job.Status, "progress", job.Progress, "incoming", percent)
	return false, nil
}

func (r *jobRecordRepo) Complete(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) (bool, error) {
	updates := map[string]interface{}{
		"status":     domain.JobStatusCompleted,
		"stage":      domain.JobStatusCompleted,
		"progress":   100,
		"updated_at": time.Now(),
	}
	if result != nil {
		updates["result"] = result
	}
	return r.terminal(dbc, id, domain.JobStatusCompleted, updates)
}

func (r *jobRecordRepo) Fail(dbc dbctx.Context, id uuid.UUID, errMsg string) (bool, error) {
	updates := map[string]interface{}{
		"status":     domain.JobStatusFailed,
		"stage":      domain.JobStatusFailed,
		"error":      errMsg,
		"updated_at": time.Now(),
	}
	return r.terminal(dbc, id, domain.JobStatusFailed, updates)
}

func (r *jobRecordRepo) terminal(dbc dbctx.Context, id uuid.UUID, target string, updates map[string]interface{}) (bool, error) {
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.JobRecord{}).
		Where("id = ? AND status NOT IN ?", id, domain.TerminalStatuses()).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	job, err := r.GetByID(dbc, id)
	if err != nil {
		return false, err
	}
	if job.Status == target {
		// Duplicate delivery of the same terminal event.
		return false, nil
	}
	return false, apperr.Conflict("job already " + job.Status + ", refusing " + target)
}
