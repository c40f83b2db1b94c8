package tutor

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

// AnswerCacheRepo is the durable answer cache: one row per question
// fingerprint, written on the first successful answer and re-read after.
type AnswerCacheRepo interface {
	Get(dbc dbctx.Context, fingerprint string) (*domain.TutorAnswer, error)
	// Put inserts the row. With overwrite it is last-writer-wins on the
	// fingerprint; without, an existing row yields apperr.ErrConflict.
	Put(dbc dbctx.Context, row *domain.TutorAnswer, overwrite bool) (*domain.TutorAnswer, error)
	// IncrementUsage never errors to the caller; a missing row is logged.
	IncrementUsage(dbc dbctx.Context, fingerprint string)
}

type answerCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerCacheRepo(db *gorm.DB, baseLog *logger.Logger) AnswerCacheRepo {
	return &answerCacheRepo{
		db:  db,
		log: baseLog.With("repo", "AnswerCacheRepo"),
	}
}

func (r *answerCacheRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *answerCacheRepo) Get(dbc dbctx.Context, fingerprint string) (*domain.TutorAnswer, error) {
	var row domain.TutorAnswer
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("fingerprint = ?", fingerprint).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("answer cache entry not found")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *answerCacheRepo) Put(dbc dbctx.Context, row *domain.TutorAnswer, overwrite bool) (*domain.TutorAnswer, error) {
	tx := r.handle(dbc).WithContext(dbc.Ctx)
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}
	if overwrite {
		// Payloads for the same fingerprint are semantically equivalent, so
		// last writer wins.
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "fingerprint"}},
			DoUpdates: clause.AssignmentColumns([]string{"question", "answer", "updated_at"}),
		}
	}
	res := tx.Clauses(conflict).Create(row)
	if res.Error != nil {
		return nil, res.Error
	}
	if !overwrite && res.RowsAffected == 0 {
		return nil, apperr.Conflict("answer cache entry already exists")
	}
	return row, nil
}

func (r *answerCacheRepo) IncrementUsage(dbc dbctx.Context, fingerprint string) {
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.TutorAnswer{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		r.log.Warn("usage increment failed", "fingerprint", fingerprint, "error", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent writer or the row never landed.
		// Not fatal; usage counts are advisory.
		r.log.Warn("usage increment on absent fingerprint", "fingerprint", fingerprint)
	}
}
