package support

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type ThreadRepo interface {
	Create(dbc dbctx.Context, thread *domain.SupportThread) (*domain.SupportThread, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SupportThread, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.SupportThread, error)
}

type MessageRepo interface {
	Create(dbc dbctx.Context, msg *domain.SupportMessage) (*domain.SupportMessage, error)
	ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*domain.SupportMessage, error)
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: baseLog.With("repo", "SupportThreadRepo")}
}

func (r *threadRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *threadRepo) Create(dbc dbctx.Context, thread *domain.SupportThread) (*domain.SupportThread, error) {
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	if thread.Status == "" {
		thread.Status = "open"
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

func (r *threadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SupportThread, error) {
	var thread domain.SupportThread
	err := r.handle(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("support thread not found")
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*domain.SupportThread, error) {
	var out []*domain.SupportThread
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "SupportMessageRepo")}
}

func (r *messageRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *messageRepo) Create(dbc dbctx.Context, msg *domain.SupportMessage) (*domain.SupportMessage, error) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID) ([]*domain.SupportMessage, error) {
	var out []*domain.SupportMessage
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
