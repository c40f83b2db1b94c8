package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/data/repos/support"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
)

// SupportService runs learner support threads. New messages fan out over SSE
// so open chat windows update without polling.
type SupportService struct {
	log      *logger.Logger
	threads  support.ThreadRepo
	messages support.MessageRepo
	notifier Notifier
}

func NewSupportService(
	log *logger.Logger,
	threads support.ThreadRepo,
	messages support.MessageRepo,
	notifier Notifier,
) *SupportService {
	return &SupportService{
		log:      log.With("service", "SupportService"),
		threads:  threads,
		messages: messages,
		notifier: notifier,
	}
}

func (s *SupportService) OpenThread(ctx context.Context, userID uuid.UUID, subject, body string) (*domain.SupportThread, error) {
	if subject == "" || body == "" {
		return nil, apperr.Permanent("subject and body are required", nil)
	}
	dbc := dbctx.New(ctx)
	thread, err := s.threads.Create(dbc, &domain.SupportThread{
		UserID:  userID,
		Subject: subject,
		Status:  "open",
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.messages.Create(dbc, &domain.SupportMessage{
		ThreadID:     thread.ID,
		SenderUserID: userID,
		Body:         body,
	}); err != nil {
		return nil, err
	}
	return thread, nil
}

// PostMessage appends to a thread. The thread owner and staff may post;
// anyone else sees the thread as missing.
func (s *SupportService) PostMessage(ctx context.Context, senderID uuid.UUID, senderRole string, threadID uuid.UUID, body string) (*domain.SupportMessage, error) {
	if body == "" {
		return nil, apperr.Permanent("message body is required", nil)
	}
	dbc := dbctx.New(ctx)
	thread, err := s.threads.GetByID(dbc, threadID)
	if err != nil {
		return nil, err
	}
	if thread.UserID != senderID && senderRole != domain.RoleStaff {
		return nil, apperr.NotFound("support thread not found")
	}
	msg, err := s.messages.Create(dbc, &domain.SupportMessage{
		ThreadID:     threadID,
		SenderUserID: senderID,
		Body:         body,
	})
	if err != nil {
		return nil, err
	}

	if thread.UserID != senderID {
		s.notifier.Publish(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(thread.UserID),
			Event:   realtime.SSEEventSupportMessage,
			Data: map[string]interface{}{
				"thread_id":  threadID,
				"message_id": msg.ID,
			},
		})
	}
	return msg, nil
}

func (s *SupportService) ListThreads(ctx context.Context, userID uuid.UUID) ([]*domain.SupportThread, error) {
	return s.threads.ListByUser(dbctx.New(ctx), userID)
}

func (s *SupportService) ListMessages(ctx context.Context, requesterID uuid.UUID, requesterRole string, threadID uuid.UUID) ([]*domain.SupportMessage, error) {
	dbc := dbctx.New(ctx)
	thread, err := s.threads.GetByID(dbc, threadID)
	if err != nil {
		return nil, err
	}
	if thread.UserID != requesterID && requesterRole != domain.RoleStaff {
		return nil, apperr.NotFound("support thread not found")
	}
	return s.messages.ListByThread(dbc, threadID)
}
