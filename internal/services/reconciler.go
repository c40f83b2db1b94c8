package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/clients/redis"
	"github.com/studyline/studyline-backend/internal/data/repos/courses"
	"github.com/studyline/studyline-backend/internal/data/repos/jobs"
	"github.com/studyline/studyline-backend/internal/data/repos/media"
	"github.com/studyline/studyline-backend/internal/data/repos/tutor"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
)

const (
	EventSourceWebhook = "webhook"
	EventSourcePoll    = "poll"
)

// StatusEvent is one provider-side observation of a job, regardless of
// whether it arrived by webhook push or status poll. Either JobID or Handle
// identifies the job.
type StatusEvent struct {
	Source   string
	JobID    uuid.UUID
	Handle   string
	Status   string
	Progress int
	Stage    string
	Result   json.RawMessage
	Error    string
}

// Payloads stored on job_record rows at submission time, read back when the
// terminal event arrives.
type tutorJobPayload struct {
	Fingerprint string `json:"fingerprint"`
	ScopeID     string `json:"scope_id"`
	Language    string `json:"language"`
	Question    string `json:"question"`
}

type recordingJobPayload struct {
	RecordingID uuid.UUID `json:"recording_id"`
}

type narrationJobPayload struct {
	LessonID uuid.UUID `json:"lesson_id"`
	Voice    string    `json:"voice,omitempty"`
}

// Reconciler folds webhook and poll observations into job_record rows through
// one code path, so both delivery mechanisms share the same transition rules:
// progress is monotone, terminal states are sticky, duplicates are no-ops,
// and a conflicting terminal report is logged but never applied.
type Reconciler struct {
	log        *logger.Logger
	jobRepo    jobs.JobRecordRepo
	answerRepo tutor.AnswerCacheRepo
	hotCache   redis.AnswerHotCache
	recordings media.RecordingRepo
	lessons    courses.LessonRepo
	notifier   Notifier
}

func NewReconciler(
	log *logger.Logger,
	jobRepo jobs.JobRecordRepo,
	answerRepo tutor.AnswerCacheRepo,
	hotCache redis.AnswerHotCache,
	recordings media.RecordingRepo,
	lessons courses.LessonRepo,
	notifier Notifier,
) *Reconciler {
	return &Reconciler{
		log:        log.With("service", "Reconciler"),
		jobRepo:    jobRepo,
		answerRepo: answerRepo,
		hotCache:   hotCache,
		recordings: recordings,
		lessons:    lessons,
		notifier:   notifier,
	}
}

// Apply folds one observation into the job record. An unknown job is
// apperr.ErrNotFound; the webhook handler acknowledges those anyway so the
// provider stops redelivering.
func (rc *Reconciler) Apply(ctx context.Context, ev StatusEvent) error {
	dbc := dbctx.New(ctx)

	job, err := rc.resolve(dbc, ev)
	if err != nil {
		return err
	}

	switch canonicalStatus(ev.Status) {
	case domain.JobStatusCompleted:
		return rc.applyCompleted(ctx, dbc, job, ev)
	case domain.JobStatusFailed:
		return rc.applyFailed(ctx, dbc, job, ev)
	default:
		return rc.applyProgress(ctx, dbc, job, ev)
	}
}

func (rc *Reconciler) resolve(dbc dbctx.Context, ev StatusEvent) (*domain.JobRecord, error) {
	if ev.JobID != uuid.Nil {
		return rc.jobRepo.GetByID(dbc, ev.JobID)
	}
	return rc.jobRepo.GetByExternalHandle(dbc, ev.Handle)
}

// canonicalStatus maps the provider status vocabulary onto ours. Anything
// unrecognized is treated as still running rather than rejected; providers
// add intermediate states without notice.
func canonicalStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "succeeded", "success", "done":
		return domain.JobStatusCompleted
	case "failed", "error", "canceled", "cancelled", "timeout":
		return domain.JobStatusFailed
	default:
		return domain.JobStatusRunning
	}
}

func (rc *Reconciler) applyProgress(ctx context.Context, dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) error {
	applied, err := rc.jobRepo.UpdateProgress(dbc, job.ID, ev.Progress, ev.Stage)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	rc.notifier.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(job.OwnerUserID),
		Event:   realtime.SSEEventJobProgress,
		Data: map[string]interface{}{
			"job_id":   job.ID,
			"job_type": job.JobType,
			"progress": ev.Progress,
			"stage":    ev.Stage,
		},
	})
	return nil
}

func (rc *Reconciler) applyCompleted(ctx context.Context, dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) error {
	var result datatypes.JSON
	if len(ev.Result) > 0 {
		result = datatypes.JSON(ev.Result)
	}
	applied, err := rc.jobRepo.Complete(dbc, job.ID, result)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			rc.log.Error("conflicting terminal report ignored",
				"job_id", job.ID, "job_type", job.JobType, "source", ev.Source, "error", err)
			return nil
		}
		return err
	}
	if !applied {
		// Duplicate delivery of an already-applied completion.
		return nil
	}

	rc.runCompletionHook(ctx, dbc, job, ev)

	rc.notifier.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(job.OwnerUserID),
		Event:   realtime.SSEEventJobCompleted,
		Data: map[string]interface{}{
			"job_id":   job.ID,
			"job_type": job.JobType,
		},
	})
	return nil
}

func (rc *Reconciler) applyFailed(ctx context.Context, dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) error {
	msg := ev.Error
	if msg == "" {
		msg = "provider reported failure"
	}
	applied, err := rc.jobRepo.Fail(dbc, job.ID, msg)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			rc.log.Error("conflicting terminal report ignored",
				"job_id", job.ID, "job_type", job.JobType, "source", ev.Source, "error", err)
			return nil
		}
		return err
	}
	if !applied {
		return nil
	}
	rc.notifier.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(job.OwnerUserID),
		Event:   realtime.SSEEventJobFailed,
		Data: map[string]interface{}{
			"job_id":   job.ID,
			"job_type": job.JobType,
			"error":    msg,
		},
	})
	return nil
}

// runCompletionHook materializes side effects of a completed job. The job row
// is already terminal; hook failures are logged, the result stays readable on
// the job record either way.
func (rc *Reconciler) runCompletionHook(ctx context.Context, dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) {
	switch job.JobType {
	case domain.JobTypeTutorAnswer:
		rc.storeTutorAnswer(ctx, dbc, job, ev)
	case domain.JobTypeRecordingTransfer:
		rc.markRecordingReady(ctx, dbc, job, ev)
	case domain.JobTypeNarration:
		rc.attachNarration(dbc, job, ev)
	default:
		rc.log.Warn("completed job of unknown type", "job_id", job.ID, "job_type", job.JobType)
	}
}

func (rc *Reconciler) storeTutorAnswer(ctx context.Context, dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) {
	var payload tutorJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.Fingerprint == "" {
		rc.log.Error("tutor job payload unreadable, answer not cached", "job_id", job.ID, "error", err)
		return
	}
	if len(ev.Result) == 0 {
		rc.log.Warn("tutor job completed without an answer body", "job_id", job.ID)
		return
	}

	// Concurrent completions for one fingerprint produce equivalent answers,
	// so the durable write is last-writer-wins.
	row := &domain.TutorAnswer{
		Fingerprint: payload.Fingerprint,
		ScopeID:     payload.ScopeID,
		Language:    payload.Language,
		Question:    payload.Question,
		Answer:      datatypes.JSON(ev.Result),
	}
	if _, err := rc.answerRepo.Put(dbc, row, true); err != nil {
		rc.log.Error("durable answer cache write failed", "job_id", job.ID, "fingerprint", payload.Fingerprint, "error", err)
		return
	}
	if rc.hotCache != nil {
		rc.hotCache.Set(ctx, payload.Fingerprint, ev.Result)
	}
}

func (rc *Reconciler) markRecordingReady(ctx context.Context, dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) {
	var payload recordingJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.RecordingID == uuid.Nil {
		rc.log.Error("recording job payload unreadable", "job_id", job.ID, "error", err)
		return
	}
	updates := map[string]interface{}{"status": RecordingStatusReady}
	var result struct {
		DurationSeconds int `json:"duration_seconds"`
	}
	if len(ev.Result) > 0 && json.Unmarshal(ev.Result, &result) == nil && result.DurationSeconds > 0 {
		updates["duration_seconds"] = result.DurationSeconds
	}
	if err := rc.recordings.UpdateFields(dbc, payload.RecordingID, updates); err != nil {
		rc.log.Error("recording status update failed", "job_id", job.ID, "recording_id", payload.RecordingID, "error", err)
		return
	}
	rc.notifier.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(job.OwnerUserID),
		Event:   realtime.SSEEventRecordingReady,
		Data:    map[string]interface{}{"recording_id": payload.RecordingID},
	})
}

func (rc *Reconciler) attachNarration(dbc dbctx.Context, job *domain.JobRecord, ev StatusEvent) {
	var payload narrationJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.LessonID == uuid.Nil {
		rc.log.Error("narration job payload unreadable", "job_id", job.ID, "error", err)
		return
	}
	var result struct {
		StorageKey string `json:"storage_key"`
	}
	if len(ev.Result) == 0 || json.Unmarshal(ev.Result, &result) != nil || result.StorageKey == "" {
		rc.log.Warn("narration completed without a storage key", "job_id", job.ID)
		return
	}
	if err := rc.lessons.UpdateFields(dbc, payload.LessonID, map[string]interface{}{"media_key": result.StorageKey}); err != nil {
		rc.log.Error("lesson narration attach failed", "job_id", job.ID, "lesson_id", payload.LessonID, "error", err)
	}
}
