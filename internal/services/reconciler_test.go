package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
)

func newTestReconciler(jobRepo *fakeJobRepo, answers *fakeAnswerRepo, hot *fakeHotCache, notifier *captureNotifier) *Reconciler {
	return NewReconciler(logger.NewNop(), jobRepo, answers, hot, nil, nil, notifier)
}

func seedTutorJob(t *testing.T, jobRepo *fakeJobRepo, handle string) *domain.JobRecord {
	t.Helper()
	payload, err := json.Marshal(tutorJobPayload{
		Fingerprint: "fp-recon",
		ScopeID:     "course-1",
		Language:    "en",
		Question:    "what is a goroutine",
	})
	if err != nil {
		t.Fatal(err)
	}
	job, err := jobRepo.Create(dbctx.New(context.Background()), &domain.JobRecord{
		OwnerUserID: uuid.New(),
		JobType:     domain.JobTypeTutorAnswer,
		Payload:     datatypes.JSON(payload),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := jobRepo.SetExternalHandle(dbctx.New(context.Background()), job.ID, handle); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestApplyCompletedStoresTutorAnswer(t *testing.T) {
	jobRepo := newFakeJobRepo()
	answers := newFakeAnswerRepo()
	hot := newFakeHotCache()
	notifier := &captureNotifier{}
	rc := newTestReconciler(jobRepo, answers, hot, notifier)
	job := seedTutorJob(t, jobRepo, "h-1")

	answer := json.RawMessage(`{"text":"a goroutine is a lightweight thread"}`)
	err := rc.Apply(context.Background(), StatusEvent{
		Source: EventSourceWebhook,
		Handle: "h-1",
		Status: "completed",
		Result: answer,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := jobRepo.GetByID(dbctx.New(context.Background()), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.JobStatusCompleted || got.Progress != 100 {
		t.Fatalf("job not completed: status=%s progress=%d", got.Status, got.Progress)
	}
	row, err := answers.Get(dbctx.New(context.Background()), "fp-recon")
	if err != nil {
		t.Fatalf("answer not cached: %v", err)
	}
	if string(row.Answer) != string(answer) {
		t.Fatalf("cached answer mismatch: %s", row.Answer)
	}
	if _, ok := hot.Get(context.Background(), "fp-recon"); !ok {
		t.Fatal("hot cache not primed")
	}
	evs := notifier.events()
	if len(evs) != 1 || evs[0] != realtime.SSEEventJobCompleted {
		t.Fatalf("unexpected notifications: %v", evs)
	}
}

func TestApplyDuplicateCompletionIsNoOp(t *testing.T) {
	jobRepo := newFakeJobRepo()
	answers := newFakeAnswerRepo()
	notifier := &captureNotifier{}
	rc := newTestReconciler(jobRepo, answers, newFakeHotCache(), notifier)
	seedTutorJob(t, jobRepo, "h-dup")

	ev := StatusEvent{
		Source: EventSourceWebhook,
		Handle: "h-dup",
		Status: "completed",
		Result: json.RawMessage(`{"text":"answer"}`),
	}
	if err := rc.Apply(context.Background(), ev); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := rc.Apply(context.Background(), ev); err != nil {
		t.Fatalf("duplicate Apply: %v", err)
	}
	if answers.puts != 1 {
		t.Fatalf("expected exactly one cache write, got %d", answers.puts)
	}
	if got := len(notifier.events()); got != 1 {
		t.Fatalf("duplicate delivery produced %d notifications", got)
	}
}

func TestApplyConflictingTerminalIsLoggedNotApplied(t *testing.T) {
	jobRepo := newFakeJobRepo()
	rc := newTestReconciler(jobRepo, newFakeAnswerRepo(), newFakeHotCache(), &captureNotifier{})
	job := seedTutorJob(t, jobRepo, "h-conf")

	if err := rc.Apply(context.Background(), StatusEvent{
		Handle: "h-conf", Status: "completed", Result: json.RawMessage(`{"text":"x"}`),
	}); err != nil {
		t.Fatal(err)
	}
	// A late failure report for a completed job must not flip the row and
	// must not surface as an error.
	if err := rc.Apply(context.Background(), StatusEvent{
		Handle: "h-conf", Status: "failed", Error: "provider hiccup",
	}); err != nil {
		t.Fatalf("conflicting report should be swallowed, got %v", err)
	}
	got, err := jobRepo.GetByID(dbctx.New(context.Background()), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.JobStatusCompleted || got.Error != "" {
		t.Fatalf("row mutated by conflicting report: status=%s error=%q", got.Status, got.Error)
	}
}

func TestApplyProgressIsMonotone(t *testing.T) {
	jobRepo := newFakeJobRepo()
	notifier := &captureNotifier{}
	rc := newTestReconciler(jobRepo, newFakeAnswerRepo(), newFakeHotCache(), notifier)
	job := seedTutorJob(t, jobRepo, "h-prog")

	if err := rc.Apply(context.Background(), StatusEvent{Handle: "h-prog", Status: "running", Progress: 60, Stage: "thinking"}); err != nil {
		t.Fatal(err)
	}
	// An out-of-order earlier report must not move progress backward.
	if err := rc.Apply(context.Background(), StatusEvent{Handle: "h-prog", Status: "running", Progress: 30}); err != nil {
		t.Fatal(err)
	}
	got, err := jobRepo.GetByID(dbctx.New(context.Background()), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 60 {
		t.Fatalf("progress regressed to %d", got.Progress)
	}
	if got := len(notifier.events()); got != 1 {
		t.Fatalf("stale progress produced a notification, total %d", got)
	}
}

func TestApplyRedeliveredProgressNotifiesOnce(t *testing.T) {
	jobRepo := newFakeJobRepo()
	notifier := &captureNotifier{}
	rc := newTestReconciler(jobRepo, newFakeAnswerRepo(), newFakeHotCache(), notifier)
	seedTutorJob(t, jobRepo, "h-redeliver")

	ev := StatusEvent{Handle: "h-redeliver", Status: "running", Progress: 45, Stage: "thinking"}
	if err := rc.Apply(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	// The provider redelivers the identical webhook.
	if err := rc.Apply(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if got := len(notifier.events()); got != 1 {
		t.Fatalf("redelivered progress produced %d notifications, want 1", got)
	}
}

func TestApplyUnknownHandleIsNotFound(t *testing.T) {
	rc := newTestReconciler(newFakeJobRepo(), newFakeAnswerRepo(), newFakeHotCache(), &captureNotifier{})
	err := rc.Apply(context.Background(), StatusEvent{Handle: "never-seen", Status: "completed"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
