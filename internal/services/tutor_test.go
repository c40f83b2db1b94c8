package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/clients/assistant"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/normalize"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

func newTestTutorService(a assistant.Client, answers *fakeAnswerRepo, jobRepo *fakeJobRepo, hot *fakeHotCache) *TutorService {
	return NewTutorService(logger.NewNop(), a, answers, jobRepo, hot)
}

func TestAskCachedAnswerSkipsProvider(t *testing.T) {
	a := &fakeAssistant{}
	answers := newFakeAnswerRepo()
	svc := newTestTutorService(a, answers, newFakeJobRepo(), newFakeHotCache())

	fp := normalize.Fingerprint("what is a channel", "course-1", "en")
	if _, err := answers.Put(dbctx.New(context.Background()), &domain.TutorAnswer{
		Fingerprint: fp,
		Question:    "what is a channel",
		Answer:      datatypes.JSON(`{"text":"a typed conduit"}`),
	}, false); err != nil {
		t.Fatal(err)
	}

	// Different surface forms of the same question share the fingerprint.
	res, err := svc.Ask(context.Background(), uuid.New(), "  What   is a CHANNEL ", "course-1", "en")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Source != AskSourceCache {
		t.Fatalf("expected cache hit, got %q", res.Source)
	}
	if a.submitCount() != 0 {
		t.Fatalf("provider invoked %d times on a cache hit", a.submitCount())
	}
	row, err := answers.Get(dbctx.New(context.Background()), fp)
	if err != nil {
		t.Fatal(err)
	}
	if row.UsageCount != 1 {
		t.Fatalf("usage count not incremented, got %d", row.UsageCount)
	}
}

func TestAskHotCacheHitSkipsPostgres(t *testing.T) {
	a := &fakeAssistant{}
	hot := newFakeHotCache()
	fp := normalize.Fingerprint("what is a mutex", "", "en")
	hot.Set(context.Background(), fp, []byte(`{"text":"a lock"}`))
	svc := newTestTutorService(a, newFakeAnswerRepo(), newFakeJobRepo(), hot)

	res, err := svc.Ask(context.Background(), uuid.New(), "What is a mutex", "", "en")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Source != AskSourceCache || string(res.Answer) != `{"text":"a lock"}` {
		t.Fatalf("unexpected result: %+v", res)
	}
	if a.submitCount() != 0 {
		t.Fatal("provider invoked despite hot cache hit")
	}
}

func TestAskMissSubmitsOnceAndTracksJob(t *testing.T) {
	a := &fakeAssistant{handle: "h-miss"}
	jobRepo := newFakeJobRepo()
	svc := newTestTutorService(a, newFakeAnswerRepo(), jobRepo, newFakeHotCache())
	userID := uuid.New()

	res, err := svc.Ask(context.Background(), userID, "explain defer ordering", "", "en")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Source != AskSourcePending || res.JobID == uuid.Nil {
		t.Fatalf("expected a pending job, got %+v", res)
	}
	if a.submitCount() != 1 {
		t.Fatalf("expected one submission, got %d", a.submitCount())
	}
	job, err := jobRepo.GetByID(dbctx.New(context.Background()), res.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.OwnerUserID != userID || job.JobType != domain.JobTypeTutorAnswer {
		t.Fatalf("job row wrong: %+v", job)
	}
	if job.ExternalHandle != "h-miss" {
		t.Fatalf("handle not persisted: %q", job.ExternalHandle)
	}
}

func TestAskConcurrentFirstAskersShareOneSubmission(t *testing.T) {
	gate := make(chan struct{})
	a := &fakeAssistant{gate: gate}
	svc := newTestTutorService(a, newFakeAnswerRepo(), newFakeJobRepo(), newFakeHotCache())
	userID := uuid.New()

	const askers = 5
	var wg sync.WaitGroup
	results := make([]*AskResult, askers)
	errs := make([]error, askers)
	for i := 0; i < askers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Ask(context.Background(), userID, "same question", "scope", "en")
		}(i)
	}
	// Let every asker reach the in-flight submission before releasing it.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < askers; i++ {
		if errs[i] != nil {
			t.Fatalf("asker %d: %v", i, errs[i])
		}
		if results[i].JobID != results[0].JobID {
			t.Fatalf("askers got different jobs: %v vs %v", results[i].JobID, results[0].JobID)
		}
	}
	if a.submitCount() != 1 {
		t.Fatalf("expected one provider submission for concurrent askers, got %d", a.submitCount())
	}
}

func TestAskDifferentUsersGetTheirOwnJobs(t *testing.T) {
	a := &fakeAssistant{}
	jobRepo := newFakeJobRepo()
	svc := newTestTutorService(a, newFakeAnswerRepo(), jobRepo, newFakeHotCache())
	alice, bob := uuid.New(), uuid.New()

	resA, err := svc.Ask(context.Background(), alice, "same question", "scope", "en")
	if err != nil {
		t.Fatalf("Ask (first user): %v", err)
	}
	resB, err := svc.Ask(context.Background(), bob, "same question", "scope", "en")
	if err != nil {
		t.Fatalf("Ask (second user): %v", err)
	}
	if resA.JobID == resB.JobID {
		t.Fatal("users share a job id one of them cannot read")
	}
	if a.submitCount() != 2 {
		t.Fatalf("expected one submission per user, got %d", a.submitCount())
	}
	// Each asker owns its job, so polling it succeeds.
	for user, jobID := range map[uuid.UUID]uuid.UUID{alice: resA.JobID, bob: resB.JobID} {
		job, err := jobRepo.GetByID(dbctx.New(context.Background()), jobID)
		if err != nil {
			t.Fatal(err)
		}
		if job.OwnerUserID != user {
			t.Fatalf("job %v owned by %v, want %v", jobID, job.OwnerUserID, user)
		}
	}
}

func TestAskCacheStoreErrorDegradesToMiss(t *testing.T) {
	a := &fakeAssistant{handle: "h-degraded"}
	jobRepo := newFakeJobRepo()
	answers := &erroringAnswerRepo{fakeAnswerRepo: newFakeAnswerRepo()}
	svc := NewTutorService(logger.NewNop(), a, answers, jobRepo, newFakeHotCache())

	// A broken durable cache must not fail the ask; it reads as a miss.
	res, err := svc.Ask(context.Background(), uuid.New(), "what is a goroutine", "", "en")
	if err != nil {
		t.Fatalf("Ask failed on a cache store error: %v", err)
	}
	if res.Source != AskSourcePending || res.JobID == uuid.Nil {
		t.Fatalf("expected a pending job, got %+v", res)
	}
	if a.submitCount() != 1 {
		t.Fatalf("expected one provider submission, got %d", a.submitCount())
	}
}

func TestAskSubmitFailureFailsJob(t *testing.T) {
	a := &fakeAssistant{}
	jobRepo := newFakeJobRepo()
	svc := newTestTutorService(&failingAssistant{fakeAssistant: a}, newFakeAnswerRepo(), jobRepo, newFakeHotCache())

	_, err := svc.Ask(context.Background(), uuid.New(), "doomed question", "", "en")
	if err == nil {
		t.Fatal("expected submit error")
	}
	// The job row exists and is failed, not stuck pending.
	var found bool
	jobRepo.mu.Lock()
	for _, row := range jobRepo.rows {
		found = true
		if row.Status != domain.JobStatusFailed {
			jobRepo.mu.Unlock()
			t.Fatalf("job left in status %q after submit failure", row.Status)
		}
	}
	jobRepo.mu.Unlock()
	if !found {
		t.Fatal("no job row created")
	}
}
