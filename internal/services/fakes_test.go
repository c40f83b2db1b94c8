package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyline/studyline-backend/internal/clients/assistant"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/realtime"
)

// In-memory stand-ins that keep the same transition semantics as the postgres
// repos, so service tests exercise real state machines without a database.

type fakeJobRepo struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*domain.JobRecord
	byHandle map[string]uuid.UUID
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		rows:     make(map[uuid.UUID]*domain.JobRecord),
		byHandle: make(map[string]uuid.UUID),
	}
}

func (f *fakeJobRepo) Create(_ dbctx.Context, job *domain.JobRecord) (*domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	cp := *job
	f.rows[job.ID] = &cp
	return job, nil
}

func (f *fakeJobRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("job record not found")
	}
	cp := *row
	return &cp, nil
}

func (f *fakeJobRepo) GetByExternalHandle(_ dbctx.Context, handle string) (*domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byHandle[handle]
	if !ok {
		return nil, apperr.NotFound("job record not found")
	}
	cp := *f.rows[id]
	return &cp, nil
}

func (f *fakeJobRepo) SetExternalHandle(_ dbctx.Context, id uuid.UUID, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("job record not found")
	}
	row.ExternalHandle = handle
	f.byHandle[handle] = id
	return nil
}

func (f *fakeJobRepo) ListByOwner(_ dbctx.Context, ownerUserID uuid.UUID, _ int) ([]*domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.JobRecord
	for _, row := range f.rows {
		if row.OwnerUserID == ownerUserID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) UpdateProgress(_ dbctx.Context, id uuid.UUID, percent int, stage string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return false, apperr.NotFound("job record not found")
	}
	if row.Status == domain.JobStatusCompleted || row.Status == domain.JobStatusFailed {
		return false, nil
	}
	if percent < row.Progress {
		return false, nil
	}
	// Exact redelivery of the current progress and stage is a no-op.
	if percent == row.Progress && row.Status == domain.JobStatusRunning && (stage == "" || stage == row.Stage) {
		return false, nil
	}
	row.Status = domain.JobStatusRunning
	row.Progress = percent
	if stage != "" {
		row.Stage = stage
	}
	return true, nil
}

func (f *fakeJobRepo) Complete(_ dbctx.Context, id uuid.UUID, result datatypes.JSON) (bool, error) {
	return f.terminal(id, domain.JobStatusCompleted, result, "")
}

func (f *fakeJobRepo) Fail(_ dbctx.Context, id uuid.UUID, errMsg string) (bool, error) {
	return f.terminal(id, domain.JobStatusFailed, nil, errMsg)
}

func (f *fakeJobRepo) terminal(id uuid.UUID, target string, result datatypes.JSON, errMsg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return false, apperr.NotFound("job record not found")
	}
	if row.Status == domain.JobStatusCompleted || row.Status == domain.JobStatusFailed {
		if row.Status == target {
			return false, nil
		}
		return false, apperr.Conflict("job already " + row.Status)
	}
	row.Status = target
	row.Stage = target
	if target == domain.JobStatusCompleted {
		row.Progress = 100
		if result != nil {
			row.Result = result
		}
	} else {
		row.Error = errMsg
	}
	return true, nil
}

type fakeAnswerRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.TutorAnswer
	puts int
}

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{rows: make(map[string]*domain.TutorAnswer)}
}

func (f *fakeAnswerRepo) Get(_ dbctx.Context, fingerprint string) (*domain.TutorAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[fingerprint]
	if !ok {
		return nil, apperr.NotFound("answer cache entry not found")
	}
	cp := *row
	return &cp, nil
}

func (f *fakeAnswerRepo) Put(_ dbctx.Context, row *domain.TutorAnswer, overwrite bool) (*domain.TutorAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[row.Fingerprint]; ok && !overwrite {
		return nil, apperr.Conflict("answer cache entry already exists")
	}
	f.puts++
	cp := *row
	f.rows[row.Fingerprint] = &cp
	return row, nil
}

func (f *fakeAnswerRepo) IncrementUsage(_ dbctx.Context, fingerprint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[fingerprint]; ok {
		row.UsageCount++
	}
}

// erroringAnswerRepo simulates a durable cache store whose reads fail
// outright, e.g. a lost database connection.
type erroringAnswerRepo struct {
	*fakeAnswerRepo
}

func (f *erroringAnswerRepo) Get(dbctx.Context, string) (*domain.TutorAnswer, error) {
	return nil, apperr.Transient("answer cache store unavailable", nil)
}

type fakeHotCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeHotCache() *fakeHotCache { return &fakeHotCache{data: make(map[string][]byte)} }

func (f *fakeHotCache) Get(_ context.Context, fingerprint string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[fingerprint]
	return raw, ok
}

func (f *fakeHotCache) Set(_ context.Context, fingerprint string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[fingerprint] = payload
}

func (f *fakeHotCache) Close() error { return nil }

type fakeAssistant struct {
	mu      sync.Mutex
	submits int
	handle  string
	gate    chan struct{} // when set, Submit blocks until the gate closes
	status  *assistant.JobStatus
}

func (f *fakeAssistant) Submit(_ context.Context, _ assistant.SubmitRequest) (string, error) {
	f.mu.Lock()
	f.submits++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.handle == "" {
		return "handle-1", nil
	}
	return f.handle, nil
}

func (f *fakeAssistant) FetchStatus(_ context.Context, handle string) (*assistant.JobStatus, error) {
	if f.status != nil {
		return f.status, nil
	}
	return &assistant.JobStatus{Handle: handle, Status: "running", Progress: 10}, nil
}

func (f *fakeAssistant) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

// failingAssistant rejects every submission.
type failingAssistant struct {
	*fakeAssistant
}

func (f *failingAssistant) Submit(context.Context, assistant.SubmitRequest) (string, error) {
	return "", apperr.Transient("assistant unavailable", nil)
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (c *captureNotifier) Publish(_ context.Context, msg realtime.SSEMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureNotifier) events() []realtime.SSEEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Event)
	}
	return out
}

type fakeGrantRepo struct {
	mu     sync.Mutex
	grants []*domain.DownloadGrant
}

func (f *fakeGrantRepo) Create(_ dbctx.Context, grant *domain.DownloadGrant) (*domain.DownloadGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	cp := *grant
	f.grants = append(f.grants, &cp)
	return grant, nil
}

func (f *fakeGrantRepo) CountActive(_ dbctx.Context, userID uuid.UUID, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, g := range f.grants {
		if g.UserID == userID && g.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeGrantRepo) ListByUser(_ dbctx.Context, userID uuid.UUID) ([]*domain.DownloadGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.DownloadGrant
	for _, g := range f.grants {
		if g.UserID == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeLessonAccess struct {
	lesson *domain.Lesson
	err    error
}

func (f *fakeLessonAccess) GetLessonForUser(context.Context, uuid.UUID, uuid.UUID) (*domain.Lesson, error) {
	return f.lesson, f.err
}

type fakeBucket struct{}

func (fakeBucket) Upload(context.Context, string, io.Reader, string) error { return nil }
func (fakeBucket) Delete(context.Context, string) error                    { return nil }
func (fakeBucket) SignedDownloadURL(key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}
func (fakeBucket) PublicURL(key string) string  { return "https://cdn.example.com/" + key }
func (fakeBucket) StorageURL(key string) string { return "https://storage.example.com/" + key }
