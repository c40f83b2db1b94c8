package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
)

type fakeUserRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{rows: make(map[uuid.UUID]*domain.User)} }

func (f *fakeUserRepo) Create(_ dbctx.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	f.rows[user.ID] = &cp
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *row
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ dbctx.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Email == email {
			cp := *row
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeUserRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	_, err := f.GetByEmail(dbc, email)
	if apperr.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

type fakeTokenRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.UserToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{rows: make(map[string]*domain.UserToken)}
}

func (f *fakeTokenRepo) Create(_ dbctx.Context, token *domain.UserToken) (*domain.UserToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	cp := *token
	f.rows[token.RefreshToken] = &cp
	return token, nil
}

func (f *fakeTokenRepo) GetByRefreshToken(_ dbctx.Context, refreshToken string) (*domain.UserToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[refreshToken]
	if !ok {
		return nil, apperr.NotFound("token not found")
	}
	cp := *row
	return &cp, nil
}

func (f *fakeTokenRepo) DeleteByUser(_ dbctx.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, row := range f.rows {
		if row.UserID == userID {
			delete(f.rows, k)
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ dbctx.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, row := range f.rows {
		if row.ExpiresAt.Before(now) {
			delete(f.rows, k)
		}
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeTokenRepo()
	svc, err := NewAuthService(logger.NewNop(), userRepo, tokenRepo)
	if err != nil {
		t.Fatal(err)
	}
	return svc, userRepo, tokenRepo
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	user, pair, err := svc.Register(context.Background(), "Learner@Example.com", "hunter2hunter2", "Ada", "L")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "learner@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Password == "hunter2hunter2" {
		t.Fatal("password stored in the clear")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("token pair incomplete")
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleLearner {
		t.Fatalf("claims wrong: %+v", claims)
	}

	if _, _, err := svc.Login(context.Background(), "learner@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "learner@example.com", "wrong-password"); !apperr.IsPermanent(err) {
		t.Fatalf("bad password should be rejected, got %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	if _, _, err := svc.Register(context.Background(), "dup@example.com", "hunter2hunter2", "", ""); err != nil {
		t.Fatal(err)
	}
	_, _, err := svc.Register(context.Background(), "dup@example.com", "hunter2hunter2", "", "")
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)
	_, pair, err := svc.Register(context.Background(), "rot@example.com", "hunter2hunter2", "", "")
	if err != nil {
		t.Fatal(err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
	// The old token is gone.
	if _, err := tokens.GetByRefreshToken(dbctx.New(context.Background()), pair.RefreshToken); !apperr.IsNotFound(err) {
		t.Fatalf("old refresh token still stored: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !apperr.IsPermanent(err) {
		t.Fatalf("replayed refresh token should be rejected, got %v", err)
	}
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	if _, err := svc.ParseAccessToken(strings.Repeat("x", 40)); err == nil {
		t.Fatal("garbage token accepted")
	}
}
