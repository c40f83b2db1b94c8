package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyline/studyline-backend/internal/data/repos/users"
	"github.com/studyline/studyline-backend/internal/domain"
	"github.com/studyline/studyline-backend/internal/pkg/apperr"
	"github.com/studyline/studyline-backend/internal/pkg/dbctx"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/utils"
)

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AccessClaims struct {
	UserID uuid.UUID `json:"uid"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	log        *logger.Logger
	userRepo   users.UserRepo
	tokenRepo  users.UserTokenRepo
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(log *logger.Logger, userRepo users.UserRepo, tokenRepo users.UserTokenRepo) (*AuthService, error) {
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("missing AUTH_JWT_SECRET")
	}
	accessMin := utils.GetEnvAsInt("AUTH_ACCESS_TTL_MINUTES", 15, log)
	refreshHours := utils.GetEnvAsInt("AUTH_REFRESH_TTL_HOURS", 720, log)
	return &AuthService{
		log:        log.With("service", "AuthService"),
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtSecret:  []byte(secret),
		accessTTL:  time.Duration(accessMin) * time.Minute,
		refreshTTL: time.Duration(refreshHours) * time.Hour,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, nil, apperr.Permanent("email and a password of at least 8 characters are required", nil)
	}
	dbc := dbctx.New(ctx)

	exists, err := s.userRepo.EmailExists(dbc, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, apperr.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.userRepo.Create(dbc, &domain.User{
		Email:     email,
		Password:  string(hash),
		FirstName: firstName,
		LastName:  lastName,
		Role:      domain.RoleLearner,
	})
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issueTokens(dbc, user)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	dbc := dbctx.New(ctx)

	user, err := s.userRepo.GetByEmail(dbc, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil, apperr.Permanent("invalid credentials", nil)
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, apperr.Permanent("invalid credentials", nil)
	}
	pair, err := s.issueTokens(dbc, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the refresh token: the presented token's user loses all
// stored tokens and gets a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	dbc := dbctx.New(ctx)
	stored, err := s.tokenRepo.GetByRefreshToken(dbc, refreshToken)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Permanent("invalid refresh token", nil)
		}
		return nil, err
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, apperr.Permanent("refresh token expired", nil)
	}
	user, err := s.userRepo.GetByID(dbc, stored.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.DeleteByUser(dbc, user.ID); err != nil {
		return nil, err
	}
	return s.issueTokens(dbc, user)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(dbctx.New(ctx), userID)
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokenRepo.DeleteByUser(dbctx.New(ctx), userID)
}

// ParseAccessToken validates the JWT and returns its claims. Used by the auth
// middleware on every request.
func (s *AuthService) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Permanent("invalid access token", err)
	}
	return claims, nil
}

func (s *AuthService) issueTokens(dbc dbctx.Context, user *domain.User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := &AccessClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if _, err := s.tokenRepo.Create(dbc, &domain.UserToken{
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
