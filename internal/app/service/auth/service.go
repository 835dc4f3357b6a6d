package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fatflowers/contactbook/internal/app/service/setting"
	"github.com/fatflowers/contactbook/internal/app/service/subscription"
	"github.com/fatflowers/contactbook/internal/app/service/user"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/types"
)

// ErrInvalidToken is returned by ParseToken for any unusable bearer token.
var ErrInvalidToken = errors.New("auth: invalid token")

type SignupRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
	Name     *string `json:"name" binding:"omitempty,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=255"`
	Email string  `json:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type MeResult struct {
	User         *models.User         `json:"user"`
	Subscription *models.Subscription `json:"subscription"`
	// Entitled reports whether the subscription currently grants paid features.
	Entitled bool `json:"entitled"`
}

type Service struct {
	users    *user.Service
	subs     *subscription.Service
	settings *setting.Service
	log      *zap.SugaredLogger
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func New(cfg *config.Config, users *user.Service, subs *subscription.Service, settings *setting.Service, log *zap.SugaredLogger) (*Service, error) {
	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		log.Warnw("auth.jwt_secret is empty; using an ephemeral secret", "fingerprint", hex.EncodeToString(secret[:4]))
	}
	ttl := cfg.Auth.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{users: users, subs: subs, settings: settings, log: log, secret: secret, ttl: ttl, now: time.Now}, nil
}

var Module = fx.Options(fx.Provide(New))

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs an HS256 token whose subject is userID.
func (s *Service) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a token and returns its subject.
func (s *Service) ParseToken(token string) (string, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*AuthResult, error) {
	allowed, err := s.settings.Bool(ctx, models.SettingAllowRegistration, true)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, types.ErrRegistrationClosed
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &models.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.result(u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if u == nil || !CheckPasswordHash(req.Password, u.PasswordHash) {
		logctx.FromCtx(ctx, s.log).Infow("login_failed")
		return nil, types.ErrInvalidCredentials
	}
	return s.result(u)
}

func (s *Service) Me(ctx context.Context, userID string) (*MeResult, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, types.ErrNotFound
	}
	sub, err := s.subs.LatestForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeResult{User: u, Subscription: sub, Entitled: sub.Entitled(s.now())}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	return s.users.UpdateProfile(ctx, userID, req.Name, req.Email)
}

func (s *Service) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return types.ErrNotFound
	}
	if !CheckPasswordHash(req.CurrentPassword, u.PasswordHash) {
		return types.ErrInvalidCredentials
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.SetPasswordHash(ctx, userID, hash)
}

func (s *Service) result(u *models.User) (*AuthResult, error) {
	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}
