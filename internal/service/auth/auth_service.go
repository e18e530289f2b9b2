package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	"github.com/Caolboy/LABERS-HOST/internal/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AuthUseCase interface {
	Login(ctx context.Context, input LoginInput) (*Token, error)
	ParseToken(token string) (int64, error)
}

type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Token struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

type AuthService struct {
	users    UserFinder
	hasher   PasswordHasher
	validate *validator.Validator
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*AuthService)

func WithHasher(h PasswordHasher) Option {
	return func(s *AuthService) {
		s.hasher = h
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *AuthService) {
		s.logger = l
	}
}

func NewAuthService(users UserFinder, validate *validator.Validator, secret, issuer string, ttl time.Duration, opts ...Option) *AuthService {
	s := &AuthService{
		users:    users,
		hasher:   NewBcryptHasher(),
		validate: validate,
		secret:   []byte(secret),
		issuer:   issuer,
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*Token, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		s.logger.ErrorContext(ctx, "load user for login", "error", err)
		return nil, apperrors.Internal("Could not sign in.", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		return nil, invalidCredentials()
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(user.ID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Internal("Could not sign in.", fmt.Errorf("sign token: %w", err))
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID)
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expiresAt, User: user}, nil
}

// ParseToken verifies an access token and returns the user id it was issued
// for.
func (s *AuthService) ParseToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, apperrors.Unauthorized("Invalid or expired token.")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Unauthorized("Invalid or expired token.")
	}
	return id, nil
}

func invalidCredentials() *apperrors.Error {
	err := apperrors.Unauthorized("These credentials do not match our records.")
	err.Field = "email"
	return err
}

var _ AuthUseCase = (*AuthService)(nil)
