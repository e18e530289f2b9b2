package registration

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/email"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	"github.com/Caolboy/LABERS-HOST/internal/service/auth"
	"github.com/Caolboy/LABERS-HOST/internal/validator"
)

const (
	codeLength = 6
	codeSpace  = 1_000_000
)

type RegistrationUseCase interface {
	Start(ctx context.Context, input StartInput) error
	Resend(ctx context.Context, input ResendInput) error
	Verify(ctx context.Context, input VerifyInput) (*domain.User, error)
}

// ChallengeStore keeps one pending registration per email with a TTL.
// Reissue and Verify report their outcomes as *apperrors.Error.
type ChallengeStore interface {
	Put(ctx context.Context, ch domain.OtpChallenge) error
	Reissue(ctx context.Context, email, code string) (*domain.OtpChallenge, error)
	Verify(ctx context.Context, email, code string) (*domain.OtpChallenge, error)
	Clear(ctx context.Context, email string) error
}

type UserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) error
}

type StartInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,lowercase,email,max=255"`
	Password             string `json:"password" validate:"required,password_policy"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
	Terms                bool   `json:"terms" validate:"eq=true"`
}

type ResendInput struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyInput struct {
	OTP                  string `json:"otp" validate:"required,len=6"`
	Email                string `json:"email" validate:"required,email"`
	Name                 string `json:"name" validate:"required,max=255"`
	Password             string `json:"password" validate:"required,password_policy"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
	Terms                bool   `json:"terms" validate:"eq=true"`
}

type RegistrationService struct {
	challenges ChallengeStore
	users      UserRepository
	mailer     email.Mailer
	hasher     auth.PasswordHasher
	validate   *validator.Validator
	newCode    func() (string, error)
	subject    string
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*RegistrationService)

func WithHasher(h auth.PasswordHasher) Option {
	return func(s *RegistrationService) {
		s.hasher = h
	}
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *RegistrationService) {
		s.newCode = gen
	}
}

func WithSubject(subject string) Option {
	return func(s *RegistrationService) {
		s.subject = subject
	}
}

// WithTTL sets the challenge lifetime quoted in the verification mail.
func WithTTL(ttl time.Duration) Option {
	return func(s *RegistrationService) {
		s.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *RegistrationService) {
		s.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *RegistrationService) {
		s.logger = l
	}
}

func NewRegistrationService(challenges ChallengeStore, users UserRepository, mailer email.Mailer, validate *validator.Validator, opts ...Option) *RegistrationService {
	s := &RegistrationService{
		challenges: challenges,
		users:      users,
		mailer:     mailer,
		hasher:     auth.NewBcryptHasher(),
		validate:   validate,
		newCode:    GenerateCode,
		subject:    "Your LABERS Registration Verification Code",
		ttl:        10 * time.Minute,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateCode returns a uniformly random zero-padded six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n.Int64()), nil
}

// Start stores a fresh challenge for the email and mails its code. When the
// mail fails the challenge stays stored and DeliveryFailed is returned.
func (s *RegistrationService) Start(ctx context.Context, input StartInput) error {
	if err := s.validate.Struct(input); err != nil {
		return err
	}
	if input.Password != input.PasswordConfirmation {
		return apperrors.PasswordMismatch()
	}

	taken, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return s.internal(ctx, "check email", err)
	}
	if taken {
		return apperrors.EmailTaken()
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return s.internal(ctx, "hash password", err)
	}
	code, err := s.newCode()
	if err != nil {
		return s.internal(ctx, "generate otp", err)
	}

	challenge := domain.OtpChallenge{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		Code:         code,
	}
	if err := s.challenges.Put(ctx, challenge); err != nil {
		return s.internal(ctx, "store otp challenge", err)
	}

	if err := s.sendCode(ctx, challenge); err != nil {
		return apperrors.DeliveryFailed("email", err)
	}
	s.logger.InfoContext(ctx, "registration otp sent", "email", input.Email)
	return nil
}

// Resend issues a new code for a live challenge, at most once per cooldown.
func (s *RegistrationService) Resend(ctx context.Context, input ResendInput) error {
	if err := s.validate.Struct(input); err != nil {
		return err
	}
	code, err := s.newCode()
	if err != nil {
		return s.internal(ctx, "generate otp", err)
	}

	challenge, err := s.challenges.Reissue(ctx, input.Email, code)
	if err != nil {
		return s.passThrough(ctx, "reissue otp", err)
	}

	if err := s.sendCode(ctx, *challenge); err != nil {
		return apperrors.DeliveryFailed("otp", err)
	}
	s.logger.InfoContext(ctx, "registration otp resent", "email", input.Email)
	return nil
}

// Verify checks the code and creates the account from the name and password
// submitted with it.
func (s *RegistrationService) Verify(ctx context.Context, input VerifyInput) (*domain.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if input.Password != input.PasswordConfirmation {
		return nil, apperrors.PasswordMismatch()
	}

	if _, err := s.challenges.Verify(ctx, input.Email, input.OTP); err != nil {
		return nil, s.passThrough(ctx, "verify otp", err)
	}

	taken, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, s.internal(ctx, "check email", err)
	}
	if taken {
		return nil, apperrors.EmailTaken()
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, s.internal(ctx, "hash password", err)
	}

	verifiedAt := s.now()
	user := &domain.User{
		Name:            input.Name,
		Email:           input.Email,
		PasswordHash:    hash,
		EmailVerifiedAt: &verifiedAt,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.EmailTaken()
		}
		return nil, s.internal(ctx, "create user", err)
	}

	if err := s.challenges.Clear(ctx, input.Email); err != nil {
		s.logger.WarnContext(ctx, "clear otp challenge", "email", input.Email, "error", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *RegistrationService) sendCode(ctx context.Context, ch domain.OtpChallenge) error {
	err := s.mailer.Send(ctx, email.Message{
		Template: email.TemplateOTPVerification,
		Vars: map[string]any{
			"otp":             ch.Code,
			"name":            ch.Name,
			"expires_minutes": int(s.ttl.Minutes()),
		},
		To:      ch.Email,
		Subject: s.subject,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "send otp mail", "email", ch.Email, "error", err)
	}
	return err
}

func (s *RegistrationService) passThrough(ctx context.Context, op string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return s.internal(ctx, op, err)
}

func (s *RegistrationService) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, op, "error", err)
	return apperrors.Internal("An error occurred during registration. Please try again.", err)
}

var _ RegistrationUseCase = (*RegistrationService)(nil)
