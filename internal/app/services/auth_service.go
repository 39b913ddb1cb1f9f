package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/machus/backend/internal/pkg/auth"
	"github.com/machus/backend/internal/pkg/email"
	"github.com/machus/backend/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// Token lifetimes
const (
	VerificationTokenTTL  = 24 * time.Hour
	PasswordResetTokenTTL = time.Hour
)

// AccountUsers is the part of the user directory the auth flows write to.
type AccountUsers interface {
	Create(ctx context.Context, email, passwordHash string) (int64, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// TokenIssuer stores single-use account tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, kind models.TokenKind, userID int64, token string, expiresAt time.Time) error
}

// AccountFlows spends a token and applies the change it authorizes atomically.
type AccountFlows interface {
	VerifyEmail(ctx context.Context, userID int64, token string, now time.Time) error
	ResetPassword(ctx context.Context, userID int64, token, passwordHash string, now time.Time) error
}

// TokenSigner issues access tokens.
type TokenSigner interface {
	GenerateToken(userID int64, email string) (string, int, error)
}

// AuthService handles authentication operations
type AuthService struct {
	users    AccountUsers
	tokens   TokenIssuer
	accounts AccountFlows
	signer   TokenSigner
	mailer   email.Mailer
	logger   zerolog.Logger

	now          func() time.Time
	newToken     func() string
	hashPassword func(string) (string, error)
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users AccountUsers,
	tokens TokenIssuer,
	accounts AccountFlows,
	signer TokenSigner,
	mailer email.Mailer,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		accounts:     accounts,
		signer:       signer,
		mailer:       mailer,
		logger:       logger.With().Str("service", "auth").Logger(),
		now:          time.Now,
		newToken:     func() string { return uuid.NewString() },
		hashPassword: auth.HashPassword,
	}
}

func (s *AuthService) wrap(err error, op string) error {
	if _, ok := apperrors.AsCustom(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// lookup returns (nil, nil) for an unknown address.
func (s *AuthService) lookup(ctx context.Context, address string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, address)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

// Register creates an unverified account and mails a verification link.
// Registering an address that exists but was never verified replaces its password
// and sends a fresh link.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	address := validation.NormalizeEmail(req.Email)
	log := s.logger.With().Str("email", address).Logger()

	if req.Password != req.ConfirmPassword {
		return nil, apperrors.NewValidationError("confirmPassword", "passwords do not match")
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.lookup(ctx, address)
	if err != nil {
		return nil, s.wrap(err, "register")
	}

	var userID int64
	switch {
	case existing == nil:
		userID, err = s.users.Create(ctx, address, hash)
		if err != nil {
			return nil, s.wrap(err, "register")
		}
		log.Info().Int64("userID", userID).Msg("User registered")
	case existing.EmailVerified:
		return nil, apperrors.ErrEmailAlreadyExists
	default:
		userID = existing.ID
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			return nil, s.wrap(err, "register")
		}
		log.Info().Int64("userID", userID).Msg("Unverified user re-registered")
	}

	token := s.newToken()
	if err := s.tokens.Issue(ctx, models.TokenEmailVerification, userID, token, s.now().Add(VerificationTokenTTL)); err != nil {
		return nil, s.wrap(err, "issue verification token")
	}
	if err := s.mailer.SendVerificationEmail(address, token); err != nil {
		// registering again resends the link
		log.Warn().Err(err).Msg("Verification mail failed")
	}

	return &dto.RegisterResponse{
		Message: "Registration successful, please check your email to verify your account",
		Email:   address,
	}, nil
}

// VerifyEmail spends a verification token. Verifying an already verified address is a no-op.
func (s *AuthService) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest) error {
	user, err := s.lookup(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		return s.wrap(err, "verify email")
	}
	if user == nil {
		return apperrors.ErrInvalidEmailToken
	}
	if user.EmailVerified {
		return nil
	}

	if err := s.accounts.VerifyEmail(ctx, user.ID, req.Token, s.now()); err != nil {
		return s.wrap(err, "verify email")
	}
	s.logger.Info().Int64("userID", user.ID).Msg("Email verified")
	return nil
}

// Login checks credentials and issues an access token for a verified account.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	address := validation.NormalizeEmail(req.Email)

	user, err := s.lookup(ctx, address)
	if err != nil {
		return nil, s.wrap(err, "login")
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Warn().Str("email", address).Msg("Login failed")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, apperrors.ErrEmailNotVerified
	}

	token, expiresIn, err := s.signer.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.logger.Info().Int64("userID", user.ID).Msg("User logged in")
	return &dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: expiresIn,
		User:      user,
	}, nil
}

// ForgotPassword mails a reset link when the address belongs to an account.
// The result never reveals whether it does.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	address := validation.NormalizeEmail(req.Email)

	user, err := s.lookup(ctx, address)
	if err != nil {
		return s.wrap(err, "forgot password")
	}
	if user == nil {
		s.logger.Debug().Str("email", address).Msg("Password reset requested for unknown email")
		return nil
	}

	token := s.newToken()
	if err := s.tokens.Issue(ctx, models.TokenPasswordReset, user.ID, token, s.now().Add(PasswordResetTokenTTL)); err != nil {
		return s.wrap(err, "issue reset token")
	}
	if err := s.mailer.SendPasswordResetEmail(address, token); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Password reset mail failed")
	}
	return nil
}

// ResetPassword spends a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	user, err := s.lookup(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		return s.wrap(err, "reset password")
	}
	if user == nil {
		return apperrors.ErrInvalidResetToken
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.ResetPassword(ctx, user.ID, req.Token, hash, s.now()); err != nil {
		return s.wrap(err, "reset password")
	}

	s.logger.Info().Int64("userID", user.ID).Msg("Password reset")
	return nil
}
