package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type issuedToken struct {
	kind      models.TokenKind
	userID    int64
	expiresAt time.Time
	used      bool
}

// accountBackend implements AccountUsers, TokenIssuer and AccountFlows.
type accountBackend struct {
	nextID int64
	users  map[string]*models.User
	tokens map[string]*issuedToken
}

func newAccountBackend() *accountBackend {
	return &accountBackend{users: make(map[string]*models.User), tokens: make(map[string]*issuedToken)}
}

func (b *accountBackend) byID(id int64) *models.User {
	for _, u := range b.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (b *accountBackend) Create(_ context.Context, email, hash string) (int64, error) {
	if _, ok := b.users[email]; ok {
		return 0, apperrors.ErrEmailAlreadyExists
	}
	b.nextID++
	b.users[email] = &models.User{ID: b.nextID, Email: email, PasswordHash: hash}
	return b.nextID, nil
}

func (b *accountBackend) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := b.users[email]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (b *accountBackend) UpdatePassword(_ context.Context, id int64, hash string) error {
	u := b.byID(id)
	if u == nil {
		return apperrors.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (b *accountBackend) Issue(_ context.Context, kind models.TokenKind, userID int64, token string, expiresAt time.Time) error {
	for _, t := range b.tokens {
		if t.kind == kind && t.userID == userID {
			t.used = true
		}
	}
	b.tokens[token] = &issuedToken{kind: kind, userID: userID, expiresAt: expiresAt}
	return nil
}

func (b *accountBackend) consume(kind models.TokenKind, userID int64, token string, now time.Time) bool {
	t, ok := b.tokens[token]
	if !ok || t.used || t.kind != kind || t.userID != userID || !now.Before(t.expiresAt) {
		return false
	}
	t.used = true
	return true
}

func (b *accountBackend) VerifyEmail(_ context.Context, userID int64, token string, now time.Time) error {
	if !b.consume(models.TokenEmailVerification, userID, token, now) {
		return apperrors.ErrInvalidEmailToken
	}
	b.byID(userID).EmailVerified = true
	return nil
}

func (b *accountBackend) ResetPassword(_ context.Context, userID int64, token, hash string, now time.Time) error {
	if !b.consume(models.TokenPasswordReset, userID, token, now) {
		return apperrors.ErrInvalidResetToken
	}
	b.byID(userID).PasswordHash = hash
	return nil
}

type stubSigner struct{}

func (stubSigner) GenerateToken(userID int64, email string) (string, int, error) {
	return "signed-" + email, 3600, nil
}

type sentMail struct{ kind, to, token string }

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendVerificationEmail(to, token string) error {
	m.sent = append(m.sent, sentMail{"verification", to, token})
	return m.err
}

func (m *recordingMailer) SendPasswordResetEmail(to, token string) error {
	m.sent = append(m.sent, sentMail{"reset", to, token})
	return m.err
}

func (m *recordingMailer) last() sentMail { return m.sent[len(m.sent)-1] }

func newTestAuthService(t *testing.T) (*AuthService, *accountBackend, *recordingMailer, *time.Time) {
	t.Helper()
	backend := newAccountBackend()
	mailer := &recordingMailer{}
	svc := NewAuthService(backend, backend, backend, stubSigner{}, mailer, zerolog.Nop())

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	n := 0
	svc.newToken = func() string {
		n++
		return "token-" + string(rune('a'+n-1))
	}
	svc.hashPassword = func(p string) (string, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		return string(h), err
	}
	return svc, backend, mailer, &now
}

func register(t *testing.T, svc *AuthService, address, password string) {
	t.Helper()
	_, err := svc.Register(context.Background(), &dto.RegisterRequest{Email: address, Password: password, ConfirmPassword: password})
	require.NoError(t, err)
}

func TestAuthService_RegisterVerifyLogin(t *testing.T) {
	svc, _, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterRequest{Email: " Alice@ShanghaiTech.edu.cn ", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@shanghaitech.edu.cn", resp.Email)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "verification", mailer.last().kind)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "alice@shanghaitech.edu.cn", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrEmailNotVerified)

	err = svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "alice@shanghaitech.edu.cn", Token: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmailToken)

	require.NoError(t, svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "alice@shanghaitech.edu.cn", Token: mailer.last().token}))

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "ALICE@shanghaitech.edu.cn", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", login.TokenType)
	assert.Equal(t, 3600, login.ExpiresIn)
	assert.Equal(t, "alice@shanghaitech.edu.cn", login.User.Email)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "alice@shanghaitech.edu.cn", Password: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "ghost@shanghaitech.edu.cn", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_RegisterExisting(t *testing.T) {
	svc, backend, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	register(t, svc, "bob@shanghaitech.edu.cn", "first1")
	first := mailer.last().token

	// unverified: re-registration replaces the password and reissues the link
	register(t, svc, "bob@shanghaitech.edu.cn", "second2")
	second := mailer.last().token
	assert.NotEqual(t, first, second)

	err := svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "bob@shanghaitech.edu.cn", Token: first})
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmailToken)
	require.NoError(t, svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "bob@shanghaitech.edu.cn", Token: second}))

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "bob@shanghaitech.edu.cn", Password: "second2"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Email: "bob@shanghaitech.edu.cn", Password: "third3", ConfirmPassword: "third3"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Len(t, backend.users, 1)
}

func TestAuthService_RegisterMismatchedPasswords(t *testing.T) {
	svc, backend, _, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{Email: "c@shanghaitech.edu.cn", Password: "secret1", ConfirmPassword: "secret2"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Empty(t, backend.users)
}

func TestAuthService_RegisterMailFailureStillSucceeds(t *testing.T) {
	svc, backend, mailer, _ := newTestAuthService(t)
	mailer.err = errors.New("smtp down")

	register(t, svc, "d@shanghaitech.edu.cn", "secret1")
	assert.Len(t, backend.users, 1)
}

func TestAuthService_VerifyEmailExpired(t *testing.T) {
	svc, _, mailer, now := newTestAuthService(t)
	ctx := context.Background()

	register(t, svc, "e@shanghaitech.edu.cn", "secret1")
	*now = now.Add(VerificationTokenTTL)

	err := svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "e@shanghaitech.edu.cn", Token: mailer.last().token})
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmailToken)

	err = svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "nobody@shanghaitech.edu.cn", Token: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmailToken)
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, _, mailer, now := newTestAuthService(t)
	ctx := context.Background()

	register(t, svc, "f@shanghaitech.edu.cn", "secret1")
	require.NoError(t, svc.VerifyEmail(ctx, &dto.VerifyEmailRequest{Email: "f@shanghaitech.edu.cn", Token: mailer.last().token}))

	sentBefore := len(mailer.sent)
	require.NoError(t, svc.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "unknown@shanghaitech.edu.cn"}))
	assert.Len(t, mailer.sent, sentBefore, "unknown address gets no mail")

	require.NoError(t, svc.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "f@shanghaitech.edu.cn"}))
	reset := mailer.last()
	assert.Equal(t, "reset", reset.kind)

	*now = now.Add(30 * time.Minute)
	require.NoError(t, svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Email: "f@shanghaitech.edu.cn", Token: reset.token, Password: "changed1"}))

	err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Email: "f@shanghaitech.edu.cn", Token: reset.token, Password: "again11"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "f@shanghaitech.edu.cn", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "f@shanghaitech.edu.cn", Password: "changed1"})
	assert.NoError(t, err)
}

func TestAuthService_ResetTokenExpires(t *testing.T) {
	svc, _, mailer, now := newTestAuthService(t)
	ctx := context.Background()

	register(t, svc, "g@shanghaitech.edu.cn", "secret1")
	require.NoError(t, svc.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "g@shanghaitech.edu.cn"}))
	*now = now.Add(PasswordResetTokenTTL + time.Second)

	err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Email: "g@shanghaitech.edu.cn", Token: mailer.last().token, Password: "changed1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
}
