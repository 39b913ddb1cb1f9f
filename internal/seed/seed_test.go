package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/machus/backend/internal/app/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promoterFunc func(ctx context.Context, emails []string) (int64, error)

func (f promoterFunc) PromoteAdmins(ctx context.Context, emails []string) (int64, error) {
	return f(ctx, emails)
}

type prunerFunc func(ctx context.Context, kind models.TokenKind, now time.Time) (int64, error)

func (f prunerFunc) DeleteExpired(ctx context.Context, kind models.TokenKind, now time.Time) (int64, error) {
	return f(ctx, kind, now)
}

func TestPromoteAdmins(t *testing.T) {
	var got []string
	users := promoterFunc(func(_ context.Context, emails []string) (int64, error) {
		got = emails
		return 1, nil
	})

	require.NoError(t, PromoteAdmins(context.Background(), users, []string{" Dan@ShanghaiTech.edu.cn ", ""}, zerolog.Nop()))
	assert.Equal(t, []string{"dan@shanghaitech.edu.cn"}, got)

	got = nil
	require.NoError(t, PromoteAdmins(context.Background(), users, nil, zerolog.Nop()))
	assert.Nil(t, got, "nothing configured, no query")
}

func TestPruneExpiredTokens(t *testing.T) {
	boom := errors.New("boom")
	var kinds []models.TokenKind
	tokens := prunerFunc(func(_ context.Context, kind models.TokenKind, _ time.Time) (int64, error) {
		kinds = append(kinds, kind)
		if kind == models.TokenPasswordReset {
			return 0, boom
		}
		return 3, nil
	})

	err := PruneExpiredTokens(context.Background(), tokens, time.Now(), zerolog.Nop())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []models.TokenKind{models.TokenEmailVerification, models.TokenPasswordReset}, kinds)
}
