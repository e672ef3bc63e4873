package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	newToken := func(t *testing.T, tx pgx.Tx, value string) models.RefreshToken {
		t.Helper()
		user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), value+"@example.com", "hash", nil)
		require.NoError(t, err)

		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     value,
			CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
			UsedAt:    nil,
		}
	}

	t.Run("save and get token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")

			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), token.Token)

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, token.UserID, got.UserID)
			require.Equal(t, token.Token, got.Token)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
			require.Nil(t, got.UsedAt, "UsedAt should be nil cause original token has UsedAt as nil")
		})
	})

	t.Run("get token not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Get(t.Context(), "never-saved")

			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("mark used ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "mark-used-token")
			require.NoError(t, repo.Save(t.Context(), token))

			got, err := repo.MarkUsed(t.Context(), token.Token)

			require.NoError(t, err)
			require.NotNil(t, got.UsedAt)
			assert.WithinDuration(t, time.Now(), *got.UsedAt, time.Second)
		})
	})

	t.Run("mark used twice", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "used-twice-token")
			require.NoError(t, repo.Save(t.Context(), token))

			first, err := repo.MarkUsed(t.Context(), token.Token)
			require.NoError(t, err)

			second, err := repo.MarkUsed(t.Context(), token.Token)

			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenIsUsed)
			require.NotNil(t, second.UsedAt)
			assert.True(t, first.UsedAt.Equal(*second.UsedAt), "used_at must not be rewritten")
		})
	})

	t.Run("mark used not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.MarkUsed(t.Context(), "never-saved")

			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})
}
