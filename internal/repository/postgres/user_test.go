package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/repository"
	"github.com/ovoronin/minefarm/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), "user@example.com", "hashedpassword123", nil)

			require.NoError(t, err)
			assert.Equal(t, "user@example.com", user.Email)
			assert.Equal(t, "hashedpassword123", user.HashedPassword)
			assert.Nil(t, user.LtcAddress)
			assert.True(t, user.Balance.IsZero(), "balance must start at zero")
			assert.True(t, user.MiningPower.IsZero(), "mining power must start at zero")
			assert.False(t, user.IsAdmin)
			assert.False(t, user.IsBlocked)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create user with ltc address", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			addr := "LZHvVcRfsTHMH7DPxMbChHcvPsxtR2RPPj"

			user, err := r.CreateUser(t.Context(), "addr@example.com", "hashedpassword123", &addr)

			require.NoError(t, err)
			require.NotNil(t, user.LtcAddress)
			assert.Equal(t, addr, *user.LtcAddress)
		})
	})

	t.Run("create user duplicate email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			_, err := r.CreateUser(t.Context(), "dup@example.com", "hash", nil)
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), "dup@example.com", "otherhash", nil)

			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get user by id", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), "findbyid@example.com", "hash", nil)
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID, false)

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, created.Email, got.Email)
		})
	})

	t.Run("get user by id for update", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), "forupdate@example.com", "hash", nil)
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID, true)

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByID(t.Context(), uuid.New(), false)

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
		})
	})

	t.Run("get user by email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), "byemail@example.com", "hash", nil)
			require.NoError(t, err)

			got, err := r.GetUserByEmail(t.Context(), "byemail@example.com")

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("update balance", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			user, err := r.CreateUser(t.Context(), "balance@example.com", "hash", nil)
			require.NoError(t, err)

			user, err = r.UpdateBalance(t.Context(), user.ID, decimal.RequireFromString("1.5"))
			require.NoError(t, err)
			assert.True(t, user.Balance.Equal(decimal.RequireFromString("1.5")))

			user, err = r.UpdateBalance(t.Context(), user.ID, decimal.RequireFromString("-0.5"))
			require.NoError(t, err)
			assert.True(t, user.Balance.Equal(decimal.RequireFromString("1")))
		})
	})

	t.Run("update balance below zero", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			user, err := r.CreateUser(t.Context(), "poor@example.com", "hash", nil)
			require.NoError(t, err)

			_, err = r.UpdateBalance(t.Context(), user.ID, decimal.RequireFromString("-0.01"))

			assert.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
		})
	})

	t.Run("set balance", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			user, err := r.CreateUser(t.Context(), "setbalance@example.com", "hash", nil)
			require.NoError(t, err)

			user, err = r.SetBalance(t.Context(), user.ID, decimal.RequireFromString("42.42"))

			require.NoError(t, err)
			assert.True(t, user.Balance.Equal(decimal.RequireFromString("42.42")))
		})
	})

	t.Run("increment mining power", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			user, err := r.CreateUser(t.Context(), "power@example.com", "hash", nil)
			require.NoError(t, err)

			user, err = r.IncrementMiningPower(t.Context(), user.ID, decimal.RequireFromString("10"))
			require.NoError(t, err)
			assert.True(t, user.MiningPower.Equal(decimal.RequireFromString("10")))

			user, err = r.IncrementMiningPower(t.Context(), user.ID, decimal.RequireFromString("150"))
			require.NoError(t, err)
			assert.True(t, user.MiningPower.Equal(decimal.RequireFromString("160")))
		})
	})

	t.Run("set blocked", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			user, err := r.CreateUser(t.Context(), "blocked@example.com", "hash", nil)
			require.NoError(t, err)

			user, err = r.SetBlocked(t.Context(), user.ID, true)
			require.NoError(t, err)
			assert.True(t, user.IsBlocked)

			user, err = r.SetBlocked(t.Context(), user.ID, false)
			require.NoError(t, err)
			assert.False(t, user.IsBlocked)
		})
	})

	t.Run("list earning user ids", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			packages := PackageRepo{DB: tx}
			purchases := PurchaseRepo{DB: tx}

			pkg, err := packages.CreatePackage(t.Context(), repository.CreatePackageParams{
				Name:               "Starter",
				Price:              decimal.RequireFromString("0.1"),
				MiningPower:        decimal.RequireFromString("10"),
				DailyProfitPercent: decimal.RequireFromString("1"),
				IsActive:           true,
			})
			require.NoError(t, err)

			miner, err := r.CreateUser(t.Context(), "miner@example.com", "hash", nil)
			require.NoError(t, err)
			_, err = purchases.CreatePurchase(t.Context(), miner.ID, pkg.ID)
			require.NoError(t, err)

			blocked, err := r.CreateUser(t.Context(), "blockedminer@example.com", "hash", nil)
			require.NoError(t, err)
			_, err = purchases.CreatePurchase(t.Context(), blocked.ID, pkg.ID)
			require.NoError(t, err)
			_, err = r.SetBlocked(t.Context(), blocked.ID, true)
			require.NoError(t, err)

			idle, err := r.CreateUser(t.Context(), "idle@example.com", "hash", nil)
			require.NoError(t, err)

			ids, err := r.ListEarningUserIDs(t.Context())

			require.NoError(t, err)
			assert.Contains(t, ids, miner.ID, "user with a purchase must earn")
			assert.NotContains(t, ids, blocked.ID, "blocked user must not earn")
			assert.NotContains(t, ids, idle.ID, "user without purchases must not earn")
		})
	})

	t.Run("count users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			before, err := r.CountUsers(t.Context())
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), "count@example.com", "hash", nil)
			require.NoError(t, err)

			after, err := r.CountUsers(t.Context())
			require.NoError(t, err)
			assert.Equal(t, before+1, after)
		})
	})
}
