package earnings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
	"github.com/ovoronin/minefarm/internal/repository/postgres"
	"github.com/ovoronin/minefarm/internal/testutil"
)

// The engine commits every user in its own transaction, so tests run against
// the pool directly and use unique emails instead of a rollback wrapper
func TestEngine_Run(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	storage := postgres.NewStorage(pg.Pool)
	engine := NewEngine(storage, nil, WithWorkers(4))

	createPackage := func(t *testing.T, name, price, power, percent string) models.Package {
		t.Helper()
		pkg, err := storage.Package().CreatePackage(t.Context(), repository.CreatePackageParams{
			Name:               name,
			Price:              decimal.RequireFromString(price),
			MiningPower:        decimal.RequireFromString(power),
			DailyProfitPercent: decimal.RequireFromString(percent),
			IsActive:           true,
		})
		require.NoError(t, err)
		return pkg
	}

	buy := func(t *testing.T, email string, packages ...models.Package) models.User {
		t.Helper()
		user, err := storage.User().CreateUser(t.Context(), email, "hash", nil)
		require.NoError(t, err)
		for _, pkg := range packages {
			_, err = storage.Purchase().CreatePurchase(t.Context(), user.ID, pkg.ID)
			require.NoError(t, err)
		}
		return user
	}

	balanceOf := func(t *testing.T, user models.User) decimal.Decimal {
		t.Helper()
		got, err := storage.User().GetUserByID(t.Context(), user.ID, false)
		require.NoError(t, err)
		return got.Balance
	}

	starter := createPackage(t, "Starter", "0.1", "10", "1")
	pro := createPackage(t, "Pro", "1", "150", "1.5")

	t.Run("credits reward per holding", func(t *testing.T) {
		user := buy(t, "miner@example.com", starter, pro)
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		result, err := engine.Run(t.Context(), now)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Processed, 1)

		// 10*1/100 + 150*1.5/100
		expected := decimal.RequireFromString("2.35")
		assert.True(t, balanceOf(t, user).Equal(expected), "expected reward %s, got %s", expected, balanceOf(t, user))

		entries, err := storage.Transaction().ListUserTransactions(t.Context(), user.ID, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionTypeEarning, entries[0].Type)
		assert.True(t, entries[0].Amount.Equal(expected))
		assert.Equal(t, "Daily earnings 2025-03-01", entries[0].Description)
	})

	t.Run("rerun of the same cycle is a no-op", func(t *testing.T) {
		user := buy(t, "rerun@example.com", starter)
		now := time.Date(2025, 3, 2, 0, 30, 0, 0, time.UTC)

		_, err := engine.Run(t.Context(), now)
		require.NoError(t, err)
		first := balanceOf(t, user)

		// Same moment and once more later the same UTC day
		_, err = engine.Run(t.Context(), now)
		require.NoError(t, err)
		_, err = engine.Run(t.Context(), now.Add(10*time.Hour))
		require.NoError(t, err)

		assert.True(t, balanceOf(t, user).Equal(first), "same cycle must never credit twice")

		entries, err := storage.Transaction().ListUserTransactions(t.Context(), user.ID, 0)
		require.NoError(t, err)
		earningEntries := 0
		for _, e := range entries {
			if e.Type == models.TransactionTypeEarning {
				earningEntries++
			}
		}
		assert.Equal(t, 1, earningEntries)
	})

	t.Run("next day credits again", func(t *testing.T) {
		user := buy(t, "nextday@example.com", starter)
		now := time.Date(2025, 3, 3, 23, 0, 0, 0, time.UTC)

		_, err := engine.Run(t.Context(), now)
		require.NoError(t, err)
		_, err = engine.Run(t.Context(), now.Add(2*time.Hour)) // crosses UTC midnight
		require.NoError(t, err)

		expected := decimal.RequireFromString("0.2")
		assert.True(t, balanceOf(t, user).Equal(expected), "two cycles must credit twice")
	})

	t.Run("blocked user is skipped", func(t *testing.T) {
		user := buy(t, "blockedminer@example.com", starter)
		_, err := storage.User().SetBlocked(t.Context(), user.ID, true)
		require.NoError(t, err)

		_, err = engine.Run(t.Context(), time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		assert.True(t, balanceOf(t, user).IsZero(), "blocked user must not earn")
	})

	t.Run("balance equals audit log sum", func(t *testing.T) {
		user := buy(t, "audited@example.com", starter, pro)

		_, err := engine.Run(t.Context(), time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		_, err = engine.Run(t.Context(), time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		sum, err := storage.Transaction().SumUserAmounts(t.Context(), user.ID)
		require.NoError(t, err)
		assert.True(t, balanceOf(t, user).Equal(sum))
	})
}
