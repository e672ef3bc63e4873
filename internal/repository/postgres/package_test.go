package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/repository"
	"github.com/ovoronin/minefarm/internal/testutil"
)

func starterParams() repository.CreatePackageParams {
	return repository.CreatePackageParams{
		Name:               "Starter",
		Price:              decimal.RequireFromString("0.1"),
		MiningPower:        decimal.RequireFromString("10"),
		DailyProfitPercent: decimal.RequireFromString("1"),
		IsActive:           true,
	}
}

func Test_PackageRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create package ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PackageRepo{DB: tx}

			pkg, err := r.CreatePackage(t.Context(), starterParams())

			require.NoError(t, err)
			assert.Equal(t, "Starter", pkg.Name)
			assert.True(t, pkg.Price.Equal(decimal.RequireFromString("0.1")))
			assert.True(t, pkg.MiningPower.Equal(decimal.RequireFromString("10")))
			assert.True(t, pkg.DailyProfitPercent.Equal(decimal.RequireFromString("1")))
			assert.True(t, pkg.IsActive)
		})
	})

	t.Run("create package duplicate name", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PackageRepo{DB: tx}
			_, err := r.CreatePackage(t.Context(), starterParams())
			require.NoError(t, err)

			_, err = r.CreatePackage(t.Context(), starterParams())

			assert.ErrorIs(t, err, apperrors.ErrPackageNameTaken)
		})
	})

	t.Run("update package partial", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PackageRepo{DB: tx}
			pkg, err := r.CreatePackage(t.Context(), starterParams())
			require.NoError(t, err)

			newPrice := decimal.RequireFromString("0.2")
			inactive := false
			updated, err := r.UpdatePackage(t.Context(), pkg.ID, repository.UpdatePackageParams{
				Price:    &newPrice,
				IsActive: &inactive,
			})

			require.NoError(t, err)
			assert.True(t, updated.Price.Equal(decimal.RequireFromString("0.2")))
			assert.False(t, updated.IsActive)
			assert.Equal(t, "Starter", updated.Name, "untouched fields keep their value")
			assert.True(t, updated.MiningPower.Equal(decimal.RequireFromString("10")))
		})
	})

	t.Run("update package not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PackageRepo{DB: tx}

			_, err := r.UpdatePackage(t.Context(), uuid.New(), repository.UpdatePackageParams{})

			assert.ErrorIs(t, err, apperrors.ErrPackageNotFound)
		})
	})

	t.Run("list packages active only", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PackageRepo{DB: tx}
			_, err := r.CreatePackage(t.Context(), starterParams())
			require.NoError(t, err)

			pro := starterParams()
			pro.Name = "Pro"
			pro.Price = decimal.RequireFromString("1")
			pro.IsActive = false
			_, err = r.CreatePackage(t.Context(), pro)
			require.NoError(t, err)

			active, err := r.ListPackages(t.Context(), true)
			require.NoError(t, err)
			for _, p := range active {
				assert.True(t, p.IsActive)
			}

			all, err := r.ListPackages(t.Context(), false)
			require.NoError(t, err)
			assert.Greater(t, len(all), len(active))
		})
	})

	t.Run("list packages ordered by price", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := PackageRepo{DB: tx}

			premium := starterParams()
			premium.Name = "Premium"
			premium.Price = decimal.RequireFromString("5")
			_, err := r.CreatePackage(t.Context(), premium)
			require.NoError(t, err)

			_, err = r.CreatePackage(t.Context(), starterParams())
			require.NoError(t, err)

			packages, err := r.ListPackages(t.Context(), false)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(packages), 2)
			for i := 1; i < len(packages); i++ {
				assert.True(t, packages[i].Price.GreaterThanOrEqual(packages[i-1].Price))
			}
		})
	})
}

func Test_PurchaseRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create and list purchases", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			packages := PackageRepo{DB: tx}
			r := PurchaseRepo{DB: tx}

			user, err := users.CreateUser(t.Context(), "buyer@example.com", "hash", nil)
			require.NoError(t, err)
			pkg, err := packages.CreatePackage(t.Context(), starterParams())
			require.NoError(t, err)

			purchase, err := r.CreatePurchase(t.Context(), user.ID, pkg.ID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, purchase.UserID)
			assert.Equal(t, pkg.ID, purchase.Package.ID)
			assert.Equal(t, "Starter", purchase.Package.Name)

			purchases, err := r.ListUserPurchases(t.Context(), user.ID)
			require.NoError(t, err)
			require.Len(t, purchases, 1)
			assert.Equal(t, purchase.ID, purchases[0].ID)
		})
	})

	t.Run("same package may be bought twice", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			packages := PackageRepo{DB: tx}
			r := PurchaseRepo{DB: tx}

			user, err := users.CreateUser(t.Context(), "repeat@example.com", "hash", nil)
			require.NoError(t, err)
			pkg, err := packages.CreatePackage(t.Context(), starterParams())
			require.NoError(t, err)

			_, err = r.CreatePurchase(t.Context(), user.ID, pkg.ID)
			require.NoError(t, err)
			_, err = r.CreatePurchase(t.Context(), user.ID, pkg.ID)
			require.NoError(t, err)

			purchases, err := r.ListUserPurchases(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Len(t, purchases, 2)
		})
	})
}
