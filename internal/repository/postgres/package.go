package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
)

type PackageRepo struct {
	DB DBTX
}

const createPackage = `-- name: CreatePackage
INSERT INTO packages (id, name, price, mining_power, daily_profit_percent, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, name, price, mining_power, daily_profit_percent, is_active
`

func (r *PackageRepo) CreatePackage(ctx context.Context, arg repository.CreatePackageParams) (models.Package, error) {
	rows, _ := r.DB.Query(ctx, createPackage, uuid.New(), arg.Name, arg.Price, arg.MiningPower, arg.DailyProfitPercent, arg.IsActive)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return pkg, apperrors.ErrPackageNameTaken
		}

		return pkg, fmt.Errorf("db error: %w", err)
	}

	return pkg, nil
}

const updatePackage = `-- name: UpdatePackage
UPDATE packages
SET name = COALESCE($2, name),
    price = COALESCE($3, price),
    mining_power = COALESCE($4, mining_power),
    daily_profit_percent = COALESCE($5, daily_profit_percent),
    is_active = COALESCE($6, is_active)
WHERE id = $1
RETURNING id, created_at, name, price, mining_power, daily_profit_percent, is_active
`

func (r *PackageRepo) UpdatePackage(ctx context.Context, id uuid.UUID, arg repository.UpdatePackageParams) (models.Package, error) {
	rows, _ := r.DB.Query(ctx, updatePackage, id, arg.Name, arg.Price, arg.MiningPower, arg.DailyProfitPercent, arg.IsActive)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)

	switch {
	case err == nil:
		return pkg, nil
	case errors.Is(err, pgx.ErrNoRows):
		return pkg, apperrors.ErrPackageNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return pkg, apperrors.ErrPackageNameTaken
		}

		return pkg, fmt.Errorf("db error: %w", err)
	}
}

const getPackage = `-- name: GetPackage
SELECT id, created_at, name, price, mining_power, daily_profit_percent, is_active
FROM packages
WHERE id = $1
`

func (r *PackageRepo) GetPackage(ctx context.Context, id uuid.UUID) (models.Package, error) {
	rows, _ := r.DB.Query(ctx, getPackage, id)
	pkg, err := pgx.CollectOneRow(rows, rowToPackage)

	switch {
	case err == nil:
		return pkg, nil
	case errors.Is(err, pgx.ErrNoRows):
		return pkg, apperrors.ErrPackageNotFound
	default:
		return pkg, fmt.Errorf("db error: %w", err)
	}
}

const listPackages = `-- name: ListPackages
SELECT id, created_at, name, price, mining_power, daily_profit_percent, is_active
FROM packages
WHERE NOT $1::boolean OR is_active
ORDER BY price
`

func (r *PackageRepo) ListPackages(ctx context.Context, activeOnly bool) ([]models.Package, error) {
	rows, _ := r.DB.Query(ctx, listPackages, activeOnly)
	packages, err := pgx.CollectRows(rows, rowToPackage)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return packages, nil
}

func rowToPackage(row pgx.CollectableRow) (models.Package, error) {
	var p models.Package
	err := row.Scan(&p.ID, &p.CreatedAt, &p.Name, &p.Price, &p.MiningPower, &p.DailyProfitPercent, &p.IsActive)
	return p, err
}
