package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ovoronin/minefarm/internal/models"
)

type PurchaseRepo struct {
	DB DBTX
}

const createPurchase = `-- name: CreatePurchase
WITH inserted AS (
	INSERT INTO purchases (id, user_id, package_id)
	VALUES ($1, $2, $3)
	RETURNING id, created_at, user_id, package_id
)
SELECT i.id, i.created_at, i.user_id, i.package_id,
       p.id, p.created_at, p.name, p.price, p.mining_power, p.daily_profit_percent, p.is_active
FROM inserted i
JOIN packages p ON p.id = i.package_id
`

func (r *PurchaseRepo) CreatePurchase(ctx context.Context, userID uuid.UUID, packageID uuid.UUID) (models.Purchase, error) {
	rows, _ := r.DB.Query(ctx, createPurchase, uuid.New(), userID, packageID)
	purchase, err := pgx.CollectOneRow(rows, rowToPurchase)
	if err != nil {
		return purchase, fmt.Errorf("db error: %w", err)
	}

	return purchase, nil
}

const listUserPurchases = `-- name: ListUserPurchases
SELECT pu.id, pu.created_at, pu.user_id, pu.package_id,
       p.id, p.created_at, p.name, p.price, p.mining_power, p.daily_profit_percent, p.is_active
FROM purchases pu
JOIN packages p ON p.id = pu.package_id
WHERE pu.user_id = $1
ORDER BY pu.created_at DESC
`

func (r *PurchaseRepo) ListUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	rows, _ := r.DB.Query(ctx, listUserPurchases, userID)
	purchases, err := pgx.CollectRows(rows, rowToPurchase)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return purchases, nil
}

func rowToPurchase(row pgx.CollectableRow) (models.Purchase, error) {
	var pu models.Purchase
	err := row.Scan(
		&pu.ID, &pu.CreatedAt, &pu.UserID, &pu.PackageID,
		&pu.Package.ID, &pu.Package.CreatedAt, &pu.Package.Name, &pu.Package.Price,
		&pu.Package.MiningPower, &pu.Package.DailyProfitPercent, &pu.Package.IsActive,
	)
	return pu, err
}
