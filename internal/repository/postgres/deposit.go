package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/models"
)

type DepositRepo struct {
	DB DBTX
}

const createDeposit = `-- name: CreateDeposit
INSERT INTO deposits (id, user_id, amount, txid)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at, user_id, amount, txid, status
`

func (r *DepositRepo) CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txid string) (models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, createDeposit, uuid.New(), userID, amount, txid)
	deposit, err := pgx.CollectOneRow(rows, rowToDeposit)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return deposit, apperrors.ErrDepositTxIDTaken
		}

		return deposit, fmt.Errorf("db error: %w", err)
	}

	return deposit, nil
}

const getDeposit = `-- name: GetDeposit
SELECT id, created_at, updated_at, user_id, amount, txid, status
FROM deposits
WHERE id = $1
`

func (r *DepositRepo) GetDeposit(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Deposit, error) {
	query := getDeposit
	if forUpdate {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.DB.Query(ctx, query, id)
	deposit, err := pgx.CollectOneRow(rows, rowToDeposit)

	switch {
	case err == nil:
		return deposit, nil
	case errors.Is(err, pgx.ErrNoRows):
		return deposit, apperrors.ErrDepositNotFound
	default:
		return deposit, fmt.Errorf("db error: %w", err)
	}
}

const setDepositStatus = `-- name: SetDepositStatus
UPDATE deposits
SET status = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, updated_at, user_id, amount, txid, status
`

// Transition a pending deposit to a terminal status
// The WHERE clause makes the transition happen at most once even under races
func (r *DepositRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) (models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, setDepositStatus, id, status)
	deposit, err := pgx.CollectOneRow(rows, rowToDeposit)

	switch {
	case err == nil:
		return deposit, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either the deposit does not exist or it is not pending anymore
		if _, getErr := r.GetDeposit(ctx, id, false); getErr != nil {
			return deposit, getErr
		}
		return deposit, apperrors.ErrAlreadyProcessed
	default:
		return deposit, fmt.Errorf("db error: %w", err)
	}
}

const listDeposits = `-- name: ListDeposits
SELECT id, created_at, updated_at, user_id, amount, txid, status
FROM deposits
ORDER BY created_at DESC
`

func (r *DepositRepo) ListDeposits(ctx context.Context) ([]models.Deposit, error) {
	rows, _ := r.DB.Query(ctx, listDeposits)
	deposits, err := pgx.CollectRows(rows, rowToDeposit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return deposits, nil
}

const sumConfirmedDeposits = `-- name: SumConfirmedDeposits
SELECT COALESCE(sum(amount), 0)
FROM deposits
WHERE status = 'confirmed'
`

func (r *DepositRepo) SumConfirmed(ctx context.Context) (decimal.Decimal, error) {
	rows, _ := r.DB.Query(ctx, sumConfirmedDeposits)
	sum, err := pgx.CollectOneRow(rows, pgx.RowTo[decimal.Decimal])
	if err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

func rowToDeposit(row pgx.CollectableRow) (models.Deposit, error) {
	var d models.Deposit
	err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.UserID, &d.Amount, &d.TxID, &d.Status)
	return d, err
}
