package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/models"
)

type WithdrawalRepo struct {
	DB DBTX
}

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawals (id, user_id, amount, fee, ltc_address)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at, user_id, amount, fee, ltc_address, status, txid
`

func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount, fee decimal.Decimal, ltcAddress string) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, createWithdrawal, uuid.New(), userID, amount, fee, ltcAddress)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)
	if err != nil {
		return withdrawal, fmt.Errorf("db error: %w", err)
	}

	return withdrawal, nil
}

const getWithdrawal = `-- name: GetWithdrawal
SELECT id, created_at, updated_at, user_id, amount, fee, ltc_address, status, txid
FROM withdrawals
WHERE id = $1
`

func (r *WithdrawalRepo) GetWithdrawal(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Withdrawal, error) {
	query := getWithdrawal
	if forUpdate {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.DB.Query(ctx, query, id)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	switch {
	case err == nil:
		return withdrawal, nil
	case errors.Is(err, pgx.ErrNoRows):
		return withdrawal, apperrors.ErrWithdrawalNotFound
	default:
		return withdrawal, fmt.Errorf("db error: %w", err)
	}
}

const completeWithdrawal = `-- name: CompleteWithdrawal
UPDATE withdrawals
SET status = 'completed', txid = $2, updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, updated_at, user_id, amount, fee, ltc_address, status, txid
`

func (r *WithdrawalRepo) Complete(ctx context.Context, id uuid.UUID, txid string) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, completeWithdrawal, id, txid)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	return withdrawal, r.mapTransitionErr(ctx, id, err)
}

const rejectWithdrawal = `-- name: RejectWithdrawal
UPDATE withdrawals
SET status = 'rejected', updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING id, created_at, updated_at, user_id, amount, fee, ltc_address, status, txid
`

func (r *WithdrawalRepo) Reject(ctx context.Context, id uuid.UUID) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, rejectWithdrawal, id)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)

	return withdrawal, r.mapTransitionErr(ctx, id, err)
}

func (r *WithdrawalRepo) mapTransitionErr(ctx context.Context, id uuid.UUID, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either the withdrawal does not exist or it is not pending anymore
		if _, getErr := r.GetWithdrawal(ctx, id, false); getErr != nil {
			return getErr
		}
		return apperrors.ErrAlreadyProcessed
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const listWithdrawals = `-- name: ListWithdrawals
SELECT id, created_at, updated_at, user_id, amount, fee, ltc_address, status, txid
FROM withdrawals
ORDER BY created_at DESC
`

func (r *WithdrawalRepo) ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, listWithdrawals)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return withdrawals, nil
}

const sumCompletedWithdrawals = `-- name: SumCompletedWithdrawals
SELECT COALESCE(sum(amount), 0)
FROM withdrawals
WHERE status = 'completed'
`

func (r *WithdrawalRepo) SumCompleted(ctx context.Context) (decimal.Decimal, error) {
	rows, _ := r.DB.Query(ctx, sumCompletedWithdrawals)
	sum, err := pgx.CollectOneRow(rows, pgx.RowTo[decimal.Decimal])
	if err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

func rowToWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt, &w.UserID, &w.Amount, &w.Fee, &w.LtcAddress, &w.Status, &w.TxID)
	return w, err
}
