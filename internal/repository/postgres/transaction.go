package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, user_id, type, amount, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, user_id, type, amount, description
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, userID uuid.UUID, txType string, amount decimal.Decimal, description string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction, uuid.New(), userID, txType, amount, description)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return transaction, fmt.Errorf("db error: %w", err)
	}

	return transaction, nil
}

const listUserTransactions = `-- name: ListUserTransactions
SELECT id, created_at, user_id, type, amount, description
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (r *TransactionRepo) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, _ := r.DB.Query(ctx, listUserTransactions, userID, limitArg)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const sumUserAmounts = `-- name: SumUserAmounts
SELECT COALESCE(sum(amount), 0)
FROM transactions
WHERE user_id = $1
`

func (r *TransactionRepo) SumUserAmounts(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	rows, _ := r.DB.Query(ctx, sumUserAmounts, userID)
	sum, err := pgx.CollectOneRow(rows, pgx.RowTo[decimal.Decimal])
	if err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}

	return sum, nil
}

const claimEarningCycle = `-- name: ClaimEarningCycle
INSERT INTO earning_cycles (user_id, cycle_date)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

// Claim the per-user slot of an earnings cycle
// Returns false if the slot is claimed already so the caller skips the credit
// ON CONFLICT keeps the enclosing transaction usable on a repeated claim
func (r *TransactionRepo) ClaimEarningCycle(ctx context.Context, userID uuid.UUID, cycleDate string) (bool, error) {
	tag, err := r.DB.Exec(ctx, claimEarningCycle, userID, cycleDate)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Type, &t.Amount, &t.Description)
	return t, err
}
