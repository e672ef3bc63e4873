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

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, password_hash, ltc_address)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
`

func (r *UserRepo) CreateUser(ctx context.Context, email string, hashedPassword string, ltcAddress *string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), email, hashedPassword, ltcAddress)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.User, error) {
	query := getUserByID
	if forUpdate {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.DB.Query(ctx, query, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, mapUserErr(err)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, mapUserErr(err)
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
FROM users
ORDER BY created_at DESC
`

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func (r *UserRepo) CountUsers(ctx context.Context) (int64, error) {
	rows, _ := r.DB.Query(ctx, `SELECT count(*) FROM users`)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

const listEarningUserIDs = `-- name: ListEarningUserIDs
SELECT DISTINCT u.id
FROM users u
JOIN purchases p ON p.user_id = u.id
WHERE NOT u.is_blocked
`

func (r *UserRepo) ListEarningUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, _ := r.DB.Query(ctx, listEarningUserIDs)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

const updateBalance = `-- name: UpdateBalance
UPDATE users
SET balance = balance + $2
WHERE id = $1
RETURNING id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
`

func (r *UserRepo) UpdateBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateBalance, userID, delta)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return user, apperrors.ErrBalanceInsufficient
		}
	}

	return user, mapUserErr(err)
}

const setBalance = `-- name: SetBalance
UPDATE users
SET balance = $2
WHERE id = $1
RETURNING id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
`

func (r *UserRepo) SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setBalance, userID, balance)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return user, apperrors.ErrBalanceNegative
		}
	}

	return user, mapUserErr(err)
}

const incrementMiningPower = `-- name: IncrementMiningPower
UPDATE users
SET mining_power = mining_power + $2
WHERE id = $1
RETURNING id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
`

func (r *UserRepo) IncrementMiningPower(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (models.User, error) {
	rows, _ := r.DB.Query(ctx, incrementMiningPower, userID, delta)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, mapUserErr(err)
}

const setBlocked = `-- name: SetBlocked
UPDATE users
SET is_blocked = $2
WHERE id = $1
RETURNING id, created_at, email, password_hash, ltc_address, balance, mining_power, is_admin, is_blocked
`

func (r *UserRepo) SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setBlocked, userID, blocked)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, mapUserErr(err)
}

func mapUserErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.HashedPassword, &u.LtcAddress, &u.Balance, &u.MiningPower, &u.IsAdmin, &u.IsBlocked)
	return u, err
}
