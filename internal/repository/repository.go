package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/models"
)

// Storage is the unit-of-work boundary over long term data
// Every repo obtained from one Storage shares the same connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Package() PackageRepo
	Purchase() PurchaseRepo
	Deposit() DepositRepo
	Withdrawal() WithdrawalRepo
	Transaction() TransactionRepo

	// Run fn inside a database transaction
	// Commits if fn returns nil, rolls back the whole unit otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, hashedPassword string, ltcAddress *string) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	// forUpdate locks the user row for the rest of the enclosing transaction
	GetUserByID(ctx context.Context, userID uuid.UUID, forUpdate bool) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Users eligible for the daily earnings run: not blocked, at least one purchase
	ListEarningUserIDs(ctx context.Context) ([]uuid.UUID, error)

	// Apply signed delta to the user balance and return the updated user
	// The balances table forbids negative results, so a violating delta
	// surfaces as apperrors.ErrBalanceInsufficient
	UpdateBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (models.User, error)

	// Set balance to an absolute value (operator override)
	SetBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) (models.User, error)

	IncrementMiningPower(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (models.User, error)
	SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool) (models.User, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token even if it is expired or used already
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Mark token as used
	// If the token is already used must return apperrors.ErrRefreshTokenIsUsed
	// and must not overwrite the existing used_at
	MarkUsed(ctx context.Context, tokenString string) (usedAt models.RefreshToken, err error)
}

type CreatePackageParams struct {
	Name               string
	Price              decimal.Decimal
	MiningPower        decimal.Decimal
	DailyProfitPercent decimal.Decimal
	IsActive           bool
}

// Partial update: nil fields are left unchanged
type UpdatePackageParams struct {
	Name               *string
	Price              *decimal.Decimal
	MiningPower        *decimal.Decimal
	DailyProfitPercent *decimal.Decimal
	IsActive           *bool
}

type PackageRepo interface {
	// If package with the name exists must return apperrors.ErrPackageNameTaken
	CreatePackage(ctx context.Context, arg CreatePackageParams) (models.Package, error)
	UpdatePackage(ctx context.Context, id uuid.UUID, arg UpdatePackageParams) (models.Package, error)

	// If not found must return apperrors.ErrPackageNotFound
	GetPackage(ctx context.Context, id uuid.UUID) (models.Package, error)

	// Ordered by price ascending
	ListPackages(ctx context.Context, activeOnly bool) ([]models.Package, error)
}

type PurchaseRepo interface {
	CreatePurchase(ctx context.Context, userID uuid.UUID, packageID uuid.UUID) (models.Purchase, error)

	// Purchases with their current package attributes
	ListUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
}

type DepositRepo interface {
	// If a deposit with the txid exists already (any user, any status)
	// must return apperrors.ErrDepositTxIDTaken
	CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txid string) (models.Deposit, error)

	// forUpdate locks the deposit row for the rest of the enclosing transaction
	GetDeposit(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Deposit, error)

	// Transition a pending deposit to the given terminal status
	// Not pending: apperrors.ErrAlreadyProcessed, missing: apperrors.ErrDepositNotFound
	SetStatus(ctx context.Context, id uuid.UUID, status string) (models.Deposit, error)

	ListDeposits(ctx context.Context) ([]models.Deposit, error)
	SumConfirmed(ctx context.Context) (decimal.Decimal, error)
}

type WithdrawalRepo interface {
	CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount, fee decimal.Decimal, ltcAddress string) (models.Withdrawal, error)

	GetWithdrawal(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Withdrawal, error)

	// Transition pending -> completed with the payout txid
	Complete(ctx context.Context, id uuid.UUID, txid string) (models.Withdrawal, error)

	// Transition pending -> rejected
	Reject(ctx context.Context, id uuid.UUID) (models.Withdrawal, error)

	ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
	SumCompleted(ctx context.Context) (decimal.Decimal, error)
}

type TransactionRepo interface {
	// Append one audit log entry, never updated or deleted afterwards
	CreateTransaction(ctx context.Context, userID uuid.UUID, txType string, amount decimal.Decimal, description string) (models.Transaction, error)

	// Newest first; limit <= 0 means no limit
	ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)

	// Sum of signed amounts for the user (zero if no entries)
	SumUserAmounts(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// Claim the (user, cycleDate) earnings slot
	// Returns false if the slot was claimed before, so the cycle never credits twice
	ClaimEarningCycle(ctx context.Context, userID uuid.UUID, cycleDate string) (bool, error)
}
