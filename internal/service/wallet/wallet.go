package wallet

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ovoronin/minefarm/internal/apperrors"
	"github.com/ovoronin/minefarm/internal/logger"
	"github.com/ovoronin/minefarm/internal/models"
	"github.com/ovoronin/minefarm/internal/repository"
	"github.com/ovoronin/minefarm/internal/service/notify"
)

const minTxIDLen = 10

var ltcAddressRegex = regexp.MustCompile(`^[LM3][a-km-zA-HJ-NP-Z1-9]{25,34}$`)

// Platform limits, read once at service construction
// A fee rate change never alters reservations already written to withdrawal rows
type Limits struct {
	MinDeposit     decimal.Decimal
	MinWithdraw    decimal.Decimal
	WithdrawFee    decimal.Decimal
	DepositAddress string
}

type notifier interface {
	Notify(msg notify.Message)
}

// WalletService owns every balance changing operation
// Each operation runs as one storage transaction with the user row locked,
// so concurrent operations on the same user are linearized and an audit log
// entry is written in the same unit as the balance change
type WalletService struct {
	storage  repository.Storage
	limits   Limits
	notifier notifier
	logger   logger.Logger
}

func NewService(storage repository.Storage, limits Limits, notifier notifier, l logger.Logger) *WalletService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &WalletService{
		storage:  storage,
		limits:   limits,
		notifier: notifier,
		logger:   l,
	}
}

func (s *WalletService) Limits() Limits {
	return s.limits
}

// SubmitDeposit registers a deposit claim for later operator review
// No balance effect until the deposit is confirmed
func (s *WalletService) SubmitDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txid string) (models.Deposit, error) {
	var deposit models.Deposit

	if amount.LessThan(s.limits.MinDeposit) {
		return deposit, apperrors.ErrAmountTooSmall
	}
	if len(txid) < minTxIDLen {
		return deposit, apperrors.ErrTxIDInvalid
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err := st.User().GetUserByID(ctx, userID, false)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return apperrors.ErrUserBlocked
		}

		deposit, err = st.Deposit().CreateDeposit(ctx, userID, amount, txid)
		return err
	})

	return deposit, err
}

// ConfirmDeposit credits the deposit amount to the user balance
// Deposit row is locked first, then the user row; both transitions and the
// audit entry commit atomically
func (s *WalletService) ConfirmDeposit(ctx context.Context, depositID uuid.UUID) (models.Deposit, error) {
	var deposit models.Deposit
	var user models.User

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error

		deposit, err = st.Deposit().GetDeposit(ctx, depositID, true)
		if err != nil {
			return err
		}
		if deposit.Status != models.DepositStatusPending {
			return apperrors.ErrAlreadyProcessed
		}

		user, err = st.User().GetUserByID(ctx, deposit.UserID, true)
		if err != nil {
			return err
		}

		deposit, err = st.Deposit().SetStatus(ctx, depositID, models.DepositStatusConfirmed)
		if err != nil {
			return err
		}

		user, err = st.User().UpdateBalance(ctx, deposit.UserID, deposit.Amount)
		if err != nil {
			return err
		}

		_, err = st.Transaction().CreateTransaction(
			ctx,
			deposit.UserID,
			models.TransactionTypeDeposit,
			deposit.Amount,
			fmt.Sprintf("Deposit approved (TXID %s)", deposit.TxID),
		)
		return err
	})
	if err != nil {
		return deposit, err
	}

	s.notifier.Notify(notify.Message{
		Kind:   notify.KindDepositApproved,
		Email:  user.Email,
		Amount: deposit.Amount,
	})

	return deposit, nil
}

// RejectDeposit marks a pending deposit rejected
// Funds were never credited so there is no balance effect and no audit entry
func (s *WalletService) RejectDeposit(ctx context.Context, depositID uuid.UUID) (models.Deposit, error) {
	var deposit models.Deposit

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error

		deposit, err = st.Deposit().GetDeposit(ctx, depositID, true)
		if err != nil {
			return err
		}
		if deposit.Status != models.DepositStatusPending {
			return apperrors.ErrAlreadyProcessed
		}

		deposit, err = st.Deposit().SetStatus(ctx, depositID, models.DepositStatusRejected)
		return err
	})

	return deposit, err
}

// RequestWithdrawal reserves amount plus the current fee from the user balance
// The fee is stored on the withdrawal row so a later rejection refunds exactly
// the reserved sum no matter how the configured rate changes in between
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ltcAddress string) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	if amount.LessThan(s.limits.MinWithdraw) {
		return withdrawal, apperrors.ErrAmountTooSmall
	}
	if !ltcAddressRegex.MatchString(ltcAddress) {
		return withdrawal, apperrors.ErrAddressInvalid
	}

	fee := s.limits.WithdrawFee
	total := amount.Add(fee)

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err := st.User().GetUserByID(ctx, userID, true)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return apperrors.ErrUserBlocked
		}
		if user.Balance.LessThan(total) {
			return apperrors.ErrBalanceInsufficient
		}

		if _, err = st.User().UpdateBalance(ctx, userID, total.Neg()); err != nil {
			return err
		}

		withdrawal, err = st.Withdrawal().CreateWithdrawal(ctx, userID, amount, fee, ltcAddress)
		if err != nil {
			return err
		}

		_, err = st.Transaction().CreateTransaction(
			ctx,
			userID,
			models.TransactionTypeWithdrawal,
			total.Neg(),
			fmt.Sprintf("Withdrawal request %s LTC (+%s LTC fee)", amount, fee),
		)
		return err
	})

	return withdrawal, err
}

// CompleteWithdrawal records the payout txid for a pending withdrawal
// The balance was debited at request time so there is no further balance effect
func (s *WalletService) CompleteWithdrawal(ctx context.Context, withdrawalID uuid.UUID, txid string) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	var user models.User

	if len(txid) < minTxIDLen {
		return withdrawal, apperrors.ErrTxIDInvalid
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error

		withdrawal, err = st.Withdrawal().GetWithdrawal(ctx, withdrawalID, true)
		if err != nil {
			return err
		}
		if withdrawal.Status != models.WithdrawalStatusPending {
			return apperrors.ErrAlreadyProcessed
		}

		withdrawal, err = st.Withdrawal().Complete(ctx, withdrawalID, txid)
		if err != nil {
			return err
		}

		user, err = st.User().GetUserByID(ctx, withdrawal.UserID, false)
		return err
	})
	if err != nil {
		return withdrawal, err
	}

	s.notifier.Notify(notify.Message{
		Kind:   notify.KindWithdrawalProcessed,
		Email:  user.Email,
		Amount: withdrawal.Amount,
		TxID:   txid,
	})

	return withdrawal, nil
}

// RejectWithdrawal returns the reserved funds to the user
// Refund uses the fee captured at request time, never the current rate
func (s *WalletService) RejectWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error

		withdrawal, err = st.Withdrawal().GetWithdrawal(ctx, withdrawalID, true)
		if err != nil {
			return err
		}
		if withdrawal.Status != models.WithdrawalStatusPending {
			return apperrors.ErrAlreadyProcessed
		}

		if _, err = st.User().GetUserByID(ctx, withdrawal.UserID, true); err != nil {
			return err
		}

		withdrawal, err = st.Withdrawal().Reject(ctx, withdrawalID)
		if err != nil {
			return err
		}

		refund := withdrawal.Amount.Add(withdrawal.Fee)
		if _, err = st.User().UpdateBalance(ctx, withdrawal.UserID, refund); err != nil {
			return err
		}

		_, err = st.Transaction().CreateTransaction(
			ctx,
			withdrawal.UserID,
			models.TransactionTypeAdjustment,
			refund,
			"Withdrawal rejected - funds returned",
		)
		return err
	})

	return withdrawal, err
}

// PurchasePackage exchanges balance for mining power
func (s *WalletService) PurchasePackage(ctx context.Context, userID uuid.UUID, packageID uuid.UUID) (models.Purchase, models.User, error) {
	var purchase models.Purchase
	var user models.User

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		pkg, err := st.Package().GetPackage(ctx, packageID)
		switch {
		case errors.Is(err, apperrors.ErrPackageNotFound):
			return apperrors.ErrPackageUnavailable
		case err != nil:
			return err
		case !pkg.IsActive:
			return apperrors.ErrPackageUnavailable
		}

		user, err = st.User().GetUserByID(ctx, userID, true)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return apperrors.ErrUserBlocked
		}
		if user.Balance.LessThan(pkg.Price) {
			return apperrors.ErrBalanceInsufficient
		}

		if _, err = st.User().UpdateBalance(ctx, userID, pkg.Price.Neg()); err != nil {
			return err
		}
		user, err = st.User().IncrementMiningPower(ctx, userID, pkg.MiningPower)
		if err != nil {
			return err
		}

		purchase, err = st.Purchase().CreatePurchase(ctx, userID, packageID)
		if err != nil {
			return err
		}

		_, err = st.Transaction().CreateTransaction(
			ctx,
			userID,
			models.TransactionTypePurchase,
			pkg.Price.Neg(),
			fmt.Sprintf("Purchased package %s", pkg.Name),
		)
		return err
	})
	if err != nil {
		return purchase, user, err
	}

	s.notifier.Notify(notify.Message{
		Kind:        notify.KindPackagePurchased,
		Email:       user.Email,
		Amount:      purchase.Package.Price,
		PackageName: purchase.Package.Name,
	})

	return purchase, user, nil
}

// AdjustUser is the operator override for balance and blocked flag
// A balance change writes its delta to the audit log, setting the same
// value is a no-op and produces no entry
func (s *WalletService) AdjustUser(ctx context.Context, userID uuid.UUID, newBalance *decimal.Decimal, blocked *bool) (models.User, error) {
	var user models.User

	if newBalance != nil && newBalance.IsNegative() {
		return user, apperrors.ErrBalanceNegative
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error

		user, err = st.User().GetUserByID(ctx, userID, true)
		if err != nil {
			return err
		}

		if newBalance != nil {
			delta := newBalance.Sub(user.Balance)

			user, err = st.User().SetBalance(ctx, userID, *newBalance)
			if err != nil {
				return err
			}

			if !delta.IsZero() {
				_, err = st.Transaction().CreateTransaction(
					ctx,
					userID,
					models.TransactionTypeAdjustment,
					delta,
					"Admin balance adjustment",
				)
				if err != nil {
					return err
				}
			}
		}

		if blocked != nil {
			user, err = st.User().SetBlocked(ctx, userID, *blocked)
			if err != nil {
				return err
			}
		}

		return nil
	})

	return user, err
}

func (s *WalletService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID, false)
}

func (s *WalletService) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	return s.storage.Transaction().ListUserTransactions(ctx, userID, limit)
}

func (s *WalletService) ListUserPurchases(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	return s.storage.Purchase().ListUserPurchases(ctx, userID)
}

// EstimateDailyProfit sums the per-day reward over the user's purchases
func (s *WalletService) EstimateDailyProfit(purchases []models.Purchase) decimal.Decimal {
	profit := decimal.Zero
	for _, p := range purchases {
		profit = profit.Add(p.Package.MiningPower.Mul(p.Package.DailyProfitPercent).Div(decimal.NewFromInt(100)))
	}
	return profit
}

type Summary struct {
	Users            int64
	TotalDeposits    decimal.Decimal
	TotalWithdrawals decimal.Decimal
}

func (s *WalletService) GetSummary(ctx context.Context) (Summary, error) {
	var summary Summary
	var err error

	if summary.Users, err = s.storage.User().CountUsers(ctx); err != nil {
		return summary, err
	}
	if summary.TotalDeposits, err = s.storage.Deposit().SumConfirmed(ctx); err != nil {
		return summary, err
	}
	if summary.TotalWithdrawals, err = s.storage.Withdrawal().SumCompleted(ctx); err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *WalletService) ListDeposits(ctx context.Context) ([]models.Deposit, error) {
	return s.storage.Deposit().ListDeposits(ctx)
}

func (s *WalletService) ListWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	return s.storage.Withdrawal().ListWithdrawals(ctx)
}

func (s *WalletService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.storage.User().ListUsers(ctx)
}

func (s *WalletService) ListPackages(ctx context.Context, activeOnly bool) ([]models.Package, error) {
	return s.storage.Package().ListPackages(ctx, activeOnly)
}

func (s *WalletService) CreatePackage(ctx context.Context, params repository.CreatePackageParams) (models.Package, error) {
	return s.storage.Package().CreatePackage(ctx, params)
}

func (s *WalletService) UpdatePackage(ctx context.Context, packageID uuid.UUID, params repository.UpdatePackageParams) (models.Package, error) {
	return s.storage.Package().UpdatePackage(ctx, packageID, params)
}
