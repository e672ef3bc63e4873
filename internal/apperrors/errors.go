package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserBlocked       = errors.New("user account is blocked")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrDepositNotFound    = errors.New("deposit not found")
	ErrDepositTxIDTaken   = errors.New("deposit txid already submitted")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrAlreadyProcessed   = errors.New("already processed")

	ErrPackageNotFound    = errors.New("package not found")
	ErrPackageNameTaken   = errors.New("package name already exists")
	ErrPackageUnavailable = errors.New("package not available")

	ErrBalanceInsufficient = errors.New("insufficient balance")
	ErrBalanceNegative     = errors.New("balance must not be negative")
	ErrAmountTooSmall      = errors.New("amount is below the allowed minimum")
	ErrAddressInvalid      = errors.New("ltc address is invalid")
	ErrTxIDInvalid         = errors.New("txid is invalid")
)
