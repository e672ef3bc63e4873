package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypePurchase   = "purchase"
	TransactionTypeEarning    = "earning"
	TransactionTypeAdjustment = "adjustment"
)

// Transaction is one immutable entry of the per-user audit log
// Amount is signed: credits positive, debits negative
// Every balance change writes exactly one entry in the same database transaction
type Transaction struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UserID      uuid.UUID
	Type        string
	Amount      decimal.Decimal
	Description string
}
