package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// Withdrawal request
// Amount + Fee is debited when the request is created, Fee keeps the rate
// captured at request time so rejection refunds exactly what was reserved
type Withdrawal struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	LtcAddress string
	Status     string
	TxID       *string // payout txid, set on completion
}
