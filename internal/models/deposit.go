package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DepositStatusPending   = "pending"
	DepositStatusConfirmed = "confirmed"
	DepositStatusRejected  = "rejected"
)

// Deposit claim submitted by a user
// TxID must be globally unique, transitions pending -> confirmed|rejected exactly once
type Deposit struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uuid.UUID
	Amount    decimal.Decimal
	TxID      string
	Status    string
}
