package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	HashedPassword string
	LtcAddress     *string
	Balance        decimal.Decimal
	MiningPower    decimal.Decimal
	IsAdmin        bool
	IsBlocked      bool
}
