package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mining package offered by the platform
// Deactivation stops new purchases but existing purchases keep earning
type Package struct {
	ID                 uuid.UUID
	CreatedAt          time.Time
	Name               string
	Price              decimal.Decimal
	MiningPower        decimal.Decimal
	DailyProfitPercent decimal.Decimal
	IsActive           bool
}

// Purchase is one package instance owned by a user
// Created exactly once per buy, never mutated or deleted
type Purchase struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    uuid.UUID
	PackageID uuid.UUID

	// Package attributes as they are now (not a snapshot at purchase time)
	Package Package
}
