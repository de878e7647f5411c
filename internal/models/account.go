package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferKind string

const (
	TransferKindDeposit     TransferKind = "DEPOSIT"
	TransferKindWithdraw    TransferKind = "WITHDRAW"
	TransferKindBet         TransferKind = "BET"
	TransferKindFee         TransferKind = "FEE"
	TransferKindLiquidity   TransferKind = "LIQUIDITY"
	TransferKindPayout      TransferKind = "PAYOUT"
	TransferKindSponsorship TransferKind = "SPONSORSHIP"
)

// Account is a base-currency balance keyed by address. Markets, the
// liquidity wallet, the fee collector and participants all hold one.
type Account struct {
	Address   string          `gorm:"size:42;primaryKey" json:"address"`
	Balance   decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"balance"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// FundsTransfer records every movement between accounts.
type FundsTransfer struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FromAddress   string          `gorm:"size:42;not null;index" json:"from_address"`
	ToAddress     string          `gorm:"size:42;not null;index" json:"to_address"`
	Amount        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"amount"`
	Kind          TransferKind    `gorm:"size:20;not null" json:"kind"`
	MarketAddress *string         `gorm:"size:42;index" json:"market_address"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (FundsTransfer) TableName() string {
	return "funds_transfers"
}
