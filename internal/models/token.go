package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FirstTokenID is the id assigned to the first registered claim token.
// Lower ids are reserved.
const FirstTokenID uint64 = 10

// TokenSlots is the number of claim tokens each market owns (YES and NO).
const TokenSlots uint64 = 2

// ClaimToken is the authorization record for one outcome token. Only the
// market that owns a token may mint or burn it.
type ClaimToken struct {
	TokenID       uint64          `gorm:"primaryKey;autoIncrement:false" json:"token_id"`
	MarketAddress string          `gorm:"size:42;not null;index" json:"market_address"`
	Side          MarketSide      `gorm:"size:10;not null" json:"side"`
	TotalSupply   decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"total_supply"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ClaimToken) TableName() string {
	return "claim_tokens"
}

// TokenBalance is one holder's balance of one claim token.
type TokenBalance struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TokenID   uint64          `gorm:"not null;uniqueIndex:idx_token_holder" json:"token_id"`
	Holder    string          `gorm:"size:42;not null;uniqueIndex:idx_token_holder" json:"holder"`
	Balance   decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"balance"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TokenBalance) TableName() string {
	return "token_balances"
}
