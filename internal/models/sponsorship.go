package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrustedSigner marks an address whose creation packets are accepted.
type TrustedSigner struct {
	Address   string    `gorm:"size:42;primaryKey" json:"address"`
	Trusted   bool      `gorm:"not null" json:"trusted"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TrustedSigner) TableName() string {
	return "trusted_signers"
}

// SponsoredBet records that a participant already received the one
// sponsored stake allowed per market.
type SponsoredBet struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MarketAddress string          `gorm:"size:42;not null;uniqueIndex:idx_sponsored_market_participant" json:"market_address"`
	Participant   string          `gorm:"size:42;not null;uniqueIndex:idx_sponsored_market_participant" json:"participant"`
	Amount        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SponsoredBet) TableName() string {
	return "sponsored_bets"
}
