package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "OPEN"
	MarketStatusSettling  MarketStatus = "SETTLING"
	MarketStatusSettled   MarketStatus = "SETTLED"
	MarketStatusPostponed MarketStatus = "POSTPONED"
)

type MarketSide string

const (
	SideYes MarketSide = "YES"
	SideNo  MarketSide = "NO"
)

type MarketResult string

const (
	ResultUndefined MarketResult = "UNDEFINED"
	ResultYes       MarketResult = "YES"
	ResultNo        MarketResult = "NO"
)

type PayoutMode string

const (
	PayoutModeBurn  PayoutMode = "BURN"
	PayoutModeBuyer PayoutMode = "BUYER"
)

// Flight status codes reported by the oracle
const (
	FlightStatusLanded    = "L"
	FlightStatusCancelled = "C"
	FlightStatusActive    = "A"
)

// Market represents a single flight-delay market with its own token pair
// and bank. All monetary fields are integer wei held in decimals.
type Market struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID      string          `gorm:"size:66;uniqueIndex;not null" json:"market_id"`
	Address       string          `gorm:"size:42;uniqueIndex;not null" json:"address"`
	Product       string          `gorm:"size:42;not null;index" json:"product"`
	Creator       string          `gorm:"size:42;not null;index" json:"creator"`
	UniqueID      uint64          `gorm:"not null" json:"unique_id"`
	YesTokenID    uint64          `gorm:"not null" json:"yes_token_id"`
	NoTokenID     uint64          `gorm:"not null" json:"no_token_id"`
	FlightName    string          `gorm:"size:32;not null" json:"flight_name"`
	DepartureDate uint64          `gorm:"not null" json:"departure_date"`
	DelayMinutes  uint32          `gorm:"not null" json:"delay_minutes"`
	LPBid         decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"lp_bid"`
	MinBid        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"min_bid"`
	MaxBid        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"max_bid"`
	FeeBps        int64           `gorm:"not null" json:"fee_bps"`
	InitPBps      int64           `gorm:"not null" json:"init_p_bps"`
	CutoffTime    int64           `gorm:"not null" json:"cutoff_time"`
	ClosingTime   int64           `gorm:"not null" json:"closing_time"`
	Mode          PayoutMode      `gorm:"size:20;not null;default:BURN" json:"mode"`
	Status        MarketStatus    `gorm:"size:20;not null;default:OPEN;index" json:"status"`
	Result        MarketResult    `gorm:"size:20;not null;default:UNDEFINED" json:"result"`
	OutcomeStatus string          `gorm:"size:4" json:"outcome_status"`
	OutcomeDelay  uint32          `gorm:"default:0" json:"outcome_delay"`
	FinalBank     decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"final_bank"`
	FinalSupply   decimal.Decimal `gorm:"type:numeric(78,0);default:0" json:"final_supply"`
	RequestID     *string         `gorm:"size:64;index" json:"request_id"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	SettledAt     *time.Time      `json:"settled_at"`
	UpdatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Market) TableName() string {
	return "markets"
}

// TokenID returns the claim token id for a side of this market.
func (m *Market) TokenID(side MarketSide) uint64 {
	if side == SideYes {
		return m.YesTokenID
	}
	return m.NoTokenID
}

// WinningSide maps the recorded result to a side. Only valid once settled.
func (m *Market) WinningSide() MarketSide {
	if m.Result == ResultNo {
		return SideNo
	}
	return SideYes
}

// MarketContribution tracks a holder's cumulative net stake on one side.
// The pair (market, holder, side) is unique; the max-bid cap is enforced
// over the sum of both sides.
type MarketContribution struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MarketAddress string          `gorm:"size:42;not null;uniqueIndex:idx_contrib_market_holder_side" json:"market_address"`
	Holder        string          `gorm:"size:42;not null;uniqueIndex:idx_contrib_market_holder_side" json:"holder"`
	Side          MarketSide      `gorm:"size:10;not null;uniqueIndex:idx_contrib_market_holder_side" json:"side"`
	Amount        decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"amount"`
	UpdatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MarketContribution) TableName() string {
	return "market_contributions"
}

// FlightInfo identifies the insured flight.
type FlightInfo struct {
	FlightName    string `json:"flight_name" binding:"required"`
	DepartureDate uint64 `json:"departure_date" binding:"required"`
	DelayMinutes  uint32 `json:"delay_minutes" binding:"required"`
}

// MarketConfig is the per-market curve and lifecycle configuration carried
// inside a creation packet. Amounts are wei strings.
type MarketConfig struct {
	LPBid       string     `json:"lp_bid" binding:"required"`
	MinBid      string     `json:"min_bid" binding:"required"`
	MaxBid      string     `json:"max_bid" binding:"required"`
	FeeBps      int64      `json:"fee_bps"`
	InitPBps    int64      `json:"init_p_bps"`
	CutoffTime  int64      `json:"cutoff_time" binding:"required"`
	ClosingTime int64      `json:"closing_time" binding:"required"`
	Mode        PayoutMode `json:"mode"`
}

// MarketParams is the payload of a signed creation packet.
type MarketParams struct {
	Config MarketConfig `json:"config"`
	Flight FlightInfo   `json:"flight"`
}
