package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the market engine and gateway.
const (
	EventMarketCreated         = "FlightDelayMarketCreated"
	EventParticipatedInMarket  = "ParticipatedInMarket"
	EventBetWithdrawn          = "BetWithdrawn"
	EventFlightStatusRequested = "FlightStatusRequested"
	EventDecisionRendered      = "DecisionRendered"
	EventDecisionPostponed     = "DecisionPostponed"
	EventRewardWithdrawn       = "RewardWithdrawn"
	EventLiquidityProvided     = "LiquidityProvided"
	EventMarketSponsored       = "MarketSponsored"
)

// MarketEvent is an append-only log row. Payload is a JSON document whose
// shape depends on the event type.
type MarketEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MarketAddress string    `gorm:"size:42;not null;index" json:"market_address"`
	Type          string    `gorm:"size:50;not null;index" json:"type"`
	Payload       string    `gorm:"type:text" json:"payload"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MarketEvent) TableName() string {
	return "market_events"
}
