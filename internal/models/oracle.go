package models

import (
	"time"

	"github.com/google/uuid"
)

type OracleRequestStatus string

const (
	OracleRequestStatusPending   OracleRequestStatus = "PENDING"
	OracleRequestStatusFulfilled OracleRequestStatus = "FULFILLED"
)

// OracleRequest is an outstanding flight-status query filed at settlement
// time. A postponed market files a fresh request on retry.
type OracleRequest struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID     string              `gorm:"size:64;uniqueIndex;not null" json:"request_id"`
	MarketAddress string              `gorm:"size:42;not null;index" json:"market_address"`
	FlightName    string              `gorm:"size:32;not null" json:"flight_name"`
	DepartureDate uint64              `gorm:"not null" json:"departure_date"`
	Status        OracleRequestStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	CreatedAt     time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	FulfilledAt   *time.Time          `json:"fulfilled_at"`
}

func (OracleRequest) TableName() string {
	return "oracle_requests"
}

// FulfillRequest is the oracle callback body.
type FulfillRequest struct {
	RequestID    string `json:"request_id" binding:"required"`
	FlightStatus string `json:"flight_status" binding:"required"`
	DelayMinutes uint32 `json:"delay_minutes"`
}
