package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"flight-markets/internal/models"

	"gorm.io/gorm"
)

// OracleService routes flight status answers back into the market engine.
// The heavy checks (sender authorization, state machine) live in
// MarketService.RecordDecision; this service owns the request book.
type OracleService struct {
	db      *gorm.DB
	markets *MarketService
}

func NewOracleService(db *gorm.DB, markets *MarketService) *OracleService {
	return &OracleService{db: db, markets: markets}
}

// PendingRequests lists unanswered flight status requests, oldest first.
func (os *OracleService) PendingRequests(ctx context.Context, limit int) ([]models.OracleRequest, error) {
	var requests []models.OracleRequest
	err := os.db.WithContext(ctx).
		Where("status = ?", models.OracleRequestStatusPending).
		Order("created_at ASC").Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list oracle requests: %w", err)
	}
	return requests, nil
}

// FulfillFlightStatus answers a pending request. A postponed decision
// closes the request; the retry files a fresh one.
func (os *OracleService) FulfillFlightStatus(ctx context.Context, sender, requestID, flightStatus string, delayMinutes uint32) error {
	var request models.OracleRequest
	err := os.db.WithContext(ctx).
		Where("request_id = ? AND status = ?", requestID, models.OracleRequestStatusPending).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownRequest
	}
	if err != nil {
		return fmt.Errorf("failed to load oracle request: %w", err)
	}

	if err := os.markets.RecordDecision(ctx, request.MarketAddress, sender, flightStatus, delayMinutes); err != nil {
		return err
	}

	now := time.Now()
	err = os.db.WithContext(ctx).Model(&models.OracleRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]interface{}{
			"status":       models.OracleRequestStatusFulfilled,
			"fulfilled_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to close oracle request: %w", err)
	}

	log.Printf("[Oracle] Request %s fulfilled: status %q delay %d", requestID, flightStatus, delayMinutes)
	return nil
}
