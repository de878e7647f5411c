package services

import (
	"encoding/json"
	"fmt"
	"time"

	"flight-markets/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// recordEvent appends one row to the market event log.
func recordEvent(tx *gorm.DB, marketAddress, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	event := models.MarketEvent{
		ID:            uuid.New(),
		MarketAddress: marketAddress,
		Type:          eventType,
		Payload:       string(data),
		CreatedAt:     time.Now(),
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}
