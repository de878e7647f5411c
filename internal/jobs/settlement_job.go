package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"flight-markets/internal/services"
)

// SettlementJob files flight status requests for markets past closing.
type SettlementJob struct {
	marketService *services.MarketService
	interval      time.Duration
	stopChan      chan struct{}
}

// NewSettlementJob creates a new settlement poller
func NewSettlementJob(marketService *services.MarketService, interval time.Duration) *SettlementJob {
	return &SettlementJob{
		marketService: marketService,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the settlement loop
func (sj *SettlementJob) Start() {
	log.Printf("[SettlementJob] Starting settlement job (interval: %v)", sj.interval)

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sj.settleDueMarkets()
		case <-sj.stopChan:
			log.Println("[SettlementJob] Stopping settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (sj *SettlementJob) Stop() {
	close(sj.stopChan)
}

// settleDueMarkets finds markets past closing and files their requests
func (sj *SettlementJob) settleDueMarkets() {
	ctx := context.Background()

	markets, err := sj.marketService.SettleDue(ctx, 100)
	if err != nil {
		log.Printf("[SettlementJob] Error fetching settleable markets: %v", err)
		return
	}

	if len(markets) == 0 {
		return
	}

	log.Printf("[SettlementJob] Settling %d markets", len(markets))

	settledCount := 0
	for _, market := range markets {
		requestID, err := sj.marketService.TrySettle(ctx, market.Address)
		if err != nil {
			// Another caller may have settled it between the list and here.
			if errors.Is(err, services.ErrWrongMarketState) {
				continue
			}
			log.Printf("[SettlementJob] Error settling market %s: %v", market.Address, err)
			continue
		}

		settledCount++
		log.Printf("[SettlementJob] Market %s settling, request %s", market.Address, requestID)
	}

	if settledCount > 0 {
		log.Printf("[SettlementJob] Filed %d settlement requests", settledCount)
	}
}
