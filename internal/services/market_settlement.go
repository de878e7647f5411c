package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"flight-markets/internal/models"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TrySettle moves a market past closing into SETTLING and files a flight
// status request. Anyone may call it; a postponed market may be retried.
func (ms *MarketService) TrySettle(ctx context.Context, marketAddress string) (string, error) {
	ms.settleMu.Lock()
	defer ms.settleMu.Unlock()

	var requestID string
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := ms.getByAddress(tx, marketAddress)
		if err != nil {
			return err
		}
		if ms.now().Unix() < market.ClosingTime {
			return ErrMarketNotClosedYet
		}
		if market.Status != models.MarketStatusOpen && market.Status != models.MarketStatusPostponed {
			return ErrWrongMarketState
		}

		requestID = newRequestID(market)
		request := models.OracleRequest{
			ID:            uuid.New(),
			RequestID:     requestID,
			MarketAddress: market.Address,
			FlightName:    market.FlightName,
			DepartureDate: market.DepartureDate,
			Status:        models.OracleRequestStatusPending,
			CreatedAt:     time.Now(),
		}
		if err := tx.Create(&request).Error; err != nil {
			return fmt.Errorf("failed to file oracle request: %w", err)
		}

		err = tx.Model(&models.Market{}).Where("id = ?", market.ID).
			Updates(map[string]interface{}{
				"status":     models.MarketStatusSettling,
				"request_id": requestID,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update market status: %w", err)
		}

		return recordEvent(tx, market.Address, models.EventFlightStatusRequested, map[string]interface{}{
			"request_id":     requestID,
			"flight_name":    market.FlightName,
			"departure_date": market.DepartureDate,
		})
	})
	if err != nil {
		return "", err
	}

	log.Printf("[Settlement] Market %s settling, request %s", marketAddress, requestID)
	return requestID, nil
}

// newRequestID derives a fresh request id from the market identity and a
// random nonce.
func newRequestID(market *models.Market) string {
	var departure [8]byte
	binary.BigEndian.PutUint64(departure[:], market.DepartureDate)
	nonce := uuid.New()
	digest := crypto.Keccak256([]byte(market.MarketID), departure[:], nonce[:])
	return base58.Encode(digest)
}

// RecordDecision applies an oracle answer to a settling market. A landed
// flight pays YES when the delay reached the insured threshold, NO when it
// did not; a cancelled flight pays YES; anything else postpones the market
// for a later retry.
func (ms *MarketService) RecordDecision(ctx context.Context, marketAddress, sender, flightStatus string, delayMinutes uint32) error {
	oracle, err := ms.registry.GetAddress(ctx, models.RoleOracle)
	if err != nil {
		return err
	}
	if oracle == "" || sender != oracle {
		return ErrUnauthorizedSender
	}

	ms.settleMu.Lock()
	defer ms.settleMu.Unlock()

	return ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := ms.getByAddress(tx, marketAddress)
		if err != nil {
			return err
		}
		if market.Status != models.MarketStatusSettling {
			return ErrWrongMarketState
		}

		var result models.MarketResult
		switch flightStatus {
		case models.FlightStatusLanded:
			if delayMinutes >= market.DelayMinutes {
				result = models.ResultYes
			} else {
				result = models.ResultNo
			}
		case models.FlightStatusCancelled:
			result = models.ResultYes
		default:
			err = tx.Model(&models.Market{}).Where("id = ?", market.ID).
				Updates(map[string]interface{}{
					"status":         models.MarketStatusPostponed,
					"outcome_status": flightStatus,
					"updated_at":     time.Now(),
				}).Error
			if err != nil {
				return fmt.Errorf("failed to postpone market: %w", err)
			}
			log.Printf("[Settlement] Market %s postponed (flight status %q)", market.Address, flightStatus)
			return recordEvent(tx, market.Address, models.EventDecisionPostponed, map[string]interface{}{
				"flight_status": flightStatus,
			})
		}

		market.Result = result
		winningToken := market.TokenID(market.WinningSide())

		bank, err := ms.funds.balanceOf(tx, market.Address)
		if err != nil {
			return err
		}
		supply, err := ms.ledger.totalSupply(tx, winningToken)
		if err != nil {
			return err
		}

		now := time.Now()
		err = tx.Model(&models.Market{}).Where("id = ?", market.ID).
			Updates(map[string]interface{}{
				"status":         models.MarketStatusSettled,
				"result":         result,
				"outcome_status": flightStatus,
				"outcome_delay":  delayMinutes,
				"final_bank":     bank,
				"final_supply":   supply,
				"settled_at":     now,
				"updated_at":     now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to settle market: %w", err)
		}

		err = recordEvent(tx, market.Address, models.EventDecisionRendered, map[string]interface{}{
			"result":        result,
			"flight_status": flightStatus,
			"delay_minutes": delayMinutes,
		})
		if err != nil {
			return err
		}

		log.Printf("[Settlement] Market %s settled: %s (status %q, delay %d)", market.Address, result, flightStatus, delayMinutes)

		// The liquidity wallet's winning tokens are redeemed in the same
		// breath so the float returns without anyone having to claim it.
		lpWallet, err := ms.registry.getAddress(tx, models.RoleLPWallet)
		if err != nil {
			return err
		}
		market.Status = models.MarketStatusSettled
		market.FinalBank = bank
		market.FinalSupply = supply
		return ms.redeem(tx, market, lpWallet, winningToken)
	})
}

// ClaimReward pays out a holder's winning tokens against the settlement
// snapshot. Losing tokens stay where they are.
func (ms *MarketService) ClaimReward(ctx context.Context, marketAddress, holder string) (decimal.Decimal, error) {
	payout := decimal.Zero

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := ms.getByAddress(tx, marketAddress)
		if err != nil {
			return err
		}
		if market.Status != models.MarketStatusSettled {
			return ErrMarketNotSettled
		}

		winningToken := market.TokenID(market.WinningSide())
		balance, err := ms.ledger.balanceOf(tx, winningToken, holder)
		if err != nil {
			return err
		}
		if !balance.IsPositive() {
			return ErrNothingToClaim
		}

		payout = ms.payoutFor(market, balance)
		return ms.payReward(tx, market, holder, winningToken, balance, payout)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return payout, nil
}

// payoutFor values a winning balance against the settlement snapshot. Both
// payout modes floor the holder's pro-rata share of the final bank; buyer
// mode only changes who ends up holding the burned tokens' claim, not the
// amount paid.
func (ms *MarketService) payoutFor(market *models.Market, balance decimal.Decimal) decimal.Decimal {
	if market.FinalSupply.IsZero() {
		return decimal.Zero
	}
	return mulDiv(balance, market.FinalBank, market.FinalSupply)
}

func (ms *MarketService) redeem(tx *gorm.DB, market *models.Market, holder string, winningToken uint64) error {
	balance, err := ms.ledger.balanceOf(tx, winningToken, holder)
	if err != nil {
		return err
	}
	if !balance.IsPositive() {
		return nil
	}
	return ms.payReward(tx, market, holder, winningToken, balance, ms.payoutFor(market, balance))
}

func (ms *MarketService) payReward(tx *gorm.DB, market *models.Market, holder string, winningToken uint64, balance, payout decimal.Decimal) error {
	if err := ms.ledger.Burn(tx, market.Address, holder, winningToken, balance); err != nil {
		return err
	}
	if err := ms.funds.Transfer(tx, market.Address, holder, payout, models.TransferKindPayout, &market.Address); err != nil {
		return err
	}

	err := recordEvent(tx, market.Address, models.EventRewardWithdrawn, map[string]interface{}{
		"holder": holder,
		"tokens": balance.String(),
		"payout": payout.String(),
	})
	if err != nil {
		return err
	}

	log.Printf("[Settlement] %s redeemed %s winning tokens of %s for %s", holder, balance.String(), market.Address, payout.String())
	return nil
}

// SettleDue lists markets ready for settlement, for the background job.
func (ms *MarketService) SettleDue(ctx context.Context, limit int) ([]models.Market, error) {
	var markets []models.Market
	err := ms.db.WithContext(ctx).
		Where("status IN ? AND closing_time <= ?", []models.MarketStatus{models.MarketStatusOpen, models.MarketStatusPostponed}, ms.now().Unix()).
		Order("closing_time ASC").Limit(limit).
		Find(&markets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list settleable markets: %w", err)
	}
	return markets, nil
}
