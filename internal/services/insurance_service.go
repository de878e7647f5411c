package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"flight-markets/internal/models"
	"flight-markets/internal/trustus"
	"flight-markets/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InsuranceService is the product gateway: it validates signed creation
// packets, deploys markets with seeded liquidity and runs the sponsorship
// program.
type InsuranceService struct {
	db       *gorm.DB
	markets  *MarketService
	ledger   *LedgerService
	funds    *FundsService
	wallet   *WalletService
	registry *RegistryService

	owner              string
	sponsoredBetAmount decimal.Decimal
	now                func() time.Time
}

func NewInsuranceService(
	db *gorm.DB,
	markets *MarketService,
	ledger *LedgerService,
	funds *FundsService,
	wallet *WalletService,
	registry *RegistryService,
	owner string,
	sponsoredBetAmount decimal.Decimal,
) *InsuranceService {
	return &InsuranceService{
		db:                 db,
		markets:            markets,
		ledger:             ledger,
		funds:              funds,
		wallet:             wallet,
		registry:           registry,
		owner:              owner,
		sponsoredBetAmount: sponsoredBetAmount,
		now:                time.Now,
	}
}

// Address returns the gateway's account address from the registry.
func (is *InsuranceService) Address(ctx context.Context) (string, error) {
	return is.registry.GetAddress(ctx, models.RoleProduct)
}

// CreateMarket deploys a market for the flight named in a signed packet and
// places the creator's opening bet.
func (is *InsuranceService) CreateMarket(ctx context.Context, creator string, side models.MarketSide, value decimal.Decimal, packet *trustus.Packet) (*models.Market, error) {
	return is.createMarket(ctx, creator, creator, side, value, packet, false)
}

// CreateMarketSponsored deploys a market with the opening bet staked from
// the gateway's sponsorship balance on the participant's behalf.
func (is *InsuranceService) CreateMarketSponsored(ctx context.Context, participant string, side models.MarketSide, packet *trustus.Packet) (*models.Market, error) {
	gateway, err := is.Address(ctx)
	if err != nil {
		return nil, err
	}
	return is.createMarket(ctx, participant, gateway, side, is.sponsoredBetAmount, packet, true)
}

func (is *InsuranceService) createMarket(ctx context.Context, creator, payer string, side models.MarketSide, value decimal.Decimal, packet *trustus.Packet, sponsored bool) (*models.Market, error) {
	params, err := is.verifyPacket(ctx, packet)
	if err != nil {
		return nil, err
	}

	marketID := utils.MarketID(params.Flight.FlightName, params.Flight.DepartureDate, params.Flight.DelayMinutes).Hex()

	now := is.now().Unix()
	if params.Config.CutoffTime <= now {
		return nil, ErrCreateClosedMarket
	}

	gateway, err := is.Address(ctx)
	if err != nil {
		return nil, err
	}

	lpBid, minBid, maxBid, err := parseConfigAmounts(&params.Config)
	if err != nil {
		return nil, err
	}

	mode := params.Config.Mode
	if mode == "" {
		mode = models.PayoutModeBurn
	}

	var market *models.Market
	err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Market
		err := tx.Where("market_id = ?", marketID).First(&existing).Error
		if err == nil {
			return ErrMarketExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check market id: %w", err)
		}

		yesID, noID, err := is.ledger.NextTokenIDs(tx)
		if err != nil {
			return err
		}

		market = &models.Market{
			ID:            uuid.New(),
			MarketID:      marketID,
			Address:       utils.MarketAddress(utils.MarketID(params.Flight.FlightName, params.Flight.DepartureDate, params.Flight.DelayMinutes), yesID),
			Product:       gateway,
			Creator:       creator,
			UniqueID:      yesID,
			YesTokenID:    yesID,
			NoTokenID:     noID,
			FlightName:    params.Flight.FlightName,
			DepartureDate: params.Flight.DepartureDate,
			DelayMinutes:  params.Flight.DelayMinutes,
			LPBid:         lpBid,
			MinBid:        minBid,
			MaxBid:        maxBid,
			FeeBps:        params.Config.FeeBps,
			InitPBps:      params.Config.InitPBps,
			CutoffTime:    params.Config.CutoffTime,
			ClosingTime:   params.Config.ClosingTime,
			Mode:          mode,
			Status:        models.MarketStatusOpen,
			Result:        models.ResultUndefined,
			FinalBank:     decimal.Zero,
			FinalSupply:   decimal.Zero,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := tx.Create(market).Error; err != nil {
			return fmt.Errorf("failed to create market: %w", err)
		}

		if err := is.ledger.RegisterMarket(tx, market); err != nil {
			return err
		}
		if err := is.wallet.ProvideLiquidity(tx, gateway, market.Address, lpBid); err != nil {
			return err
		}
		if err := is.markets.seedMarket(tx, market); err != nil {
			return err
		}

		if sponsored {
			if err := is.sponsorBet(tx, market, creator, side); err != nil {
				return err
			}
		} else if err := is.markets.participate(tx, market, creator, payer, side, value, false); err != nil {
			return err
		}

		return recordEvent(tx, market.Address, models.EventMarketCreated, map[string]interface{}{
			"market_id": market.MarketID,
			"unique_id": market.UniqueID,
			"creator":   creator,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Insurance] Market %s created for flight %s by %s", market.Address, market.FlightName, creator)
	return market, nil
}

// verifyPacket checks the request tag, deadline and signature chain of a
// creation packet and decodes its payload.
func (is *InsuranceService) verifyPacket(ctx context.Context, packet *trustus.Packet) (*models.MarketParams, error) {
	if packet.Request != trustus.RequestCreateMarket {
		return nil, ErrWrongRequestTag
	}
	if packet.Deadline < is.now().Unix() {
		return nil, ErrPacketExpired
	}

	signer, err := trustus.Recover(packet)
	if err != nil {
		return nil, ErrInvalidPacket
	}

	trusted, err := is.IsTrusted(ctx, signer.Hex())
	if err != nil {
		return nil, err
	}
	if !trusted {
		return nil, ErrInvalidPacket
	}

	var params models.MarketParams
	if err := json.Unmarshal(packet.Payload, &params); err != nil {
		return nil, ErrInvalidPacket
	}
	if params.Flight.FlightName == "" {
		return nil, ErrInvalidPacket
	}
	return &params, nil
}

func parseConfigAmounts(cfg *models.MarketConfig) (lpBid, minBid, maxBid decimal.Decimal, err error) {
	lpBid, err = decimal.NewFromString(cfg.LPBid)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("invalid lp bid: %w", err)
	}
	minBid, err = decimal.NewFromString(cfg.MinBid)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("invalid min bid: %w", err)
	}
	maxBid, err = decimal.NewFromString(cfg.MaxBid)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("invalid max bid: %w", err)
	}
	return lpBid, minBid, maxBid, nil
}

// ParticipateSponsored stakes the fixed sponsored amount on an existing
// market for a participant, at most once per market.
func (is *InsuranceService) ParticipateSponsored(ctx context.Context, marketAddress, participant string, side models.MarketSide) error {
	return is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := is.markets.getByAddress(tx, marketAddress)
		if err != nil {
			return err
		}
		return is.sponsorBet(tx, market, participant, side)
	})
}

func (is *InsuranceService) sponsorBet(tx *gorm.DB, market *models.Market, participant string, side models.MarketSide) error {
	var existing models.SponsoredBet
	err := tx.Where("market_address = ? AND participant = ?", market.Address, participant).First(&existing).Error
	if err == nil {
		return ErrAlreadySponsored
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check sponsorship: %w", err)
	}

	gateway, err := is.registry.getAddress(tx, models.RoleProduct)
	if err != nil {
		return err
	}

	if err := is.markets.participate(tx, market, participant, gateway, side, is.sponsoredBetAmount, true); err != nil {
		return err
	}

	record := models.SponsoredBet{
		ID:            uuid.New(),
		MarketAddress: market.Address,
		Participant:   participant,
		Amount:        is.sponsoredBetAmount,
		CreatedAt:     time.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record sponsorship: %w", err)
	}

	return recordEvent(tx, market.Address, models.EventMarketSponsored, map[string]interface{}{
		"participant": participant,
		"amount":      is.sponsoredBetAmount.String(),
		"side":        side,
	})
}

// DepositSponsorship adds external funds to the gateway's sponsor balance.
func (is *InsuranceService) DepositSponsorship(ctx context.Context, amount decimal.Decimal) error {
	gateway, err := is.Address(ctx)
	if err != nil {
		return err
	}
	return is.funds.Deposit(ctx, gateway, amount)
}

// SponsorBalance returns the funds available for sponsored stakes.
func (is *InsuranceService) SponsorBalance(ctx context.Context) (decimal.Decimal, error) {
	gateway, err := is.Address(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return is.funds.BalanceOf(ctx, gateway)
}

// FindMarket returns the deterministic id and address of the market for a
// flight, whether or not it exists yet. The address is empty for a market
// that has not been created.
func (is *InsuranceService) FindMarket(ctx context.Context, flightName string, departureDate uint64, delayMinutes uint32) (string, string, error) {
	marketID := utils.MarketID(flightName, departureDate, delayMinutes).Hex()

	market, err := is.markets.GetByMarketID(ctx, marketID)
	if errors.Is(err, ErrUnknownMarket) {
		return marketID, "", nil
	}
	if err != nil {
		return "", "", err
	}
	return marketID, market.Address, nil
}

// GetMarket loads a market by its flight id.
func (is *InsuranceService) GetMarket(ctx context.Context, marketID string) (*models.Market, error) {
	return is.markets.GetByMarketID(ctx, marketID)
}

// SetIsTrusted grants or revokes a packet signer. Owner only.
func (is *InsuranceService) SetIsTrusted(ctx context.Context, caller, signer string, trusted bool) error {
	if caller != is.owner {
		return ErrNotOwner
	}

	entry := models.TrustedSigner{Address: signer, Trusted: trusted, UpdatedAt: time.Now()}
	err := is.db.WithContext(ctx).Save(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to update trusted signer: %w", err)
	}

	log.Printf("[Insurance] Signer %s trusted=%v", signer, trusted)
	return nil
}

// IsTrusted reports whether a signer's packets are accepted.
func (is *InsuranceService) IsTrusted(ctx context.Context, signer string) (bool, error) {
	var entry models.TrustedSigner
	err := is.db.WithContext(ctx).Where("address = ?", signer).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load trusted signer: %w", err)
	}
	return entry.Trusted, nil
}
