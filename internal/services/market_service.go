package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"flight-markets/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarketService runs the per-market trading engine: participation along the
// bonding curve, early withdrawal and the read-side quote functions.
// Settlement lives in market_settlement.go.
type MarketService struct {
	db       *gorm.DB
	funds    *FundsService
	ledger   *LedgerService
	registry *RegistryService

	settleMu sync.Mutex
	now      func() time.Time
}

func NewMarketService(db *gorm.DB, funds *FundsService, ledger *LedgerService, registry *RegistryService) *MarketService {
	return &MarketService{
		db:       db,
		funds:    funds,
		ledger:   ledger,
		registry: registry,
		now:      time.Now,
	}
}

// GetByAddress loads a market by its derived address.
func (ms *MarketService) GetByAddress(ctx context.Context, address string) (*models.Market, error) {
	return ms.getByAddress(ms.db.WithContext(ctx), address)
}

func (ms *MarketService) getByAddress(tx *gorm.DB, address string) (*models.Market, error) {
	var market models.Market
	err := tx.Where("address = ?", address).First(&market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownMarket
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load market: %w", err)
	}
	return &market, nil
}

// GetByMarketID loads a market by its deterministic flight id.
func (ms *MarketService) GetByMarketID(ctx context.Context, marketID string) (*models.Market, error) {
	var market models.Market
	err := ms.db.WithContext(ctx).Where("market_id = ?", marketID).First(&market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownMarket
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load market: %w", err)
	}
	return &market, nil
}

// List returns recent markets, newest first.
func (ms *MarketService) List(ctx context.Context, limit int) ([]models.Market, error) {
	var markets []models.Market
	err := ms.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&markets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}

// Participate places a bid on one side of an open market. The gross value
// is taken from the participant's account.
func (ms *MarketService) Participate(ctx context.Context, marketAddress, participant string, side models.MarketSide, value decimal.Decimal) error {
	return ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := ms.getByAddress(tx, marketAddress)
		if err != nil {
			return err
		}
		return ms.participate(tx, market, participant, participant, side, value, false)
	})
}

// participate is the tx-level trading path. payer funds the bid, which lets
// sponsored stakes draw on the gateway's balance while crediting the
// participant's position.
func (ms *MarketService) participate(tx *gorm.DB, market *models.Market, participant, payer string, side models.MarketSide, value decimal.Decimal, sponsored bool) error {
	if market.Status != models.MarketStatusOpen || ms.now().Unix() >= market.CutoffTime {
		return ErrMarketClosed
	}
	if value.LessThan(market.MinBid) {
		return ErrBelowMinBid
	}

	fee := curveFee(value, market.FeeBps)
	net := value.Sub(fee)

	staked, err := ms.totalContribution(tx, market.Address, participant)
	if err != nil {
		return err
	}
	if staked.Add(net).GreaterThan(market.MaxBid) {
		return ErrExceededMaxBid
	}

	if fee.IsPositive() {
		feeCollector, err := ms.registry.getAddress(tx, models.RoleFeeCollector)
		if err != nil {
			return err
		}
		if err := ms.funds.Transfer(tx, payer, feeCollector, fee, models.TransferKindFee, &market.Address); err != nil {
			return err
		}
	}
	if err := ms.funds.Transfer(tx, payer, market.Address, net, models.TransferKindBet, &market.Address); err != nil {
		return err
	}

	yesMint, noMint := curveSplit(net, market.InitPBps)

	sameMint, oppMint := yesMint, noMint
	sameToken, oppToken := market.YesTokenID, market.NoTokenID
	if side == models.SideNo {
		sameMint, oppMint = noMint, yesMint
		sameToken, oppToken = market.NoTokenID, market.YesTokenID
	}

	lpWallet, err := ms.registry.getAddress(tx, models.RoleLPWallet)
	if err != nil {
		return err
	}

	lpSame, err := ms.ledger.balanceOf(tx, sameToken, lpWallet)
	if err != nil {
		return err
	}
	lpOpp, err := ms.ledger.balanceOf(tx, oppToken, lpWallet)
	if err != nil {
		return err
	}

	if err := ms.ledger.Mint(tx, market.Address, participant, sameToken, sameMint); err != nil {
		return err
	}
	if err := ms.ledger.Mint(tx, market.Address, lpWallet, oppToken, oppMint); err != nil {
		return err
	}

	// The opposite leg is handed to the liquidity wallet in exchange for
	// same-side tokens priced by constant product over the wallet's books.
	swap := curveSwapOut(lpSame, lpOpp, oppMint)
	if swap.IsPositive() {
		if err := ms.ledger.Transfer(tx, market.Address, lpWallet, participant, sameToken, swap); err != nil {
			return err
		}
	}

	if err := ms.addContribution(tx, market.Address, participant, side, net); err != nil {
		return err
	}

	err = recordEvent(tx, market.Address, models.EventParticipatedInMarket, map[string]interface{}{
		"participant": participant,
		"side":        side,
		"value":       value.String(),
		"net":         net.String(),
		"sponsored":   sponsored,
	})
	if err != nil {
		return err
	}

	log.Printf("[Market] %s bid %s on %s of %s (net %s)", participant, value.String(), side, market.Address, net.String())
	return nil
}

// seedMarket mints the opening distribution against the provided liquidity.
// The whole split goes to the liquidity wallet and no fee is taken.
func (ms *MarketService) seedMarket(tx *gorm.DB, market *models.Market) error {
	lpWallet, err := ms.registry.getAddress(tx, models.RoleLPWallet)
	if err != nil {
		return err
	}

	yesMint, noMint := curveSplit(market.LPBid, market.InitPBps)
	if err := ms.ledger.Mint(tx, market.Address, lpWallet, market.YesTokenID, yesMint); err != nil {
		return err
	}
	if err := ms.ledger.Mint(tx, market.Address, lpWallet, market.NoTokenID, noMint); err != nil {
		return err
	}

	return recordEvent(tx, market.Address, models.EventLiquidityProvided, map[string]interface{}{
		"wallet": lpWallet,
		"amount": market.LPBid.String(),
		"yes":    yesMint.String(),
		"no":     noMint.String(),
	})
}

// WithdrawBet burns tokens back into the bank before the cutoff. The price
// is the lower of the holder's own cost basis and the market rate, so an
// early exit can never drain other participants' stakes.
func (ms *MarketService) WithdrawBet(ctx context.Context, marketAddress, participant string, side models.MarketSide, amount decimal.Decimal) (decimal.Decimal, error) {
	payout := decimal.Zero

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		market, err := ms.getByAddress(tx, marketAddress)
		if err != nil {
			return err
		}
		if market.Status != models.MarketStatusOpen || ms.now().Unix() >= market.CutoffTime {
			return ErrMarketClosed
		}

		tokenID := market.TokenID(side)
		balance, err := ms.ledger.balanceOf(tx, tokenID, participant)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) || !amount.IsPositive() {
			return ErrNotEnoughTokens
		}

		contribution, err := ms.contribution(tx, market.Address, participant, side)
		if err != nil {
			return err
		}

		bank, err := ms.funds.balanceOf(tx, market.Address)
		if err != nil {
			return err
		}
		supply, err := ms.ledger.totalSupply(tx, tokenID)
		if err != nil {
			return err
		}

		userPrice := mulDiv(contribution, amount, balance)
		marketPrice := mulDiv(amount, bank, supply)
		payout = decimal.Min(userPrice, marketPrice)

		if err := ms.ledger.Burn(tx, market.Address, participant, tokenID, amount); err != nil {
			return err
		}
		if err := ms.funds.Transfer(tx, market.Address, participant, payout, models.TransferKindPayout, &market.Address); err != nil {
			return err
		}

		reduced := contribution.Sub(mulDiv(contribution, amount, balance))
		if err := ms.setContribution(tx, market.Address, participant, side, reduced); err != nil {
			return err
		}

		return recordEvent(tx, market.Address, models.EventBetWithdrawn, map[string]interface{}{
			"participant": participant,
			"side":        side,
			"amount":      amount.String(),
			"payout":      payout.String(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	log.Printf("[Market] %s withdrew %s %s tokens from %s for %s", participant, amount.String(), side, marketAddress, payout.String())
	return payout, nil
}

// ============================================================================
// Quotes
// ============================================================================

// PriceETHToYesNo quotes the token amounts a gross bid is currently worth
// on each side, at market rate after the fee.
func (ms *MarketService) PriceETHToYesNo(ctx context.Context, marketAddress string, value decimal.Decimal) (yes, no decimal.Decimal, err error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	net := value.Sub(curveFee(value, market.FeeBps))
	bank, err := ms.funds.BalanceOf(ctx, market.Address)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if bank.IsZero() {
		return decimal.Zero, decimal.Zero, nil
	}

	yesSupply, err := ms.ledger.TotalSupply(ctx, market.YesTokenID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	noSupply, err := ms.ledger.TotalSupply(ctx, market.NoTokenID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return mulDiv(net, yesSupply, bank), mulDiv(net, noSupply, bank), nil
}

// PriceETHForYesNo values a token amount against the holder's own cost
// basis, per side. A side the holder has no tokens on quotes zero.
func (ms *MarketService) PriceETHForYesNo(ctx context.Context, marketAddress, holder string, amount decimal.Decimal) (yes, no decimal.Decimal, err error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	values := make(map[models.MarketSide]decimal.Decimal, 2)
	for _, side := range []models.MarketSide{models.SideYes, models.SideNo} {
		balance, err := ms.ledger.BalanceOf(ctx, market.TokenID(side), holder)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if !balance.IsPositive() {
			values[side] = decimal.Zero
			continue
		}

		contribution, err := ms.contribution(ms.db.WithContext(ctx), market.Address, holder, side)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		values[side] = mulDiv(contribution, amount, balance)
	}

	return values[models.SideYes], values[models.SideNo], nil
}

// PriceETHForPayout estimates the settlement payout the holder would have
// after adding one more bid of the given gross value on a side, assuming
// that side wins.
func (ms *MarketService) PriceETHForPayout(ctx context.Context, marketAddress, holder string, value decimal.Decimal, side models.MarketSide) (decimal.Decimal, error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return decimal.Zero, err
	}

	net := value.Sub(curveFee(value, market.FeeBps))
	yesMint, noMint := curveSplit(net, market.InitPBps)

	sameMint, oppMint := yesMint, noMint
	sameToken, oppToken := market.YesTokenID, market.NoTokenID
	if side == models.SideNo {
		sameMint, oppMint = noMint, yesMint
		sameToken, oppToken = market.NoTokenID, market.YesTokenID
	}

	lpWallet, err := ms.registry.GetAddress(ctx, models.RoleLPWallet)
	if err != nil {
		return decimal.Zero, err
	}
	lpSame, err := ms.ledger.BalanceOf(ctx, sameToken, lpWallet)
	if err != nil {
		return decimal.Zero, err
	}
	lpOpp, err := ms.ledger.BalanceOf(ctx, oppToken, lpWallet)
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := ms.ledger.BalanceOf(ctx, sameToken, holder)
	if err != nil {
		return decimal.Zero, err
	}
	supply, err := ms.ledger.TotalSupply(ctx, sameToken)
	if err != nil {
		return decimal.Zero, err
	}
	bank, err := ms.funds.BalanceOf(ctx, market.Address)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := balance.Add(sameMint).Add(curveSwapOut(lpSame, lpOpp, oppMint))
	newSupply := supply.Add(sameMint)
	newBank := bank.Add(net)
	if newSupply.IsZero() {
		return decimal.Zero, nil
	}

	return mulDiv(newBalance, newBank, newSupply), nil
}

// CurrentDistribution returns the implied NO probability in bps, read off
// the liquidity wallet's token books.
func (ms *MarketService) CurrentDistribution(ctx context.Context, marketAddress string) (int64, error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return 0, err
	}

	lpWallet, err := ms.registry.GetAddress(ctx, models.RoleLPWallet)
	if err != nil {
		return 0, err
	}
	lpYes, err := ms.ledger.BalanceOf(ctx, market.YesTokenID, lpWallet)
	if err != nil {
		return 0, err
	}
	lpNo, err := ms.ledger.BalanceOf(ctx, market.NoTokenID, lpWallet)
	if err != nil {
		return 0, err
	}

	total := lpYes.Add(lpNo)
	if total.IsZero() {
		return 0, nil
	}
	return mulDiv(lpNo, decBps, total).IntPart(), nil
}

// TokenBalances returns the outstanding supplies of both sides.
func (ms *MarketService) TokenBalances(ctx context.Context, marketAddress string) (yes, no decimal.Decimal, err error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	yes, err = ms.ledger.TotalSupply(ctx, market.YesTokenID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	no, err = ms.ledger.TotalSupply(ctx, market.NoTokenID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return yes, no, nil
}

// TVL returns the market bank.
func (ms *MarketService) TVL(ctx context.Context, marketAddress string) (decimal.Decimal, error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return decimal.Zero, err
	}
	return ms.funds.BalanceOf(ctx, market.Address)
}

// CanBeSettled reports whether the market is past closing and still
// awaiting a decision.
func (ms *MarketService) CanBeSettled(ctx context.Context, marketAddress string) (bool, error) {
	market, err := ms.GetByAddress(ctx, marketAddress)
	if err != nil {
		return false, err
	}
	if ms.now().Unix() < market.ClosingTime {
		return false, nil
	}
	return market.Status == models.MarketStatusOpen || market.Status == models.MarketStatusPostponed, nil
}

// ============================================================================
// Contribution tracking
// ============================================================================

func (ms *MarketService) contribution(tx *gorm.DB, marketAddress, holder string, side models.MarketSide) (decimal.Decimal, error) {
	var row models.MarketContribution
	err := tx.Where("market_address = ? AND holder = ? AND side = ?", marketAddress, holder, side).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load contribution: %w", err)
	}
	return row.Amount, nil
}

func (ms *MarketService) totalContribution(tx *gorm.DB, marketAddress, holder string) (decimal.Decimal, error) {
	var rows []models.MarketContribution
	err := tx.Where("market_address = ? AND holder = ?", marketAddress, holder).Find(&rows).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load contributions: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

func (ms *MarketService) addContribution(tx *gorm.DB, marketAddress, holder string, side models.MarketSide, delta decimal.Decimal) error {
	current, err := ms.contribution(tx, marketAddress, holder, side)
	if err != nil {
		return err
	}
	return ms.setContribution(tx, marketAddress, holder, side, current.Add(delta))
}

func (ms *MarketService) setContribution(tx *gorm.DB, marketAddress, holder string, side models.MarketSide, amount decimal.Decimal) error {
	var row models.MarketContribution
	err := tx.Where("market_address = ? AND holder = ? AND side = ?", marketAddress, holder, side).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.MarketContribution{
			ID:            uuid.New(),
			MarketAddress: marketAddress,
			Holder:        holder,
			Side:          side,
			Amount:        amount,
			UpdatedAt:     time.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create contribution: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load contribution: %w", err)
	}

	err = tx.Model(&models.MarketContribution{}).Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"amount":     amount,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update contribution: %w", err)
	}
	return nil
}
