package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-markets/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService keeps the dual outcome tokens. Each market owns exactly two
// token ids and is the only caller allowed to mint, burn or move them.
type LedgerService struct {
	db       *gorm.DB
	registry *RegistryService
}

func NewLedgerService(db *gorm.DB, registry *RegistryService) *LedgerService {
	return &LedgerService{db: db, registry: registry}
}

// NextTokenIDs allocates the token pair for a new market.
func (ls *LedgerService) NextTokenIDs(tx *gorm.DB) (yes, no uint64, err error) {
	var maxID *uint64
	if err := tx.Model(&models.ClaimToken{}).Select("MAX(token_id)").Scan(&maxID).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to allocate token ids: %w", err)
	}

	next := models.FirstTokenID
	if maxID != nil && *maxID+1 > next {
		next = *maxID + 1
	}
	return next, next + 1, nil
}

// RegisterMarket writes the authorization rows for a market's token pair.
func (ls *LedgerService) RegisterMarket(tx *gorm.DB, market *models.Market) error {
	tokens := []models.ClaimToken{
		{TokenID: market.YesTokenID, MarketAddress: market.Address, Side: models.SideYes, TotalSupply: decimal.Zero, CreatedAt: time.Now()},
		{TokenID: market.NoTokenID, MarketAddress: market.Address, Side: models.SideNo, TotalSupply: decimal.Zero, CreatedAt: time.Now()},
	}
	if err := tx.Create(&tokens).Error; err != nil {
		return fmt.Errorf("failed to register claim tokens: %w", err)
	}
	return nil
}

// authorize validates the mint/burn/transfer chain: the calling market must
// belong to the registered product, be the market that product created for
// its id, and own the token.
func (ls *LedgerService) authorize(tx *gorm.DB, marketAddress string, tokenID uint64) (*models.Market, error) {
	var market models.Market
	err := tx.Where("address = ?", marketAddress).First(&market).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownMarket
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load market: %w", err)
	}

	product, err := ls.registry.getAddress(tx, models.RoleProduct)
	if err != nil {
		return nil, err
	}
	if product == "" || market.Product != product {
		return nil, ErrUnknownProduct
	}

	var registered models.Market
	err = tx.Where("market_id = ? AND product = ?", market.MarketID, product).First(&registered).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && registered.Address != marketAddress) {
		return nil, ErrUnknownMarket
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve market registration: %w", err)
	}

	if tokenID != market.YesTokenID && tokenID != market.NoTokenID {
		return nil, ErrWrongTokens
	}
	return &market, nil
}

// Mint issues tokens to a holder on behalf of the owning market.
func (ls *LedgerService) Mint(tx *gorm.DB, marketAddress, holder string, tokenID uint64, amount decimal.Decimal) error {
	if _, err := ls.authorize(tx, marketAddress, tokenID); err != nil {
		return err
	}
	if err := ls.creditToken(tx, tokenID, holder, amount); err != nil {
		return err
	}
	return ls.adjustSupply(tx, tokenID, amount)
}

// Burn destroys tokens held by a holder on behalf of the owning market.
func (ls *LedgerService) Burn(tx *gorm.DB, marketAddress, holder string, tokenID uint64, amount decimal.Decimal) error {
	if _, err := ls.authorize(tx, marketAddress, tokenID); err != nil {
		return err
	}
	if err := ls.debitToken(tx, tokenID, holder, amount); err != nil {
		return err
	}
	return ls.adjustSupply(tx, tokenID, amount.Neg())
}

// Transfer moves tokens between holders on behalf of the owning market.
func (ls *LedgerService) Transfer(tx *gorm.DB, marketAddress, from, to string, tokenID uint64, amount decimal.Decimal) error {
	if _, err := ls.authorize(tx, marketAddress, tokenID); err != nil {
		return err
	}
	if err := ls.debitToken(tx, tokenID, from, amount); err != nil {
		return err
	}
	return ls.creditToken(tx, tokenID, to, amount)
}

func (ls *LedgerService) creditToken(tx *gorm.DB, tokenID uint64, holder string, amount decimal.Decimal) error {
	var balance models.TokenBalance
	err := tx.Where("token_id = ? AND holder = ?", tokenID, holder).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.TokenBalance{
			ID:        uuid.New(),
			TokenID:   tokenID,
			Holder:    holder,
			Balance:   amount,
			UpdatedAt: time.Now(),
		}
		if err := tx.Create(&balance).Error; err != nil {
			return fmt.Errorf("failed to create token balance: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load token balance: %w", err)
	}

	err = tx.Model(&models.TokenBalance{}).Where("id = ?", balance.ID).
		Updates(map[string]interface{}{
			"balance":    balance.Balance.Add(amount),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to credit token balance: %w", err)
	}
	return nil
}

func (ls *LedgerService) debitToken(tx *gorm.DB, tokenID uint64, holder string, amount decimal.Decimal) error {
	var balance models.TokenBalance
	err := tx.Where("token_id = ? AND holder = ?", tokenID, holder).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotEnoughTokens
	}
	if err != nil {
		return fmt.Errorf("failed to load token balance: %w", err)
	}

	if balance.Balance.LessThan(amount) {
		return ErrNotEnoughTokens
	}

	err = tx.Model(&models.TokenBalance{}).Where("id = ?", balance.ID).
		Updates(map[string]interface{}{
			"balance":    balance.Balance.Sub(amount),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to debit token balance: %w", err)
	}
	return nil
}

func (ls *LedgerService) adjustSupply(tx *gorm.DB, tokenID uint64, delta decimal.Decimal) error {
	var token models.ClaimToken
	if err := tx.Where("token_id = ?", tokenID).First(&token).Error; err != nil {
		return fmt.Errorf("failed to load claim token: %w", err)
	}

	err := tx.Model(&models.ClaimToken{}).Where("token_id = ?", tokenID).
		Update("total_supply", token.TotalSupply.Add(delta)).Error
	if err != nil {
		return fmt.Errorf("failed to update total supply: %w", err)
	}
	return nil
}

// BalanceOf returns a holder's balance of one token.
func (ls *LedgerService) BalanceOf(ctx context.Context, tokenID uint64, holder string) (decimal.Decimal, error) {
	return ls.balanceOf(ls.db.WithContext(ctx), tokenID, holder)
}

func (ls *LedgerService) balanceOf(tx *gorm.DB, tokenID uint64, holder string) (decimal.Decimal, error) {
	var balance models.TokenBalance
	err := tx.Where("token_id = ? AND holder = ?", tokenID, holder).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load token balance: %w", err)
	}
	return balance.Balance, nil
}

// BalancesOfBatch returns balances for several (holder, token) pairs.
func (ls *LedgerService) BalancesOfBatch(ctx context.Context, holders []string, tokenIDs []uint64) ([]decimal.Decimal, error) {
	if len(holders) != len(tokenIDs) {
		return nil, fmt.Errorf("mismatched batch lengths: %d holders, %d tokens", len(holders), len(tokenIDs))
	}

	out := make([]decimal.Decimal, len(holders))
	for i := range holders {
		balance, err := ls.BalanceOf(ctx, tokenIDs[i], holders[i])
		if err != nil {
			return nil, err
		}
		out[i] = balance
	}
	return out, nil
}

// TotalSupply returns the outstanding amount of one token.
func (ls *LedgerService) TotalSupply(ctx context.Context, tokenID uint64) (decimal.Decimal, error) {
	return ls.totalSupply(ls.db.WithContext(ctx), tokenID)
}

func (ls *LedgerService) totalSupply(tx *gorm.DB, tokenID uint64) (decimal.Decimal, error) {
	var token models.ClaimToken
	err := tx.Where("token_id = ?", tokenID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load claim token: %w", err)
	}
	return token.TotalSupply, nil
}
