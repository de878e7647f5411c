package services

import (
	"context"
	"log"

	"flight-markets/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService manages the liquidity float that seeds new markets. Only
// the registered product gateway may draw liquidity; only the owner may
// withdraw the float.
type WalletService struct {
	db       *gorm.DB
	funds    *FundsService
	registry *RegistryService
	owner    string
}

func NewWalletService(db *gorm.DB, funds *FundsService, registry *RegistryService, owner string) *WalletService {
	return &WalletService{db: db, funds: funds, registry: registry, owner: owner}
}

// Address returns the wallet's account address from the registry.
func (ws *WalletService) Address(ctx context.Context) (string, error) {
	return ws.registry.GetAddress(ctx, models.RoleLPWallet)
}

// ProvideLiquidity moves float into a market's bank. The transfer error is
// returned as-is when the float does not cover the bid.
func (ws *WalletService) ProvideLiquidity(tx *gorm.DB, caller, marketAddress string, amount decimal.Decimal) error {
	product, err := ws.registry.getAddress(tx, models.RoleProduct)
	if err != nil {
		return err
	}
	if product == "" || caller != product {
		return ErrUnknownProduct
	}

	wallet, err := ws.registry.getAddress(tx, models.RoleLPWallet)
	if err != nil {
		return err
	}

	if err := ws.funds.Transfer(tx, wallet, marketAddress, amount, models.TransferKindLiquidity, &marketAddress); err != nil {
		return err
	}

	log.Printf("[LPWallet] Provided %s liquidity to market %s", amount.String(), marketAddress)
	return nil
}

// Deposit adds external funds to the float.
func (ws *WalletService) Deposit(ctx context.Context, amount decimal.Decimal) error {
	wallet, err := ws.Address(ctx)
	if err != nil {
		return err
	}
	return ws.funds.Deposit(ctx, wallet, amount)
}

// Withdraw pays part of the float out to an address. Owner only.
func (ws *WalletService) Withdraw(ctx context.Context, caller, to string, amount decimal.Decimal) error {
	if caller != ws.owner {
		return ErrNotOwner
	}

	wallet, err := ws.Address(ctx)
	if err != nil {
		return err
	}

	balance, err := ws.funds.BalanceOf(ctx, wallet)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return ErrCantWithdraw
	}

	return ws.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ws.funds.Transfer(tx, wallet, to, amount, models.TransferKindWithdraw, nil)
	})
}

// Balance returns the current float.
func (ws *WalletService) Balance(ctx context.Context) (decimal.Decimal, error) {
	wallet, err := ws.Address(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ws.funds.BalanceOf(ctx, wallet)
}
