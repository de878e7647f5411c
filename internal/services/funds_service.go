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

// DepositSourceAddress marks funds entering the book from outside.
const DepositSourceAddress = "0x0000000000000000000000000000000000000000"

// FundsService is the base-currency account book. All balance mutations
// run inside the caller's transaction so a failed trade rolls back its
// transfers together with the rest of its writes.
type FundsService struct {
	db *gorm.DB
}

func NewFundsService(db *gorm.DB) *FundsService {
	return &FundsService{db: db}
}

// BalanceOf returns an account balance, zero for unknown addresses.
func (fs *FundsService) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	return fs.balanceOf(fs.db.WithContext(ctx), address)
}

func (fs *FundsService) balanceOf(tx *gorm.DB, address string) (decimal.Decimal, error) {
	var account models.Account
	err := tx.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load account: %w", err)
	}
	return account.Balance, nil
}

// Deposit credits external funds to an address.
func (fs *FundsService) Deposit(ctx context.Context, address string, amount decimal.Decimal) error {
	return fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fs.Credit(tx, address, amount); err != nil {
			return err
		}
		return fs.record(tx, DepositSourceAddress, address, amount, models.TransferKindDeposit, nil)
	})
}

// Credit adds to an account, creating it on first use. The addition happens
// in Go so wei amounts never pass through SQL float arithmetic.
func (fs *FundsService) Credit(tx *gorm.DB, address string, amount decimal.Decimal) error {
	var account models.Account
	err := tx.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.Account{Address: address, Balance: amount, UpdatedAt: time.Now()}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	err = tx.Model(&models.Account{}).Where("address = ?", address).
		Updates(map[string]interface{}{
			"balance":    account.Balance.Add(amount),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

// Debit removes from an account. Fails when the balance does not cover it.
func (fs *FundsService) Debit(tx *gorm.DB, address string, amount decimal.Decimal) error {
	var account models.Account
	err := tx.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientBalance
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if account.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	err = tx.Model(&models.Account{}).Where("address = ?", address).
		Updates(map[string]interface{}{
			"balance":    account.Balance.Sub(amount),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	return nil
}

// Transfer moves funds between accounts and records the movement.
func (fs *FundsService) Transfer(tx *gorm.DB, from, to string, amount decimal.Decimal, kind models.TransferKind, market *string) error {
	if err := fs.Debit(tx, from, amount); err != nil {
		return err
	}
	if err := fs.Credit(tx, to, amount); err != nil {
		return err
	}
	return fs.record(tx, from, to, amount, kind, market)
}

func (fs *FundsService) record(tx *gorm.DB, from, to string, amount decimal.Decimal, kind models.TransferKind, market *string) error {
	transfer := models.FundsTransfer{
		ID:            uuid.New(),
		FromAddress:   from,
		ToAddress:     to,
		Amount:        amount,
		Kind:          kind,
		MarketAddress: market,
		CreatedAt:     time.Now(),
	}
	if err := tx.Create(&transfer).Error; err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}
	return nil
}

// Transfers returns the most recent movements touching an address.
func (fs *FundsService) Transfers(ctx context.Context, address string, limit int) ([]models.FundsTransfer, error) {
	var transfers []models.FundsTransfer
	err := fs.db.WithContext(ctx).
		Where("from_address = ? OR to_address = ?", address, address).
		Order("created_at DESC").Limit(limit).
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transfers: %w", err)
	}
	return transfers, nil
}
