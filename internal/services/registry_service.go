package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"flight-markets/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistryService is the role directory: factory, token ledger, liquidity
// wallet, product gateway, oracle and fee collector addresses, with a
// reverse lookup from address to role.
type RegistryService struct {
	db    *gorm.DB
	owner string
}

func NewRegistryService(db *gorm.DB, owner string) *RegistryService {
	return &RegistryService{db: db, owner: owner}
}

// SetAddresses assigns roles in bulk. Re-setting a role overwrites it.
func (rs *RegistryService) SetAddresses(ctx context.Context, caller string, ids []uint, addrs []string) error {
	if caller != rs.owner {
		return ErrNotOwner
	}
	if len(ids) != len(addrs) {
		return ErrRegistryInputLength
	}

	return rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			entry := models.RegistryEntry{RoleID: id, Address: addrs[i], UpdatedAt: time.Now()}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "role_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return fmt.Errorf("failed to set role %d: %w", id, err)
			}
			log.Printf("[Registry] Role %d -> %s", id, addrs[i])
		}
		return nil
	})
}

// GetAddress returns the address filling a role, empty when unset.
func (rs *RegistryService) GetAddress(ctx context.Context, roleID uint) (string, error) {
	return rs.getAddress(rs.db.WithContext(ctx), roleID)
}

func (rs *RegistryService) getAddress(tx *gorm.DB, roleID uint) (string, error) {
	var entry models.RegistryEntry
	err := tx.Where("role_id = ?", roleID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load registry role: %w", err)
	}
	return entry.Address, nil
}

// GetID returns the role an address fills, zero when it fills none.
func (rs *RegistryService) GetID(ctx context.Context, address string) (uint, error) {
	var entry models.RegistryEntry
	err := rs.db.WithContext(ctx).Where("address = ?", address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load registry entry: %w", err)
	}
	return entry.RoleID, nil
}

// Owner returns the administrative address.
func (rs *RegistryService) Owner() string {
	return rs.owner
}
