package models

import "time"

// Well-known registry roles.
const (
	RoleFactory      uint = 1
	RoleTokenLedger  uint = 2
	RoleLPWallet     uint = 3
	RoleProduct      uint = 4
	RoleOracle       uint = 5
	RoleFeeCollector uint = 100
)

// RegistryEntry maps a numeric role to the address currently filling it.
type RegistryEntry struct {
	RoleID    uint      `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	Address   string    `gorm:"size:42;not null;index" json:"address"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RegistryEntry) TableName() string {
	return "registry_entries"
}
