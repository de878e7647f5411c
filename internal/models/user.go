package models

import "time"

// User is a wallet-authenticated account. Login proves key ownership by
// signing the issued nonce.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"size:42;uniqueIndex;not null" json:"wallet_address"`
	Nonce         string    `gorm:"size:64;not null" json:"-"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`
}

func (User) TableName() string {
	return "users"
}
