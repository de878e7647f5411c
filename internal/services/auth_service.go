package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"flight-markets/internal/auth"
	"flight-markets/internal/models"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidLoginSignature = errors.New("invalid login signature")

// AuthService logs wallets in. A client asks for a nonce, signs it as a
// personal message and exchanges the signature for a JWT.
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// Nonce returns the challenge the wallet must sign, creating the user on
// first contact.
func (as *AuthService) Nonce(ctx context.Context, walletAddress string) (string, error) {
	var user models.User
	err := as.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			WalletAddress: walletAddress,
			Nonce:         newNonce(),
			CreatedAt:     time.Now(),
		}
		if err := as.db.WithContext(ctx).Create(&user).Error; err != nil {
			return "", fmt.Errorf("failed to create user: %w", err)
		}
		return user.Nonce, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	return user.Nonce, nil
}

// Login verifies a personal-message signature over the stored nonce and
// issues a token. The nonce rotates on every successful login.
func (as *AuthService) Login(ctx context.Context, walletAddress, signature string) (string, error) {
	var user models.User
	err := as.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err != nil {
		return "", ErrInvalidLoginSignature
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != 65 {
		return "", ErrInvalidLoginSignature
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	message := loginMessage(user.Nonce)
	digest := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))),
		[]byte(message),
	)

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", ErrInvalidLoginSignature
	}
	if crypto.PubkeyToAddress(*pub).Hex() != walletAddress {
		return "", ErrInvalidLoginSignature
	}

	now := time.Now()
	err = as.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"nonce":         newNonce(),
			"last_login_at": now,
		}).Error
	if err != nil {
		return "", fmt.Errorf("failed to rotate nonce: %w", err)
	}

	return auth.GenerateToken(user.ID, user.WalletAddress)
}

// LoginMessage returns the exact text a wallet should sign for a nonce.
func (as *AuthService) LoginMessage(nonce string) string {
	return loginMessage(nonce)
}

func loginMessage(nonce string) string {
	return "Sign in to flight markets: " + nonce
}

func newNonce() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
