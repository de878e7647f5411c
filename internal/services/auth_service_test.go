package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"flight-markets/internal/auth"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func signLoginMessage(t *testing.T, svc *AuthService, nonce string, keyHex string) (string, string) {
	t.Helper()

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}

	message := svc.LoginMessage(nonce)
	digest := crypto.Keccak256(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))),
		[]byte(message),
	)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig[64] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestLoginRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	auth.InitJWT("test-secret")
	svc := NewAuthService(db)
	ctx := context.Background()

	const keyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}
	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()

	nonce, err := svc.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	if nonce == "" {
		t.Fatal("expected a nonce")
	}

	_, signature := signLoginMessage(t, svc, nonce, keyHex)
	token, err := svc.Login(ctx, wallet, signature)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	// The nonce rotates, so the old signature is spent.
	_, err = svc.Login(ctx, wallet, signature)
	if !errors.Is(err, ErrInvalidLoginSignature) {
		t.Errorf("expected ErrInvalidLoginSignature on replay, got %v", err)
	}

	rotated, err := svc.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	if rotated == nonce {
		t.Error("nonce should rotate after login")
	}
}

func TestLoginRejectsWrongSigner(t *testing.T) {
	db := setupTestDB(t)
	auth.InitJWT("test-secret")
	svc := NewAuthService(db)
	ctx := context.Background()

	nonce, err := svc.Nonce(ctx, testAlice)
	if err != nil {
		t.Fatalf("Nonce: %v", err)
	}

	// Signed by a key that does not own the wallet address.
	_, signature := signLoginMessage(t, svc, nonce, "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	_, err = svc.Login(ctx, testAlice, signature)
	if !errors.Is(err, ErrInvalidLoginSignature) {
		t.Errorf("expected ErrInvalidLoginSignature, got %v", err)
	}
}

func TestLoginRejectsUnknownWallet(t *testing.T) {
	db := setupTestDB(t)
	auth.InitJWT("test-secret")
	svc := NewAuthService(db)

	_, err := svc.Login(context.Background(), testBob, "0x00")
	if !errors.Is(err, ErrInvalidLoginSignature) {
		t.Errorf("expected ErrInvalidLoginSignature, got %v", err)
	}
}
