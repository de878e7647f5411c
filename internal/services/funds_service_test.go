package services

import (
	"context"
	"errors"
	"testing"

	"flight-markets/internal/models"
)

func TestDepositAndBalance(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	balance, err := env.funds.BalanceOf(ctx, "0x00000000000000000000000000000000000000ff")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("unknown account balance = %s, expected zero", balance.String())
	}

	if err := env.funds.Deposit(ctx, testAlice, eth("1.5")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	balance, err = env.funds.BalanceOf(ctx, testAlice)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if fmtWei(balance) != "501.5000000" {
		t.Errorf("balance = %s, expected 501.5000000", fmtWei(balance))
	}
}

func TestTransferChecksBalance(t *testing.T) {
	env := setupTestEnv(t)

	err := env.funds.Transfer(env.db, testAlice, testBob, eth("501"), models.TransferKindBet, nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}

	err = env.funds.Transfer(env.db, "0x00000000000000000000000000000000000000ff", testBob, eth("1"), models.TransferKindBet, nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance for an unknown account, got %v", err)
	}
}

func TestTransferHistory(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	if err := env.funds.Transfer(env.db, testAlice, testBob, eth("10"), models.TransferKindBet, nil); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	transfers, err := env.funds.Transfers(ctx, testAlice, 10)
	if err != nil {
		t.Fatalf("Transfers: %v", err)
	}
	// The funding deposit plus the transfer above.
	if len(transfers) != 2 {
		t.Fatalf("transfer count = %d, expected 2", len(transfers))
	}

	found := false
	for _, tr := range transfers {
		if tr.Kind == models.TransferKindBet && tr.FromAddress == testAlice && tr.ToAddress == testBob && tr.Amount.Equal(eth("10")) {
			found = true
		}
	}
	if !found {
		t.Error("the bet transfer is missing from the history")
	}
}
