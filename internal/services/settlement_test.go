package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"flight-markets/internal/models"

	"github.com/shopspring/decimal"
)

// afterClosing pushes the clock past the market's closing time.
func (env *testEnv) afterClosing() {
	env.clock.Advance(4 * time.Hour)
}

func TestTrySettleBeforeClosing(t *testing.T) {
	env := setupTestEnv(t)
	market := env.createDefaultMarket(t)

	_, err := env.markets.TrySettle(context.Background(), market.Address)
	if !errors.Is(err, ErrMarketNotClosedYet) {
		t.Errorf("expected ErrMarketNotClosedYet, got %v", err)
	}
}

func TestTrySettleFilesRequest(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	env.afterClosing()

	requestID, err := env.markets.TrySettle(ctx, market.Address)
	if err != nil {
		t.Fatalf("TrySettle: %v", err)
	}
	if requestID == "" {
		t.Fatal("expected a request id")
	}

	updated, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if updated.Status != models.MarketStatusSettling {
		t.Errorf("status = %s, expected SETTLING", updated.Status)
	}

	pending, err := env.oracle.PendingRequests(ctx, 10)
	if err != nil {
		t.Fatalf("PendingRequests: %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != requestID {
		t.Errorf("pending requests = %+v, expected the filed request", pending)
	}

	// A settling market cannot be settled again.
	_, err = env.markets.TrySettle(ctx, market.Address)
	if !errors.Is(err, ErrWrongMarketState) {
		t.Errorf("expected ErrWrongMarketState, got %v", err)
	}
}

func TestRecordDecisionRejectsUnauthorizedSender(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	env.afterClosing()
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("TrySettle: %v", err)
	}

	err := env.markets.RecordDecision(ctx, market.Address, testAlice, models.FlightStatusLanded, 45)
	if !errors.Is(err, ErrUnauthorizedSender) {
		t.Errorf("expected ErrUnauthorizedSender, got %v", err)
	}
}

func TestRecordDecisionRequiresSettlingMarket(t *testing.T) {
	env := setupTestEnv(t)
	market := env.createDefaultMarket(t)

	err := env.markets.RecordDecision(context.Background(), market.Address, testOracle, models.FlightStatusLanded, 45)
	if !errors.Is(err, ErrWrongMarketState) {
		t.Errorf("expected ErrWrongMarketState, got %v", err)
	}
}

func TestDelayedFlightPaysYes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	env.afterClosing()
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("TrySettle: %v", err)
	}
	if err := env.markets.RecordDecision(ctx, market.Address, testOracle, models.FlightStatusLanded, 45); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	settled, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if settled.Status != models.MarketStatusSettled || settled.Result != models.ResultYes {
		t.Fatalf("market = %s/%s, expected SETTLED/YES", settled.Status, settled.Result)
	}
	if fmtWei(settled.FinalBank) != "104.9750000" {
		t.Errorf("final bank = %s, expected 104.9750000", fmtWei(settled.FinalBank))
	}
	if fmtWei(settled.FinalSupply) != "10287.5500000" {
		t.Errorf("final supply = %s, expected 10287.5500000", fmtWei(settled.FinalSupply))
	}

	// The wallet's own winning tokens were redeemed during settlement.
	lpBalance, err := env.ledger.BalanceOf(ctx, market.YesTokenID, testLPWallet)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !lpBalance.IsZero() {
		t.Errorf("wallet still holds %s winning tokens", lpBalance.String())
	}
	float, err := env.wallet.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !float.GreaterThan(eth("900")) {
		t.Errorf("wallet float = %s, expected the seed partially recouped", fmtWei(float))
	}

	// The holder's claim pays the pro-rata share of the bank.
	before, err := env.funds.BalanceOf(ctx, testAlice)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	payout, err := env.markets.ClaimReward(ctx, market.Address, testAlice)
	if err != nil {
		t.Fatalf("ClaimReward: %v", err)
	}
	if !payout.IsPositive() {
		t.Fatalf("payout = %s, expected positive", payout.String())
	}
	after, err := env.funds.BalanceOf(ctx, testAlice)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !after.Sub(before).Equal(payout) {
		t.Errorf("balance moved by %s, claim reported %s", after.Sub(before).String(), payout.String())
	}

	// Pro-rata flooring leaves at most a few wei behind.
	residual, err := env.funds.BalanceOf(ctx, market.Address)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if residual.GreaterThan(decimal.NewFromInt(10)) {
		t.Errorf("market residual = %s wei, expected a few at most", residual.String())
	}

	// Nothing left to claim twice.
	_, err = env.markets.ClaimReward(ctx, market.Address, testAlice)
	if !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("expected ErrNothingToClaim, got %v", err)
	}
}

func TestOnTimeFlightPaysNo(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	env.afterClosing()
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("TrySettle: %v", err)
	}
	if err := env.markets.RecordDecision(ctx, market.Address, testOracle, models.FlightStatusLanded, 0); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	settled, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if settled.Result != models.ResultNo {
		t.Fatalf("result = %s, expected NO", settled.Result)
	}

	// The wallet holds every NO token, so the auto-redeem drains the bank
	// to the wei.
	float, err := env.wallet.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if fmtWei(float) != "1004.9750000" {
		t.Errorf("wallet float = %s, expected 1004.9750000", fmtWei(float))
	}
	bank, err := env.funds.BalanceOf(ctx, market.Address)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if !bank.IsZero() {
		t.Errorf("market bank = %s, expected empty", bank.String())
	}

	// A YES holder gets nothing.
	_, err = env.markets.ClaimReward(ctx, market.Address, testAlice)
	if !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("expected ErrNothingToClaim, got %v", err)
	}
}

func TestCancelledFlightPaysYes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	env.afterClosing()
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("TrySettle: %v", err)
	}
	if err := env.markets.RecordDecision(ctx, market.Address, testOracle, models.FlightStatusCancelled, 0); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	settled, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if settled.Result != models.ResultYes {
		t.Errorf("result = %s, expected YES on cancellation", settled.Result)
	}
}

func TestUnresolvedFlightPostponesAndRetries(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	env.afterClosing()
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("TrySettle: %v", err)
	}
	if err := env.markets.RecordDecision(ctx, market.Address, testOracle, models.FlightStatusActive, 0); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	postponed, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if postponed.Status != models.MarketStatusPostponed {
		t.Fatalf("status = %s, expected POSTPONED", postponed.Status)
	}

	// No payouts while postponed.
	_, err = env.markets.ClaimReward(ctx, market.Address, testAlice)
	if !errors.Is(err, ErrMarketNotSettled) {
		t.Errorf("expected ErrMarketNotSettled, got %v", err)
	}

	// The retry files a fresh request and the next answer settles.
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("retry TrySettle: %v", err)
	}
	if err := env.markets.RecordDecision(ctx, market.Address, testOracle, models.FlightStatusLanded, 45); err != nil {
		t.Fatalf("retry RecordDecision: %v", err)
	}

	settled, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if settled.Status != models.MarketStatusSettled || settled.Result != models.ResultYes {
		t.Errorf("market = %s/%s, expected SETTLED/YES", settled.Status, settled.Result)
	}
}

func TestOracleFulfillLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	err := env.oracle.FulfillFlightStatus(ctx, testOracle, "no-such-request", models.FlightStatusLanded, 45)
	if !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("expected ErrUnknownRequest, got %v", err)
	}

	env.afterClosing()
	requestID, err := env.markets.TrySettle(ctx, market.Address)
	if err != nil {
		t.Fatalf("TrySettle: %v", err)
	}

	if err := env.oracle.FulfillFlightStatus(ctx, testOracle, requestID, models.FlightStatusLanded, 45); err != nil {
		t.Fatalf("FulfillFlightStatus: %v", err)
	}

	settled, err := env.markets.GetByAddress(ctx, market.Address)
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if settled.Status != models.MarketStatusSettled {
		t.Errorf("status = %s, expected SETTLED", settled.Status)
	}

	pending, err := env.oracle.PendingRequests(ctx, 10)
	if err != nil {
		t.Fatalf("PendingRequests: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending requests = %d, expected none", len(pending))
	}

	// A fulfilled request cannot be answered again.
	err = env.oracle.FulfillFlightStatus(ctx, testOracle, requestID, models.FlightStatusLanded, 45)
	if !errors.Is(err, ErrUnknownRequest) {
		t.Errorf("expected ErrUnknownRequest, got %v", err)
	}
}

func TestPayoutConservation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	if err := env.markets.Participate(ctx, market.Address, testBob, models.SideNo, eth("20")); err != nil {
		t.Fatalf("Participate: %v", err)
	}
	if err := env.markets.Participate(ctx, market.Address, testBob, models.SideYes, eth("10")); err != nil {
		t.Fatalf("Participate: %v", err)
	}

	env.afterClosing()
	if _, err := env.markets.TrySettle(ctx, market.Address); err != nil {
		t.Fatalf("TrySettle: %v", err)
	}
	if err := env.markets.RecordDecision(ctx, market.Address, testOracle, models.FlightStatusLanded, 45); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	if _, err := env.markets.ClaimReward(ctx, market.Address, testAlice); err != nil {
		t.Fatalf("ClaimReward alice: %v", err)
	}
	if _, err := env.markets.ClaimReward(ctx, market.Address, testBob); err != nil {
		t.Fatalf("ClaimReward bob: %v", err)
	}

	residual, err := env.funds.BalanceOf(ctx, market.Address)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if residual.GreaterThan(decimal.NewFromInt(10)) {
		t.Errorf("market residual = %s wei, expected a few at most", residual.String())
	}
}

func TestSettleDueListsClosedMarkets(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	market := env.createDefaultMarket(t)

	due, err := env.markets.SettleDue(ctx, 10)
	if err != nil {
		t.Fatalf("SettleDue: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due markets = %d, expected none before closing", len(due))
	}

	env.afterClosing()

	due, err = env.markets.SettleDue(ctx, 10)
	if err != nil {
		t.Fatalf("SettleDue: %v", err)
	}
	if len(due) != 1 || due[0].Address != market.Address {
		t.Errorf("due markets = %+v, expected the closed market", due)
	}
}
