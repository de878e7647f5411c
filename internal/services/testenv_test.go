package services

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"flight-markets/internal/database"
	"flight-markets/internal/models"
	"flight-markets/internal/trustus"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testOwner        = "0x1000000000000000000000000000000000000001"
	testLPWallet     = "0x1000000000000000000000000000000000000003"
	testGateway      = "0x1000000000000000000000000000000000000004"
	testOracle       = "0x1000000000000000000000000000000000000005"
	testFeeCollector = "0x1000000000000000000000000000000000000100"
	testAlice        = "0x2000000000000000000000000000000000000001"
	testBob          = "0x2000000000000000000000000000000000000002"
)

// testClock is a controllable time source shared by the services under test.
type testClock struct {
	current time.Time
}

func (tc *testClock) Now() time.Time {
	return tc.current
}

func (tc *testClock) Advance(d time.Duration) {
	tc.current = tc.current.Add(d)
}

type testEnv struct {
	db        *gorm.DB
	clock     *testClock
	funds     *FundsService
	registry  *RegistryService
	ledger    *LedgerService
	wallet    *WalletService
	markets   *MarketService
	insurance *InsuranceService
	oracle    *OracleService
	signerKey *ecdsa.PrivateKey
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// setupTestEnv wires the full service graph against an in-memory database,
// assigns the registry roles, trusts a packet signer and funds the
// liquidity wallet and two participants.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	clock := &testClock{current: time.Unix(1700000000, 0)}

	funds := NewFundsService(db)
	registry := NewRegistryService(db, testOwner)
	ledger := NewLedgerService(db, registry)
	wallet := NewWalletService(db, funds, registry, testOwner)
	markets := NewMarketService(db, funds, ledger, registry)
	markets.now = clock.Now
	insurance := NewInsuranceService(db, markets, ledger, funds, wallet, registry, testOwner, eth("5"))
	insurance.now = clock.Now
	oracle := NewOracleService(db, markets)

	ctx := context.Background()
	err := registry.SetAddresses(ctx, testOwner,
		[]uint{models.RoleLPWallet, models.RoleProduct, models.RoleOracle, models.RoleFeeCollector},
		[]string{testLPWallet, testGateway, testOracle, testFeeCollector},
	)
	if err != nil {
		t.Fatalf("failed to set registry roles: %v", err)
	}

	signerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate signer key: %v", err)
	}
	if err := insurance.SetIsTrusted(ctx, testOwner, crypto.PubkeyToAddress(signerKey.PublicKey).Hex(), true); err != nil {
		t.Fatalf("failed to trust signer: %v", err)
	}

	if err := wallet.Deposit(ctx, eth("1000")); err != nil {
		t.Fatalf("failed to fund liquidity wallet: %v", err)
	}
	if err := funds.Deposit(ctx, testAlice, eth("500")); err != nil {
		t.Fatalf("failed to fund alice: %v", err)
	}
	if err := funds.Deposit(ctx, testBob, eth("500")); err != nil {
		t.Fatalf("failed to fund bob: %v", err)
	}

	return &testEnv{
		db:        db,
		clock:     clock,
		funds:     funds,
		registry:  registry,
		ledger:    ledger,
		wallet:    wallet,
		markets:   markets,
		insurance: insurance,
		oracle:    oracle,
		signerKey: signerKey,
	}
}

// eth converts whole units to wei.
func eth(amount string) decimal.Decimal {
	return decimal.RequireFromString(amount).Mul(decimal.New(1, 18)).Truncate(0)
}

// defaultConfig mirrors the standard market parameters: 100 seeded, bids
// between 5 and 50, a 0.5% fee and a 2% opening YES price, trading for an
// hour and settling 2.5 hours after the cutoff.
func (env *testEnv) defaultConfig() models.MarketConfig {
	cutoff := env.clock.Now().Add(time.Hour).Unix()
	return models.MarketConfig{
		LPBid:       eth("100").String(),
		MinBid:      eth("5").String(),
		MaxBid:      eth("50").String(),
		FeeBps:      50,
		InitPBps:    200,
		CutoffTime:  cutoff,
		ClosingTime: cutoff + int64((150 * time.Minute).Seconds()),
		Mode:        models.PayoutModeBurn,
	}
}

func (env *testEnv) defaultFlight() models.FlightInfo {
	return models.FlightInfo{
		FlightName:    "BA442",
		DepartureDate: 202512312200,
		DelayMinutes:  30,
	}
}

// makePacket builds and signs a creation packet for the given parameters.
func (env *testEnv) makePacket(t *testing.T, cfg models.MarketConfig, flight models.FlightInfo) *trustus.Packet {
	t.Helper()

	payload, err := json.Marshal(models.MarketParams{Config: cfg, Flight: flight})
	if err != nil {
		t.Fatalf("failed to encode packet payload: %v", err)
	}

	packet := &trustus.Packet{
		Request:  trustus.RequestCreateMarket,
		Deadline: env.clock.Now().Add(10 * time.Minute).Unix(),
		Payload:  payload,
	}
	if err := trustus.Sign(packet, env.signerKey); err != nil {
		t.Fatalf("failed to sign packet: %v", err)
	}
	return packet
}

// createDefaultMarket deploys the standard market with alice betting 5 YES.
func (env *testEnv) createDefaultMarket(t *testing.T) *models.Market {
	t.Helper()

	packet := env.makePacket(t, env.defaultConfig(), env.defaultFlight())
	market, err := env.insurance.CreateMarket(context.Background(), testAlice, models.SideYes, eth("5"), packet)
	if err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	return market
}

// fmtWei renders wei as whole units with seven decimals.
func fmtWei(wei decimal.Decimal) string {
	return wei.Shift(-18).StringFixed(7)
}
