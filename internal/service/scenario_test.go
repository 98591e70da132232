package service_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Playstrata/economy-engine/internal/config"
	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/Playstrata/economy-engine/internal/service"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ── DB-gated test fixture ─────────────────────────────────────────────────────
//
// These tests run against a real PostgreSQL instance and skip when
// TEST_DATABASE_DSN is unset, so the pure-arithmetic suites stay runnable
// without infrastructure:
//
//	TEST_DATABASE_DSN="host=localhost user=postgres dbname=economy_test sslmode=disable" go test ./...

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping database-backed test")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	return db
}

func applyMigrations(t *testing.T, db *sqlx.DB) {
	t.Helper()
	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read migration %s: %v", f, err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			t.Fatalf("apply migration %s: %v", f, err)
		}
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Economy: config.EconomyConfig{
			MaxActiveLoans:     3,
			MinLoanCreditScore: 400,
		},
		Market: config.MarketConfig{
			TradingFeeRate:    0.002,
			TradingMinFee:     10,
			SharesOutstanding: 50_000,
			TrendAmplitude:    0.002,
			TrendPeriod:       30 * 24 * time.Hour,
		},
		Events: config.EventsConfig{
			TriggerProbability: 0.30,
			GlobalActiveProb:   0.10,
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedCharacter inserts a character row the engine can open an account for.
func seedCharacter(t *testing.T, db *sqlx.DB, level int, class string, gold int64, luck int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO characters (id, name, level, class, gold, luck) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, "test-"+id.String()[:8], level, class, gold, luck)
	if err != nil {
		t.Fatalf("seed character: %v", err)
	}
	return id
}

// seedCompany inserts a tradable company at the given price. The ticker is
// derived from the fresh UUID so reruns never collide.
func seedCompany(t *testing.T, db *sqlx.DB, sector domain.Sector, price float64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO companies (id, name, ticker, sector, current_price, market_cap)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, "Test Company "+id.String()[:8], "T"+strings.ToUpper(id.String()[:7]),
		string(sector), price, price*50_000)
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return id
}

// ── End-to-end scenario ───────────────────────────────────────────────────────

// TestEndToEndEconomicDay walks one character through a full economic day:
// open account → deposit 5,000 → borrow 2,000 → buy 10 shares at 50
// (cost 500 + minimum fee 10) → daily price pass → impact pass with no
// active events. Final balance must be 5,000 − 510 + 2,000 = 6,490 and the
// ledger must replay to it exactly.
func TestEndToEndEconomicDay(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cfg := testConfig()
	logger := quietLogger()
	rng := rand.New(rand.NewSource(1))

	accountRepo := repository.NewAccountRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	eventRepo := repository.NewEventRepository(db)
	characterRepo := repository.NewCharacterRepository(db)

	accountSvc := service.NewAccountService(db, accountRepo, characterRepo, logger)
	loanSvc := service.NewLoanService(db, loanRepo, accountRepo, cfg, logger)
	marketSvc := service.NewMarketService(db, marketRepo, accountRepo, cfg, rng, logger)
	eventSvc := service.NewEventService(db, eventRepo, marketRepo, cfg, rng, logger)

	characterID := seedCharacter(t, db, 12, "merchant", 50_000, 70)
	companyID := seedCompany(t, db, domain.SectorTrade, 50)

	// Open: merchant L12, 50k gold, luck 70 seeds a 675 score.
	opened, err := accountSvc.OpenAccount(ctx, characterID, domain.TierStandard)
	if err != nil {
		t.Fatalf("OpenAccount: %v", err)
	}
	if !opened.Status.Success {
		t.Fatalf("OpenAccount rejected: %s", opened.Status.Message)
	}
	if opened.Account.CreditScore != 675 {
		t.Errorf("opening credit score = %d, want 675", opened.Account.CreditScore)
	}
	accountID := opened.Account.ID

	// Deposit 5,000.
	dep, err := accountSvc.Deposit(ctx, accountID, decimal.NewFromInt(5_000))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !dep.Status.Success || !dep.NewBalance.Equal(decimal.NewFromInt(5_000)) {
		t.Fatalf("Deposit: success=%v balance=%s, want 5000", dep.Status.Success, dep.NewBalance)
	}

	// Borrow 2,000 over 12 months.
	loan, err := loanSvc.ApplyForLoan(ctx, accountID, decimal.NewFromInt(2_000), 12, "business", nil)
	if err != nil {
		t.Fatalf("ApplyForLoan: %v", err)
	}
	if !loan.Status.Success {
		t.Fatalf("loan rejected: %s", loan.Status.Message)
	}

	// Buy 10 shares at 50: notional 500, fee floors at 10.
	trade, err := marketSvc.BuyStock(ctx, characterID, companyID, 10)
	if err != nil {
		t.Fatalf("BuyStock: %v", err)
	}
	if !trade.Status.Success {
		t.Fatalf("trade rejected: %s", trade.Status.Message)
	}
	if !trade.Fee.Equal(decimal.NewFromInt(10)) {
		t.Errorf("trade fee = %s, want minimum 10", trade.Fee)
	}
	want := decimal.NewFromInt(6_490)
	if !trade.NewBalance.Equal(want) {
		t.Errorf("balance after trade = %s, want %s", trade.NewBalance, want)
	}

	// One daily price pass and one impact pass (no events: no-op).
	if err := marketSvc.UpdateStockPrices(ctx); err != nil {
		t.Fatalf("UpdateStockPrices: %v", err)
	}
	if err := eventSvc.ProcessOngoingImpacts(ctx); err != nil {
		t.Fatalf("ProcessOngoingImpacts: %v", err)
	}
	if err := marketSvc.RevaluePositions(ctx); err != nil {
		t.Fatalf("RevaluePositions: %v", err)
	}

	// Balance is untouched by the market passes.
	account, err := accountSvc.GetAccount(ctx, characterID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !account.Balance.Equal(want) {
		t.Errorf("final balance = %s, want %s", account.Balance, want)
	}

	// Ledger integrity: replaying the statement reproduces the balance.
	statement, err := accountSvc.GetStatement(ctx, accountID, 100, 0)
	if err != nil {
		t.Fatalf("GetStatement: %v", err)
	}
	if sum := domain.ReplaySum(statement); !sum.Equal(account.Balance) {
		t.Errorf("ledger replay = %s, balance = %s", sum, account.Balance)
	}

	// Portfolio marks the position at the post-pass price.
	company, err := marketRepo.GetCompany(ctx, companyID)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if !company.CurrentPrice.GreaterThanOrEqual(domain.MinStockPrice) {
		t.Errorf("price %s fell below floor after pass", company.CurrentPrice)
	}
	portfolio, err := marketSvc.GetPortfolio(ctx, characterID)
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	wantValue := company.CurrentPrice.Mul(decimal.NewFromInt(10)).Round(2)
	if !portfolio.CurrentValue.Equal(wantValue) {
		t.Errorf("portfolio value = %s, want 10 × %s = %s",
			portfolio.CurrentValue, company.CurrentPrice, wantValue)
	}
	t.Logf("final balance=%s price=%s portfolio=%s",
		account.Balance, company.CurrentPrice, portfolio.CurrentValue)
}

// ── Impact lifecycle regressions ──────────────────────────────────────────────

// seedEventWithImpact inserts an event and one impact row directly, bypassing
// the random trigger so timing can be controlled.
func seedEventWithImpact(t *testing.T, db *sqlx.DB, event *domain.WorldEvent, impact *domain.EventStockImpact) {
	t.Helper()
	eventRepo := repository.NewEventRepository(db)
	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ctx := context.Background()
	if err := eventRepo.InsertEvent(ctx, tx, event); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if err := eventRepo.InsertImpact(ctx, tx, impact); err != nil {
		t.Fatalf("InsertImpact: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func currentPrice(t *testing.T, db *sqlx.DB, companyID uuid.UUID) decimal.Decimal {
	t.Helper()
	var price decimal.Decimal
	if err := db.Get(&price, `SELECT current_price FROM companies WHERE id = $1`, companyID); err != nil {
		t.Fatalf("read price: %v", err)
	}
	return price
}

// TestGradualImpactAppliesFullTotal: a −24%/24h gradual impact whose window
// has fully elapsed must apply all 24 hourly steps — including the final
// step, which only falls due at expires_at — and then be purged. A single
// catch-up pass applies the outstanding steps as one −24% move: 100 → 76.
func TestGradualImpactAppliesFullTotal(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	eventSvc := service.NewEventService(db,
		repository.NewEventRepository(db), repository.NewMarketRepository(db),
		testConfig(), rng, quietLogger())

	companyID := seedCompany(t, db, domain.SectorFinance, 100)

	now := time.Now().UTC()
	occurred := now.Add(-25 * time.Hour)
	expires := occurred.Add(24 * time.Hour) // one hour in the past
	event := &domain.WorldEvent{
		ID: uuid.New(), Category: domain.EventEconomic,
		Title: "Crown Mint Debases the Coinage", Severity: domain.SeverityMajor,
		DurationHours: 24, OccurredAt: occurred, ExpiresAt: expires,
	}
	impact := &domain.EventStockImpact{
		ID: uuid.New(), EventID: event.ID, CompanyID: companyID,
		ImpactPercentage: decimal.NewFromInt(-24), ImpactType: domain.ImpactGradual,
		AppliedAt: occurred, ExpiresAt: expires, CreatedAt: occurred,
	}
	seedEventWithImpact(t, db, event, impact)

	if err := eventSvc.ProcessOngoingImpacts(ctx); err != nil {
		t.Fatalf("ProcessOngoingImpacts: %v", err)
	}

	price := currentPrice(t, db, companyID)
	if !price.Equal(decimal.NewFromInt(76)) {
		t.Errorf("price after full catch-up = %s, want 76 (the full -24%%)", price)
	}

	// Fully applied and expired: both rows are gone.
	var impacts, events int
	if err := db.Get(&impacts, `SELECT COUNT(*) FROM event_stock_impacts WHERE id = $1`, impact.ID); err != nil {
		t.Fatalf("count impacts: %v", err)
	}
	if err := db.Get(&events, `SELECT COUNT(*) FROM world_events WHERE id = $1`, event.ID); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if impacts != 0 || events != 0 {
		t.Errorf("finished rows not purged: impacts=%d events=%d", impacts, events)
	}
}

// TestDelayedImpactOutlivesShortEvent: a DELAYED shock in a 24-hour event
// falls due exactly when the event expires. Its own expiry window starts at
// its appliedAt, so the shock still applies, exactly once.
func TestDelayedImpactOutlivesShortEvent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	eventSvc := service.NewEventService(db,
		repository.NewEventRepository(db), repository.NewMarketRepository(db),
		testConfig(), rng, quietLogger())

	companyID := seedCompany(t, db, domain.SectorTrade, 100)

	now := time.Now().UTC()
	occurred := now.Add(-25 * time.Hour)
	eventExpires := occurred.Add(24 * time.Hour)
	appliedAt := occurred.Add(domain.DelayedImpactOffset) // == eventExpires, one hour ago
	event := &domain.WorldEvent{
		ID: uuid.New(), Category: domain.EventDisaster,
		Title: "Flooding of the River Markets", Severity: domain.SeverityModerate,
		DurationHours: 24, OccurredAt: occurred, ExpiresAt: eventExpires,
	}
	impact := &domain.EventStockImpact{
		ID: uuid.New(), EventID: event.ID, CompanyID: companyID,
		ImpactPercentage: decimal.NewFromInt(-6), ImpactType: domain.ImpactDelayed,
		AppliedAt: appliedAt, ExpiresAt: appliedAt.Add(24 * time.Hour), CreatedAt: occurred,
	}
	seedEventWithImpact(t, db, event, impact)

	if err := eventSvc.ProcessOngoingImpacts(ctx); err != nil {
		t.Fatalf("ProcessOngoingImpacts: %v", err)
	}
	price := currentPrice(t, db, companyID)
	if !price.Equal(decimal.NewFromInt(94)) {
		t.Errorf("price after delayed shock = %s, want 94", price)
	}

	// A second pass is a no-op: the shock never double-applies.
	if err := eventSvc.ProcessOngoingImpacts(ctx); err != nil {
		t.Fatalf("second ProcessOngoingImpacts: %v", err)
	}
	if again := currentPrice(t, db, companyID); !again.Equal(price) {
		t.Errorf("second pass moved the price: %s → %s", price, again)
	}
}
