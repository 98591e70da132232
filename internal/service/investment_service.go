package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// InvestmentService manages the investment vault: purchases against the
// static product catalog, liquidations, maturities and the market-linked
// revaluation pass.
type InvestmentService struct {
	db          *sqlx.DB
	investments *repository.InvestmentRepository
	accounts    *repository.AccountRepository
	characters  CharacterStore
	logger      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInvestmentService creates an InvestmentService. rng drives the
// volatility sampling of the revaluation pass; tests pin the seed.
func NewInvestmentService(
	db *sqlx.DB,
	investments *repository.InvestmentRepository,
	accounts *repository.AccountRepository,
	characters CharacterStore,
	rng *rand.Rand,
	logger *slog.Logger,
) *InvestmentService {
	return &InvestmentService{
		db:          db,
		investments: investments,
		accounts:    accounts,
		characters:  characters,
		rng:         rng,
		logger:      logger,
	}
}

// ── Results ──────────────────────────────────────────────────────────────────

// InvestmentResult is returned by Purchase and Liquidate.
type InvestmentResult struct {
	Status     OpStatus           `json:"status"`
	Investment *domain.Investment `json:"investment,omitempty"`
	Payout     decimal.Decimal    `json:"payout,omitempty"`
}

// PortfolioEntry pairs an investment with its projected maturity value for
// the per-account portfolio listing.
type PortfolioEntry struct {
	Investment    *domain.Investment `json:"investment"`
	MaturityValue decimal.Decimal    `json:"maturity_value"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Purchase
// ──────────────────────────────────────────────────────────────────────────────

// Purchase buys a catalog product: validates amount bounds and eligibility
// gates, debits the account, and opens the investment at currentValue =
// principal.
func (s *InvestmentService) Purchase(ctx context.Context, accountID uuid.UUID, productID string, amount decimal.Decimal) (*InvestmentResult, error) {
	if !amount.IsPositive() {
		return &InvestmentResult{Status: fail("amount must be positive")}, nil
	}

	inv, err := s.purchase(ctx, accountID, productID, amount)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &InvestmentResult{Status: st}, nil
		}
		return nil, err
	}
	return &InvestmentResult{
		Status:     ok("investment opened"),
		Investment: inv,
	}, nil
}

func (s *InvestmentService) purchase(ctx context.Context, accountID uuid.UUID, productID string, amount decimal.Decimal) (*domain.Investment, error) {
	product, found := domain.ProductByID(productID)
	if !found {
		return nil, domain.ErrUnknownProduct
	}
	if amount.LessThan(product.MinAmount) || amount.GreaterThan(product.MaxAmount) {
		return nil, domain.ErrAmountOutOfBounds
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("investment_service.purchase: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		err = domain.ErrAccountNotActive
		return nil, err
	}
	if product.MinCreditScore > 0 && account.CreditScore < product.MinCreditScore {
		err = domain.ErrEligibilityNotMet
		return nil, err
	}
	if product.MinLevel > 0 {
		var snapshot *domain.CharacterSnapshot
		snapshot, err = s.characters.GetSnapshot(ctx, account.CharacterID)
		if err != nil {
			return nil, err
		}
		if snapshot.Level < product.MinLevel {
			err = domain.ErrEligibilityNotMet
			return nil, err
		}
	}
	if account.Balance.LessThan(amount) {
		err = domain.ErrInsufficientBalance
		return nil, err
	}

	now := time.Now().UTC()
	inv := &domain.Investment{
		ID:           uuid.New(),
		AccountID:    accountID,
		ProductID:    product.ID,
		Type:         product.Type,
		Principal:    amount,
		CurrentValue: amount,
		InterestRate: product.AnnualReturn,
		TermMonths:   product.TermMonths,
		Status:       domain.InvestmentActive,
		InvestedAt:   now,
		UpdatedAt:    now,
	}
	if product.TermMonths > 0 {
		maturity := now.AddDate(0, product.TermMonths, 0)
		inv.MaturityDate = &maturity
	}
	if err = s.investments.Create(ctx, tx, inv); err != nil {
		return nil, err
	}

	newBalance := account.Balance.Sub(amount)
	if err = s.accounts.SetBalance(ctx, tx, accountID, newBalance); err != nil {
		return nil, err
	}
	invID := inv.ID
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         domain.TxInvestment,
		Amount:       amount.Neg(),
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("Investment in %s", product.Name),
		RefID:        &invID,
		CreatedAt:    now,
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("investment_service.purchase: commit: %w", err)
	}
	return inv, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Liquidate
// ──────────────────────────────────────────────────────────────────────────────

// Liquidate terminates an active investment early, crediting the
// type-specific early-exit value. Terminal states are immutable; a second
// attempt fails with a business-rule result.
func (s *InvestmentService) Liquidate(ctx context.Context, investmentID uuid.UUID) (*InvestmentResult, error) {
	payout, err := s.terminate(ctx, investmentID, domain.InvestmentLiquidated, time.Now().UTC(), liquidationValue)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &InvestmentResult{Status: st}, nil
		}
		return nil, err
	}
	return &InvestmentResult{
		Status: ok(fmt.Sprintf("liquidated for %s", payout.StringFixed(2))),
		Payout: payout,
	}, nil
}

func liquidationValue(inv *domain.Investment, now time.Time) decimal.Decimal {
	return inv.LiquidationValue(now)
}

func maturityValue(inv *domain.Investment, _ time.Time) decimal.Decimal {
	return inv.MaturityValue()
}

// terminate ends one active investment and credits the value computed by
// valueFn back to the account, all in one transaction. The repository's
// status-guarded UPDATE rejects a second termination.
func (s *InvestmentService) terminate(
	ctx context.Context,
	investmentID uuid.UUID,
	status domain.InvestmentStatus,
	now time.Time,
	valueFn func(*domain.Investment, time.Time) decimal.Decimal,
) (decimal.Decimal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("investment_service.terminate: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inv, err := s.investments.GetForUpdate(ctx, tx, investmentID)
	if err != nil {
		return decimal.Zero, err
	}
	if !inv.IsActive() {
		err = domain.ErrInvestmentNotActive
		return decimal.Zero, err
	}

	payout := valueFn(inv, now)
	if err = s.investments.Terminate(ctx, tx, investmentID, status, payout); err != nil {
		return decimal.Zero, err
	}

	account, err := s.accounts.GetForUpdate(ctx, tx, inv.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	newBalance := account.Balance.Add(payout)
	if err = s.accounts.SetBalance(ctx, tx, inv.AccountID, newBalance); err != nil {
		return decimal.Zero, err
	}

	verb := "Liquidation"
	if status == domain.InvestmentMatured {
		verb = "Maturity payout"
	}
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    inv.AccountID,
		Type:         domain.TxInvestmentReturn,
		Amount:       payout,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("%s of %s", verb, inv.ProductID),
		RefID:        &inv.ID,
		CreatedAt:    now,
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return decimal.Zero, err
	}

	if err = tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("investment_service.terminate: commit: %w", err)
	}
	return payout, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Batch passes — called by the daily maintenance cycle
// ──────────────────────────────────────────────────────────────────────────────

// ProcessMaturedInvestments pays out every active investment whose maturity
// date has passed. Per-investment atomic; one failure does not stop the pass.
func (s *InvestmentService) ProcessMaturedInvestments(ctx context.Context) error {
	now := time.Now().UTC()
	matured, err := s.investments.ListMaturedActive(ctx, now)
	if err != nil {
		return fmt.Errorf("investment_service.ProcessMaturedInvestments: fetch: %w", err)
	}

	paid := 0
	for _, inv := range matured {
		if _, err := s.terminate(ctx, inv.ID, domain.InvestmentMatured, now, maturityValue); err != nil {
			s.logger.Error("maturity payout failed",
				"investment_id", inv.ID, "err", err)
			continue
		}
		paid++
	}
	s.logger.Info("maturity pass complete", "due", len(matured), "paid", paid)
	return nil
}

// UpdateMutualFundValues revalues every active market-linked holding from its
// principal, sampling a fresh volatility term per holding. The value is not a
// smooth path; each pass recomputes it.
func (s *InvestmentService) UpdateMutualFundValues(ctx context.Context) error {
	holdings, err := s.investments.ListActiveMarketLinked(ctx)
	if err != nil {
		return fmt.Errorf("investment_service.UpdateMutualFundValues: fetch: %w", err)
	}

	now := time.Now().UTC()
	updated := 0
	for _, inv := range holdings {
		value := inv.RevaluedFundValue(now, s.sampleVolatility(inv.Type))
		if err := s.investments.SetCurrentValue(ctx, inv.ID, value); err != nil {
			s.logger.Error("fund revaluation failed",
				"investment_id", inv.ID, "err", err)
			continue
		}
		updated++
	}
	s.logger.Info("fund revaluation pass complete", "holdings", len(holdings), "updated", updated)
	return nil
}

// sampleVolatility draws uniformly from ±band for the product type.
func (s *InvestmentService) sampleVolatility(t domain.ProductType) float64 {
	band := t.VolatilityBand()
	s.mu.Lock()
	u := s.rng.Float64()*2 - 1
	s.mu.Unlock()
	return band * u
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetPortfolio lists an account's investments with projected maturity values.
func (s *InvestmentService) GetPortfolio(ctx context.Context, accountID uuid.UUID) ([]*PortfolioEntry, error) {
	investments, err := s.investments.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("investment_service.GetPortfolio: %w", err)
	}
	entries := make([]*PortfolioEntry, 0, len(investments))
	for _, inv := range investments {
		entries = append(entries, &PortfolioEntry{
			Investment:    inv,
			MaturityValue: inv.MaturityValue(),
		})
	}
	return entries, nil
}

// ActiveValue returns the total current value of an account's active
// investments, used by the orchestrator's collateral check.
func (s *InvestmentService) ActiveValue(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	sum, err := s.investments.SumActiveValueByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("investment_service.ActiveValue: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(sum.Float64), nil
}
