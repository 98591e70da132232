package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Playstrata/economy-engine/internal/config"
	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// minDividendCredit is the per-holder threshold below which a dividend is
// skipped rather than credited.
var minDividendCredit = decimal.NewFromFloat(0.01)

// MarketService runs the stock exchange: the daily price pass, trading
// against portfolio positions, dividends and position revaluation.
type MarketService struct {
	db       *sqlx.DB
	market   *repository.MarketRepository
	accounts *repository.AccountRepository
	cfg      *config.Config
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMarketService creates a MarketService. rng drives the stochastic price
// model; tests pin the seed.
func NewMarketService(
	db *sqlx.DB,
	market *repository.MarketRepository,
	accounts *repository.AccountRepository,
	cfg *config.Config,
	rng *rand.Rand,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		db:       db,
		market:   market,
		accounts: accounts,
		cfg:      cfg,
		rng:      rng,
		logger:   logger,
	}
}

// ── Results ──────────────────────────────────────────────────────────────────

// TradeResult is returned by BuyStock and SellStock.
type TradeResult struct {
	Status     OpStatus         `json:"status"`
	Shares     int64            `json:"shares"`
	Price      decimal.Decimal  `json:"price"`
	Fee        decimal.Decimal  `json:"fee"`
	Total      decimal.Decimal  `json:"total"` // signed account effect
	NewBalance decimal.Decimal  `json:"new_balance"`
	Position   *domain.Position `json:"position,omitempty"`
}

// PortfolioSummary aggregates a character's positions.
type PortfolioSummary struct {
	Positions     []*domain.Position `json:"positions"`
	TotalInvested decimal.Decimal    `json:"total_invested"`
	CurrentValue  decimal.Decimal    `json:"current_value"`
	GainLoss      decimal.Decimal    `json:"gain_loss"`
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateStockPrices — batch, once per simulated day
// ──────────────────────────────────────────────────────────────────────────────

// UpdateStockPrices advances every active company's price one simulated day
// under the sector-volatility + shared-trend model, appending a price point
// and recomputing market cap. Per-company atomic; failures logged, the pass
// continues.
func (s *MarketService) UpdateStockPrices(ctx context.Context) error {
	companies, err := s.market.ListActiveCompanies(ctx)
	if err != nil {
		return fmt.Errorf("market_service.UpdateStockPrices: fetch: %w", err)
	}

	now := time.Now().UTC()
	trend := domain.DailyTrend(now, s.cfg.Market.TrendAmplitude, s.cfg.Market.TrendPeriod)
	moved := 0
	for _, company := range companies {
		if err := s.moveOnePrice(ctx, company.ID, trend, now); err != nil {
			s.logger.Error("price update failed",
				"company_id", company.ID, "ticker", company.Ticker, "err", err)
			continue
		}
		moved++
	}
	s.logger.Info("price pass complete", "companies", len(companies), "moved", moved)
	return nil
}

func (s *MarketService) moveOnePrice(ctx context.Context, companyID uuid.UUID, trend float64, now time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("market_service.moveOnePrice: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	company, err := s.market.GetCompanyForUpdate(ctx, tx, companyID)
	if err != nil {
		return err
	}

	next := domain.NextStockPrice(company.CurrentPrice, company.Sector.Volatility(), trend, s.unit())
	marketCap := next.Mul(decimal.NewFromInt(s.cfg.Market.SharesOutstanding))
	if err = s.market.SetPrice(ctx, tx, companyID, next, marketCap); err != nil {
		return err
	}

	point := domain.NewPricePoint(companyID, company.CurrentPrice, next, s.syntheticVolume(), now)
	if err = s.market.InsertPricePoint(ctx, tx, point); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("market_service.moveOnePrice: commit: %w", err)
	}
	return nil
}

// unit draws u ∈ [−1, 1].
func (s *MarketService) unit() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()*2 - 1
}

// syntheticVolume fakes a plausible daily trade volume for the history row.
func (s *MarketService) syntheticVolume() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 500 + s.rng.Int63n(9_500)
}

// ──────────────────────────────────────────────────────────────────────────────
// BuyStock / SellStock
// ──────────────────────────────────────────────────────────────────────────────

// BuyStock purchases shares at the current price plus the trading fee,
// debiting the character's account and accumulating the position at
// weighted-average cost.
func (s *MarketService) BuyStock(ctx context.Context, characterID, companyID uuid.UUID, shares int64) (*TradeResult, error) {
	if shares <= 0 {
		return &TradeResult{Status: fail("share count must be positive")}, nil
	}
	res, err := s.trade(ctx, characterID, companyID, shares, domain.TradeBuy)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &TradeResult{Status: st}, nil
		}
		return nil, err
	}
	res.Status = ok(fmt.Sprintf("bought %d shares", shares))
	return res, nil
}

// SellStock sells shares at the current price minus the trading fee,
// crediting the net proceeds and releasing cost basis proportionally.
func (s *MarketService) SellStock(ctx context.Context, characterID, companyID uuid.UUID, shares int64) (*TradeResult, error) {
	if shares <= 0 {
		return &TradeResult{Status: fail("share count must be positive")}, nil
	}
	res, err := s.trade(ctx, characterID, companyID, shares, domain.TradeSell)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &TradeResult{Status: st}, nil
		}
		return nil, err
	}
	res.Status = ok(fmt.Sprintf("sold %d shares", shares))
	return res, nil
}

func (s *MarketService) trade(ctx context.Context, characterID, companyID uuid.UUID, shares int64, side domain.StockTradeSide) (result *TradeResult, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_service.trade: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	company, err := s.market.GetCompanyForUpdate(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		err = domain.ErrCompanyInactive
		return nil, err
	}

	account, err := s.accounts.GetByCharacterID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	account, err = s.accounts.GetForUpdate(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		err = domain.ErrAccountNotActive
		return nil, err
	}

	price := company.CurrentPrice
	notional := price.Mul(decimal.NewFromInt(shares))
	fee := domain.TradingFee(notional,
		decimal.NewFromFloat(s.cfg.Market.TradingFeeRate),
		decimal.NewFromFloat(s.cfg.Market.TradingMinFee))

	position, err := s.market.GetPositionForUpdate(ctx, tx, characterID, companyID)
	if err != nil {
		if !domain.IsNotFound(err) {
			return nil, err
		}
		position, err = nil, nil
	}

	var total decimal.Decimal // signed account effect
	var txType domain.TxType
	now := time.Now().UTC()

	switch side {
	case domain.TradeBuy:
		total = notional.Add(fee).Neg()
		txType = domain.TxStockBuy
		if account.Balance.LessThan(total.Neg()) {
			err = domain.ErrInsufficientBalance
			return nil, err
		}
		if position == nil {
			position = &domain.Position{
				ID:          uuid.New(),
				CharacterID: characterID,
				CompanyID:   companyID,
				CreatedAt:   now,
			}
		}
		position.ApplyBuy(shares, price)

	case domain.TradeSell:
		total = notional.Sub(fee)
		txType = domain.TxStockSell
		if position == nil {
			err = domain.ErrPositionNotFound
			return nil, err
		}
		if position.SharesOwned < shares {
			err = domain.ErrInsufficientShares
			return nil, err
		}
		position.ApplySell(shares)
	}

	position.Revalue(price)
	position.UpdatedAt = now
	if err = s.market.UpsertPosition(ctx, tx, position); err != nil {
		return nil, err
	}

	newBalance := account.Balance.Add(total)
	if err = s.accounts.SetBalance(ctx, tx, account.ID, newBalance); err != nil {
		return nil, err
	}
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         txType,
		Amount:       total,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("%s %d %s @ %s", side, shares, company.Ticker, price.StringFixed(4)),
		RefID:        &companyID,
		CreatedAt:    now,
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	trade := &domain.StockTransaction{
		ID:          uuid.New(),
		CharacterID: characterID,
		CompanyID:   companyID,
		Side:        side,
		Shares:      shares,
		Price:       price,
		Fee:         fee,
		Total:       total,
		ExecutedAt:  now,
	}
	if err = s.market.LogStockTransaction(ctx, tx, trade); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.trade: commit: %w", err)
	}
	return &TradeResult{
		Shares:     shares,
		Price:      price,
		Fee:        fee,
		Total:      total,
		NewBalance: newBalance,
		Position:   position,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PayDividends — batch, monthly
// ──────────────────────────────────────────────────────────────────────────────

// PayDividends credits every holder of every yield-paying company one month
// of dividends. Payouts below 0.01 per holder are skipped. One
// DividendPayment row aggregates each company's total.
func (s *MarketService) PayDividends(ctx context.Context) error {
	payers, err := s.market.ListDividendPayers(ctx)
	if err != nil {
		return fmt.Errorf("market_service.PayDividends: fetch: %w", err)
	}

	for _, company := range payers {
		if err := s.payCompanyDividends(ctx, company); err != nil {
			s.logger.Error("dividend run failed for company",
				"company_id", company.ID, "ticker", company.Ticker, "err", err)
		}
	}
	s.logger.Info("dividend pass complete", "companies", len(payers))
	return nil
}

func (s *MarketService) payCompanyDividends(ctx context.Context, company *domain.Company) error {
	holders, err := s.market.ListHolders(ctx, company.ID)
	if err != nil {
		return err
	}
	perShare := company.MonthlyDividendPerShare()

	total := decimal.Zero
	credited := 0
	for _, holder := range holders {
		payout := perShare.Mul(decimal.NewFromInt(holder.SharesOwned)).Round(2)
		if payout.LessThan(minDividendCredit) {
			continue
		}
		if err := s.creditDividend(ctx, holder.CharacterID, company, payout); err != nil {
			s.logger.Error("dividend credit failed",
				"character_id", holder.CharacterID, "company_id", company.ID, "err", err)
			continue
		}
		total = total.Add(payout)
		credited++
	}

	if credited == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("market_service.payCompanyDividends: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &domain.DividendPayment{
		ID:          uuid.New(),
		CompanyID:   company.ID,
		PerShare:    perShare,
		TotalPayout: total,
		HolderCount: credited,
		PaidAt:      time.Now().UTC(),
	}
	if err = s.market.InsertDividendPayment(ctx, tx, record); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("market_service.payCompanyDividends: commit: %w", err)
	}
	return nil
}

func (s *MarketService) creditDividend(ctx context.Context, characterID uuid.UUID, company *domain.Company, payout decimal.Decimal) error {
	account, err := s.accounts.GetByCharacterID(ctx, characterID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("market_service.creditDividend: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	account, err = s.accounts.GetForUpdate(ctx, tx, account.ID)
	if err != nil {
		return err
	}
	if !account.IsActive() {
		// Suspended holders keep their shares but are skipped this month.
		return tx.Rollback()
	}

	newBalance := account.Balance.Add(payout)
	if err = s.accounts.SetBalance(ctx, tx, account.ID, newBalance); err != nil {
		return err
	}
	companyID := company.ID
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         domain.TxDividend,
		Amount:       payout,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("Dividend from %s", company.Ticker),
		RefID:        &companyID,
		CreatedAt:    time.Now().UTC(),
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("market_service.creditDividend: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Revaluation & queries
// ──────────────────────────────────────────────────────────────────────────────

// RevaluePositions refreshes every position's current value and unrealized
// gain/loss against the latest prices. Runs after the daily price pass.
func (s *MarketService) RevaluePositions(ctx context.Context) error {
	if err := s.market.RevalueAllPositions(ctx); err != nil {
		return fmt.Errorf("market_service.RevaluePositions: %w", err)
	}
	return nil
}

// GetPortfolio returns a character's positions with aggregate totals.
func (s *MarketService) GetPortfolio(ctx context.Context, characterID uuid.UUID) (*PortfolioSummary, error) {
	positions, err := s.market.ListPositionsByCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetPortfolio: %w", err)
	}

	summary := &PortfolioSummary{Positions: positions}
	for _, p := range positions {
		summary.TotalInvested = summary.TotalInvested.Add(p.TotalInvested)
		summary.CurrentValue = summary.CurrentValue.Add(p.CurrentValue)
	}
	summary.GainLoss = summary.CurrentValue.Sub(summary.TotalInvested)
	return summary, nil
}

// GetPriceHistory returns a company's price points, newest first.
func (s *MarketService) GetPriceHistory(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*domain.StockPricePoint, error) {
	points, err := s.market.GetPriceHistory(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetPriceHistory: %w", err)
	}
	return points, nil
}
