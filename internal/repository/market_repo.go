package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// MarketRepository handles all database operations for companies, price
// history, portfolio positions, trades and dividends.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// ── Companies ────────────────────────────────────────────────────────────────

// GetCompany fetches a company by its primary key.
func (r *MarketRepository) GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var c domain.Company
	err := r.db.GetContext(ctx, &c, `SELECT * FROM companies WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("market_repo.GetCompany: %w", err)
	}
	return &c, nil
}

// GetCompanyForUpdate locks a company row inside a transaction and returns it.
func (r *MarketRepository) GetCompanyForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Company, error) {
	var c domain.Company
	err := tx.GetContext(ctx, &c, `SELECT * FROM companies WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("market_repo.GetCompanyForUpdate: %w", err)
	}
	return &c, nil
}

// ListActiveCompanies returns all actively traded companies.
func (r *MarketRepository) ListActiveCompanies(ctx context.Context) ([]*domain.Company, error) {
	var companies []*domain.Company
	err := r.db.SelectContext(ctx, &companies,
		`SELECT * FROM companies WHERE is_active = true ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListActiveCompanies: %w", err)
	}
	return companies, nil
}

// ListActiveBySector returns active companies in one sector, for event fan-out.
func (r *MarketRepository) ListActiveBySector(ctx context.Context, sector domain.Sector) ([]*domain.Company, error) {
	var companies []*domain.Company
	err := r.db.SelectContext(ctx, &companies,
		`SELECT * FROM companies WHERE is_active = true AND sector = $1 ORDER BY ticker ASC`,
		string(sector))
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListActiveBySector: %w", err)
	}
	return companies, nil
}

// ListDividendPayers returns active companies with a positive dividend yield.
func (r *MarketRepository) ListDividendPayers(ctx context.Context) ([]*domain.Company, error) {
	var companies []*domain.Company
	err := r.db.SelectContext(ctx, &companies,
		`SELECT * FROM companies WHERE is_active = true AND dividend_yield > 0 ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListDividendPayers: %w", err)
	}
	return companies, nil
}

// SetPrice writes a new current price and market cap inside a transaction.
func (r *MarketRepository) SetPrice(ctx context.Context, tx *sqlx.Tx, companyID uuid.UUID, price, marketCap decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE companies SET current_price = $1, market_cap = $2, updated_at = now() WHERE id = $3`,
		price, marketCap, companyID)
	if err != nil {
		return fmt.Errorf("market_repo.SetPrice: %w", err)
	}
	return nil
}

// ── Price history ────────────────────────────────────────────────────────────

// InsertPricePoint appends an immutable price history snapshot inside a transaction.
func (r *MarketRepository) InsertPricePoint(ctx context.Context, tx *sqlx.Tx, p *domain.StockPricePoint) error {
	query := `
		INSERT INTO stock_price_points
			(id, company_id, price, volume, open, close, high, low, change, change_percent, created_at)
		VALUES
			(:id, :company_id, :price, :volume, :open, :close, :high, :low, :change, :change_percent, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("market_repo.InsertPricePoint: %w", err)
	}
	return nil
}

// GetPriceHistory returns a company's price points, newest first, paginated.
func (r *MarketRepository) GetPriceHistory(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*domain.StockPricePoint, error) {
	var points []*domain.StockPricePoint
	err := r.db.SelectContext(ctx, &points, `
		SELECT * FROM stock_price_points
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_repo.GetPriceHistory: %w", err)
	}
	return points, nil
}

// ── Positions ────────────────────────────────────────────────────────────────

// GetPosition fetches a character's position in a company.
func (r *MarketRepository) GetPosition(ctx context.Context, characterID, companyID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM portfolio_positions WHERE character_id = $1 AND company_id = $2`,
		characterID, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("market_repo.GetPosition: %w", err)
	}
	return &p, nil
}

// GetPositionForUpdate locks a position row inside a transaction.
// Returns ErrPositionNotFound when the character has never held the stock.
func (r *MarketRepository) GetPositionForUpdate(ctx context.Context, tx *sqlx.Tx, characterID, companyID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p,
		`SELECT * FROM portfolio_positions WHERE character_id = $1 AND company_id = $2 FOR UPDATE`,
		characterID, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("market_repo.GetPositionForUpdate: %w", err)
	}
	return &p, nil
}

// UpsertPosition writes a position inside a transaction, inserting on first
// buy and updating thereafter.
func (r *MarketRepository) UpsertPosition(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		INSERT INTO portfolio_positions
			(id, character_id, company_id, shares_owned, average_cost, total_invested,
			 current_value, unrealized_gain_loss, created_at, updated_at)
		VALUES
			(:id, :character_id, :company_id, :shares_owned, :average_cost, :total_invested,
			 :current_value, :unrealized_gain_loss, :created_at, :updated_at)
		ON CONFLICT (character_id, company_id) DO UPDATE SET
			shares_owned         = EXCLUDED.shares_owned,
			average_cost         = EXCLUDED.average_cost,
			total_invested       = EXCLUDED.total_invested,
			current_value        = EXCLUDED.current_value,
			unrealized_gain_loss = EXCLUDED.unrealized_gain_loss,
			updated_at           = now()`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("market_repo.UpsertPosition: %w", err)
	}
	return nil
}

// ListHolders returns every position with shares in a company, for dividends.
func (r *MarketRepository) ListHolders(ctx context.Context, companyID uuid.UUID) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions,
		`SELECT * FROM portfolio_positions WHERE company_id = $1 AND shares_owned > 0 ORDER BY created_at ASC`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListHolders: %w", err)
	}
	return positions, nil
}

// ListPositionsByCharacter returns a character's full portfolio.
func (r *MarketRepository) ListPositionsByCharacter(ctx context.Context, characterID uuid.UUID) ([]*domain.Position, error) {
	var positions []*domain.Position
	err := r.db.SelectContext(ctx, &positions,
		`SELECT * FROM portfolio_positions WHERE character_id = $1 AND shares_owned > 0 ORDER BY created_at ASC`,
		characterID)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListPositionsByCharacter: %w", err)
	}
	return positions, nil
}

// RevalueAllPositions recomputes every position's current value and
// unrealized gain against companies' latest prices in one statement.
// Run after a price update pass.
func (r *MarketRepository) RevalueAllPositions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE portfolio_positions pp
		SET current_value        = pp.shares_owned * c.current_price,
		    unrealized_gain_loss = pp.shares_owned * c.current_price - pp.total_invested,
		    updated_at           = now()
		FROM companies c
		WHERE c.id = pp.company_id AND pp.shares_owned > 0`)
	if err != nil {
		return fmt.Errorf("market_repo.RevalueAllPositions: %w", err)
	}
	return nil
}

// ── Trades & dividends ───────────────────────────────────────────────────────

// LogStockTransaction records an executed trade inside a transaction.
func (r *MarketRepository) LogStockTransaction(ctx context.Context, tx *sqlx.Tx, st *domain.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions
			(id, character_id, company_id, side, shares, price, fee, total, executed_at)
		VALUES
			(:id, :character_id, :company_id, :side, :shares, :price, :fee, :total, :executed_at)`
	if _, err := tx.NamedExecContext(ctx, query, st); err != nil {
		return fmt.Errorf("market_repo.LogStockTransaction: %w", err)
	}
	return nil
}

// InsertDividendPayment records one company's aggregated monthly payout
// inside a transaction.
func (r *MarketRepository) InsertDividendPayment(ctx context.Context, tx *sqlx.Tx, d *domain.DividendPayment) error {
	query := `
		INSERT INTO dividend_payments
			(id, company_id, per_share, total_payout, holder_count, paid_at)
		VALUES
			(:id, :company_id, :per_share, :total_payout, :holder_count, :paid_at)`
	if _, err := tx.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("market_repo.InsertDividendPayment: %w", err)
	}
	return nil
}
