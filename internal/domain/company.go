package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sectors
// ──────────────────────────────────────────────────────────────────────────────

// Sector classifies a tradable company and selects its price volatility.
type Sector string

const (
	SectorFinance     Sector = "finance"
	SectorAgriculture Sector = "agriculture"
	SectorTrade       Sector = "trade"
	SectorCrafting    Sector = "crafting"
	SectorMining      Sector = "mining"
	SectorMagic       Sector = "magic"
	SectorTechnology  Sector = "technology"
)

// sectorVolatility is the fixed per-sector daily volatility table.
// Finance is the calmest sector, technology the wildest.
var sectorVolatility = map[Sector]float64{
	SectorFinance:     0.010,
	SectorAgriculture: 0.012,
	SectorTrade:       0.015,
	SectorCrafting:    0.018,
	SectorMining:      0.020,
	SectorMagic:       0.025,
	SectorTechnology:  0.030,
}

// Volatility returns the sector's daily volatility constant. Unknown sectors
// take the trade sector's middle-of-the-road value.
func (s Sector) Volatility() float64 {
	if v, ok := sectorVolatility[s]; ok {
		return v
	}
	return sectorVolatility[SectorTrade]
}

// SharesOutstanding is the fixed share count used for market cap.
const SharesOutstanding = 50_000

// MinStockPrice is the floor a price can never fall below.
var MinStockPrice = decimal.NewFromFloat(0.01)

// DailyTrend returns the slow sinusoidal drift shared by all companies at a
// given wall-clock time: amplitude × sin(2π · t / period).
func DailyTrend(t time.Time, amplitude float64, period time.Duration) float64 {
	phase := float64(t.Unix()) / period.Seconds()
	return amplitude * math.Sin(2*math.Pi*phase)
}

// NextStockPrice advances a price one simulated day:
//
//	change = last × (volatility × u + trend),  u ∈ [−1, 1]
//
// floored at MinStockPrice and rounded to 4 places.
func NextStockPrice(last decimal.Decimal, volatility, trend, u float64) decimal.Decimal {
	change := last.Mul(decimal.NewFromFloat(volatility*u + trend))
	next := last.Add(change).Round(4)
	if next.LessThan(MinStockPrice) {
		return MinStockPrice
	}
	return next
}

// ──────────────────────────────────────────────────────────────────────────────
// Company
// ──────────────────────────────────────────────────────────────────────────────

// Company is a tradable in-world company. CurrentPrice always equals the most
// recent StockPricePoint's close.
type Company struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	Name          string          `json:"name"           db:"name"`
	Ticker        string          `json:"ticker"         db:"ticker"`
	Sector        Sector          `json:"sector"         db:"sector"`
	CurrentPrice  decimal.Decimal `json:"current_price"  db:"current_price"`
	MarketCap     decimal.Decimal `json:"market_cap"     db:"market_cap"`
	DividendYield decimal.Decimal `json:"dividend_yield" db:"dividend_yield"` // annual, percent
	PERatio       decimal.Decimal `json:"pe_ratio"       db:"pe_ratio"`
	IsActive      bool            `json:"is_active"      db:"is_active"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"     db:"updated_at"`
}

// MonthlyDividendPerShare returns price × yield% / 12 per share.
func (c *Company) MonthlyDividendPerShare() decimal.Decimal {
	return c.CurrentPrice.
		Mul(c.DividendYield).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(12))
}

// StockPricePoint is an immutable snapshot in a company's price history.
type StockPricePoint struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	CompanyID     uuid.UUID       `json:"company_id"     db:"company_id"`
	Price         decimal.Decimal `json:"price"          db:"price"`
	Volume        int64           `json:"volume"         db:"volume"`
	Open          decimal.Decimal `json:"open"           db:"open"`
	Close         decimal.Decimal `json:"close"          db:"close"`
	High          decimal.Decimal `json:"high"           db:"high"`
	Low           decimal.Decimal `json:"low"            db:"low"`
	Change        decimal.Decimal `json:"change"         db:"change"`
	ChangePercent decimal.Decimal `json:"change_percent" db:"change_percent"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
}

// NewPricePoint builds the snapshot for a move from prev to next.
func NewPricePoint(companyID uuid.UUID, prev, next decimal.Decimal, volume int64, at time.Time) *StockPricePoint {
	change := next.Sub(prev)
	var changePct decimal.Decimal
	if !prev.IsZero() {
		changePct = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(4)
	}
	high, low := prev, next
	if next.GreaterThan(prev) {
		high, low = next, prev
	}
	return &StockPricePoint{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Price:         next,
		Volume:        volume,
		Open:          prev,
		Close:         next,
		High:          high,
		Low:           low,
		Change:        change,
		ChangePercent: changePct,
		CreatedAt:     at,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Portfolio position
// ──────────────────────────────────────────────────────────────────────────────

// Position is one character's holding in one company. Cost basis is carried
// as a weighted average on buys; sells release cost proportionally to shares
// sold rather than re-averaging.
type Position struct {
	ID                 uuid.UUID       `json:"id"                   db:"id"`
	CharacterID        uuid.UUID       `json:"character_id"         db:"character_id"`
	CompanyID          uuid.UUID       `json:"company_id"           db:"company_id"`
	SharesOwned        int64           `json:"shares_owned"         db:"shares_owned"`
	AverageCost        decimal.Decimal `json:"average_cost"         db:"average_cost"`
	TotalInvested      decimal.Decimal `json:"total_invested"       db:"total_invested"`
	CurrentValue       decimal.Decimal `json:"current_value"        db:"current_value"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealized_gain_loss" db:"unrealized_gain_loss"`
	CreatedAt          time.Time       `json:"created_at"           db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"           db:"updated_at"`
}

// ApplyBuy accumulates shares at price, re-averaging the cost basis.
func (p *Position) ApplyBuy(shares int64, price decimal.Decimal) {
	cost := price.Mul(decimal.NewFromInt(shares))
	p.TotalInvested = p.TotalInvested.Add(cost)
	p.SharesOwned += shares
	p.AverageCost = p.TotalInvested.Div(decimal.NewFromInt(p.SharesOwned))
}

// ApplySell releases shares, reducing the cost basis proportionally to the
// shares sold. The per-share average cost of the remainder is unchanged; a
// full sale zeroes the position.
func (p *Position) ApplySell(shares int64) {
	if shares >= p.SharesOwned {
		p.SharesOwned = 0
		p.TotalInvested = decimal.Zero
		p.AverageCost = decimal.Zero
		p.CurrentValue = decimal.Zero
		p.UnrealizedGainLoss = decimal.Zero
		return
	}
	sold := decimal.NewFromInt(shares)
	owned := decimal.NewFromInt(p.SharesOwned)
	released := p.TotalInvested.Mul(sold).Div(owned)
	p.TotalInvested = p.TotalInvested.Sub(released)
	p.SharesOwned -= shares
	p.AverageCost = p.TotalInvested.Div(decimal.NewFromInt(p.SharesOwned))
}

// Revalue updates CurrentValue and UnrealizedGainLoss against a market price.
func (p *Position) Revalue(price decimal.Decimal) {
	p.CurrentValue = price.Mul(decimal.NewFromInt(p.SharesOwned))
	p.UnrealizedGainLoss = p.CurrentValue.Sub(p.TotalInvested)
}

// ──────────────────────────────────────────────────────────────────────────────
// Trading
// ──────────────────────────────────────────────────────────────────────────────

// TradingFee returns the fee charged on a trade of the given notional value:
// max(feeRate × notional, minFee). Rates come from configuration.
func TradingFee(notional, feeRate, minFee decimal.Decimal) decimal.Decimal {
	fee := notional.Mul(feeRate).Round(2)
	if fee.LessThan(minFee) {
		return minFee
	}
	return fee
}

// StockTradeSide distinguishes buys from sells in trade history.
type StockTradeSide string

const (
	TradeBuy  StockTradeSide = "buy"
	TradeSell StockTradeSide = "sell"
)

// StockTransaction records one executed trade against a position.
type StockTransaction struct {
	ID          uuid.UUID       `json:"id"           db:"id"`
	CharacterID uuid.UUID       `json:"character_id" db:"character_id"`
	CompanyID   uuid.UUID       `json:"company_id"   db:"company_id"`
	Side        StockTradeSide  `json:"side"         db:"side"`
	Shares      int64           `json:"shares"       db:"shares"`
	Price       decimal.Decimal `json:"price"        db:"price"` // per share at execution
	Fee         decimal.Decimal `json:"fee"          db:"fee"`
	Total       decimal.Decimal `json:"total"        db:"total"` // signed account effect
	ExecutedAt  time.Time       `json:"executed_at"  db:"executed_at"`
}

// DividendPayment aggregates one company's total payout in a monthly run.
type DividendPayment struct {
	ID          uuid.UUID       `json:"id"            db:"id"`
	CompanyID   uuid.UUID       `json:"company_id"    db:"company_id"`
	PerShare    decimal.Decimal `json:"per_share"     db:"per_share"`
	TotalPayout decimal.Decimal `json:"total_payout"  db:"total_payout"`
	HolderCount int             `json:"holder_count"  db:"holder_count"`
	PaidAt      time.Time       `json:"paid_at"       db:"paid_at"`
}
