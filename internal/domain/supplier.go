package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Suppliers
// ──────────────────────────────────────────────────────────────────────────────

// Supplier is one procurement source in the supply network.
type Supplier struct {
	ID               uuid.UUID       `json:"id"                db:"id"`
	Name             string          `json:"name"              db:"name"`
	Specialty        string          `json:"specialty"         db:"specialty"` // item specialty, e.g. "provisions"
	Location         string          `json:"location"          db:"location"`
	Reputation       int             `json:"reputation"        db:"reputation"` // 0–100
	MarkupPercentage decimal.Decimal `json:"markup_percentage" db:"markup_percentage"`
	StockLevel       int             `json:"stock_level"       db:"stock_level"`
	ParStock         int             `json:"par_stock"         db:"par_stock"` // restock target
	CreatedAt        time.Time       `json:"created_at"        db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"        db:"updated_at"`
}

// RankScore is the supplier ranking metric: reputation − markup. Higher wins.
func (s *Supplier) RankScore() decimal.Decimal {
	return decimal.NewFromInt(int64(s.Reputation)).Sub(s.MarkupPercentage)
}

// QuotePrice applies the supplier's markup to an item's base cost.
func (s *Supplier) QuotePrice(baseCost decimal.Decimal) decimal.Decimal {
	markup := s.MarkupPercentage.Div(decimal.NewFromInt(100))
	return baseCost.Mul(decimal.NewFromInt(1).Add(markup)).Round(2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Procurement catalog — static configuration loaded once
// ──────────────────────────────────────────────────────────────────────────────

// ProcurementItem is one entry of the static item catalog the supply network
// prices. Base costs are pre-markup.
type ProcurementItem struct {
	Code      string
	Name      string
	Specialty string
	BaseCost  decimal.Decimal
}

var procurementCatalog = map[string]ProcurementItem{
	"provisions_crate": {Code: "provisions_crate", Name: "Provisions Crate", Specialty: "provisions", BaseCost: decimal.NewFromInt(40)},
	"festival_wine":    {Code: "festival_wine", Name: "Festival Wine Cask", Specialty: "provisions", BaseCost: decimal.NewFromInt(120)},
	"silk_bolt":        {Code: "silk_bolt", Name: "Bolt of Southern Silk", Specialty: "textiles", BaseCost: decimal.NewFromInt(200)},
	"ceremonial_robe":  {Code: "ceremonial_robe", Name: "Ceremonial Robe", Specialty: "textiles", BaseCost: decimal.NewFromInt(350)},
	"iron_ingots":      {Code: "iron_ingots", Name: "Iron Ingot Bundle", Specialty: "smithing", BaseCost: decimal.NewFromInt(90)},
	"rune_etched_ring": {Code: "rune_etched_ring", Name: "Rune-Etched Ring", Specialty: "arcana", BaseCost: decimal.NewFromInt(500)},
	"healing_herbs":    {Code: "healing_herbs", Name: "Healing Herb Satchel", Specialty: "apothecary", BaseCost: decimal.NewFromInt(60)},
}

// ItemByCode looks up a procurement catalog item.
func ItemByCode(code string) (ProcurementItem, bool) {
	item, ok := procurementCatalog[code]
	return item, ok
}

// ProcurementItems returns the full item catalog. Live table; do not mutate.
func ProcurementItems() map[string]ProcurementItem {
	return procurementCatalog
}

// ──────────────────────────────────────────────────────────────────────────────
// Purchase orders
// ──────────────────────────────────────────────────────────────────────────────

// PurchaseOrderStatus tracks fulfilment of a procurement order.
type PurchaseOrderStatus string

const (
	OrderPlaced    PurchaseOrderStatus = "placed"
	OrderFulfilled PurchaseOrderStatus = "fulfilled"
	OrderCancelled PurchaseOrderStatus = "cancelled"
)

// PurchaseOrder snapshots a procurement order. Line-item prices are locked at
// order time and never re-priced.
type PurchaseOrder struct {
	ID          uuid.UUID           `json:"id"           db:"id"`
	SupplierID  uuid.UUID           `json:"supplier_id"  db:"supplier_id"`
	CharacterID *uuid.UUID          `json:"character_id" db:"character_id"` // nil for house orders
	Status      PurchaseOrderStatus `json:"status"       db:"status"`
	TotalCost   decimal.Decimal     `json:"total_cost"   db:"total_cost"`
	OrderedAt   time.Time           `json:"ordered_at"   db:"ordered_at"`
}

// PurchaseOrderItem is one priced line of a purchase order.
type PurchaseOrderItem struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	OrderID   uuid.UUID       `json:"order_id"   db:"order_id"`
	ItemCode  string          `json:"item_code"  db:"item_code"`
	Quantity  int             `json:"quantity"   db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total" db:"line_total"`
}
