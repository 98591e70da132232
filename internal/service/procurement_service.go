package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ProcurementService runs the supply network: supplier ranking, item quotes
// and purchase orders.
type ProcurementService struct {
	db        *sqlx.DB
	suppliers *repository.SupplierRepository
	logger    *slog.Logger
}

// NewProcurementService creates a ProcurementService.
func NewProcurementService(db *sqlx.DB, suppliers *repository.SupplierRepository, logger *slog.Logger) *ProcurementService {
	return &ProcurementService{db: db, suppliers: suppliers, logger: logger}
}

// ── Quotes ───────────────────────────────────────────────────────────────────

// ItemQuote is one priced line of a supply quote.
type ItemQuote struct {
	Item      domain.ProcurementItem `json:"item"`
	Supplier  *domain.Supplier       `json:"supplier"`
	UnitPrice decimal.Decimal        `json:"unit_price"`
	Quantity  int                    `json:"quantity"`
	LineTotal decimal.Decimal        `json:"line_total"`
}

// BestSupplier returns the top-ranked supplier for a specialty, scored by
// reputation minus markup.
func (s *ProcurementService) BestSupplier(ctx context.Context, specialty string) (*domain.Supplier, error) {
	candidates, err := s.suppliers.ListBySpecialty(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("procurement_service.BestSupplier: %w", err)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoSupplierForSpecialty
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.RankScore().GreaterThan(best.RankScore()) {
			best = candidate
		}
	}
	return best, nil
}

// QuoteItems prices each requested item against the best-ranked supplier for
// its specialty. Quantities key the request by item code.
func (s *ProcurementService) QuoteItems(ctx context.Context, quantities map[string]int) ([]*ItemQuote, decimal.Decimal, error) {
	quotes := make([]*ItemQuote, 0, len(quantities))
	total := decimal.Zero
	for code, qty := range quantities {
		if qty <= 0 {
			continue
		}
		item, found := domain.ItemByCode(code)
		if !found {
			return nil, decimal.Zero, domain.ErrUnknownItem
		}
		supplier, err := s.BestSupplier(ctx, item.Specialty)
		if err != nil {
			return nil, decimal.Zero, err
		}
		unit := supplier.QuotePrice(item.BaseCost)
		line := unit.Mul(decimal.NewFromInt(int64(qty)))
		quotes = append(quotes, &ItemQuote{
			Item:      item,
			Supplier:  supplier,
			UnitPrice: unit,
			Quantity:  qty,
			LineTotal: line,
		})
		total = total.Add(line)
	}
	return quotes, total, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

// PlaceOrder books one purchase order per supplier from a set of quotes,
// consuming supplier stock, inside an already-open transaction. The caller
// owns the commit; the orchestrator runs this alongside the payment leg.
func (s *ProcurementService) PlaceOrder(ctx context.Context, tx *sqlx.Tx, characterID *uuid.UUID, quotes []*ItemQuote) ([]*domain.PurchaseOrder, error) {
	// Group lines by supplier; one order per supplier.
	bySupplier := make(map[uuid.UUID][]*ItemQuote)
	for _, quote := range quotes {
		bySupplier[quote.Supplier.ID] = append(bySupplier[quote.Supplier.ID], quote)
	}

	now := time.Now().UTC()
	orders := make([]*domain.PurchaseOrder, 0, len(bySupplier))
	for supplierID, lines := range bySupplier {
		order := &domain.PurchaseOrder{
			ID:          uuid.New(),
			SupplierID:  supplierID,
			CharacterID: characterID,
			Status:      domain.OrderPlaced,
			OrderedAt:   now,
		}
		items := make([]*domain.PurchaseOrderItem, 0, len(lines))
		units := 0
		for _, line := range lines {
			order.TotalCost = order.TotalCost.Add(line.LineTotal)
			units += line.Quantity
			items = append(items, &domain.PurchaseOrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ItemCode:  line.Item.Code,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				LineTotal: line.LineTotal,
			})
		}
		if err := s.suppliers.CreateOrder(ctx, tx, order, items); err != nil {
			return nil, err
		}
		if err := s.suppliers.ConsumeStock(ctx, tx, supplierID, units); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// ── Maintenance ──────────────────────────────────────────────────────────────

// RestockSuppliers replenishes every supplier's stock to its par level.
// Runs in the daily maintenance cycle.
func (s *ProcurementService) RestockSuppliers(ctx context.Context) error {
	restocked, err := s.suppliers.RestockAll(ctx)
	if err != nil {
		return fmt.Errorf("procurement_service.RestockSuppliers: %w", err)
	}
	s.logger.Info("supplier restock complete", "suppliers", restocked)
	return nil
}

// DriftReputations nudges every supplier's reputation one step toward the
// neutral midpoint. Runs monthly so standout reputations decay slowly.
func (s *ProcurementService) DriftReputations(ctx context.Context) error {
	if err := s.suppliers.DriftReputation(ctx); err != nil {
		return fmt.Errorf("procurement_service.DriftReputations: %w", err)
	}
	return nil
}

// Suppliers lists the whole supply network.
func (s *ProcurementService) Suppliers(ctx context.Context) ([]*domain.Supplier, error) {
	suppliers, err := s.suppliers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("procurement_service.Suppliers: %w", err)
	}
	return suppliers, nil
}
