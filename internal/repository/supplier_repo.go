package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SupplierRepository handles all database operations for the supply network.
type SupplierRepository struct {
	db *sqlx.DB
}

// NewSupplierRepository creates a new SupplierRepository.
func NewSupplierRepository(db *sqlx.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// GetByID fetches a supplier by its primary key.
func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.db.GetContext(ctx, &s, `SELECT * FROM suppliers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("supplier_repo.GetByID: %w", err)
	}
	return &s, nil
}

// List returns all suppliers.
func (r *SupplierRepository) List(ctx context.Context) ([]*domain.Supplier, error) {
	var suppliers []*domain.Supplier
	err := r.db.SelectContext(ctx, &suppliers, `SELECT * FROM suppliers ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("supplier_repo.List: %w", err)
	}
	return suppliers, nil
}

// ListBySpecialty returns suppliers serving one specialty.
func (r *SupplierRepository) ListBySpecialty(ctx context.Context, specialty string) ([]*domain.Supplier, error) {
	var suppliers []*domain.Supplier
	err := r.db.SelectContext(ctx, &suppliers,
		`SELECT * FROM suppliers WHERE specialty = $1 ORDER BY name ASC`, specialty)
	if err != nil {
		return nil, fmt.Errorf("supplier_repo.ListBySpecialty: %w", err)
	}
	return suppliers, nil
}

// CreateOrder inserts a purchase order and its priced line items inside an
// existing transaction. Prices are locked at order time.
func (r *SupplierRepository) CreateOrder(ctx context.Context, tx *sqlx.Tx, order *domain.PurchaseOrder, items []*domain.PurchaseOrderItem) error {
	orderQuery := `
		INSERT INTO purchase_orders
			(id, supplier_id, character_id, status, total_cost, ordered_at)
		VALUES
			(:id, :supplier_id, :character_id, :status, :total_cost, :ordered_at)`
	if _, err := tx.NamedExecContext(ctx, orderQuery, order); err != nil {
		return fmt.Errorf("supplier_repo.CreateOrder order: %w", err)
	}

	itemQuery := `
		INSERT INTO purchase_order_items
			(id, order_id, item_code, quantity, unit_price, line_total)
		VALUES
			(:id, :order_id, :item_code, :quantity, :unit_price, :line_total)`
	for _, item := range items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, item); err != nil {
			return fmt.Errorf("supplier_repo.CreateOrder item %s: %w", item.ItemCode, err)
		}
	}
	return nil
}

// GetOrderItems returns a purchase order's line items.
func (r *SupplierRepository) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]*domain.PurchaseOrderItem, error) {
	var items []*domain.PurchaseOrderItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM purchase_order_items WHERE order_id = $1 ORDER BY item_code ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("supplier_repo.GetOrderItems: %w", err)
	}
	return items, nil
}

// ConsumeStock decrements a supplier's stock level inside a transaction,
// bottoming out at zero.
func (r *SupplierRepository) ConsumeStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, units int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE suppliers SET stock_level = GREATEST(stock_level - $1, 0), updated_at = now() WHERE id = $2`,
		units, id)
	if err != nil {
		return fmt.Errorf("supplier_repo.ConsumeStock: %w", err)
	}
	return nil
}

// RestockAll tops every supplier back up toward its par stock. Returns the
// number of suppliers touched.
func (r *SupplierRepository) RestockAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE suppliers
		SET stock_level = par_stock, updated_at = now()
		WHERE stock_level < par_stock`)
	if err != nil {
		return 0, fmt.Errorf("supplier_repo.RestockAll: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DriftReputation nudges every supplier's reputation toward the neutral
// midpoint by one point, keeping scores inside [0,100]. Run monthly.
func (r *SupplierRepository) DriftReputation(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE suppliers
		SET reputation = LEAST(100, GREATEST(0,
			reputation + CASE WHEN reputation < 50 THEN 1 WHEN reputation > 50 THEN -1 ELSE 0 END)),
		    updated_at = now()`)
	if err != nil {
		return fmt.Errorf("supplier_repo.DriftReputation: %w", err)
	}
	return nil
}
