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

// ServiceOrderRepository persists booked service packages.
type ServiceOrderRepository struct {
	db *sqlx.DB
}

func NewServiceOrderRepository(db *sqlx.DB) *ServiceOrderRepository {
	return &ServiceOrderRepository{db: db}
}

// Create inserts a service order inside a transaction.
func (r *ServiceOrderRepository) Create(ctx context.Context, tx *sqlx.Tx, order *domain.ServiceOrder) error {
	query := `
		INSERT INTO service_orders
			(id, character_id, service_type, payment_option, total_cost,
			 down_payment, loan_id, status, scheduled_at, created_at)
		VALUES
			(:id, :character_id, :service_type, :payment_option, :total_cost,
			 :down_payment, :loan_id, :status, :scheduled_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("service_order_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches one service order.
func (r *ServiceOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceOrder, error) {
	var order domain.ServiceOrder
	err := r.db.GetContext(ctx, &order, `SELECT * FROM service_orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrServiceOrderNotFound
		}
		return nil, fmt.Errorf("service_order_repo.GetByID: %w", err)
	}
	return &order, nil
}

// GetByCharacter lists a character's booked packages, newest first.
func (r *ServiceOrderRepository) GetByCharacter(ctx context.Context, characterID uuid.UUID) ([]*domain.ServiceOrder, error) {
	var orders []*domain.ServiceOrder
	err := r.db.SelectContext(ctx, &orders,
		`SELECT * FROM service_orders WHERE character_id = $1 ORDER BY created_at DESC`,
		characterID)
	if err != nil {
		return nil, fmt.Errorf("service_order_repo.GetByCharacter: %w", err)
	}
	return orders, nil
}

// SetStatus advances an order's fulfilment state.
func (r *ServiceOrderRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.ServiceOrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("service_order_repo.SetStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrServiceOrderNotFound
	}
	return nil
}
