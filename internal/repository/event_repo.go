package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// EventRepository handles all database operations for world events and their
// per-company stock impacts.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertEvent inserts a new world event inside an existing transaction.
func (r *EventRepository) InsertEvent(ctx context.Context, tx *sqlx.Tx, e *domain.WorldEvent) error {
	query := `
		INSERT INTO world_events
			(id, category, title, severity, duration_hours, global_impact, occurred_at, expires_at)
		VALUES
			(:id, :category, :title, :severity, :duration_hours, :global_impact, :occurred_at, :expires_at)`
	if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("event_repo.InsertEvent: %w", err)
	}
	return nil
}

// InsertImpact inserts one per-company impact row inside a transaction.
func (r *EventRepository) InsertImpact(ctx context.Context, tx *sqlx.Tx, i *domain.EventStockImpact) error {
	query := `
		INSERT INTO event_stock_impacts
			(id, event_id, company_id, impact_percentage, impact_type, applied, applied_hours,
			 applied_at, expires_at, created_at)
		VALUES
			(:id, :event_id, :company_id, :impact_percentage, :impact_type, :applied, :applied_hours,
			 :applied_at, :expires_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, i); err != nil {
		return fmt.Errorf("event_repo.InsertImpact: %w", err)
	}
	return nil
}

// impactDurationHoursSQL mirrors EventStockImpact.DurationHours: the active
// window in whole hours, never below 1.
const impactDurationHoursSQL = `GREATEST(1, FLOOR(EXTRACT(EPOCH FROM (expires_at - applied_at)) / 3600))`

// ListPendingImpacts returns impacts that still have work to do: unapplied
// delayed shocks and gradual shocks with hourly steps outstanding. Expiry is
// deliberately not filtered on — the final gradual step only falls due at
// expires_at, and a delayed shock missed by a downed processor must still
// apply on the next pass.
func (r *EventRepository) ListPendingImpacts(ctx context.Context) ([]*domain.EventStockImpact, error) {
	var impacts []*domain.EventStockImpact
	err := r.db.SelectContext(ctx, &impacts, `
		SELECT * FROM event_stock_impacts
		WHERE (impact_type <> 'gradual' AND applied = false)
		   OR (impact_type = 'gradual' AND applied_hours < `+impactDurationHoursSQL+`)
		ORDER BY applied_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListPendingImpacts: %w", err)
	}
	return impacts, nil
}

// MarkApplied flags an immediate/delayed impact as fully written, inside a
// transaction so the flag commits with the price move.
func (r *EventRepository) MarkApplied(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event_stock_impacts SET applied = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("event_repo.MarkApplied: %w", err)
	}
	return nil
}

// SetAppliedHours advances a gradual impact's elapsed-hours counter inside a
// transaction.
func (r *EventRepository) SetAppliedHours(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, hours int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event_stock_impacts SET applied_hours = $1 WHERE id = $2`, hours, id)
	if err != nil {
		return fmt.Errorf("event_repo.SetAppliedHours: %w", err)
	}
	return nil
}

// PurgeExpired deletes fully-applied impacts past their expiry, then events
// whose impacts are all gone. Unfinished impacts survive expiry so a later
// pass can catch up, and an event row is kept while any of its impacts remain
// (the FK cascade would otherwise drop them mid-flight). Returns counts for
// logging.
func (r *EventRepository) PurgeExpired(ctx context.Context, now time.Time) (impacts, events int64, err error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM event_stock_impacts
		WHERE expires_at <= $1
		  AND (applied = true
		       OR (impact_type = 'gradual' AND applied_hours >= `+impactDurationHoursSQL+`))`,
		now)
	if err != nil {
		return 0, 0, fmt.Errorf("event_repo.PurgeExpired impacts: %w", err)
	}
	impacts, _ = res.RowsAffected()

	res, err = r.db.ExecContext(ctx, `
		DELETE FROM world_events e
		WHERE e.expires_at <= $1
		  AND NOT EXISTS (SELECT 1 FROM event_stock_impacts i WHERE i.event_id = e.id)`,
		now)
	if err != nil {
		return impacts, 0, fmt.Errorf("event_repo.PurgeExpired events: %w", err)
	}
	events, _ = res.RowsAffected()
	return impacts, events, nil
}

// HasActiveGlobalEvent reports whether a global-impact event is still running.
func (r *EventRepository) HasActiveGlobalEvent(ctx context.Context, now time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM world_events WHERE global_impact = true AND expires_at > $1`, now)
	if err != nil {
		return false, fmt.Errorf("event_repo.HasActiveGlobalEvent: %w", err)
	}
	return count > 0, nil
}

// ListActiveEvents returns unexpired events, newest first, for the world feed.
func (r *EventRepository) ListActiveEvents(ctx context.Context, now time.Time) ([]*domain.WorldEvent, error) {
	var events []*domain.WorldEvent
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM world_events WHERE expires_at > $1 ORDER BY occurred_at DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListActiveEvents: %w", err)
	}
	return events, nil
}
