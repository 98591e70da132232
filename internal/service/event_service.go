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

// EventService generates world events from the template library and works
// their stock impacts into prices over time.
type EventService struct {
	db     *sqlx.DB
	events *repository.EventRepository
	market *repository.MarketRepository
	cfg    *config.Config
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEventService creates an EventService. rng drives the trigger roll,
// template choice and per-company jitter; tests pin the seed.
func NewEventService(
	db *sqlx.DB,
	events *repository.EventRepository,
	market *repository.MarketRepository,
	cfg *config.Config,
	rng *rand.Rand,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		db:     db,
		events: events,
		market: market,
		cfg:    cfg,
		rng:    rng,
		logger: logger,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// TriggerRandomEvent
// ──────────────────────────────────────────────────────────────────────────────

// TriggerRandomEvent rolls the trigger probability (reduced while a global
// event is active) and, on success, instantiates a uniformly chosen template:
// one EventStockImpact per active company in each impacted sector, with
// per-company jitter on the declared percentage. IMMEDIATE impacts move
// prices in the same transaction. Returns nil when no event fires.
func (s *EventService) TriggerRandomEvent(ctx context.Context) (*domain.WorldEvent, error) {
	globalActive, err := s.events.HasActiveGlobalEvent(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("event_service.TriggerRandomEvent: global check: %w", err)
	}

	p := s.cfg.Events.TriggerProbability
	if globalActive {
		p = s.cfg.Events.GlobalActiveProb
	}
	s.mu.Lock()
	roll := s.rng.Float64()
	templates := domain.EventTemplates()
	template := templates[s.rng.Intn(len(templates))]
	s.mu.Unlock()
	if roll >= p {
		return nil, nil
	}

	event, err := s.instantiate(ctx, template)
	if err != nil {
		return nil, err
	}
	s.logger.Info("world event triggered",
		"event_id", event.ID, "title", event.Title,
		"severity", event.Severity, "global", event.GlobalImpact)
	return event, nil
}

func (s *EventService) instantiate(ctx context.Context, template domain.EventTemplate) (event *domain.WorldEvent, err error) {
	now := time.Now().UTC()
	event = &domain.WorldEvent{
		ID:            uuid.New(),
		Category:      template.Category,
		Title:         template.Title,
		Severity:      template.Severity,
		DurationHours: template.DurationHours,
		GlobalImpact:  template.GlobalImpact,
		OccurredAt:    now,
		ExpiresAt:     now.Add(time.Duration(template.DurationHours) * time.Hour),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("event_service.instantiate: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.events.InsertEvent(ctx, tx, event); err != nil {
		return nil, err
	}

	for _, sectorImpact := range template.SectorImpacts {
		var companies []*domain.Company
		companies, err = s.market.ListActiveBySector(ctx, sectorImpact.Sector)
		if err != nil {
			return nil, err
		}
		for _, company := range companies {
			if err = s.fanOutImpact(ctx, tx, event, sectorImpact, company, now); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("event_service.instantiate: commit: %w", err)
	}
	return event, nil
}

func (s *EventService) fanOutImpact(
	ctx context.Context,
	tx *sqlx.Tx,
	event *domain.WorldEvent,
	sectorImpact domain.SectorImpact,
	company *domain.Company,
	now time.Time,
) error {
	s.mu.Lock()
	u := s.rng.Float64()*2 - 1
	s.mu.Unlock()

	// Impacts expire independently of the parent event: a delayed shock's
	// window starts at its own appliedAt, so a 24h event's delayed impact
	// outlives the event rather than expiring the instant it falls due.
	appliedAt := now
	expiresAt := event.ExpiresAt
	if sectorImpact.Type == domain.ImpactDelayed {
		appliedAt = now.Add(domain.DelayedImpactOffset)
		expiresAt = appliedAt.Add(time.Duration(event.DurationHours) * time.Hour)
	}
	impact := &domain.EventStockImpact{
		ID:               uuid.New(),
		EventID:          event.ID,
		CompanyID:        company.ID,
		ImpactPercentage: domain.JitteredImpact(sectorImpact.Percentage, u),
		ImpactType:       sectorImpact.Type,
		AppliedAt:        appliedAt,
		ExpiresAt:        expiresAt,
		CreatedAt:        now,
	}

	if sectorImpact.Type == domain.ImpactImmediate {
		if err := s.shockPrice(ctx, tx, company.ID, impact.ImpactPercentage, now); err != nil {
			return err
		}
		impact.Applied = true
	}

	return s.events.InsertImpact(ctx, tx, impact)
}

// shockPrice moves one company's price by a signed percentage inside an open
// transaction, appending the history point and refreshing market cap.
func (s *EventService) shockPrice(ctx context.Context, tx *sqlx.Tx, companyID uuid.UUID, pct decimal.Decimal, now time.Time) error {
	company, err := s.market.GetCompanyForUpdate(ctx, tx, companyID)
	if err != nil {
		return err
	}
	next := domain.ApplyImpactPercent(company.CurrentPrice, pct)
	marketCap := next.Mul(decimal.NewFromInt(s.cfg.Market.SharesOutstanding))
	if err := s.market.SetPrice(ctx, tx, companyID, next, marketCap); err != nil {
		return err
	}
	point := domain.NewPricePoint(companyID, company.CurrentPrice, next, 0, now)
	return s.market.InsertPricePoint(ctx, tx, point)
}

// ──────────────────────────────────────────────────────────────────────────────
// ProcessOngoingImpacts — batch, hourly
// ──────────────────────────────────────────────────────────────────────────────

// ProcessOngoingImpacts applies due DELAYED impacts once, advances GRADUAL
// impacts by however many hourly steps have elapsed since the last pass, and
// purges everything past its expiry. A missed tick catches up; a repeated
// tick within the same hour is a no-op.
func (s *EventService) ProcessOngoingImpacts(ctx context.Context) error {
	now := time.Now().UTC()
	pending, err := s.events.ListPendingImpacts(ctx)
	if err != nil {
		return fmt.Errorf("event_service.ProcessOngoingImpacts: fetch: %w", err)
	}

	applied := 0
	for _, impact := range pending {
		if err := s.processOne(ctx, impact, now); err != nil {
			s.logger.Error("impact processing failed",
				"impact_id", impact.ID, "company_id", impact.CompanyID, "err", err)
			continue
		}
		applied++
	}

	impacts, events, err := s.events.PurgeExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("event_service.ProcessOngoingImpacts: purge: %w", err)
	}
	s.logger.Info("impact pass complete",
		"pending", len(pending), "processed", applied,
		"purged_impacts", impacts, "purged_events", events)
	return nil
}

func (s *EventService) processOne(ctx context.Context, impact *domain.EventStockImpact, now time.Time) (err error) {
	switch impact.ImpactType {
	case domain.ImpactDelayed:
		if impact.Applied || now.Before(impact.AppliedAt) {
			return nil
		}
	case domain.ImpactGradual:
		if impact.PendingGradualSteps(now) == 0 {
			return nil
		}
	default:
		// Immediate impacts were written at creation.
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("event_service.processOne: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	switch impact.ImpactType {
	case domain.ImpactDelayed:
		if err = s.shockPrice(ctx, tx, impact.CompanyID, impact.ImpactPercentage, now); err != nil {
			return err
		}
		if err = s.events.MarkApplied(ctx, tx, impact.ID); err != nil {
			return err
		}

	case domain.ImpactGradual:
		steps := impact.PendingGradualSteps(now)
		stepPct := impact.HourlyStepPercent().Mul(decimal.NewFromInt(int64(steps)))
		if err = s.shockPrice(ctx, tx, impact.CompanyID, stepPct, now); err != nil {
			return err
		}
		if err = s.events.SetAppliedHours(ctx, tx, impact.ID, impact.AppliedHours+steps); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("event_service.processOne: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// ActiveEvents lists unexpired events for the world feed.
func (s *EventService) ActiveEvents(ctx context.Context) ([]*domain.WorldEvent, error) {
	events, err := s.events.ListActiveEvents(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("event_service.ActiveEvents: %w", err)
	}
	return events, nil
}
