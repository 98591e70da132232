// Package scheduler manages the two background goroutines that drive the
// simulated economy forward:
//  1. hourlyLoop – works ongoing event impacts into prices each simulated hour.
//  2. dailyLoop  – runs the daily maintenance cycle each simulated day and
//     the monthly cycle every N daily ticks.
//
// Tick lengths come from configuration so a game shard can run an
// accelerated economy.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Playstrata/economy-engine/internal/config"
	"github.com/Playstrata/economy-engine/internal/service"
)

// Scheduler runs the economy's background loops. Call Start(ctx) once from
// main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	orchestrator *service.Orchestrator
	cfg          *config.Config
	logger       *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(orchestrator *service.Orchestrator, cfg *config.Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start launches the background goroutines. It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.hourlyLoop(ctx)
	go s.dailyLoop(ctx)
	s.logger.Info("scheduler started",
		"hour_tick", s.cfg.Scheduler.HourTick,
		"day_tick", s.cfg.Scheduler.DayTick,
		"dividend_days", s.cfg.Scheduler.DividendDays)
}

// ──────────────────────────────────────────────────────────────────────────────
// hourlyLoop
// ──────────────────────────────────────────────────────────────────────────────

// hourlyLoop processes ongoing event impacts every simulated hour. The
// impact accounting is elapsed-time based, so a slow or missed tick catches
// up on the next one.
func (s *Scheduler) hourlyLoop(ctx context.Context) {
	defer s.recoverAndLog("hourlyLoop")

	ticker := time.NewTicker(s.cfg.Scheduler.HourTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("hourlyLoop: shutting down")
			return
		case <-ticker.C:
			if err := s.orchestrator.ProcessOngoingImpacts(ctx); err != nil {
				s.logger.Error("hourlyLoop: ProcessOngoingImpacts", "err", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// dailyLoop
// ──────────────────────────────────────────────────────────────────────────────

// dailyLoop runs the daily maintenance cycle on every day tick and the
// monthly cycle every DividendDays daily ticks.
func (s *Scheduler) dailyLoop(ctx context.Context) {
	defer s.recoverAndLog("dailyLoop")

	ticker := time.NewTicker(s.cfg.Scheduler.DayTick)
	defer ticker.Stop()

	dayCount := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dailyLoop: shutting down")
			return
		case <-ticker.C:
			s.orchestrator.PerformDailyMaintenance(ctx)

			dayCount++
			if dayCount >= s.cfg.Scheduler.DividendDays {
				s.orchestrator.PerformMonthlyMaintenance(ctx)
				dayCount = 0
			}
		}
	}
}

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the rest of the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
