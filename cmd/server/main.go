// Package main is the entry point for the Playstrata economy engine. It
// wires the repositories and services together, applies migrations, and runs
// the maintenance scheduler until the process is signalled to stop.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/Playstrata/economy-engine/internal/config"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/Playstrata/economy-engine/internal/scheduler"
	"github.com/Playstrata/economy-engine/internal/service"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting economy engine", "env", cfg.Server.Env)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, cfg.DB.MigrationsDir); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	accountRepo := repository.NewAccountRepository(db)
	characterRepo := repository.NewCharacterRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	investmentRepo := repository.NewInvestmentRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	eventRepo := repository.NewEventRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	serviceOrderRepo := repository.NewServiceOrderRepository(db)

	// ── 5. Services ───────────────────────────────────────────────────────────
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	accountSvc := service.NewAccountService(db, accountRepo, characterRepo, logger)
	loanSvc := service.NewLoanService(db, loanRepo, accountRepo, cfg, logger)
	investmentSvc := service.NewInvestmentService(db, investmentRepo, accountRepo, characterRepo, rng, logger)
	marketSvc := service.NewMarketService(db, marketRepo, accountRepo, cfg, rng, logger)
	eventSvc := service.NewEventService(db, eventRepo, marketRepo, cfg, rng, logger)
	procurementSvc := service.NewProcurementService(db, supplierRepo, logger)

	orchestrator := service.NewOrchestrator(
		db,
		accountRepo, loanRepo, investmentRepo, serviceOrderRepo,
		accountSvc, loanSvc, investmentSvc, marketSvc, eventSvc, procurementSvc,
		cfg, logger,
	)

	// ── 6. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 7. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(orchestrator, cfg, logger)
	sched.Start(ctx)

	// ── 8. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping…")

	db.Close()
	logger.Info("engine stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
