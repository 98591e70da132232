package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Playstrata/economy-engine/internal/config"
	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// fulfilmentLeadTime is how far out a booked package's appointment is set.
const fulfilmentLeadTime = 7 * 24 * time.Hour

// Orchestrator composes the subsystems: it quotes and books service packages
// across the ledger, loan book, investment vault and supply network, and runs
// the daily and monthly maintenance cycles.
type Orchestrator struct {
	db            *sqlx.DB
	accounts      *repository.AccountRepository
	loans         *repository.LoanRepository
	investments   *repository.InvestmentRepository
	serviceOrders *repository.ServiceOrderRepository

	accountSvc     *AccountService
	loanSvc        *LoanService
	investmentSvc  *InvestmentService
	marketSvc      *MarketService
	eventSvc       *EventService
	procurementSvc *ProcurementService

	cfg    *config.Config
	logger *slog.Logger
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(
	db *sqlx.DB,
	accounts *repository.AccountRepository,
	loans *repository.LoanRepository,
	investments *repository.InvestmentRepository,
	serviceOrders *repository.ServiceOrderRepository,
	accountSvc *AccountService,
	loanSvc *LoanService,
	investmentSvc *InvestmentService,
	marketSvc *MarketService,
	eventSvc *EventService,
	procurementSvc *ProcurementService,
	cfg *config.Config,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		db:             db,
		accounts:       accounts,
		loans:          loans,
		investments:    investments,
		serviceOrders:  serviceOrders,
		accountSvc:     accountSvc,
		loanSvc:        loanSvc,
		investmentSvc:  investmentSvc,
		marketSvc:      marketSvc,
		eventSvc:       eventSvc,
		procurementSvc: procurementSvc,
		cfg:            cfg,
		logger:         logger,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Quoting
// ──────────────────────────────────────────────────────────────────────────────

// PaymentPlan is one offered way of settling a quoted package.
type PaymentPlan struct {
	Option      domain.PaymentOption `json:"option"`
	Eligible    bool                 `json:"eligible"`
	Reason      string               `json:"reason,omitempty"` // why ineligible
	DownPayment decimal.Decimal      `json:"down_payment"`
	Financed    decimal.Decimal      `json:"financed"`
}

// ServiceQuote is a full price quote for a service package.
type ServiceQuote struct {
	Status      OpStatus           `json:"status"`
	ServiceType domain.ServiceType `json:"service_type"`
	BaseCost    decimal.Decimal    `json:"base_cost"`
	GiftCost    decimal.Decimal    `json:"gift_cost"`
	TotalCost   decimal.Decimal    `json:"total_cost"`
	Gifts       []*ItemQuote       `json:"gifts,omitempty"`
	Plans       []*PaymentPlan     `json:"plans,omitempty"`
}

// QuoteServicePackage prices a service package — base cost plus best-supplier
// gift prices — and evaluates every payment option's eligibility against the
// character's current account, credit and portfolio state.
func (o *Orchestrator) QuoteServicePackage(
	ctx context.Context,
	characterID uuid.UUID,
	serviceType domain.ServiceType,
	giftQuantities map[string]int,
) (*ServiceQuote, error) {
	baseCost, known := domain.ServiceBaseCost(serviceType)
	if !known {
		return &ServiceQuote{Status: fail("unknown service type")}, nil
	}

	gifts, giftCost, err := o.procurementSvc.QuoteItems(ctx, giftQuantities)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &ServiceQuote{Status: st}, nil
		}
		return nil, err
	}
	total := baseCost.Add(giftCost)

	account, err := o.accounts.GetByCharacterID(ctx, characterID)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &ServiceQuote{Status: st}, nil
		}
		return nil, err
	}

	plans, err := o.evaluatePlans(ctx, account, total)
	if err != nil {
		return nil, err
	}

	return &ServiceQuote{
		Status:      ok("quote prepared"),
		ServiceType: serviceType,
		BaseCost:    baseCost,
		GiftCost:    giftCost,
		TotalCost:   total,
		Gifts:       gifts,
		Plans:       plans,
	}, nil
}

func (o *Orchestrator) evaluatePlans(ctx context.Context, account *domain.Account, total decimal.Decimal) ([]*PaymentPlan, error) {
	activeLoans, err := o.loans.CountActiveByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	invested, err := o.investmentSvc.ActiveValue(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	down := total.Mul(domain.InstallmentDownFraction).Round(2)
	remainder := total.Sub(down)

	full := &PaymentPlan{Option: domain.PayFull, Eligible: true, DownPayment: total}
	if account.Balance.LessThan(total) {
		full.Eligible, full.Reason = false, "insufficient balance"
	}

	loan := &PaymentPlan{Option: domain.PayLoan, Eligible: true, Financed: total}
	switch {
	case total.GreaterThan(account.CreditLimit):
		loan.Eligible, loan.Reason = false, "amount exceeds credit limit"
	case account.CreditScore < o.cfg.Economy.MinLoanCreditScore:
		loan.Eligible, loan.Reason = false, "credit score too low"
	case activeLoans >= o.cfg.Economy.MaxActiveLoans:
		loan.Eligible, loan.Reason = false, "active loan cap reached"
	}

	installment := &PaymentPlan{Option: domain.PayInstallment, Eligible: true, DownPayment: down, Financed: remainder}
	switch {
	case account.Balance.LessThan(down):
		installment.Eligible, installment.Reason = false, "insufficient balance for down payment"
	case remainder.GreaterThan(account.CreditLimit):
		installment.Eligible, installment.Reason = false, "financed amount exceeds credit limit"
	case account.CreditScore < o.cfg.Economy.MinLoanCreditScore:
		installment.Eligible, installment.Reason = false, "credit score too low"
	case activeLoans >= o.cfg.Economy.MaxActiveLoans:
		installment.Eligible, installment.Reason = false, "active loan cap reached"
	}

	backed := &PaymentPlan{Option: domain.PayInvestmentBacked, Eligible: true, Financed: total}
	required := total.Mul(domain.InvestmentCollateralRatio)
	switch {
	case invested.LessThan(required):
		backed.Eligible, backed.Reason = false,
			fmt.Sprintf("active investments must cover %s", required.StringFixed(2))
	case activeLoans >= o.cfg.Economy.MaxActiveLoans:
		backed.Eligible, backed.Reason = false, "active loan cap reached"
	}

	return []*PaymentPlan{full, loan, installment, backed}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ProcessService
// ──────────────────────────────────────────────────────────────────────────────

// ServiceBookingResult is returned by ProcessService.
type ServiceBookingResult struct {
	Status OpStatus             `json:"status"`
	Order  *domain.ServiceOrder `json:"order,omitempty"`
	Loan   *domain.Loan         `json:"loan,omitempty"`
}

// ProcessService books a service package: it settles the total via the chosen
// payment path, records the fulfilment appointment and places the gift
// procurement order against best-ranked suppliers — all in one transaction.
func (o *Orchestrator) ProcessService(
	ctx context.Context,
	characterID uuid.UUID,
	serviceType domain.ServiceType,
	option domain.PaymentOption,
	giftQuantities map[string]int,
) (*ServiceBookingResult, error) {
	order, loan, err := o.processService(ctx, characterID, serviceType, option, giftQuantities)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &ServiceBookingResult{Status: st}, nil
		}
		return nil, err
	}
	return &ServiceBookingResult{
		Status: ok(fmt.Sprintf("%s booked for %s", serviceType, order.ScheduledAt.Format("2006-01-02"))),
		Order:  order,
		Loan:   loan,
	}, nil
}

func (o *Orchestrator) processService(
	ctx context.Context,
	characterID uuid.UUID,
	serviceType domain.ServiceType,
	option domain.PaymentOption,
	giftQuantities map[string]int,
) (order *domain.ServiceOrder, loan *domain.Loan, err error) {
	baseCost, known := domain.ServiceBaseCost(serviceType)
	if !known {
		return nil, nil, domain.ErrUnknownServiceType
	}
	gifts, giftCost, err := o.procurementSvc.QuoteItems(ctx, giftQuantities)
	if err != nil {
		return nil, nil, err
	}
	total := baseCost.Add(giftCost)

	account, err := o.accounts.GetByCharacterID(ctx, characterID)
	if err != nil {
		return nil, nil, err
	}

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator.processService: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	account, err = o.accounts.GetForUpdate(ctx, tx, account.ID)
	if err != nil {
		return nil, nil, err
	}
	if !account.IsActive() {
		err = domain.ErrAccountNotActive
		return nil, nil, err
	}

	now := time.Now().UTC()
	balance := account.Balance
	down := decimal.Zero

	switch option {
	case domain.PayFull:
		if balance.LessThan(total) {
			err = domain.ErrPaymentOptionUnavailable
			return nil, nil, err
		}
		down = total

	case domain.PayLoan:
		loan, balance, err = o.loanSvc.BookInTx(ctx, tx, account, balance, total,
			domain.LoanPlanTermMonths, string(serviceType), nil, now)
		if err != nil {
			err = asPlanError(err)
			return nil, nil, err
		}

	case domain.PayInstallment:
		down = total.Mul(domain.InstallmentDownFraction).Round(2)
		if balance.LessThan(down) {
			err = domain.ErrPaymentOptionUnavailable
			return nil, nil, err
		}
		loan, balance, err = o.loanSvc.BookInTx(ctx, tx, account, balance, total.Sub(down),
			domain.InstallmentPlanTermMonths, string(serviceType), nil, now)
		if err != nil {
			err = asPlanError(err)
			return nil, nil, err
		}

	case domain.PayInvestmentBacked:
		var invested decimal.Decimal
		invested, err = o.investmentSvc.ActiveValue(ctx, account.ID)
		if err != nil {
			return nil, nil, err
		}
		if invested.LessThan(total.Mul(domain.InvestmentCollateralRatio)) {
			err = domain.ErrPaymentOptionUnavailable
			return nil, nil, err
		}
		collateral := "active investment portfolio"
		loan, balance, err = o.loanSvc.BookInTx(ctx, tx, account, balance, total,
			domain.LoanPlanTermMonths, string(serviceType), &collateral, now)
		if err != nil {
			err = asPlanError(err)
			return nil, nil, err
		}

	default:
		err = domain.ErrPaymentOptionUnavailable
		return nil, nil, err
	}

	// Settle the package; financed plans spend the just-disbursed principal.
	balance = balance.Sub(total)
	if balance.IsNegative() {
		err = domain.ErrInsufficientBalance
		return nil, nil, err
	}
	if err = o.accounts.SetBalance(ctx, tx, account.ID, balance); err != nil {
		return nil, nil, err
	}

	order = &domain.ServiceOrder{
		ID:            uuid.New(),
		CharacterID:   characterID,
		ServiceType:   serviceType,
		PaymentOption: option,
		TotalCost:     total,
		DownPayment:   down,
		Status:        domain.ServiceBooked,
		ScheduledAt:   now.Add(fulfilmentLeadTime),
		CreatedAt:     now,
	}
	if loan != nil {
		loanID := loan.ID
		order.LoanID = &loanID
	}
	if err = o.serviceOrders.Create(ctx, tx, order); err != nil {
		return nil, nil, err
	}

	orderID := order.ID
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         domain.TxPurchase,
		Amount:       total.Neg(),
		BalanceAfter: balance,
		Description:  fmt.Sprintf("Service package: %s", serviceType),
		RefID:        &orderID,
		CreatedAt:    now,
	}
	if err = o.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return nil, nil, err
	}

	if len(gifts) > 0 {
		if _, err = o.procurementSvc.PlaceOrder(ctx, tx, &characterID, gifts); err != nil {
			return nil, nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("orchestrator.processService: commit: %w", err)
	}
	return order, loan, nil
}

// asPlanError folds a financing rejection into the payment-plan taxonomy:
// the player asked for a plan, so credit-gate failures surface as the plan
// being unavailable. System faults pass through untouched.
func asPlanError(err error) error {
	if domain.IsBusinessRule(err) {
		return domain.ErrPaymentOptionUnavailable
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Maintenance cycles
// ──────────────────────────────────────────────────────────────────────────────

// PerformDailyMaintenance runs the daily economic cycle in fixed order. A
// failing step is logged and never blocks the steps after it.
func (o *Orchestrator) PerformDailyMaintenance(ctx context.Context) {
	started := time.Now()
	o.logger.Info("daily maintenance started")

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"stock prices", o.marketSvc.UpdateStockPrices},
		{"world events", func(ctx context.Context) error {
			_, err := o.eventSvc.TriggerRandomEvent(ctx)
			return err
		}},
		{"event impacts", o.eventSvc.ProcessOngoingImpacts},
		{"daily interest", o.accountSvc.AccrueDailyInterest},
		{"matured investments", o.investmentSvc.ProcessMaturedInvestments},
		{"fund revaluation", o.investmentSvc.UpdateMutualFundValues},
		{"position revaluation", o.marketSvc.RevaluePositions},
		{"supplier restock", o.procurementSvc.RestockSuppliers},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			o.logger.Error("daily maintenance step failed", "step", step.name, "err", err)
		}
	}

	o.logger.Info("daily maintenance finished", "elapsed", time.Since(started))
}

// PerformMonthlyMaintenance runs the monthly cycle: dividends and supplier
// reputation drift.
func (o *Orchestrator) PerformMonthlyMaintenance(ctx context.Context) {
	started := time.Now()
	o.logger.Info("monthly maintenance started")

	if err := o.marketSvc.PayDividends(ctx); err != nil {
		o.logger.Error("monthly maintenance step failed", "step", "dividends", "err", err)
	}
	if err := o.procurementSvc.DriftReputations(ctx); err != nil {
		o.logger.Error("monthly maintenance step failed", "step", "reputation drift", "err", err)
	}

	o.logger.Info("monthly maintenance finished", "elapsed", time.Since(started))
}

// ProcessOngoingImpacts exposes the hourly event pass to the scheduler.
func (o *Orchestrator) ProcessOngoingImpacts(ctx context.Context) error {
	return o.eventSvc.ProcessOngoingImpacts(ctx)
}
