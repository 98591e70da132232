package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Service packages
// ──────────────────────────────────────────────────────────────────────────────

// ServiceType names a bookable service package. Base costs are pre-gift.
type ServiceType string

const (
	ServiceWedding    ServiceType = "wedding"
	ServiceFestival   ServiceType = "festival"
	ServiceBanquet    ServiceType = "banquet"
	ServiceExpedition ServiceType = "expedition_outfitting"
	ServiceFuneral    ServiceType = "funeral_rites"
)

// serviceBaseCosts is the static base cost table per service type.
var serviceBaseCosts = map[ServiceType]decimal.Decimal{
	ServiceWedding:    decimal.NewFromInt(2_500),
	ServiceFestival:   decimal.NewFromInt(1_200),
	ServiceBanquet:    decimal.NewFromInt(800),
	ServiceExpedition: decimal.NewFromInt(1_500),
	ServiceFuneral:    decimal.NewFromInt(600),
}

// ServiceBaseCost looks up a service type's base cost. The second return is
// false for unknown types.
func ServiceBaseCost(t ServiceType) (decimal.Decimal, bool) {
	cost, ok := serviceBaseCosts[t]
	return cost, ok
}

// ──────────────────────────────────────────────────────────────────────────────
// Payment options
// ──────────────────────────────────────────────────────────────────────────────

// PaymentOption is one way of settling a service package.
type PaymentOption string

const (
	PayFull             PaymentOption = "full_payment"
	PayLoan             PaymentOption = "loan"
	PayInstallment      PaymentOption = "installment"
	PayInvestmentBacked PaymentOption = "investment_backed"
)

// InstallmentDownFraction is the up-front share of an installment plan.
var InstallmentDownFraction = decimal.NewFromFloat(0.30)

// InvestmentCollateralRatio is the minimum active-investment cover required
// for an investment-backed plan: 150 % of the package total.
var InvestmentCollateralRatio = decimal.NewFromFloat(1.50)

// Financed term lengths per payment option, in months.
const (
	LoanPlanTermMonths        = 12
	InstallmentPlanTermMonths = 6
)

// ──────────────────────────────────────────────────────────────────────────────
// Service orders
// ──────────────────────────────────────────────────────────────────────────────

// ServiceOrderStatus tracks a booked package through fulfilment.
type ServiceOrderStatus string

const (
	ServiceBooked    ServiceOrderStatus = "booked"
	ServiceFulfilled ServiceOrderStatus = "fulfilled"
	ServiceCancelled ServiceOrderStatus = "cancelled"
)

// ServiceOrder is a booked service package: the fulfilment appointment plus
// how it was paid for. LoanID is set for financed plans.
type ServiceOrder struct {
	ID            uuid.UUID          `json:"id"             db:"id"`
	CharacterID   uuid.UUID          `json:"character_id"   db:"character_id"`
	ServiceType   ServiceType        `json:"service_type"   db:"service_type"`
	PaymentOption PaymentOption      `json:"payment_option" db:"payment_option"`
	TotalCost     decimal.Decimal    `json:"total_cost"     db:"total_cost"`
	DownPayment   decimal.Decimal    `json:"down_payment"   db:"down_payment"`
	LoanID        *uuid.UUID         `json:"loan_id"        db:"loan_id"`
	Status        ServiceOrderStatus `json:"status"         db:"status"`
	ScheduledAt   time.Time          `json:"scheduled_at"   db:"scheduled_at"`
	CreatedAt     time.Time          `json:"created_at"     db:"created_at"`
}
