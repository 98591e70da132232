package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// EventCategory keys the world event template library.
type EventCategory string

const (
	EventDisaster      EventCategory = "disaster"
	EventPolitical     EventCategory = "political"
	EventInvasion      EventCategory = "invasion"
	EventDiscovery     EventCategory = "discovery"
	EventTrade         EventCategory = "trade"
	EventEconomic      EventCategory = "economic"
	EventTechnological EventCategory = "technological"
	EventMagical       EventCategory = "magical"
)

// EventSeverity grades how disruptive a world event is.
type EventSeverity string

const (
	SeverityMinor    EventSeverity = "minor"
	SeverityModerate EventSeverity = "moderate"
	SeverityMajor    EventSeverity = "major"
	SeverityCritical EventSeverity = "critical"
)

// ImpactType is the timing regime governing when a percentage shock hits a
// stock price.
type ImpactType string

const (
	ImpactImmediate ImpactType = "immediate" // full shock at creation
	ImpactGradual   ImpactType = "gradual"   // spread evenly over the duration
	ImpactDelayed   ImpactType = "delayed"   // full shock 24h after creation
)

// DelayedImpactOffset is how long a DELAYED impact waits before applying.
const DelayedImpactOffset = 24 * time.Hour

// ImpactJitter is the ± fraction applied per company to a template's declared
// impact percentage.
const ImpactJitter = 0.20

// ──────────────────────────────────────────────────────────────────────────────
// Template library — static configuration loaded once
// ──────────────────────────────────────────────────────────────────────────────

// SectorImpact declares one sector's shock inside an event template.
type SectorImpact struct {
	Sector     Sector
	Percentage float64 // signed; −24 means −24 %
	Type       ImpactType
}

// EventTemplate is one entry of the world event library.
type EventTemplate struct {
	Category      EventCategory
	Title         string
	Severity      EventSeverity
	DurationHours int
	GlobalImpact  bool
	SectorImpacts []SectorImpact
}

// eventTemplates is the immutable world event library.
var eventTemplates = []EventTemplate{
	{
		Category: EventDisaster, Title: "Great Fire of the Lower Quarter",
		Severity: SeverityMajor, DurationHours: 48, GlobalImpact: false,
		SectorImpacts: []SectorImpact{
			{Sector: SectorCrafting, Percentage: -18, Type: ImpactImmediate},
			{Sector: SectorTrade, Percentage: -8, Type: ImpactGradual},
		},
	},
	{
		Category: EventDisaster, Title: "Flooding of the River Markets",
		Severity: SeverityModerate, DurationHours: 24, GlobalImpact: false,
		SectorImpacts: []SectorImpact{
			{Sector: SectorAgriculture, Percentage: -15, Type: ImpactImmediate},
			{Sector: SectorTrade, Percentage: -6, Type: ImpactDelayed},
		},
	},
	{
		Category: EventPolitical, Title: "Royal Succession Crisis",
		Severity: SeverityCritical, DurationHours: 72, GlobalImpact: true,
		SectorImpacts: []SectorImpact{
			{Sector: SectorFinance, Percentage: -12, Type: ImpactImmediate},
			{Sector: SectorTrade, Percentage: -10, Type: ImpactGradual},
			{Sector: SectorMagic, Percentage: 5, Type: ImpactDelayed},
		},
	},
	{
		Category: EventInvasion, Title: "Orc Warbands at the Northern Passes",
		Severity: SeverityMajor, DurationHours: 48, GlobalImpact: true,
		SectorImpacts: []SectorImpact{
			{Sector: SectorMining, Percentage: -20, Type: ImpactImmediate},
			{Sector: SectorCrafting, Percentage: 12, Type: ImpactGradual}, // weapon demand
			{Sector: SectorAgriculture, Percentage: -10, Type: ImpactDelayed},
		},
	},
	{
		Category: EventDiscovery, Title: "New Mithril Vein Discovered",
		Severity: SeverityModerate, DurationHours: 36, GlobalImpact: false,
		SectorImpacts: []SectorImpact{
			{Sector: SectorMining, Percentage: 22, Type: ImpactImmediate},
			{Sector: SectorCrafting, Percentage: 8, Type: ImpactGradual},
		},
	},
	{
		Category: EventTrade, Title: "Southern Caravan Routes Reopened",
		Severity: SeverityMinor, DurationHours: 24, GlobalImpact: false,
		SectorImpacts: []SectorImpact{
			{Sector: SectorTrade, Percentage: 10, Type: ImpactGradual},
			{Sector: SectorAgriculture, Percentage: 4, Type: ImpactDelayed},
		},
	},
	{
		Category: EventEconomic, Title: "Crown Mint Debases the Coinage",
		Severity: SeverityMajor, DurationHours: 72, GlobalImpact: true,
		SectorImpacts: []SectorImpact{
			{Sector: SectorFinance, Percentage: -24, Type: ImpactGradual},
			{Sector: SectorMining, Percentage: 6, Type: ImpactImmediate},
		},
	},
	{
		Category: EventTechnological, Title: "Gnomish Automation Breakthrough",
		Severity: SeverityModerate, DurationHours: 48, GlobalImpact: false,
		SectorImpacts: []SectorImpact{
			{Sector: SectorTechnology, Percentage: 18, Type: ImpactImmediate},
			{Sector: SectorCrafting, Percentage: -7, Type: ImpactGradual},
		},
	},
	{
		Category: EventMagical, Title: "Mana Storm over the Capital",
		Severity: SeverityMajor, DurationHours: 36, GlobalImpact: false,
		SectorImpacts: []SectorImpact{
			{Sector: SectorMagic, Percentage: 15, Type: ImpactImmediate},
			{Sector: SectorTechnology, Percentage: -9, Type: ImpactDelayed},
		},
	},
}

// EventTemplates returns the world event library. The returned slice is the
// live table; do not mutate it.
func EventTemplates() []EventTemplate {
	return eventTemplates
}

// ──────────────────────────────────────────────────────────────────────────────
// WorldEvent & EventStockImpact
// ──────────────────────────────────────────────────────────────────────────────

// WorldEvent is one instantiated template affecting the game world.
type WorldEvent struct {
	ID            uuid.UUID     `json:"id"             db:"id"`
	Category      EventCategory `json:"category"       db:"category"`
	Title         string        `json:"title"          db:"title"`
	Severity      EventSeverity `json:"severity"       db:"severity"`
	DurationHours int           `json:"duration_hours" db:"duration_hours"`
	GlobalImpact  bool          `json:"global_impact"  db:"global_impact"`
	OccurredAt    time.Time     `json:"occurred_at"    db:"occurred_at"`
	ExpiresAt     time.Time     `json:"expires_at"     db:"expires_at"`
}

// EventStockImpact is one company's share of an event's shock. Impacts expire
// and are purged independently of the parent event's bookkeeping.
//
// Gradual impacts use elapsed-hours accounting: AppliedHours counts how many
// hourly steps have been written to the price, so a missed processing tick
// catches up and a repeated tick within the same hour is a no-op.
type EventStockImpact struct {
	ID               uuid.UUID       `json:"id"                db:"id"`
	EventID          uuid.UUID       `json:"event_id"          db:"event_id"`
	CompanyID        uuid.UUID       `json:"company_id"        db:"company_id"`
	ImpactPercentage decimal.Decimal `json:"impact_percentage" db:"impact_percentage"`
	ImpactType       ImpactType      `json:"impact_type"       db:"impact_type"`
	Applied          bool            `json:"applied"           db:"applied"`       // immediate/delayed: full shock written
	AppliedHours     int             `json:"applied_hours"     db:"applied_hours"` // gradual: hourly steps written
	AppliedAt        time.Time       `json:"applied_at"        db:"applied_at"`
	ExpiresAt        time.Time       `json:"expires_at"        db:"expires_at"`
	CreatedAt        time.Time       `json:"created_at"        db:"created_at"`
}

// DurationHours returns the impact's active window in whole hours (min 1).
func (i *EventStockImpact) DurationHours() int {
	h := int(i.ExpiresAt.Sub(i.AppliedAt).Hours())
	if h < 1 {
		return 1
	}
	return h
}

// HourlyStepPercent returns the per-hour slice of a gradual impact.
func (i *EventStockImpact) HourlyStepPercent() decimal.Decimal {
	return i.ImpactPercentage.Div(decimal.NewFromInt(int64(i.DurationHours())))
}

// PendingGradualSteps returns how many hourly steps are due but not yet
// applied at the given time. Steps never exceed the impact's duration.
func (i *EventStockImpact) PendingGradualSteps(now time.Time) int {
	elapsed := int(now.Sub(i.AppliedAt).Hours())
	if elapsed < 0 {
		elapsed = 0
	}
	if max := i.DurationHours(); elapsed > max {
		elapsed = max
	}
	pending := elapsed - i.AppliedHours
	if pending < 0 {
		return 0
	}
	return pending
}

// JitteredImpact applies the ± per-company jitter to a template percentage.
// u must be drawn uniformly from [−1, 1].
func JitteredImpact(pct float64, u float64) decimal.Decimal {
	return decimal.NewFromFloat(pct * (1 + u*ImpactJitter)).Round(4)
}

// ApplyImpactPercent moves a price by a signed percentage, respecting the
// price floor.
func ApplyImpactPercent(price, pct decimal.Decimal) decimal.Decimal {
	next := price.Mul(decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))).Round(4)
	if next.LessThan(MinStockPrice) {
		return MinStockPrice
	}
	return next
}
