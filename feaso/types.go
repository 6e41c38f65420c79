/*
Package feaso provides the development feasibility engine.

PURPOSE:
  This package turns a development scenario (acquisition terms, a cost
  catalogue, a revenue catalogue and a capital stack) into a month-by-month
  cashflow, and reduces that cashflow into the numbers a developer or lender
  asks for: profit, margin, IRR, NPV, peak debt, LTC and LVR.

KEY CONCEPTS IN THIS FILE (types.go):
  - CostItem:     One budget line and how its total is derived and phased
  - RevenueItem:  A sale tranche or a hold/rental tranche
  - CapitalTier:  Senior, mezzanine or equity funding
  - Scenario:     Settings + catalogues, owned by a Site
  - MonthlyFlow:  One month of the simulation (see flow.go)

DESIGN PRINCIPLES:
  1. Precision: every amount is a decimal.Decimal, never float64
  2. Immutability: Simulate never mutates its inputs; flows are values
  3. Determinism: same inputs, same flows, no clock or I/O
  4. Percent units: a rate of 6 means 6%, everywhere

USAGE:
  flows := feaso.Simulate(scenario, site, nil)
  summary := feaso.Summarize(flows, scenario.Settings.DiscountRate)

SEE ALSO:
  - distribution.go: How a total is phased across months
  - engine.go: The monthly loop
  - metrics.go: Summary metrics
*/
package feaso

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	one     = decimal.NewFromInt(1)
)

// Pct converts a percent-unit value to a fraction (6 -> 0.06).
func Pct(rate decimal.Decimal) decimal.Decimal { return rate.Div(hundred) }

// MustParseDecimal parses s or returns zero.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeDiv returns a/b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

func maxDec(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func minDec(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ScenarioID string
type SiteID string

// =============================================================================
// COST CATALOGUE
// =============================================================================

type Category string

const (
	CategoryLand         Category = "land"
	CategoryConstruction Category = "construction"
	CategoryConsultants  Category = "consultants"
	CategoryStatutory    Category = "statutory"
	CategorySelling      Category = "selling"
	CategoryMisc         Category = "misc"
	CategoryFinance      Category = "finance"
)

// Categories lists every cost category in reporting order.
var Categories = []Category{
	CategoryLand, CategoryConstruction, CategoryConsultants,
	CategoryStatutory, CategorySelling, CategoryMisc, CategoryFinance,
}

// InputType says how CostItem.Amount is interpreted.
type InputType string

const (
	InputFixed           InputType = "fixed"            // Amount is the total
	InputPctConstruction InputType = "pct_construction" // Amount% of construction total
	InputPctRevenue      InputType = "pct_revenue"      // Amount% of gross sale revenue
	InputRatePerUnit     InputType = "rate_per_unit"    // Amount x revenue units
	InputRatePerSqm      InputType = "rate_per_sqm"     // Amount x site land area
)

type GSTTreatment string

const (
	GSTTaxable    GSTTreatment = "taxable"
	GSTFree       GSTTreatment = "gst_free"
	GSTInputTaxed GSTTreatment = "input_taxed"
)

// Automation links a cost item to a jurisdiction-calculated amount.
type Automation string

const (
	AutomationNone         Automation = ""
	AutomationStampDuty    Automation = "stamp_duty"
	AutomationLandTax      Automation = "land_tax"
	AutomationCouncilRates Automation = "council_rates"
)

// CostItem is one budget line.
type CostItem struct {
	ID             string
	Description    string
	Category       Category
	InputType      InputType
	Amount         decimal.Decimal
	StartMonth     int
	Span           int
	Shape          Shape
	ShapeParams    ShapeParams
	EscalationRate decimal.Decimal // annual %
	GST            GSTTreatment
	Automation     Automation
}

// =============================================================================
// REVENUE CATALOGUE
// =============================================================================

type Strategy string

const (
	StrategySell Strategy = "sell"
	StrategyHold Strategy = "hold"
)

// RevenueItem is a sale tranche (Strategy sell) or a rental tranche
// (Strategy hold). Only the fields of the selected arm are read.
type RevenueItem struct {
	ID          string
	Description string
	Strategy    Strategy
	Units       int

	// Sell arm. Prices are GST-inclusive.
	PricePerUnit     decimal.Decimal
	CommissionRate   decimal.Decimal // % of gross
	SettlementOffset int             // months after construction completion
	SettlementSpan   int
	Taxable          bool

	// Hold arm.
	WeeklyRent    decimal.Decimal // per unit
	OpexRate      decimal.Decimal // % of gross rent
	CapRate       decimal.Decimal // % for valuation
	LeaseUpMonths int
}

// GrossSale is units x price for a sale tranche, zero otherwise.
func (r RevenueItem) GrossSale() decimal.Decimal {
	if r.Strategy != StrategySell {
		return decimal.Zero
	}
	return r.PricePerUnit.Mul(decimal.NewFromInt(int64(r.Units)))
}

// AnnualRent is the fully-leased gross rent per year for a hold tranche.
func (r RevenueItem) AnnualRent() decimal.Decimal {
	if r.Strategy != StrategyHold {
		return decimal.Zero
	}
	return r.WeeklyRent.Mul(decimal.NewFromInt(int64(r.Units))).Mul(decimal.NewFromInt(52))
}

// =============================================================================
// CAPITAL STACK
// =============================================================================

type TierName string

const (
	TierSenior     TierName = "senior"
	TierMezzanine  TierName = "mezzanine"
	TierEquity     TierName = "equity"
	TierInvestment TierName = "investment"
)

type LimitType string

const (
	LimitFixed LimitType = "fixed" // Limit is an amount
	LimitLTC   LimitType = "ltc"   // Limit% of total project cost
	LimitLVR   LimitType = "lvr"   // Limit% of gross realisation
)

type FeeType string

const (
	FeeFixed FeeType = "fixed"
	FeePct   FeeType = "pct" // % of resolved limit
)

// CapitalTier is one layer of the capital stack.
type CapitalTier struct {
	Name                 TierName
	Rate                 decimal.Decimal // annual %
	RateSchedule         RateSchedule
	LimitType            LimitType
	Limit                decimal.Decimal
	EstablishmentFeeType FeeType
	EstablishmentFee     decimal.Decimal
	LineFeeRate          decimal.Decimal // annual % of limit
	ActivationMonth      int
	CapitaliseInterest   bool
}

// RateAt returns the annual rate in force at month.
func (t CapitalTier) RateAt(month int) decimal.Decimal {
	if r, ok := t.RateSchedule.At(month); ok {
		return r
	}
	return t.Rate
}

// IsActive reports whether the facility is available at month.
func (t CapitalTier) IsActive(month int) bool { return month >= t.ActivationMonth }

type CapitalStack struct {
	Senior    CapitalTier
	Mezzanine CapitalTier
	Equity    CapitalTier
}

// =============================================================================
// SETTINGS
// =============================================================================

type Acquisition struct {
	PurchasePrice     decimal.Decimal
	DepositPct        decimal.Decimal
	SettlementMonth   int
	LegalFee          decimal.Decimal
	BuyersAgentPct    decimal.Decimal
	Jurisdiction      string
	ForeignBuyer      bool
	MarginScheme      bool
	MarginSchemeBasis decimal.Decimal // zero means PurchasePrice
}

// Deposit is the part of the price paid at month 0.
func (a Acquisition) Deposit() decimal.Decimal {
	return a.PurchasePrice.Mul(Pct(a.DepositPct))
}

// AgentFee is the buyer's agent fee, charged at settlement.
func (a Acquisition) AgentFee() decimal.Decimal {
	return a.PurchasePrice.Mul(Pct(a.BuyersAgentPct))
}

// Basis returns the land cost basis for the margin scheme.
func (a Acquisition) Basis() decimal.Decimal {
	if a.MarginSchemeBasis.IsPositive() {
		return a.MarginSchemeBasis
	}
	return a.PurchasePrice
}

type HoldSettings struct {
	HoldYears         int
	RefinanceMonth    int
	RefinanceLVR      decimal.Decimal // %
	InvestmentRate    decimal.Decimal // annual %
	CapitalGrowthRate decimal.Decimal // annual %
	TerminalCapRate   decimal.Decimal // %
	ManagementFeePct  decimal.Decimal // % of gross rent
	ExitCostPct       decimal.Decimal // % of exit value
	DepreciationRate  decimal.Decimal // annual % of construction cost
}

type Settings struct {
	Strategy            Strategy
	StartDate           time.Time
	DurationMonths      int
	ConstructionMonths  int // month construction completes
	Acquisition         Acquisition
	Capital             CapitalStack
	Hold                HoldSettings
	DiscountRate        decimal.Decimal // annual %
	SurplusInterestRate decimal.Decimal // annual %
	GSTRate             decimal.Decimal // %, zero means 10
}

func (s Settings) gstRate() decimal.Decimal {
	if s.GSTRate.IsZero() {
		return decimal.NewFromInt(10)
	}
	return s.GSTRate
}

// =============================================================================
// SITE & SCENARIO
// =============================================================================

// Site supplies the physical attributes shared by its scenarios.
type Site struct {
	ID             SiteID
	Name           string
	Address        string
	LandArea       decimal.Decimal // sqm
	Zoning         string
	CouncilRatePct decimal.Decimal // annual % of land value
}

// Scenario is one feasibility of a site.
type Scenario struct {
	ID               ScenarioID
	SiteID           SiteID
	Name             string
	Settings         Settings
	Costs            []CostItem
	Revenues         []RevenueItem
	LinkedScenarioID ScenarioID // sell scenario a hold scenario inherits from
}

// Clone returns a deep copy safe to modify.
func (s Scenario) Clone() Scenario {
	c := s
	c.Costs = make([]CostItem, len(s.Costs))
	for i, item := range s.Costs {
		item.ShapeParams.Milestones = append([]Milestone(nil), item.ShapeParams.Milestones...)
		c.Costs[i] = item
	}
	c.Revenues = append([]RevenueItem(nil), s.Revenues...)
	c.Settings.Capital.Senior.RateSchedule = s.Settings.Capital.Senior.RateSchedule.clone()
	c.Settings.Capital.Mezzanine.RateSchedule = s.Settings.Capital.Mezzanine.RateSchedule.clone()
	c.Settings.Capital.Equity.RateSchedule = s.Settings.Capital.Equity.RateSchedule.clone()
	return c
}

// TotalUnits is the sum of units across the revenue catalogue.
func (s Scenario) TotalUnits() int {
	n := 0
	for _, r := range s.Revenues {
		n += r.Units
	}
	return n
}

// GrossSaleRevenue is the undiscounted sum of all sale tranches.
func (s Scenario) GrossSaleRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Revenues {
		total = total.Add(r.GrossSale())
	}
	return total
}
