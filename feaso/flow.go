package feaso

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHLY FLOW - One month of the simulation
// =============================================================================

type Phase string

const (
	PhaseAcquisition  Phase = "acquisition"
	PhaseConstruction Phase = "construction"
	PhaseSelling      Phase = "selling"
	PhaseHold         Phase = "hold"
)

// CostBreakdown holds one month's costs per category.
type CostBreakdown struct {
	Land         decimal.Decimal
	Construction decimal.Decimal
	Consultants  decimal.Decimal
	Statutory    decimal.Decimal
	Selling      decimal.Decimal
	Misc         decimal.Decimal
	Finance      decimal.Decimal
}

// Get returns the amount for a category.
func (c CostBreakdown) Get(cat Category) decimal.Decimal {
	switch cat {
	case CategoryLand:
		return c.Land
	case CategoryConstruction:
		return c.Construction
	case CategoryConsultants:
		return c.Consultants
	case CategoryStatutory:
		return c.Statutory
	case CategorySelling:
		return c.Selling
	case CategoryFinance:
		return c.Finance
	default:
		return c.Misc
	}
}

// add returns a copy with amount added to cat. Unknown categories go to misc.
func (c CostBreakdown) add(cat Category, amount decimal.Decimal) CostBreakdown {
	switch cat {
	case CategoryLand:
		c.Land = c.Land.Add(amount)
	case CategoryConstruction:
		c.Construction = c.Construction.Add(amount)
	case CategoryConsultants:
		c.Consultants = c.Consultants.Add(amount)
	case CategoryStatutory:
		c.Statutory = c.Statutory.Add(amount)
	case CategorySelling:
		c.Selling = c.Selling.Add(amount)
	case CategoryFinance:
		c.Finance = c.Finance.Add(amount)
	default:
		c.Misc = c.Misc.Add(amount)
	}
	return c
}

// Total sums every category.
func (c CostBreakdown) Total() decimal.Decimal {
	return decimal.Sum(c.Land, c.Construction, c.Consultants, c.Statutory, c.Selling, c.Misc, c.Finance)
}

// TierFlow is one capital tier's movement in a month.
type TierFlow struct {
	Draw      decimal.Decimal
	Repayment decimal.Decimal
	Interest  decimal.Decimal
	LineFee   decimal.Decimal
	Balance   decimal.Decimal // closing
}

// MonthlyFlow is one time-step's full accounting. Flows are values: the
// engine builds each one and never touches it again.
type MonthlyFlow struct {
	Month int
	Date  time.Time // zero when the scenario has no start date
	Phase Phase

	GrossRevenue decimal.Decimal
	Commission   decimal.Decimal
	GSTOnSales   decimal.Decimal
	SellingCosts decimal.Decimal // rental opex, management, exit costs
	NetRevenue   decimal.Decimal
	NetRent      decimal.Decimal

	Costs      CostBreakdown
	TotalCost  decimal.Decimal
	GSTPaid    decimal.Decimal
	ITCClaimed decimal.Decimal

	SurplusInterest decimal.Decimal
	RefinanceInflow decimal.Decimal

	Senior     TierFlow
	Mezzanine  TierFlow
	Equity     TierFlow
	Investment TierFlow

	NetCashflow        decimal.Decimal
	CumulativeCashflow decimal.Decimal
	CashBalance        decimal.Decimal

	AssetValue   decimal.Decimal
	Depreciation decimal.Decimal
}

// Debt is the closing senior + mezzanine balance.
func (f MonthlyFlow) Debt() decimal.Decimal {
	return f.Senior.Balance.Add(f.Mezzanine.Balance)
}

// FinanceCharges is interest plus line fees across the debt tiers.
func (f MonthlyFlow) FinanceCharges() decimal.Decimal {
	return decimal.Sum(
		f.Senior.Interest, f.Senior.LineFee,
		f.Mezzanine.Interest, f.Mezzanine.LineFee,
		f.Investment.Interest, f.Investment.LineFee,
	)
}

// EquityFlow is the equity holder's cash: distributions minus contributions.
func (f MonthlyFlow) EquityFlow() decimal.Decimal {
	return f.Equity.Repayment.Sub(f.Equity.Draw)
}
