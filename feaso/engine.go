/*
engine.go - The monthly cashflow simulation

PURPOSE:
  Simulate walks a discrete monthly clock from month 0 to the horizon
  (inclusive) and produces one MonthlyFlow per month. It is the only
  producer of flows; metrics, the residual land value solver and the
  sensitivity matrix all run on top of it.

HORIZON:
  sell: Settings.DurationMonths, or the last month with activity when zero
  hold: construction completion + HoldYears x 12

MONTHLY STEPS (order matters, later steps read earlier ones):
  1. Refinance     hold only: value the asset, draw the investment loan
  2. Revenue       sale settlements, rent with lease-up, exit sale at horizon
  3. Costs         deposit, settlement, phased catalogue, GST and ITC lag
  4. Finance       interest and line fees, capitalised or paid
  5. Net position  inflow - outflow, cumulative
  6. Waterfall     fund the deficit or repay from the surplus (waterfall.go)
  7. Asset value   cost build-up, then capital growth during hold

INVARIANTS:
  - Inputs are never mutated; the linked scenario is merged into a copy
  - ITC for GST paid in month m is claimed in month m+1
  - No early exit: a negative position just draws more equity

SEE ALSO:
  - plan.go: Per-simulation resolution (totals, limits, horizon)
  - waterfall.go: Step 6
  - metrics.go: Summarize
*/
package feaso

import (
	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/statutory"
)

// monthlyDivisor turns an annual percent rate into a simple monthly fraction.
var monthlyDivisor = decimal.NewFromInt(1200)

// tierState is a debt facility during the run.
type tierState struct {
	tier    CapitalTier
	limit   decimal.Decimal
	balance decimal.Decimal
}

func (t *tierState) available(month int) decimal.Decimal {
	if !t.tier.IsActive(month) {
		return decimal.Zero
	}
	return maxDec(decimal.Zero, t.limit.Sub(t.balance))
}

type simulation struct {
	plan

	senior     tierState
	mezzanine  tierState
	investment decimal.Decimal // refinance loan balance
	equity     decimal.Decimal // contributed less distributed

	cash       decimal.Decimal
	cumulative decimal.Decimal
	pendingITC decimal.Decimal
	assetValue decimal.Decimal
}

// Simulate runs the scenario and returns its monthly flows. linked is the
// sell scenario a hold scenario inherits from, or nil.
func Simulate(scenario Scenario, site Site, linked *Scenario) []MonthlyFlow {
	merged := Merge(scenario, linked)
	p := newPlan(merged, site)
	sim := &simulation{
		plan:      p,
		senior:    tierState{tier: merged.Settings.Capital.Senior, limit: p.seniorLimit},
		mezzanine: tierState{tier: merged.Settings.Capital.Mezzanine, limit: p.mezzLimit},
	}

	flows := make([]MonthlyFlow, 0, p.horizon+1)
	for m := 0; m <= p.horizon; m++ {
		flows = append(flows, sim.step(m))
	}
	return flows
}

// obligations are the acquisition amounts funded outside the waterfall.
type obligations struct {
	deposit    decimal.Decimal // from equity
	settlement decimal.Decimal // forced senior draw
}

func (s *simulation) step(m int) MonthlyFlow {
	set := s.scenario.Settings
	f := MonthlyFlow{Month: m, Phase: s.phase(m)}
	if !set.StartDate.IsZero() {
		f.Date = set.StartDate.AddDate(0, m, 0)
	}
	terminal := m == s.horizon
	openingInvestment := s.investment
	openingCash := s.cash

	// 1. Refinance
	if set.Strategy == StrategyHold && m > 0 && m == set.Hold.RefinanceMonth && set.Hold.RefinanceLVR.IsPositive() {
		loan := s.refinanceValue.Mul(Pct(set.Hold.RefinanceLVR))
		f.RefinanceInflow = loan
		f.Investment.Draw = loan
		s.investment = s.investment.Add(loan)
	}

	// 2. Revenue
	s.recognizeSales(m, &f)
	s.recognizeHold(m, terminal, &f)
	f.NetRevenue = f.GrossRevenue.Sub(f.Commission).Sub(f.GSTOnSales).Sub(f.SellingCosts)

	// 3. Costs
	obl := s.recognizeCosts(m, &f)

	// 4. Finance
	paidFinance := s.accrue(&s.senior, m, &f.Senior)
	paidFinance = paidFinance.Add(s.accrue(&s.mezzanine, m, &f.Mezzanine))
	f.Investment.Interest = openingInvestment.Mul(set.Hold.InvestmentRate).Div(monthlyDivisor)
	paidFinance = paidFinance.Add(f.Investment.Interest)
	if openingCash.IsPositive() {
		f.SurplusInterest = openingCash.Mul(set.SurplusInterestRate).Div(monthlyDivisor)
	}

	// 5. Net position
	inflow := decimal.Sum(f.NetRevenue, f.ITCClaimed, f.SurplusInterest, f.RefinanceInflow)
	outflow := decimal.Sum(f.TotalCost, f.GSTPaid, paidFinance)
	f.NetCashflow = inflow.Sub(outflow)
	s.cumulative = s.cumulative.Add(f.NetCashflow)
	f.CumulativeCashflow = s.cumulative

	// 6. Waterfall
	if f.NetCashflow.IsNegative() {
		s.fund(m, f.NetCashflow.Neg(), obl, &f)
	} else {
		s.repay(f.NetCashflow, terminal, &f)
	}
	if terminal && s.cash.IsPositive() {
		// retained cash settles what is still owed before equity is paid out
		held := s.cash
		s.cash = decimal.Zero
		s.repay(held, true, &f)
	}
	s.equity = s.equity.Add(f.Equity.Draw).Sub(f.Equity.Repayment)

	f.Senior.Balance = s.senior.balance
	f.Mezzanine.Balance = s.mezzanine.balance
	f.Investment.Balance = s.investment
	f.Equity.Balance = s.equity
	f.CashBalance = s.cash

	// 7. Asset value
	if m <= s.completion {
		s.assetValue = s.assetValue.Add(f.TotalCost)
	} else {
		s.assetValue = s.assetValue.Mul(one.Add(MonthlyRate(set.Hold.CapitalGrowthRate)))
		if set.Strategy == StrategyHold {
			f.Depreciation = s.constructionTotal.Mul(set.Hold.DepreciationRate).Div(monthlyDivisor)
		}
	}
	f.AssetValue = s.assetValue

	return f
}

func (s *simulation) phase(m int) Phase {
	switch {
	case m < s.settlement:
		return PhaseAcquisition
	case m <= s.completion:
		return PhaseConstruction
	case s.scenario.Settings.Strategy == StrategyHold:
		return PhaseHold
	default:
		return PhaseSelling
	}
}

// =============================================================================
// REVENUE
// =============================================================================

func (s *simulation) recognizeSales(m int, f *MonthlyFlow) {
	set := s.scenario.Settings
	acq := set.Acquisition
	for _, r := range s.scenario.Revenues {
		if r.Strategy != StrategySell {
			continue
		}
		idx := m - (s.completion + r.SettlementOffset)
		slice := Distribute(r.GrossSale(), idx, ShapeLinear, r.SettlementSpan, ShapeParams{})
		if slice.IsZero() {
			continue
		}
		f.GrossRevenue = f.GrossRevenue.Add(slice)
		f.Commission = f.Commission.Add(slice.Mul(Pct(r.CommissionRate)))
		if r.Taxable {
			basis := SafeDiv(acq.Basis().Mul(slice), s.grossSale)
			f.GSTOnSales = f.GSTOnSales.Add(statutory.GSTOnSale(slice, basis, s.gstRate, acq.MarginScheme))
		}
	}
}

func (s *simulation) recognizeHold(m int, terminal bool, f *MonthlyFlow) {
	if m <= s.completion {
		return
	}
	hold := s.scenario.Settings.Hold

	if terminal {
		if s.exitValue.IsPositive() {
			f.GrossRevenue = f.GrossRevenue.Add(s.exitValue)
			f.SellingCosts = f.SellingCosts.Add(s.exitValue.Mul(Pct(hold.ExitCostPct)))
		}
		return
	}

	k := decimal.NewFromInt(int64(m - s.completion))
	for _, r := range s.scenario.Revenues {
		if r.Strategy != StrategyHold {
			continue
		}
		occupancy := one
		if r.LeaseUpMonths > 0 {
			occupancy = minDec(one, k.Div(decimal.NewFromInt(int64(r.LeaseUpMonths))))
		}
		rent := r.AnnualRent().Div(twelve).Mul(occupancy)
		deductions := rent.Mul(Pct(r.OpexRate)).Add(rent.Mul(Pct(hold.ManagementFeePct)))
		f.GrossRevenue = f.GrossRevenue.Add(rent)
		f.SellingCosts = f.SellingCosts.Add(deductions)
		f.NetRent = f.NetRent.Add(rent.Sub(deductions))
	}
}

// =============================================================================
// COSTS
// =============================================================================

func (s *simulation) recognizeCosts(m int, f *MonthlyFlow) obligations {
	var (
		obl   obligations
		costs CostBreakdown
		paid  = decimal.Zero
		itc   = decimal.Zero
	)

	charge := func(cat Category, amount decimal.Decimal, gst GSTTreatment) decimal.Decimal {
		costs = costs.add(cat, amount)
		tax := decimal.Zero
		if gst == GSTTaxable || gst == GSTInputTaxed {
			tax = statutory.GSTOnAmount(amount, s.gstRate)
			paid = paid.Add(tax)
		}
		itc = itc.Add(statutory.GSTCredit(amount, s.gstRate, gst == GSTTaxable))
		return amount.Add(tax)
	}

	if m == 0 {
		obl.deposit = obl.deposit.Add(charge(CategoryLand, s.deposit, GSTFree))
		obl.deposit = obl.deposit.Add(charge(CategoryLand, s.legalFee, GSTTaxable))
	}
	if m == s.settlement {
		obl.settlement = obl.settlement.Add(charge(CategoryLand, s.balance, GSTFree))
		obl.settlement = obl.settlement.Add(charge(CategoryStatutory, s.duty, GSTFree))
		obl.settlement = obl.settlement.Add(charge(CategoryLand, s.agentFee, GSTTaxable))
	}

	for _, item := range s.items {
		idx := m - item.StartMonth
		amount := Distribute(item.Total, idx, item.Shape, item.Span, item.ShapeParams)
		if amount.IsZero() {
			continue
		}
		charge(item.Category, Escalate(amount, item.EscalationRate, idx), item.GST)
	}

	for _, t := range []*tierState{&s.senior, &s.mezzanine} {
		if m == t.tier.ActivationMonth {
			if fee := establishmentFee(t.tier, t.limit); fee.IsPositive() {
				charge(CategoryFinance, fee, GSTFree)
			}
		}
	}

	f.Costs = costs
	f.TotalCost = costs.Total()
	f.GSTPaid = paid
	f.ITCClaimed = s.pendingITC
	s.pendingITC = itc
	return obl
}

// =============================================================================
// FINANCE
// =============================================================================

// accrue charges interest on the opening balance and the line fee on the
// limit. Capitalised charges go onto the balance; the rest is returned as a
// cash need.
func (s *simulation) accrue(t *tierState, m int, out *TierFlow) decimal.Decimal {
	out.Interest = t.balance.Mul(t.tier.RateAt(m)).Div(monthlyDivisor)
	if t.tier.IsActive(m) && t.limit.IsPositive() {
		out.LineFee = t.limit.Mul(t.tier.LineFeeRate).Div(monthlyDivisor)
	}
	charges := out.Interest.Add(out.LineFee)
	if t.tier.CapitaliseInterest {
		t.balance = t.balance.Add(charges)
		return decimal.Zero
	}
	return charges
}
