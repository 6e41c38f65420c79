/*
metrics.go - Reducing a flow sequence to investment metrics

PURPOSE:
  Summarize is a pure reduction over the flows Simulate returns. It never
  fails: a ratio with a zero denominator is zero and an IRR that does not
  converge is zero.

DEFINITIONS:
  TotalCost    Σ(costs + interest + line fees)
  TotalInflow  Σ(net revenue + surplus interest)
  Profit       TotalInflow - TotalCost
  Margin       Profit / TotalCost x 100
  IRR          on equity flows (distributions - contributions), Newton-
               Raphson seeded at 10% monthly, annualised as r x 12 x 100
  NPV          equity flows discounted monthly at DiscountRate / 12
  LTC / LVR    PeakDebt / TotalCost, PeakDebt / GrossRevenue, in percent
*/
package feaso

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	irrSeed          = 0.1
	irrMaxIterations = 40
	irrTolerance     = 1e-7
)

// Summary holds the headline metrics of one simulation.
type Summary struct {
	Months        int
	GrossRevenue  decimal.Decimal
	NetRevenue    decimal.Decimal
	TotalCost     decimal.Decimal
	TotalInterest decimal.Decimal
	TotalInflow   decimal.Decimal
	Profit        decimal.Decimal
	Margin        decimal.Decimal // %
	IRR           decimal.Decimal // annual %
	NPV           decimal.Decimal
	PeakDebt      decimal.Decimal
	PeakDebtMonth int
	PeakEquity    decimal.Decimal
	LTC           decimal.Decimal // %
	LVR           decimal.Decimal // %
}

// Summarize reduces flows into a Summary. discountRate is annual percent.
func Summarize(flows []MonthlyFlow, discountRate decimal.Decimal) Summary {
	s := Summary{Months: len(flows)}
	equityFlows := make([]decimal.Decimal, len(flows))

	for i, f := range flows {
		charges := f.FinanceCharges()
		s.GrossRevenue = s.GrossRevenue.Add(f.GrossRevenue)
		s.NetRevenue = s.NetRevenue.Add(f.NetRevenue)
		s.TotalInterest = s.TotalInterest.Add(charges)
		s.TotalCost = s.TotalCost.Add(f.TotalCost).Add(charges)
		s.TotalInflow = s.TotalInflow.Add(f.NetRevenue).Add(f.SurplusInterest)

		if debt := f.Debt(); debt.GreaterThan(s.PeakDebt) {
			s.PeakDebt = debt
			s.PeakDebtMonth = f.Month
		}
		if f.Equity.Balance.GreaterThan(s.PeakEquity) {
			s.PeakEquity = f.Equity.Balance
		}
		equityFlows[i] = f.EquityFlow()
	}

	s.Profit = s.TotalInflow.Sub(s.TotalCost)
	s.Margin = SafeDiv(s.Profit, s.TotalCost).Mul(hundred).Round(4)
	s.LTC = SafeDiv(s.PeakDebt, s.TotalCost).Mul(hundred).Round(4)
	s.LVR = SafeDiv(s.PeakDebt, s.GrossRevenue).Mul(hundred).Round(4)
	s.IRR = IRR(equityFlows)
	s.NPV = NPV(equityFlows, discountRate)
	return s
}

// Margin is the development margin of flows in percent. It is the metric the
// solver and the sensitivity grid evaluate, so it skips the IRR.
func Margin(flows []MonthlyFlow) (margin, profit decimal.Decimal) {
	cost, inflow := decimal.Zero, decimal.Zero
	for _, f := range flows {
		cost = cost.Add(f.TotalCost).Add(f.FinanceCharges())
		inflow = inflow.Add(f.NetRevenue).Add(f.SurplusInterest)
	}
	profit = inflow.Sub(cost)
	return SafeDiv(profit, cost).Mul(hundred).Round(4), profit
}

// IRR is the annualised internal rate of return, in percent, of a monthly
// series. It returns zero when Newton-Raphson does not converge.
func IRR(flows []decimal.Decimal) decimal.Decimal {
	cf := make([]float64, len(flows))
	nonZero := false
	for i, v := range flows {
		cf[i] = v.InexactFloat64()
		nonZero = nonZero || cf[i] != 0
	}
	if !nonZero {
		return decimal.Zero
	}

	r := irrSeed
	for i := 0; i < irrMaxIterations; i++ {
		if r <= -1 {
			return decimal.Zero
		}
		npv, slope := 0.0, 0.0
		for t, v := range cf {
			disc := math.Pow(1+r, float64(t))
			npv += v / disc
			slope -= float64(t) * v / (disc * (1 + r))
		}
		if slope == 0 {
			return decimal.Zero
		}
		next := r - npv/slope
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return decimal.Zero
		}
		if math.Abs(next-r) < irrTolerance {
			return decimal.NewFromFloat(next * 12 * 100).Round(4)
		}
		r = next
	}
	return decimal.Zero
}

// NPV discounts a monthly series at annualPct / 12 per month. Month 0 is
// not discounted.
func NPV(flows []decimal.Decimal, annualPct decimal.Decimal) decimal.Decimal {
	factor := one.Add(annualPct.Div(monthlyDivisor))
	discount := one
	total := decimal.Zero
	for _, v := range flows {
		total = total.Add(v.Div(discount))
		discount = discount.Mul(factor).Round(factorPrecision)
	}
	return total.Round(2)
}
