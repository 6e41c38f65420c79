/*
Package analysis runs the simulation engine repeatedly: the residual land
value solver and the sensitivity matrix.

PURPOSE:
  Both operations treat feaso.Simulate as a pure function of its inputs.
  They clone the inputs, perturb the clone and re-run. Nothing here mutates a
  caller's scenario, and both honour context cancellation between runs.

SOLVER:
  Margin and IRR fall as the land price rises, so a binary search on
  [0, SolverCap] finds the price that achieves a target. Stamp duty and the
  buyer's agent fee are re-derived by the engine for every candidate.

    lo, hi = 0, cap
    repeat up to 40 times:
      mid = (lo + hi) / 2
      achieved = metric(simulate(price = mid))
      |achieved - target| < 0.05  -> done
      achieved > target           -> lo = mid (can pay more)
      otherwise                   -> hi = mid

  Running out of iterations is not an error. Callers read Converged.

SEE ALSO:
  - sensitivity.go: The grid generator
  - feaso/engine.go: Simulate
*/
package analysis

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/statutory"
)

// SolverCap is the upper bound of the land price search.
var SolverCap = decimal.NewFromInt(200_000_000)

const (
	solverMaxIterations = 40
)

// solverTolerance is the absolute tolerance on the metric, in percentage points.
var solverTolerance = decimal.NewFromFloat(0.05)

var two = decimal.NewFromInt(2)

// TargetType selects the metric the solver inverts.
type TargetType string

const (
	TargetMargin TargetType = "margin"
	TargetIRR    TargetType = "irr"
)

// Solution is the outcome of a land value search.
type Solution struct {
	LandValue      decimal.Decimal // floored to whole currency units
	StampDuty      decimal.Decimal
	AchievedMetric decimal.Decimal // at LandValue
	Iterations     int
	Converged      bool
}

// SolveLandValue finds the land price at which the scenario achieves target.
// The only error is ctx's.
func SolveLandValue(ctx context.Context, target decimal.Decimal, targetType TargetType, scenario feaso.Scenario, site feaso.Site, linked *feaso.Scenario) (Solution, error) {
	eval := func(price decimal.Decimal) decimal.Decimal {
		s, l := withLandPrice(scenario, linked, price)
		flows := feaso.Simulate(s, site, l)
		if targetType == TargetIRR {
			return feaso.Summarize(flows, s.Settings.DiscountRate).IRR
		}
		margin, _ := feaso.Margin(flows)
		return margin
	}

	var (
		lo, hi = decimal.Zero, SolverCap
		mid    decimal.Decimal
		sol    Solution
	)
	for sol.Iterations < solverMaxIterations {
		if err := ctx.Err(); err != nil {
			return Solution{}, err
		}
		sol.Iterations++
		mid = lo.Add(hi).Div(two)
		achieved := eval(mid)
		slog.Debug("solver iteration",
			"iteration", sol.Iterations,
			"price", mid.StringFixed(2),
			"achieved", achieved.String(),
			"target", target.String())

		if achieved.Sub(target).Abs().LessThan(solverTolerance) {
			sol.Converged = true
			break
		}
		if achieved.GreaterThan(target) {
			lo = mid
		} else {
			hi = mid
		}
	}

	sol.LandValue = mid.Floor()
	sol.AchievedMetric = eval(sol.LandValue)
	acq := acquisitionOf(scenario, linked)
	sol.StampDuty = statutory.StampDuty(sol.LandValue, acq.Jurisdiction, acq.ForeignBuyer)
	return sol, nil
}

// withLandPrice returns copies of the inputs with price substituted where the
// engine will read it: the linked scenario owns the acquisition when present.
func withLandPrice(s feaso.Scenario, linked *feaso.Scenario, price decimal.Decimal) (feaso.Scenario, *feaso.Scenario) {
	if linked != nil {
		l := linked.Clone()
		l.Settings.Acquisition.PurchasePrice = price
		return s, &l
	}
	c := s.Clone()
	c.Settings.Acquisition.PurchasePrice = price
	return c, nil
}

func acquisitionOf(s feaso.Scenario, linked *feaso.Scenario) feaso.Acquisition {
	if linked != nil {
		return linked.Settings.Acquisition
	}
	return s.Settings.Acquisition
}
