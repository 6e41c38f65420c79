/*
distribution.go - Phasing a total across months

PURPOSE:
  A cost or revenue line is budgeted as one total. The distribution engine
  answers "how much of that total lands in month i of its span?" for the
  supported shapes.

SHAPES:
  linear      total/span every month
  upfront     everything in month 0
  end         everything in the last month of the span
  s_curve     logistic cumulative, slow-fast-slow
  bell_curve  normal CDF mapped onto [-3σ, +3σ]
  milestone   explicit month -> percent table

CUMULATIVE TECHNIQUE:
  Curved shapes are expressed as a cumulative share C(t) with C(0) = 0 and
  C(span) = 1 exactly. The amount for month i is total x (C(i+1) - C(i)).
  Because C is evaluated the same way for every month, the decimal
  differences telescope and the span sums to the total with no drift.

ESCALATION:
  Applied after phasing. The annual rate is converted to its compound
  monthly equivalent, (1+a)^(1/12) - 1, not a/12.
*/
package feaso

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHAPES
// =============================================================================

type Shape string

const (
	ShapeLinear    Shape = "linear"
	ShapeUpfront   Shape = "upfront"
	ShapeEnd       Shape = "end"
	ShapeSCurve    Shape = "s_curve"
	ShapeBellCurve Shape = "bell_curve"
	ShapeMilestone Shape = "milestone"
)

// DefaultSteepness is the logistic steepness used when none is set.
const DefaultSteepness = 10.0

// Milestone assigns Percent of the total to Month (index within the span).
type Milestone struct {
	Month   int
	Percent decimal.Decimal
}

type ShapeParams struct {
	Steepness  float64
	Milestones []Milestone
}

// cumulativePrecision bounds the decimal digits of a cumulative share.
const cumulativePrecision = 14

// =============================================================================
// DISTRIBUTE
// =============================================================================

// Distribute returns the part of total attributable to month index of a span.
// A non-positive span or an index outside [0, span) yields zero.
func Distribute(total decimal.Decimal, index int, shape Shape, span int, params ShapeParams) decimal.Decimal {
	if span <= 0 || index < 0 || index >= span {
		return decimal.Zero
	}

	switch shape {
	case ShapeUpfront:
		if index == 0 {
			return total
		}
		return decimal.Zero

	case ShapeEnd:
		if index == span-1 {
			return total
		}
		return decimal.Zero

	case ShapeMilestone:
		share := decimal.Zero
		for _, m := range params.Milestones {
			if m.Month == index {
				share = share.Add(m.Percent)
			}
		}
		return total.Mul(Pct(share))

	case ShapeSCurve:
		k := params.Steepness
		if k <= 0 {
			k = DefaultSteepness
		}
		return total.Mul(sCurveShare(index+1, span, k).Sub(sCurveShare(index, span, k)))

	case ShapeBellCurve:
		return total.Mul(bellShare(index+1, span).Sub(bellShare(index, span)))

	default: // linear
		return total.Div(decimal.NewFromInt(int64(span)))
	}
}

// sCurveShare is the normalized logistic cumulative share at t of span.
func sCurveShare(t, span int, k float64) decimal.Decimal {
	if t <= 0 {
		return decimal.Zero
	}
	if t >= span {
		return one
	}
	f := func(x float64) float64 { return 1 / (1 + math.Exp(-k*(x-0.5))) }
	lo, hi := f(0), f(1)
	v := (f(float64(t)/float64(span)) - lo) / (hi - lo)
	return decimal.NewFromFloat(v).Round(cumulativePrecision)
}

// bellShare is the normalized normal CDF share at t of span over [-3, 3].
func bellShare(t, span int) decimal.Decimal {
	if t <= 0 {
		return decimal.Zero
	}
	if t >= span {
		return one
	}
	phi := func(z float64) float64 { return 0.5 * (1 + math.Erf(z/math.Sqrt2)) }
	lo, hi := phi(-3), phi(3)
	z := -3 + 6*float64(t)/float64(span)
	v := (phi(z) - lo) / (hi - lo)
	return decimal.NewFromFloat(v).Round(cumulativePrecision)
}

// =============================================================================
// ESCALATION
// =============================================================================

// MonthlyRate converts an annual percent rate to its compound monthly
// equivalent as a fraction.
func MonthlyRate(annualPct decimal.Decimal) decimal.Decimal {
	if annualPct.IsZero() {
		return decimal.Zero
	}
	// Below -100% the value is wiped out; clamp so Pow stays real.
	a := max(Pct(annualPct).InexactFloat64(), -1)
	return decimal.NewFromFloat(math.Pow(1+a, 1.0/12) - 1).Round(cumulativePrecision)
}

// Escalate applies annual escalation to amount for month index.
func Escalate(amount, annualPct decimal.Decimal, index int) decimal.Decimal {
	if annualPct.IsZero() || index <= 0 {
		return amount
	}
	return amount.Mul(powRounded(one.Add(MonthlyRate(annualPct)), index))
}

// powRounded raises base to a non-negative integer power by squaring,
// rounding each product so long spans don't grow the mantissa unbounded.
func powRounded(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(factorPrecision)
		}
		base = base.Mul(base).Round(factorPrecision)
		n >>= 1
	}
	return result
}

const factorPrecision = 18
