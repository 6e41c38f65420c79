package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/feaso"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// AXES
// =============================================================================

// Axis is a perturbation applied along one dimension of the grid.
type Axis string

const (
	AxisRevenue  Axis = "revenue"  // step is a % change in sale prices and rents
	AxisCost     Axis = "cost"     // step is a % change in construction costs
	AxisDuration Axis = "duration" // step is a change in construction months
	AxisInterest Axis = "interest" // step is a change in debt rates, in points
)

// Axes lists every supported axis.
var Axes = []Axis{AxisRevenue, AxisCost, AxisDuration, AxisInterest}

// ParseAxis validates an axis name.
func ParseAxis(s string) (Axis, error) {
	for _, a := range Axes {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown sensitivity axis %q", s)
}

// escalationBump is added to a cost item's escalation rate per 10% of cost
// increase. Decreases leave escalation alone.
var escalationBump = decimal.NewFromFloat(0.5)

var ten = decimal.NewFromInt(10)

// Cell is one evaluated point of the grid.
type Cell struct {
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Margin decimal.Decimal `json:"margin"`
	Profit decimal.Decimal `json:"profit"`
}

// inputs is the pair the engine runs on. Transforms apply to both, since a
// hold scenario takes its construction costs from the linked one.
type inputs struct {
	scenario feaso.Scenario
	linked   *feaso.Scenario
}

func (in inputs) clone() inputs {
	out := inputs{scenario: in.scenario.Clone()}
	if in.linked != nil {
		l := in.linked.Clone()
		out.linked = &l
	}
	return out
}

func (in *inputs) each(fn func(s *feaso.Scenario)) {
	fn(&in.scenario)
	if in.linked != nil {
		fn(in.linked)
	}
}

// apply perturbs in (already a clone) by step along axis.
func (in *inputs) apply(axis Axis, step float64) {
	v := decimal.NewFromFloat(step)
	factor := decimal.NewFromInt(1).Add(feaso.Pct(v))

	switch axis {
	case AxisRevenue:
		in.each(func(s *feaso.Scenario) {
			for i := range s.Revenues {
				s.Revenues[i].PricePerUnit = s.Revenues[i].PricePerUnit.Mul(factor)
				s.Revenues[i].WeeklyRent = s.Revenues[i].WeeklyRent.Mul(factor)
			}
		})

	case AxisCost:
		in.each(func(s *feaso.Scenario) {
			for i := range s.Costs {
				c := &s.Costs[i]
				if c.Category != feaso.CategoryConstruction {
					continue
				}
				c.Amount = c.Amount.Mul(factor)
				if v.IsPositive() {
					c.EscalationRate = c.EscalationRate.Add(v.Div(ten).Mul(escalationBump))
				}
			}
		})

	case AxisDuration:
		delta := int(step)
		in.each(func(s *feaso.Scenario) {
			set := &s.Settings
			set.ConstructionMonths = max(0, set.ConstructionMonths+delta)
			if set.DurationMonths > 0 {
				set.DurationMonths = max(0, set.DurationMonths+delta)
			}
			for i := range s.Costs {
				if c := &s.Costs[i]; c.Category == feaso.CategoryConstruction && c.Span > 0 {
					c.Span = max(1, c.Span+delta)
				}
			}
		})

	case AxisInterest:
		in.each(func(s *feaso.Scenario) {
			stack := &s.Settings.Capital
			for _, t := range []*feaso.CapitalTier{&stack.Senior, &stack.Mezzanine} {
				t.Rate = t.Rate.Add(v)
				t.RateSchedule = t.RateSchedule.Shift(v)
			}
			s.Settings.Hold.InvestmentRate = s.Settings.Hold.InvestmentRate.Add(v)
		})
	}
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator evaluates sensitivity grids.
type Generator struct {
	workers int
	cache   Cache
}

// NewGenerator creates a generator running at most workers simulations at a
// time (GOMAXPROCS when workers <= 0). cache may be nil.
func NewGenerator(workers int, cache Cache) *Generator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Generator{workers: workers, cache: cache}
}

// Generate evaluates every (x, y) pair of the step lists. Row i of the result
// is stepsY[i]; column j is stepsX[j]. Cancelling ctx abandons the grid.
func (g *Generator) Generate(ctx context.Context, scenario feaso.Scenario, site feaso.Site, linked *feaso.Scenario,
	xAxis, yAxis Axis, stepsX, stepsY []float64) ([][]Cell, error) {

	key, err := Key(scenario, site, linked, xAxis, yAxis, stepsX, stepsY)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		if grid, ok := g.cache.Get(key); ok {
			slog.Debug("sensitivity cache hit", "key", key[:12])
			return grid, nil
		}
	}

	base := inputs{scenario: scenario, linked: linked}
	grid := make([][]Cell, len(stepsY))
	for i := range grid {
		grid[i] = make([]Cell, len(stepsX))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, y := range stepsY {
		for j, x := range stepsX {
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				in := base.clone()
				in.apply(xAxis, x)
				in.apply(yAxis, y)
				margin, profit := feaso.Margin(feaso.Simulate(in.scenario, site, in.linked))
				grid[i][j] = Cell{X: x, Y: y, Margin: margin, Profit: profit}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("sensitivity grid evaluated",
		"x_axis", xAxis, "y_axis", yAxis,
		"cells", len(stepsX)*len(stepsY))
	if g.cache != nil {
		g.cache.Set(key, grid)
	}
	return grid, nil
}
