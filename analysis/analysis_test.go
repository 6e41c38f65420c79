package analysis_test

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/feasibility-engine/analysis"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/feaso/feasotest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func marginAt(price float64) decimal.Decimal {
	s := feasotest.SellScenario()
	s.Settings.Acquisition.PurchasePrice = decimal.NewFromFloat(price)
	margin, _ := feaso.Margin(feaso.Simulate(s, feasotest.Site(), nil))
	return margin
}

// countingCache records hits and misses around a MemoryCache.
type countingCache struct {
	mu     sync.Mutex
	inner  *analysis.MemoryCache
	hits   int
	misses int
}

func (c *countingCache) Get(key string) ([][]analysis.Cell, bool) {
	grid, ok := c.inner.Get(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return grid, ok
}

func (c *countingCache) Set(key string, grid [][]analysis.Cell) { c.inner.Set(key, grid) }

// =============================================================================
// SOLVER TESTS
// =============================================================================

func TestMargin_DecreasesWithLandPrice(t *testing.T) {
	// GIVEN: The sell fixture at a random sample of land prices
	// WHEN: Simulating each price
	// THEN: A higher price always gives a strictly lower margin

	rng := rand.New(rand.NewSource(42))
	prices := make([]float64, 12)
	for i := range prices {
		prices[i] = float64(rng.Intn(6_000_000) + 100_000)
	}
	sort.Float64s(prices)

	prev := marginAt(prices[0])
	for _, p := range prices[1:] {
		m := marginAt(p)
		assert.True(t, m.LessThan(prev), "margin at %.0f (%s) should be below %s", p, m, prev)
		prev = m
	}
}

func TestIRR_DecreasesWithLandPriceWhereItConverges(t *testing.T) {
	// GIVEN: The sell fixture across a range of land prices
	// WHEN: Summarising each simulation
	// THEN: Every converged IRR is strictly below the one at a lower price;
	// a non-converged IRR is reported as zero and skipped

	prices := []float64{250_000, 500_000, 750_000, 1_000_000, 1_500_000, 2_000_000, 3_000_000, 4_000_000}
	var converged []decimal.Decimal
	for _, p := range prices {
		s := feasotest.SellScenario()
		s.Settings.Acquisition.PurchasePrice = decimal.NewFromFloat(p)
		irr := feaso.Summarize(feaso.Simulate(s, feasotest.Site(), nil), s.Settings.DiscountRate).IRR
		if irr.IsZero() {
			continue
		}
		if n := len(converged); n > 0 {
			assert.True(t, irr.LessThan(converged[n-1]), "IRR at %.0f (%s) should be below %s", p, irr, converged[n-1])
		}
		converged = append(converged, irr)
	}
	assert.GreaterOrEqual(t, len(converged), 2, "IRR should converge at the cheaper prices")
}

func TestSolveLandValue_MarginRoundTrip(t *testing.T) {
	// GIVEN: A 15% margin target
	// WHEN: Solving for land value and re-simulating at that price
	// THEN: The achieved margin is within tolerance of the target

	s := feasotest.SellScenario()
	target := decimal.NewFromInt(15)

	sol, err := analysis.SolveLandValue(context.Background(), target, analysis.TargetMargin, s, feasotest.Site(), nil)
	require.NoError(t, err)

	assert.True(t, sol.Converged)
	assert.LessOrEqual(t, sol.Iterations, 40)
	assert.True(t, sol.LandValue.Equal(sol.LandValue.Floor()), "land value is floored")
	assert.True(t, sol.StampDuty.IsPositive())

	s.Settings.Acquisition.PurchasePrice = sol.LandValue
	margin, _ := feaso.Margin(feaso.Simulate(s, feasotest.Site(), nil))
	assert.True(t, margin.Equal(sol.AchievedMetric), "achieved %s, re-simulated %s", sol.AchievedMetric, margin)
	assert.InDelta(t, 15, margin.InexactFloat64(), 0.06)
}

func TestSolveLandValue_DoesNotMutateInput(t *testing.T) {
	s := feasotest.SellScenario()
	before := s.Clone()

	_, err := analysis.SolveLandValue(context.Background(), decimal.NewFromInt(20), analysis.TargetMargin, s, feasotest.Site(), nil)
	require.NoError(t, err)

	assert.Equal(t, before, s)
}

func TestSolveLandValue_UnreachableTarget_NotConverged(t *testing.T) {
	// GIVEN: A margin no land price can reach
	// WHEN: Solving
	// THEN: No error, the search runs out of iterations near zero price

	sol, err := analysis.SolveLandValue(context.Background(), decimal.NewFromInt(5000), analysis.TargetMargin,
		feasotest.SellScenario(), feasotest.Site(), nil)
	require.NoError(t, err)

	assert.False(t, sol.Converged)
	assert.Equal(t, 40, sol.Iterations)
	assert.True(t, sol.LandValue.IsZero())
}

func TestSolveLandValue_LinkedScenario_SubstitutesLinkedPrice(t *testing.T) {
	sell := feasotest.SellScenario()
	hold := feasotest.HoldScenario()

	sol, err := analysis.SolveLandValue(context.Background(), decimal.NewFromInt(8), analysis.TargetIRR,
		hold, feasotest.Site(), &sell)
	require.NoError(t, err)

	assert.True(t, sell.Settings.Acquisition.PurchasePrice.Equal(decimal.NewFromInt(2_000_000)), "linked input untouched")
	assert.True(t, sol.Iterations > 0)
}

func TestSolveLandValue_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analysis.SolveLandValue(ctx, decimal.NewFromInt(15), analysis.TargetMargin,
		feasotest.SellScenario(), feasotest.Site(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// SENSITIVITY TESTS
// =============================================================================

func TestGenerate_GridShapeAndBaseCell(t *testing.T) {
	// GIVEN: 3 revenue steps across, 2 cost steps down
	// WHEN: Generating the grid
	// THEN: 2 rows of 3 cells, and the (0, 0) cell matches a plain simulation

	s := feasotest.SellScenario()
	gen := analysis.NewGenerator(4, nil)

	grid, err := gen.Generate(context.Background(), s, feasotest.Site(), nil,
		analysis.AxisRevenue, analysis.AxisCost, []float64{-10, 0, 10}, []float64{0, 10})
	require.NoError(t, err)

	require.Len(t, grid, 2)
	for _, row := range grid {
		require.Len(t, row, 3)
	}
	assert.Equal(t, 10.0, grid[1][0].Y)
	assert.Equal(t, -10.0, grid[1][0].X)

	base, _ := feaso.Margin(feaso.Simulate(s, feasotest.Site(), nil))
	assert.True(t, grid[0][1].Margin.Equal(base))

	// revenue up, margin up; cost up, margin down
	assert.True(t, grid[0][2].Margin.GreaterThan(grid[0][1].Margin))
	assert.True(t, grid[0][0].Margin.LessThan(grid[0][1].Margin))
	assert.True(t, grid[1][1].Margin.LessThan(grid[0][1].Margin))
}

func TestGenerate_DurationAndInterestAxes(t *testing.T) {
	gen := analysis.NewGenerator(0, nil)
	grid, err := gen.Generate(context.Background(), feasotest.SellScenario(), feasotest.Site(), nil,
		analysis.AxisInterest, analysis.AxisDuration, []float64{0, 2}, []float64{0, 6})
	require.NoError(t, err)

	// dearer money and a longer build both cost profit
	assert.True(t, grid[0][1].Profit.LessThan(grid[0][0].Profit))
	assert.True(t, grid[1][0].Profit.LessThan(grid[0][0].Profit))
}

func TestGenerate_DoesNotMutateInput(t *testing.T) {
	sell := feasotest.SellScenario()
	hold := feasotest.HoldScenario()
	beforeSell, beforeHold := sell.Clone(), hold.Clone()

	_, err := analysis.NewGenerator(2, nil).Generate(context.Background(), hold, feasotest.Site(), &sell,
		analysis.AxisCost, analysis.AxisInterest, []float64{-5, 5}, []float64{1})
	require.NoError(t, err)

	assert.Equal(t, beforeSell, sell)
	assert.Equal(t, beforeHold, hold)
}

func TestGenerate_CacheMissThenHit(t *testing.T) {
	// GIVEN: A generator with an injected cache
	// WHEN: Generating the same grid twice, then a different one
	// THEN: miss, hit, miss

	cache := &countingCache{inner: analysis.NewMemoryCache(time.Minute)}
	gen := analysis.NewGenerator(2, cache)
	s := feasotest.SellScenario()
	steps := []float64{-5, 0, 5}

	first, err := gen.Generate(context.Background(), s, feasotest.Site(), nil, analysis.AxisRevenue, analysis.AxisCost, steps, steps)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)
	assert.Equal(t, 1, cache.misses)

	second, err := gen.Generate(context.Background(), s, feasotest.Site(), nil, analysis.AxisRevenue, analysis.AxisCost, steps, steps)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)

	_, err = gen.Generate(context.Background(), s, feasotest.Site(), nil, analysis.AxisRevenue, analysis.AxisCost, steps, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.misses)
	assert.Equal(t, 2, cache.inner.Len())
}

func TestKey_ContentDerived(t *testing.T) {
	a := feasotest.SellScenario()
	b := feasotest.SellScenario()
	steps := []float64{0, 10}

	ka, err := analysis.Key(a, feasotest.Site(), nil, analysis.AxisRevenue, analysis.AxisCost, steps, steps)
	require.NoError(t, err)
	kb, err := analysis.Key(b, feasotest.Site(), nil, analysis.AxisRevenue, analysis.AxisCost, steps, steps)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)

	b.Revenues[0].Units = 13
	kc, err := analysis.Key(b, feasotest.Site(), nil, analysis.AxisRevenue, analysis.AxisCost, steps, steps)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kc)

	kd, err := analysis.Key(a, feasotest.Site(), nil, analysis.AxisCost, analysis.AxisRevenue, steps, steps)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kd)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analysis.NewGenerator(1, nil).Generate(ctx, feasotest.SellScenario(), feasotest.Site(), nil,
		analysis.AxisRevenue, analysis.AxisCost, []float64{0, 1}, []float64{0, 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAxis(t *testing.T) {
	for _, a := range analysis.Axes {
		got, err := analysis.ParseAxis(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := analysis.ParseAxis("weather")
	assert.Error(t, err)
}
