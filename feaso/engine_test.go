package feaso_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/feaso/feasotest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// landOnly buys a 1,000,000 Victorian site (duty 51,570) with a 10% deposit
// and settlement in month 1. There is no debt, cost or revenue.
func landOnly() feaso.Scenario {
	return feaso.Scenario{
		ID:     "land-only",
		SiteID: "riverside",
		Settings: feaso.Settings{
			Strategy:       feaso.StrategySell,
			DurationMonths: 3,
			Acquisition: feaso.Acquisition{
				PurchasePrice:   dec(1_000_000),
				DepositPct:      dec(10),
				SettlementMonth: 1,
				Jurisdiction:    "VIC",
			},
		},
	}
}

// oneCost spends 100,000 plus GST in month 1 and nothing else.
func oneCost() feaso.Scenario {
	s := feasotest.EmptyScenario()
	s.Settings.DurationMonths = 4
	s.Costs = []feaso.CostItem{{
		ID: "works", Category: feaso.CategoryConstruction, InputType: feaso.InputFixed,
		Amount: dec(100_000), StartMonth: 1, Span: 1, Shape: feaso.ShapeLinear, GST: feaso.GSTTaxable,
	}}
	return s
}

func seniorFacility(limit float64) feaso.CapitalTier {
	return feaso.CapitalTier{
		Name:      feaso.TierSenior,
		Rate:      dec(12),
		LimitType: feaso.LimitFixed,
		Limit:     dec(limit),
	}
}

func assertDec(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %v, got %s", want, got}, msgAndArgs...)...)
}

// =============================================================================
// BASIC SIMULATION TESTS
// =============================================================================

func TestSimulate_EmptyScenario_AllZero(t *testing.T) {
	// GIVEN: A scenario with no price, costs or revenue
	// WHEN: Simulating and summarizing
	// THEN: One flow per month to the horizon inclusive, every metric zero

	flows := feaso.Simulate(feasotest.EmptyScenario(), feasotest.Site(), nil)
	require.Len(t, flows, 13)

	sum := feaso.Summarize(flows, dec(10))
	assert.True(t, sum.Margin.IsZero())
	assert.True(t, sum.Profit.IsZero())
	assert.True(t, sum.IRR.IsZero())
	assert.True(t, sum.NPV.IsZero())
	assert.True(t, sum.LTC.IsZero())
	assert.True(t, sum.LVR.IsZero())
}

func TestSimulate_HorizonFromLastActivity(t *testing.T) {
	// sell fixture: rates and land tax run months 2..25
	flows := feaso.Simulate(feasotest.SellScenario(), feasotest.Site(), nil)
	require.Len(t, flows, 26)
	assert.Equal(t, 25, flows[len(flows)-1].Month)
}

func TestSimulate_IsDeterministicAndPure(t *testing.T) {
	s := feasotest.SellScenario()
	before := s.Clone()

	a := feaso.Simulate(s, feasotest.Site(), nil)
	b := feaso.Simulate(s, feasotest.Site(), nil)

	assert.Equal(t, a, b)
	assert.Equal(t, before, s)
}

func TestSimulate_Phases(t *testing.T) {
	flows := feaso.Simulate(feasotest.SellScenario(), feasotest.Site(), nil)
	assert.Equal(t, feaso.PhaseAcquisition, flows[0].Phase)
	assert.Equal(t, feaso.PhaseConstruction, flows[2].Phase)
	assert.Equal(t, feaso.PhaseConstruction, flows[18].Phase)
	assert.Equal(t, feaso.PhaseSelling, flows[19].Phase)
}

// =============================================================================
// GST TESTS
// =============================================================================

func TestSimulate_ITCClaimedNextMonth(t *testing.T) {
	// GIVEN: 100,000 of taxable cost in month 1
	// WHEN: Simulating
	// THEN: 10,000 GST paid in month 1, claimed back in month 2

	flows := feaso.Simulate(oneCost(), feasotest.Site(), nil)

	assertDec(t, 100_000, flows[1].TotalCost)
	assertDec(t, 10_000, flows[1].GSTPaid)
	assert.True(t, flows[1].ITCClaimed.IsZero())
	assertDec(t, 10_000, flows[2].ITCClaimed)
	assert.True(t, flows[2].GSTPaid.IsZero())
}

func TestSimulate_SaleGST_MarginScheme(t *testing.T) {
	// GIVEN: The sell fixture with and without the margin scheme
	// WHEN: Simulating
	// THEN: The margin scheme taxes only the margin over land, so less GST

	full := feaso.Simulate(feasotest.SellScenario(), feasotest.Site(), nil)

	ms := feasotest.SellScenario()
	ms.Settings.Acquisition.MarginScheme = true
	margin := feaso.Simulate(ms, feasotest.Site(), nil)

	sumGST := func(flows []feaso.MonthlyFlow) decimal.Decimal {
		total := decimal.Zero
		for _, f := range flows {
			total = total.Add(f.GSTOnSales)
		}
		return total
	}
	// 13.2m sales at 1/11
	assert.InDelta(t, 1_200_000, sumGST(full).InexactFloat64(), 0.01)
	// (13.2m - 2m) at 1/11
	assert.InDelta(t, 1_018_181.82, sumGST(margin).InexactFloat64(), 0.01)
}

// =============================================================================
// WATERFALL TESTS
// =============================================================================

func TestWaterfall_EquityOnlyWithoutDebt(t *testing.T) {
	// GIVEN: No senior or mezzanine facility
	// WHEN: Buying land and spending
	// THEN: Every deficit is met by equity, and the settlement obligation too

	flows := feaso.Simulate(landOnly(), feasotest.Site(), nil)

	assertDec(t, 100_000, flows[0].Equity.Draw)
	assertDec(t, 951_570, flows[1].Equity.Draw)
	for _, f := range flows {
		assert.True(t, f.Senior.Draw.IsZero())
		assert.True(t, f.Mezzanine.Draw.IsZero())
	}
	assertDec(t, 1_051_570, flows[3].Equity.Balance)
}

func TestWaterfall_SettlementForcesSeniorBeyondLimit(t *testing.T) {
	// GIVEN: A senior facility with a 100 limit
	// WHEN: Settlement needs 951,570
	// THEN: Senior funds all of it regardless of the limit; equity funds nothing

	s := landOnly()
	s.Settings.Capital.Senior = seniorFacility(100)
	s.Settings.Capital.Senior.Rate = decimal.Zero

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, 951_570, flows[1].Senior.Draw)
	assert.True(t, flows[1].Equity.Draw.IsZero())
	assertDec(t, 951_570, flows[1].Senior.Balance)
	assertDec(t, 100_000, flows[0].Equity.Draw, "deposit always comes from equity")
}

func TestWaterfall_CapitalisedInterest(t *testing.T) {
	// GIVEN: 951,570 of senior debt at 12%
	// WHEN: Interest is capitalised
	// THEN: The balance grows by 1% a month with no draw and no cash need

	s := landOnly()
	s.Settings.Capital.Senior = seniorFacility(2_000_000)
	s.Settings.Capital.Senior.CapitaliseInterest = true

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, 9_515.70, flows[2].Senior.Interest)
	assert.True(t, flows[2].Senior.Draw.IsZero())
	assert.True(t, flows[2].NetCashflow.IsZero())
	assertDec(t, 961_085.70, flows[2].Senior.Balance)
}

func TestWaterfall_PaidInterestDrawsFacility(t *testing.T) {
	// GIVEN: The same debt with interest paid, not capitalised
	// WHEN: Interest falls due
	// THEN: It is a cash need met by drawing the senior headroom

	s := landOnly()
	s.Settings.Capital.Senior = seniorFacility(2_000_000)

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, -9_515.70, flows[2].NetCashflow)
	assertDec(t, 9_515.70, flows[2].Senior.Draw)
	assertDec(t, 961_085.70, flows[2].Senior.Balance)
}

func TestWaterfall_RateScheduleApplies(t *testing.T) {
	s := landOnly()
	s.Settings.Capital.Senior = seniorFacility(2_000_000)
	s.Settings.Capital.Senior.CapitaliseInterest = true
	s.Settings.Capital.Senior.RateSchedule = feaso.NewRateSchedule(feaso.RateStep{FromMonth: 3, Rate: dec(24)})

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, 9_515.70, flows[2].Senior.Interest)
	assertDec(t, 19_221.714, flows[3].Senior.Interest)
}

func TestWaterfall_MezzanineBeforeSenior(t *testing.T) {
	// GIVEN: Both facilities open, a 100,000 cost after settlement
	// WHEN: Funding the deficit
	// THEN: Mezzanine is drawn first, then senior for the rest

	s := landOnly()
	s.Settings.Capital.Senior = seniorFacility(5_000_000)
	s.Settings.Capital.Senior.Rate = decimal.Zero
	s.Settings.Capital.Mezzanine = feaso.CapitalTier{Name: feaso.TierMezzanine, LimitType: feaso.LimitFixed, Limit: dec(60_000)}
	s.Costs = []feaso.CostItem{{
		ID: "demolition", Category: feaso.CategoryConstruction, Amount: dec(100_000),
		StartMonth: 2, Span: 1, Shape: feaso.ShapeLinear, GST: feaso.GSTFree,
	}}

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, 60_000, flows[2].Mezzanine.Draw)
	assertDec(t, 40_000, flows[2].Senior.Draw)
	assert.True(t, flows[2].Equity.Draw.IsZero())
}

func TestWaterfall_RepaysSeniorFirstAndDistributesAtTerminal(t *testing.T) {
	// GIVEN: The profitable sell fixture
	// WHEN: Sales settle
	// THEN: Mezzanine is only repaid once senior is clear, nothing reaches
	//       equity before the terminal month, and all debt is repaid

	flows := feaso.Simulate(feasotest.SellScenario(), feasotest.Site(), nil)
	last := flows[len(flows)-1]

	for _, f := range flows {
		if f.Mezzanine.Repayment.IsPositive() {
			assert.True(t, f.Senior.Balance.IsZero(), "month %d repaid mezzanine with senior outstanding", f.Month)
		}
		if f.Month < last.Month {
			assert.True(t, f.Equity.Repayment.IsZero(), "month %d distributed early", f.Month)
		}
	}
	assert.True(t, last.Senior.Balance.IsZero())
	assert.True(t, last.Mezzanine.Balance.IsZero())
	assert.True(t, last.Equity.Repayment.IsPositive())
	assert.True(t, last.CashBalance.IsZero())
}

func TestWaterfall_SurplusCashEarnsInterest(t *testing.T) {
	s := oneCost()
	s.Settings.SurplusInterestRate = dec(12)

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, 10_000, flows[2].CashBalance)
	assertDec(t, 100, flows[3].SurplusInterest)
	assertDec(t, 10_201, flows[4].Equity.Repayment)
}

// =============================================================================
// COST RESOLUTION TESTS
// =============================================================================

func TestSimulate_CircularConstructionResolvesToZero(t *testing.T) {
	s := oneCost()
	s.Costs = append(s.Costs, feaso.CostItem{
		ID: "loop", Category: feaso.CategoryConstruction, InputType: feaso.InputPctConstruction,
		Amount: dec(10), StartMonth: 1, Span: 1, GST: feaso.GSTFree,
	})

	flows := feaso.Simulate(s, feasotest.Site(), nil)
	assertDec(t, 100_000, flows[1].TotalCost)
}

func TestSimulate_CatalogueStampDutyReplacesAcquisitionDuty(t *testing.T) {
	s := landOnly()
	s.Costs = []feaso.CostItem{{
		ID: "duty", Category: feaso.CategoryStatutory, StartMonth: 2, Span: 1,
		GST: feaso.GSTFree, Automation: feaso.AutomationStampDuty,
	}}

	flows := feaso.Simulate(s, feasotest.Site(), nil)

	assertDec(t, 900_000, flows[1].TotalCost, "no duty at settlement")
	assertDec(t, 51_570, flows[2].Costs.Get(feaso.CategoryStatutory))
}

func TestSimulate_UnknownJurisdictionChargesNoDuty(t *testing.T) {
	s := landOnly()
	s.Settings.Acquisition.Jurisdiction = "ZZ"

	flows := feaso.Simulate(s, feasotest.Site(), nil)
	assertDec(t, 900_000, flows[1].TotalCost)
}

// =============================================================================
// GOLDEN THREAD & HOLD TESTS
// =============================================================================

func TestMerge_InheritsLinkedWithoutMutation(t *testing.T) {
	sell := feasotest.SellScenario()
	hold := feasotest.HoldScenario()
	sellBefore, holdBefore := sell.Clone(), hold.Clone()

	merged := feaso.Merge(hold, &sell)

	require.Len(t, merged.Costs, len(sell.Costs)+len(hold.Costs))
	assert.Equal(t, "build", merged.Costs[0].ID)
	assert.Equal(t, "fitout", merged.Costs[len(merged.Costs)-1].ID)
	assert.Equal(t, sell.Settings.Acquisition, merged.Settings.Acquisition)
	assert.Equal(t, sell.Settings.ConstructionMonths, merged.Settings.ConstructionMonths)
	assert.Equal(t, feaso.StrategyHold, merged.Settings.Strategy)

	merged.Costs[0].Amount = dec(1)
	assert.Equal(t, sellBefore, sell)
	assert.Equal(t, holdBefore, hold)
}

func TestSimulate_HoldRefinanceAndExit(t *testing.T) {
	// GIVEN: The build-to-rent fixture linked to the sell fixture
	// WHEN: Simulating
	// THEN: Refinance at month 20 at 60% of capitalised net rent, rent from
	//       completion, exit sale at the horizon

	sell := feasotest.SellScenario()
	flows := feaso.Simulate(feasotest.HoldScenario(), feasotest.Site(), &sell)
	require.Len(t, flows, 18+5*12+1)

	// 850 x 12 units x 52 weeks x (1 - 20% opex - 7% management) / 4.5% x 60%
	assert.InDelta(t, 5_162_560, flows[20].RefinanceInflow.InexactFloat64(), 0.01)
	assert.InDelta(t, 5_162_560, flows[20].Investment.Balance.InexactFloat64(), 0.01)
	for _, f := range flows {
		if f.Month != 20 {
			assert.True(t, f.RefinanceInflow.IsZero(), "month %d", f.Month)
		}
	}

	assert.True(t, flows[18].NetRent.IsZero(), "no rent before completion")
	assert.True(t, flows[19].NetRent.IsPositive())
	assert.True(t, flows[19].NetRent.LessThan(flows[30].NetRent), "leasing up")
	assert.Equal(t, feaso.PhaseHold, flows[19].Phase)
	assert.True(t, flows[30].Depreciation.IsPositive())

	// 387,192 net rent at a 5% terminal cap rate
	last := flows[len(flows)-1]
	assert.InDelta(t, 7_743_840, last.GrossRevenue.InexactFloat64(), 0.01)
	assert.True(t, last.Investment.Repayment.IsPositive())
}

func TestSimulate_HoldAssetValueGrows(t *testing.T) {
	sell := feasotest.SellScenario()
	flows := feaso.Simulate(feasotest.HoldScenario(), feasotest.Site(), &sell)

	assert.True(t, flows[18].AssetValue.IsPositive())
	assert.True(t, flows[40].AssetValue.GreaterThan(flows[19].AssetValue))
}

// =============================================================================
// METRICS TESTS
// =============================================================================

func TestIRR(t *testing.T) {
	tests := []struct {
		name  string
		flows []float64
		want  float64
	}{
		{"10% a month", []float64{-100, 110}, 120},
		{"all zero", []float64{0, 0, 0}, 0},
		{"no sign change", []float64{-100, -100}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make([]decimal.Decimal, len(tt.flows))
			for i, v := range tt.flows {
				series[i] = dec(v)
			}
			assert.InDelta(t, tt.want, feaso.IRR(series).InexactFloat64(), 1e-4)
		})
	}
}

func TestNPV(t *testing.T) {
	got := feaso.NPV([]decimal.Decimal{dec(-100), dec(110)}, dec(12))
	assertDec(t, 8.91, got)
	assertDec(t, 10, feaso.NPV([]decimal.Decimal{dec(-100), dec(110)}, decimal.Zero))
}

func TestSummarize_SellFixture(t *testing.T) {
	flows := feaso.Simulate(feasotest.SellScenario(), feasotest.Site(), nil)
	sum := feaso.Summarize(flows, dec(10))

	margin, profit := feaso.Margin(flows)
	assert.True(t, sum.Margin.Equal(margin))
	assert.True(t, sum.Profit.Equal(profit))
	assert.True(t, sum.Profit.IsPositive())
	assert.True(t, sum.IRR.IsPositive())
	assert.True(t, sum.PeakDebt.IsPositive())
	assertDec(t, 13_200_000, sum.GrossRevenue)

	// LTC = peak debt / total cost
	ltc := sum.PeakDebt.Div(sum.TotalCost).Mul(decimal.NewFromInt(100)).Round(4)
	assert.True(t, sum.LTC.Equal(ltc))
	assert.True(t, sum.TotalCost.Sub(sum.TotalInflow).Add(sum.Profit).IsZero())
}
