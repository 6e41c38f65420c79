// Package feasotest provides scenario fixtures shared by tests.
package feasotest

import (
	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/feaso"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// Site is a 2,000 sqm Melbourne site.
func Site() feaso.Site {
	return feaso.Site{
		ID:             "riverside",
		Name:           "Riverside",
		Address:        "12 River St, Abbotsford VIC",
		LandArea:       d(2000),
		Zoning:         "GRZ1",
		CouncilRatePct: d(0.3),
	}
}

// Capital is a senior facility at 65% LTC with a fixed mezzanine layer.
func Capital() feaso.CapitalStack {
	return feaso.CapitalStack{
		Senior: feaso.CapitalTier{
			Name:                 feaso.TierSenior,
			Rate:                 d(7.5),
			LimitType:            feaso.LimitLTC,
			Limit:                d(65),
			EstablishmentFeeType: feaso.FeePct,
			EstablishmentFee:     d(1),
			LineFeeRate:          d(0.5),
			CapitaliseInterest:   true,
		},
		Mezzanine: feaso.CapitalTier{
			Name:               feaso.TierMezzanine,
			Rate:               d(14),
			LimitType:          feaso.LimitFixed,
			Limit:              d(1_000_000),
			ActivationMonth:    3,
			CapitaliseInterest: true,
		},
		Equity: feaso.CapitalTier{Name: feaso.TierEquity},
	}
}

// SellScenario is a twelve townhouse build-to-sell project.
func SellScenario() feaso.Scenario {
	return feaso.Scenario{
		ID:     "riverside-sell",
		SiteID: "riverside",
		Name:   "Riverside townhouses",
		Settings: feaso.Settings{
			Strategy:           feaso.StrategySell,
			ConstructionMonths: 18,
			Acquisition: feaso.Acquisition{
				PurchasePrice:   d(2_000_000),
				DepositPct:      d(10),
				SettlementMonth: 2,
				LegalFee:        d(15_000),
				Jurisdiction:    "VIC",
			},
			Capital:      Capital(),
			DiscountRate: d(10),
		},
		Costs: []feaso.CostItem{
			{ID: "build", Description: "Construction", Category: feaso.CategoryConstruction, InputType: feaso.InputFixed,
				Amount: d(6_000_000), StartMonth: 3, Span: 15, Shape: feaso.ShapeSCurve, EscalationRate: d(3), GST: feaso.GSTTaxable},
			{ID: "consultants", Description: "Design and consultants", Category: feaso.CategoryConsultants, InputType: feaso.InputPctConstruction,
				Amount: d(8), StartMonth: 1, Span: 18, Shape: feaso.ShapeLinear, GST: feaso.GSTTaxable},
			{ID: "contingency", Description: "Contingency", Category: feaso.CategoryMisc, InputType: feaso.InputPctConstruction,
				Amount: d(5), StartMonth: 3, Span: 15, Shape: feaso.ShapeLinear, GST: feaso.GSTTaxable},
			{ID: "rates", Description: "Council rates", Category: feaso.CategoryStatutory, StartMonth: 2, Span: 24,
				Shape: feaso.ShapeLinear, GST: feaso.GSTFree, Automation: feaso.AutomationCouncilRates},
			{ID: "land-tax", Description: "Land tax", Category: feaso.CategoryStatutory, StartMonth: 2, Span: 24,
				Shape: feaso.ShapeLinear, GST: feaso.GSTFree, Automation: feaso.AutomationLandTax},
			{ID: "marketing", Description: "Marketing", Category: feaso.CategorySelling, InputType: feaso.InputFixed,
				Amount: d(150_000), StartMonth: 12, Span: 12, Shape: feaso.ShapeLinear, GST: feaso.GSTTaxable},
		},
		Revenues: []feaso.RevenueItem{
			{ID: "townhouses", Description: "3 bed townhouses", Strategy: feaso.StrategySell, Units: 12,
				PricePerUnit: d(1_100_000), CommissionRate: d(2), SettlementOffset: 1, SettlementSpan: 3, Taxable: true},
		},
	}
}

// HoldScenario keeps the SellScenario townhouses as rentals for five years.
// It links to SellScenario for its land and construction.
func HoldScenario() feaso.Scenario {
	return feaso.Scenario{
		ID:               "riverside-hold",
		SiteID:           "riverside",
		Name:             "Riverside build-to-rent",
		LinkedScenarioID: "riverside-sell",
		Settings: feaso.Settings{
			Strategy: feaso.StrategyHold,
			Capital:  Capital(),
			Hold: feaso.HoldSettings{
				HoldYears:         5,
				RefinanceMonth:    20,
				RefinanceLVR:      d(60),
				InvestmentRate:    d(6.5),
				CapitalGrowthRate: d(3),
				TerminalCapRate:   d(5),
				ManagementFeePct:  d(7),
				ExitCostPct:       d(2),
				DepreciationRate:  d(2.5),
			},
			DiscountRate: d(8),
		},
		Costs: []feaso.CostItem{
			{ID: "fitout", Description: "Furniture package", Category: feaso.CategoryConstruction, InputType: feaso.InputRatePerUnit,
				Amount: d(15_000), StartMonth: 17, Span: 2, Shape: feaso.ShapeLinear, GST: feaso.GSTTaxable},
		},
		Revenues: []feaso.RevenueItem{
			{ID: "rentals", Description: "3 bed rentals", Strategy: feaso.StrategyHold, Units: 12,
				WeeklyRent: d(850), OpexRate: d(20), CapRate: d(4.5), LeaseUpMonths: 6},
		},
	}
}

// EmptyScenario has no costs, revenues or price.
func EmptyScenario() feaso.Scenario {
	return feaso.Scenario{
		ID:     "empty",
		SiteID: "riverside",
		Name:   "Empty",
		Settings: feaso.Settings{
			Strategy:       feaso.StrategySell,
			DurationMonths: 12,
			Acquisition:    feaso.Acquisition{Jurisdiction: "VIC"},
		},
	}
}
