package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/feasibility-engine/factory"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/feaso/feasotest"
)

const sellJSON = `{
  "id": "corner-sell",
  "site_id": "corner",
  "name": "Corner apartments",
  "settings": {
    "strategy": "sell",
    "start_date": "2026-07-01",
    "construction_months": 20,
    "acquisition": {"purchase_price": 3000000, "deposit_pct": 10, "settlement_month": 3, "jurisdiction": "NSW"},
    "capital": {
      "senior": {"rate": 7, "limit_type": "ltc", "limit": 60,
                 "rate_schedule": [{"from_month": 12, "rate": 7.5}, {"from_month": 0, "rate": 6.9}]},
      "mezzanine": {"rate": 13, "limit": 750000, "capitalise_interest": true}
    }
  },
  "costs": [
    {"category": "construction", "amount": 9000000, "start_month": 4, "span": 16, "shape": "s_curve", "steepness": 8},
    {"category": "consultants", "input_type": "pct_construction", "amount": 6, "start_month": 1, "span": 20},
    {"category": "statutory", "start_month": 3, "span": 12, "automation": "land_tax", "gst": "gst_free"},
    {"category": "selling", "amount": 100000, "start_month": 18, "span": 1, "shape": "milestone",
     "milestones": [{"month": 0, "percent": 100}]}
  ],
  "revenues": [
    {"units": 24, "price_per_unit": 850000, "commission_rate": 1.8, "settlement_offset": 1, "settlement_span": 4, "taxable": true}
  ]
}`

const holdYAML = `
site:
  id: corner
  name: Corner
  land_area: 1500
  council_rate_pct: 0.25
scenario:
  id: corner-hold
  name: Corner build-to-rent
  settings:
    strategy: hold
    construction_months: 20
    acquisition:
      jurisdiction: NSW
    capital:
      senior:
        rate: 7
        limit_type: lvr
        limit: 55
    hold:
      hold_years: 7
      refinance_month: 22
      refinance_lvr: 60
      investment_rate: 6
      terminal_cap_rate: 4.75
  costs: []
  revenues:
    - strategy: hold
      units: 24
      weekly_rent: 700
      opex_rate: 22
      lease_up_months: 9
linked:
  id: corner-sell
  name: Corner apartments
  settings:
    strategy: sell
    construction_months: 20
    acquisition:
      purchase_price: 3000000
      jurisdiction: NSW
      settlement_month: 3
  costs:
    - category: construction
      amount: 9000000
      start_month: 4
      span: 16
  revenues: []
`

// =============================================================================
// PARSING TESTS
// =============================================================================

func TestParseScenario_AppliesDefaults(t *testing.T) {
	s, err := factory.ParseScenario([]byte(sellJSON))
	require.NoError(t, err)

	assert.Equal(t, feaso.ScenarioID("corner-sell"), s.ID)
	assert.Equal(t, 2026, s.Settings.StartDate.Year())
	assert.Equal(t, feaso.LimitLTC, s.Settings.Capital.Senior.LimitType)
	assert.Equal(t, feaso.LimitFixed, s.Settings.Capital.Mezzanine.LimitType)
	assert.Equal(t, feaso.TierMezzanine, s.Settings.Capital.Mezzanine.Name)

	require.Len(t, s.Costs, 4)
	build := s.Costs[0]
	assert.Equal(t, "cost-1", build.ID)
	assert.Equal(t, feaso.InputFixed, build.InputType)
	assert.Equal(t, feaso.GSTTaxable, build.GST)
	assert.Equal(t, feaso.ShapeSCurve, build.Shape)
	assert.Equal(t, 8.0, build.ShapeParams.Steepness)
	assert.Equal(t, feaso.ShapeLinear, s.Costs[1].Shape)
	assert.Equal(t, feaso.AutomationLandTax, s.Costs[2].Automation)
	require.Len(t, s.Costs[3].ShapeParams.Milestones, 1)

	require.Len(t, s.Revenues, 1)
	assert.Equal(t, feaso.StrategySell, s.Revenues[0].Strategy)
	assert.Equal(t, "revenue-1", s.Revenues[0].ID)
}

func TestParseScenario_SortsRateSchedule(t *testing.T) {
	s, err := factory.ParseScenario([]byte(sellJSON))
	require.NoError(t, err)

	senior := s.Settings.Capital.Senior
	assert.True(t, senior.RateAt(0).Equal(decimal.NewFromFloat(6.9)))
	assert.True(t, senior.RateAt(11).Equal(decimal.NewFromFloat(6.9)))
	assert.True(t, senior.RateAt(12).Equal(decimal.NewFromFloat(7.5)))
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		sentinel error
	}{
		{
			name:     "unknown jurisdiction",
			json:     `{"id":"x","settings":{"strategy":"sell","acquisition":{"jurisdiction":"ZZ"}}}`,
			sentinel: feaso.ErrMissingAcquisition,
		},
		{
			name:     "missing jurisdiction",
			json:     `{"id":"x","settings":{"strategy":"sell","acquisition":{"purchase_price":1}}}`,
			sentinel: feaso.ErrMissingAcquisition,
		},
		{
			name:     "unknown limit type",
			json:     `{"id":"x","settings":{"strategy":"sell","acquisition":{"jurisdiction":"VIC"},"capital":{"senior":{"limit_type":"dscr"}}}}`,
			sentinel: feaso.ErrMissingCapitalStack,
		},
		{
			name:     "circular construction",
			json:     `{"id":"x","settings":{"strategy":"sell","acquisition":{"jurisdiction":"VIC"}},"costs":[{"category":"construction","input_type":"pct_construction","amount":5,"span":1}]}`,
			sentinel: feaso.ErrCircularConstruction,
		},
		{
			name:     "bad start date",
			json:     `{"id":"x","settings":{"strategy":"sell","start_date":"July","acquisition":{"jurisdiction":"VIC"}}}`,
			sentinel: feaso.ErrInvalidScenario,
		},
		{
			name:     "hold without years",
			json:     `{"id":"x","settings":{"strategy":"hold","acquisition":{"jurisdiction":"VIC"}}}`,
			sentinel: feaso.ErrInvalidScenario,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseScenario([]byte(tt.json))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, feaso.IsClientError(err))
		})
	}
}

func TestParseScenario_MisspelledCostFields(t *testing.T) {
	// GIVEN: A cost item whose enum fields are all misspelled
	doc := `{"id":"x","settings":{"strategy":"sell","acquisition":{"jurisdiction":"VIC"}},
	  "costs":[{"category":"constructoin","input_type":"percent_revenue","shape":"scurve",
	            "gst":"gstfree","automation":"stampduty","amount":5,"span":1}]}`

	// WHEN: Parsing it
	_, err := factory.ParseScenario([]byte(doc))

	// THEN: Every field is reported instead of falling back to a default
	require.Error(t, err)
	assert.ErrorIs(t, err, feaso.ErrInvalidScenario)
	for _, field := range []string{"costs[0].category", "costs[0].input_type", "costs[0].shape", "costs[0].gst", "costs[0].automation"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestParseScenario_RatesBelowMinusHundred(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		field string
	}{
		{
			name:  "escalation",
			json:  `{"id":"x","settings":{"strategy":"sell","acquisition":{"jurisdiction":"VIC"}},"costs":[{"category":"construction","amount":100,"span":2,"escalation_rate":-150}]}`,
			field: "costs[0].escalation_rate",
		},
		{
			name:  "capital growth",
			json:  `{"id":"x","settings":{"strategy":"hold","acquisition":{"jurisdiction":"VIC"},"hold":{"hold_years":5,"capital_growth_rate":-150}}}`,
			field: "settings.hold.capital_growth_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseScenario([]byte(tt.json))
			require.Error(t, err)
			assert.True(t, feaso.IsClientError(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseScenario_MalformedJSON(t *testing.T) {
	_, err := factory.ParseScenario([]byte(`{"id":`))
	require.Error(t, err)
	assert.False(t, feaso.IsClientError(err))
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestParseDocument_YAMLWithLinkedScenario(t *testing.T) {
	// GIVEN: A YAML document with a hold scenario and its sell scenario
	// WHEN: Parsing it
	// THEN: The hold scenario is linked and the bundle simulates

	b, err := factory.ParseDocument([]byte(holdYAML))
	require.NoError(t, err)

	assert.Equal(t, feaso.SiteID("corner"), b.Site.ID)
	assert.Equal(t, feaso.SiteID("corner"), b.Scenario.SiteID)
	assert.Equal(t, feaso.ScenarioID("corner-sell"), b.Scenario.LinkedScenarioID)
	require.NotNil(t, b.Linked)
	assert.Equal(t, feaso.StrategyHold, b.Scenario.Settings.Strategy)
	assert.Equal(t, 7, b.Scenario.Settings.Hold.HoldYears)

	flows := b.Simulate()
	assert.Len(t, flows, 20+7*12+1)
}

func TestParseDocument_JSON(t *testing.T) {
	doc := `{"site":{"id":"corner","name":"Corner","land_area":1500},"scenario":` + sellJSON + `}`
	b, err := factory.ParseDocument([]byte(doc))
	require.NoError(t, err)
	assert.Nil(t, b.Linked)
	assert.True(t, b.Site.LandArea.Equal(decimal.NewFromInt(1500)))
}

func TestParseDocument_LinkedMustSell(t *testing.T) {
	doc := `{"site":{"id":"s"},
	  "scenario":{"id":"a","settings":{"strategy":"hold","hold":{"hold_years":2}}},
	  "linked":{"id":"b","settings":{"strategy":"hold","acquisition":{"jurisdiction":"VIC"},"hold":{"hold_years":2}}}}`
	_, err := factory.ParseDocument([]byte(doc))
	assert.ErrorIs(t, err, feaso.ErrLinkedStrategy)
}

// =============================================================================
// ROUND TRIP TESTS
// =============================================================================

func TestFromScenario_RoundTrip(t *testing.T) {
	for _, s := range []feaso.Scenario{feasotest.SellScenario(), feasotest.HoldScenario()} {
		t.Run(string(s.ID), func(t *testing.T) {
			data, err := factory.EncodeScenario(s)
			require.NoError(t, err)

			got, err := factory.ParseScenario(data)
			require.NoError(t, err)

			assert.Equal(t, s.ID, got.ID)
			assert.Equal(t, s.LinkedScenarioID, got.LinkedScenarioID)
			assert.Equal(t, s.Settings.Hold.HoldYears, got.Settings.Hold.HoldYears)
			require.Len(t, got.Costs, len(s.Costs))
			for i := range s.Costs {
				assert.True(t, s.Costs[i].Amount.Equal(got.Costs[i].Amount), "cost %d", i)
				assert.Equal(t, s.Costs[i].Automation, got.Costs[i].Automation)
			}
			assert.True(t, s.Settings.Capital.Senior.Rate.Equal(got.Settings.Capital.Senior.Rate))
		})
	}
}

func TestSiteRoundTrip(t *testing.T) {
	site := feasotest.Site()
	got := factory.ToSite(factory.FromSite(site))
	assert.Equal(t, site.ID, got.ID)
	assert.True(t, site.LandArea.Equal(got.LandArea))
	assert.True(t, site.CouncilRatePct.Equal(got.CouncilRatePct))
}
