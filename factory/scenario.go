/*
Package factory provides JSON/YAML to Go scenario conversion.

PURPOSE:
  Converts scenario documents into feaso.Scenario and feaso.Site values and
  back. Documents are what the API receives, what the CLI reads from disk
  and what the SQLite store keeps in its config_json column.

JSON SCHEMA (abridged):
  {
    "id": "riverside-sell",
    "site_id": "riverside",
    "name": "Riverside townhouses",
    "settings": {
      "strategy": "sell",
      "duration_months": 30,
      "construction_months": 18,
      "acquisition": {"purchase_price": 2500000, "deposit_pct": 10,
                      "settlement_month": 2, "jurisdiction": "VIC"},
      "capital": {
        "senior":    {"rate": 7.5, "limit_type": "ltc", "limit": 65},
        "mezzanine": {"rate": 14, "limit_type": "fixed", "limit": 800000}
      }
    },
    "costs": [
      {"category": "construction", "input_type": "fixed", "amount": 6000000,
       "start_month": 3, "span": 15, "shape": "s_curve", "gst": "taxable"}
    ],
    "revenues": [
      {"strategy": "sell", "units": 12, "price_per_unit": 1200000,
       "commission_rate": 2, "settlement_offset": 1, "settlement_span": 3,
       "taxable": true}
    ]
  }

DEFAULTS:
  - strategy: sell; shape: linear; input_type: fixed; gst: taxable
  - capital limit_type: fixed; establishment_fee_type: fixed
  - category: misc when missing
  - unknown enum values are kept as given and rejected by feaso.Validate
  - settlement_span: 1 for sell revenue

KEY FEATURES:
  - Same struct decodes JSON and YAML
  - Validates through feaso.Validate before returning
  - Rate schedules are sorted on the way in

SEE ALSO:
  - feaso/types.go: Target types
  - store/sqlite/sqlite.go: Stores documents as config_json
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/feaso"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// ScenarioJSON is the document form of a scenario.
type ScenarioJSON struct {
	ID               string            `json:"id" yaml:"id"`
	SiteID           string            `json:"site_id" yaml:"site_id"`
	Name             string            `json:"name" yaml:"name"`
	LinkedScenarioID string            `json:"linked_scenario_id,omitempty" yaml:"linked_scenario_id,omitempty"`
	Settings         SettingsJSON      `json:"settings" yaml:"settings"`
	Costs            []CostItemJSON    `json:"costs" yaml:"costs"`
	Revenues         []RevenueItemJSON `json:"revenues" yaml:"revenues"`
}

type SettingsJSON struct {
	Strategy            string          `json:"strategy" yaml:"strategy"`
	StartDate           string          `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	DurationMonths      int             `json:"duration_months,omitempty" yaml:"duration_months,omitempty"`
	ConstructionMonths  int             `json:"construction_months" yaml:"construction_months"`
	Acquisition         AcquisitionJSON `json:"acquisition" yaml:"acquisition"`
	Capital             CapitalJSON     `json:"capital" yaml:"capital"`
	Hold                *HoldJSON       `json:"hold,omitempty" yaml:"hold,omitempty"`
	DiscountRate        float64         `json:"discount_rate,omitempty" yaml:"discount_rate,omitempty"`
	SurplusInterestRate float64         `json:"surplus_interest_rate,omitempty" yaml:"surplus_interest_rate,omitempty"`
	GSTRate             float64         `json:"gst_rate,omitempty" yaml:"gst_rate,omitempty"`
}

type AcquisitionJSON struct {
	PurchasePrice     float64 `json:"purchase_price" yaml:"purchase_price"`
	DepositPct        float64 `json:"deposit_pct,omitempty" yaml:"deposit_pct,omitempty"`
	SettlementMonth   int     `json:"settlement_month,omitempty" yaml:"settlement_month,omitempty"`
	LegalFee          float64 `json:"legal_fee,omitempty" yaml:"legal_fee,omitempty"`
	BuyersAgentPct    float64 `json:"buyers_agent_pct,omitempty" yaml:"buyers_agent_pct,omitempty"`
	Jurisdiction      string  `json:"jurisdiction" yaml:"jurisdiction"`
	ForeignBuyer      bool    `json:"foreign_buyer,omitempty" yaml:"foreign_buyer,omitempty"`
	MarginScheme      bool    `json:"margin_scheme,omitempty" yaml:"margin_scheme,omitempty"`
	MarginSchemeBasis float64 `json:"margin_scheme_basis,omitempty" yaml:"margin_scheme_basis,omitempty"`
}

type CapitalJSON struct {
	Senior    TierJSON `json:"senior" yaml:"senior"`
	Mezzanine TierJSON `json:"mezzanine" yaml:"mezzanine"`
	Equity    TierJSON `json:"equity" yaml:"equity"`
}

type TierJSON struct {
	Rate                 float64        `json:"rate,omitempty" yaml:"rate,omitempty"`
	RateSchedule         []RateStepJSON `json:"rate_schedule,omitempty" yaml:"rate_schedule,omitempty"`
	LimitType            string         `json:"limit_type,omitempty" yaml:"limit_type,omitempty"`
	Limit                float64        `json:"limit,omitempty" yaml:"limit,omitempty"`
	EstablishmentFeeType string         `json:"establishment_fee_type,omitempty" yaml:"establishment_fee_type,omitempty"`
	EstablishmentFee     float64        `json:"establishment_fee,omitempty" yaml:"establishment_fee,omitempty"`
	LineFeeRate          float64        `json:"line_fee_rate,omitempty" yaml:"line_fee_rate,omitempty"`
	ActivationMonth      int            `json:"activation_month,omitempty" yaml:"activation_month,omitempty"`
	CapitaliseInterest   bool           `json:"capitalise_interest,omitempty" yaml:"capitalise_interest,omitempty"`
}

type RateStepJSON struct {
	FromMonth int     `json:"from_month" yaml:"from_month"`
	Rate      float64 `json:"rate" yaml:"rate"`
}

type HoldJSON struct {
	HoldYears         int     `json:"hold_years" yaml:"hold_years"`
	RefinanceMonth    int     `json:"refinance_month,omitempty" yaml:"refinance_month,omitempty"`
	RefinanceLVR      float64 `json:"refinance_lvr,omitempty" yaml:"refinance_lvr,omitempty"`
	InvestmentRate    float64 `json:"investment_rate,omitempty" yaml:"investment_rate,omitempty"`
	CapitalGrowthRate float64 `json:"capital_growth_rate,omitempty" yaml:"capital_growth_rate,omitempty"`
	TerminalCapRate   float64 `json:"terminal_cap_rate,omitempty" yaml:"terminal_cap_rate,omitempty"`
	ManagementFeePct  float64 `json:"management_fee_pct,omitempty" yaml:"management_fee_pct,omitempty"`
	ExitCostPct       float64 `json:"exit_cost_pct,omitempty" yaml:"exit_cost_pct,omitempty"`
	DepreciationRate  float64 `json:"depreciation_rate,omitempty" yaml:"depreciation_rate,omitempty"`
}

type CostItemJSON struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	Category       string          `json:"category" yaml:"category"`
	InputType      string          `json:"input_type,omitempty" yaml:"input_type,omitempty"`
	Amount         float64         `json:"amount" yaml:"amount"`
	StartMonth     int             `json:"start_month" yaml:"start_month"`
	Span           int             `json:"span" yaml:"span"`
	Shape          string          `json:"shape,omitempty" yaml:"shape,omitempty"`
	Steepness      float64         `json:"steepness,omitempty" yaml:"steepness,omitempty"`
	Milestones     []MilestoneJSON `json:"milestones,omitempty" yaml:"milestones,omitempty"`
	EscalationRate float64         `json:"escalation_rate,omitempty" yaml:"escalation_rate,omitempty"`
	GST            string          `json:"gst,omitempty" yaml:"gst,omitempty"`
	Automation     string          `json:"automation,omitempty" yaml:"automation,omitempty"`
}

type MilestoneJSON struct {
	Month   int     `json:"month" yaml:"month"`
	Percent float64 `json:"percent" yaml:"percent"`
}

type RevenueItemJSON struct {
	ID               string  `json:"id,omitempty" yaml:"id,omitempty"`
	Description      string  `json:"description,omitempty" yaml:"description,omitempty"`
	Strategy         string  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Units            int     `json:"units" yaml:"units"`
	PricePerUnit     float64 `json:"price_per_unit,omitempty" yaml:"price_per_unit,omitempty"`
	CommissionRate   float64 `json:"commission_rate,omitempty" yaml:"commission_rate,omitempty"`
	SettlementOffset int     `json:"settlement_offset,omitempty" yaml:"settlement_offset,omitempty"`
	SettlementSpan   int     `json:"settlement_span,omitempty" yaml:"settlement_span,omitempty"`
	Taxable          bool    `json:"taxable,omitempty" yaml:"taxable,omitempty"`
	WeeklyRent       float64 `json:"weekly_rent,omitempty" yaml:"weekly_rent,omitempty"`
	OpexRate         float64 `json:"opex_rate,omitempty" yaml:"opex_rate,omitempty"`
	CapRate          float64 `json:"cap_rate,omitempty" yaml:"cap_rate,omitempty"`
	LeaseUpMonths    int     `json:"lease_up_months,omitempty" yaml:"lease_up_months,omitempty"`
}

// SiteJSON is the document form of a site.
type SiteJSON struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Address        string  `json:"address,omitempty" yaml:"address,omitempty"`
	LandArea       float64 `json:"land_area" yaml:"land_area"`
	Zoning         string  `json:"zoning,omitempty" yaml:"zoning,omitempty"`
	CouncilRatePct float64 `json:"council_rate_pct,omitempty" yaml:"council_rate_pct,omitempty"`
}

// Document bundles a site, a scenario and an optional linked scenario. It is
// the shape of inline simulation requests and scenario files.
type Document struct {
	Site     SiteJSON      `json:"site" yaml:"site"`
	Scenario ScenarioJSON  `json:"scenario" yaml:"scenario"`
	Linked   *ScenarioJSON `json:"linked,omitempty" yaml:"linked,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseScenario decodes and validates a JSON scenario.
func ParseScenario(data []byte) (feaso.Scenario, error) {
	var sj ScenarioJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return feaso.Scenario{}, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	return ToScenario(sj)
}

// ParseDocument decodes a JSON or YAML document (YAML is a superset of JSON,
// but JSON goes through encoding/json when the input looks like JSON).
func ParseDocument(data []byte) (feaso.Bundle, error) {
	var doc Document
	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return feaso.Bundle{}, fmt.Errorf("failed to parse document JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return feaso.Bundle{}, fmt.Errorf("failed to parse document YAML: %w", err)
	}
	return doc.Bundle()
}

// Bundle converts and validates the document.
func (doc Document) Bundle() (feaso.Bundle, error) {
	sj := doc.Scenario
	if doc.Linked != nil && sj.LinkedScenarioID == "" {
		sj.LinkedScenarioID = doc.Linked.ID
		if sj.LinkedScenarioID == "" {
			sj.LinkedScenarioID = "linked"
		}
	}
	scenario, err := ToScenario(sj)
	if err != nil {
		return feaso.Bundle{}, err
	}
	b := feaso.Bundle{Scenario: scenario, Site: ToSite(doc.Site)}
	if doc.Linked != nil {
		linked, err := ToScenario(*doc.Linked)
		if err != nil {
			return feaso.Bundle{}, fmt.Errorf("linked scenario: %w", err)
		}
		if err := feaso.ValidateLink(scenario, &linked); err != nil {
			return feaso.Bundle{}, err
		}
		b.Linked = &linked
	}
	if b.Scenario.SiteID == "" {
		b.Scenario.SiteID = b.Site.ID
	}
	return b, nil
}

func looksLikeJSON(data []byte) bool {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

// EncodeScenario marshals a scenario to its JSON document form.
func EncodeScenario(s feaso.Scenario) ([]byte, error) {
	return json.Marshal(FromScenario(s))
}

// =============================================================================
// DOCUMENT -> DOMAIN
// =============================================================================

// ToScenario converts a document to a validated scenario.
func ToScenario(sj ScenarioJSON) (feaso.Scenario, error) {
	set, err := toSettings(sj.Settings)
	if err != nil {
		return feaso.Scenario{}, err
	}
	s := feaso.Scenario{
		ID:               feaso.ScenarioID(sj.ID),
		SiteID:           feaso.SiteID(sj.SiteID),
		Name:             sj.Name,
		LinkedScenarioID: feaso.ScenarioID(sj.LinkedScenarioID),
		Settings:         set,
	}
	for i, cj := range sj.Costs {
		item := toCostItem(cj)
		if item.ID == "" {
			item.ID = fmt.Sprintf("cost-%d", i+1)
		}
		s.Costs = append(s.Costs, item)
	}
	for i, rj := range sj.Revenues {
		item := toRevenueItem(rj)
		if item.ID == "" {
			item.ID = fmt.Sprintf("revenue-%d", i+1)
		}
		s.Revenues = append(s.Revenues, item)
	}

	if err := feaso.Validate(s); err != nil {
		return feaso.Scenario{}, err
	}
	return s, nil
}

// ToSite converts a site document.
func ToSite(sj SiteJSON) feaso.Site {
	return feaso.Site{
		ID:             feaso.SiteID(sj.ID),
		Name:           sj.Name,
		Address:        sj.Address,
		LandArea:       dec(sj.LandArea),
		Zoning:         sj.Zoning,
		CouncilRatePct: dec(sj.CouncilRatePct),
	}
}

func toSettings(sj SettingsJSON) (feaso.Settings, error) {
	set := feaso.Settings{
		Strategy:            parseStrategy(sj.Strategy),
		DurationMonths:      sj.DurationMonths,
		ConstructionMonths:  sj.ConstructionMonths,
		DiscountRate:        dec(sj.DiscountRate),
		SurplusInterestRate: dec(sj.SurplusInterestRate),
		GSTRate:             dec(sj.GSTRate),
		Acquisition: feaso.Acquisition{
			PurchasePrice:     dec(sj.Acquisition.PurchasePrice),
			DepositPct:        dec(sj.Acquisition.DepositPct),
			SettlementMonth:   sj.Acquisition.SettlementMonth,
			LegalFee:          dec(sj.Acquisition.LegalFee),
			BuyersAgentPct:    dec(sj.Acquisition.BuyersAgentPct),
			Jurisdiction:      sj.Acquisition.Jurisdiction,
			ForeignBuyer:      sj.Acquisition.ForeignBuyer,
			MarginScheme:      sj.Acquisition.MarginScheme,
			MarginSchemeBasis: dec(sj.Acquisition.MarginSchemeBasis),
		},
		Capital: feaso.CapitalStack{
			Senior:    toTier(feaso.TierSenior, sj.Capital.Senior),
			Mezzanine: toTier(feaso.TierMezzanine, sj.Capital.Mezzanine),
			Equity:    toTier(feaso.TierEquity, sj.Capital.Equity),
		},
	}
	if sj.StartDate != "" {
		t, err := time.Parse(dateLayout, sj.StartDate)
		if err != nil {
			return feaso.Settings{}, &feaso.ValidationError{Field: "settings.start_date", Message: fmt.Sprintf("invalid date: %v", err)}
		}
		set.StartDate = t
	}
	if sj.Hold != nil {
		set.Hold = feaso.HoldSettings{
			HoldYears:         sj.Hold.HoldYears,
			RefinanceMonth:    sj.Hold.RefinanceMonth,
			RefinanceLVR:      dec(sj.Hold.RefinanceLVR),
			InvestmentRate:    dec(sj.Hold.InvestmentRate),
			CapitalGrowthRate: dec(sj.Hold.CapitalGrowthRate),
			TerminalCapRate:   dec(sj.Hold.TerminalCapRate),
			ManagementFeePct:  dec(sj.Hold.ManagementFeePct),
			ExitCostPct:       dec(sj.Hold.ExitCostPct),
			DepreciationRate:  dec(sj.Hold.DepreciationRate),
		}
	}
	return set, nil
}

func toTier(name feaso.TierName, tj TierJSON) feaso.CapitalTier {
	t := feaso.CapitalTier{
		Name:                 name,
		Rate:                 dec(tj.Rate),
		LimitType:            parseLimitType(tj.LimitType),
		Limit:                dec(tj.Limit),
		EstablishmentFeeType: parseFeeType(tj.EstablishmentFeeType),
		EstablishmentFee:     dec(tj.EstablishmentFee),
		LineFeeRate:          dec(tj.LineFeeRate),
		ActivationMonth:      tj.ActivationMonth,
		CapitaliseInterest:   tj.CapitaliseInterest,
	}
	if len(tj.RateSchedule) > 0 {
		steps := make([]feaso.RateStep, len(tj.RateSchedule))
		for i, r := range tj.RateSchedule {
			steps[i] = feaso.RateStep{FromMonth: r.FromMonth, Rate: dec(r.Rate)}
		}
		t.RateSchedule = feaso.NewRateSchedule(steps...)
	}
	return t
}

func toCostItem(cj CostItemJSON) feaso.CostItem {
	item := feaso.CostItem{
		ID:             cj.ID,
		Description:    cj.Description,
		Category:       parseCategory(cj.Category),
		InputType:      parseInputType(cj.InputType),
		Amount:         dec(cj.Amount),
		StartMonth:     cj.StartMonth,
		Span:           cj.Span,
		Shape:          parseShape(cj.Shape),
		ShapeParams:    feaso.ShapeParams{Steepness: cj.Steepness},
		EscalationRate: dec(cj.EscalationRate),
		GST:            parseGST(cj.GST),
		Automation:     feaso.Automation(cj.Automation),
	}
	for _, m := range cj.Milestones {
		item.ShapeParams.Milestones = append(item.ShapeParams.Milestones, feaso.Milestone{Month: m.Month, Percent: dec(m.Percent)})
	}
	return item
}

func toRevenueItem(rj RevenueItemJSON) feaso.RevenueItem {
	if rj.SettlementSpan == 0 && parseStrategy(rj.Strategy) == feaso.StrategySell {
		rj.SettlementSpan = 1
	}
	return feaso.RevenueItem{
		ID:               rj.ID,
		Description:      rj.Description,
		Strategy:         parseStrategy(rj.Strategy),
		Units:            rj.Units,
		PricePerUnit:     dec(rj.PricePerUnit),
		CommissionRate:   dec(rj.CommissionRate),
		SettlementOffset: rj.SettlementOffset,
		SettlementSpan:   rj.SettlementSpan,
		Taxable:          rj.Taxable,
		WeeklyRent:       dec(rj.WeeklyRent),
		OpexRate:         dec(rj.OpexRate),
		CapRate:          dec(rj.CapRate),
		LeaseUpMonths:    rj.LeaseUpMonths,
	}
}

// =============================================================================
// DOMAIN -> DOCUMENT
// =============================================================================

// FromScenario converts a scenario to its document form.
func FromScenario(s feaso.Scenario) ScenarioJSON {
	set := s.Settings
	sj := ScenarioJSON{
		ID:               string(s.ID),
		SiteID:           string(s.SiteID),
		Name:             s.Name,
		LinkedScenarioID: string(s.LinkedScenarioID),
		Settings: SettingsJSON{
			Strategy:            string(set.Strategy),
			DurationMonths:      set.DurationMonths,
			ConstructionMonths:  set.ConstructionMonths,
			DiscountRate:        flt(set.DiscountRate),
			SurplusInterestRate: flt(set.SurplusInterestRate),
			GSTRate:             flt(set.GSTRate),
			Acquisition: AcquisitionJSON{
				PurchasePrice:     flt(set.Acquisition.PurchasePrice),
				DepositPct:        flt(set.Acquisition.DepositPct),
				SettlementMonth:   set.Acquisition.SettlementMonth,
				LegalFee:          flt(set.Acquisition.LegalFee),
				BuyersAgentPct:    flt(set.Acquisition.BuyersAgentPct),
				Jurisdiction:      set.Acquisition.Jurisdiction,
				ForeignBuyer:      set.Acquisition.ForeignBuyer,
				MarginScheme:      set.Acquisition.MarginScheme,
				MarginSchemeBasis: flt(set.Acquisition.MarginSchemeBasis),
			},
			Capital: CapitalJSON{
				Senior:    fromTier(set.Capital.Senior),
				Mezzanine: fromTier(set.Capital.Mezzanine),
				Equity:    fromTier(set.Capital.Equity),
			},
		},
	}
	if !set.StartDate.IsZero() {
		sj.Settings.StartDate = set.StartDate.Format(dateLayout)
	}
	if set.Strategy == feaso.StrategyHold || set.Hold.HoldYears > 0 {
		h := set.Hold
		sj.Settings.Hold = &HoldJSON{
			HoldYears:         h.HoldYears,
			RefinanceMonth:    h.RefinanceMonth,
			RefinanceLVR:      flt(h.RefinanceLVR),
			InvestmentRate:    flt(h.InvestmentRate),
			CapitalGrowthRate: flt(h.CapitalGrowthRate),
			TerminalCapRate:   flt(h.TerminalCapRate),
			ManagementFeePct:  flt(h.ManagementFeePct),
			ExitCostPct:       flt(h.ExitCostPct),
			DepreciationRate:  flt(h.DepreciationRate),
		}
	}
	for _, c := range s.Costs {
		cj := CostItemJSON{
			ID:             c.ID,
			Description:    c.Description,
			Category:       string(c.Category),
			InputType:      string(c.InputType),
			Amount:         flt(c.Amount),
			StartMonth:     c.StartMonth,
			Span:           c.Span,
			Shape:          string(c.Shape),
			Steepness:      c.ShapeParams.Steepness,
			EscalationRate: flt(c.EscalationRate),
			GST:            string(c.GST),
			Automation:     string(c.Automation),
		}
		for _, m := range c.ShapeParams.Milestones {
			cj.Milestones = append(cj.Milestones, MilestoneJSON{Month: m.Month, Percent: flt(m.Percent)})
		}
		sj.Costs = append(sj.Costs, cj)
	}
	for _, r := range s.Revenues {
		sj.Revenues = append(sj.Revenues, RevenueItemJSON{
			ID:               r.ID,
			Description:      r.Description,
			Strategy:         string(r.Strategy),
			Units:            r.Units,
			PricePerUnit:     flt(r.PricePerUnit),
			CommissionRate:   flt(r.CommissionRate),
			SettlementOffset: r.SettlementOffset,
			SettlementSpan:   r.SettlementSpan,
			Taxable:          r.Taxable,
			WeeklyRent:       flt(r.WeeklyRent),
			OpexRate:         flt(r.OpexRate),
			CapRate:          flt(r.CapRate),
			LeaseUpMonths:    r.LeaseUpMonths,
		})
	}
	return sj
}

// FromSite converts a site to its document form.
func FromSite(s feaso.Site) SiteJSON {
	return SiteJSON{
		ID:             string(s.ID),
		Name:           s.Name,
		Address:        s.Address,
		LandArea:       flt(s.LandArea),
		Zoning:         s.Zoning,
		CouncilRatePct: flt(s.CouncilRatePct),
	}
}

func fromTier(t feaso.CapitalTier) TierJSON {
	tj := TierJSON{
		Rate:                 flt(t.Rate),
		LimitType:            string(t.LimitType),
		Limit:                flt(t.Limit),
		EstablishmentFeeType: string(t.EstablishmentFeeType),
		EstablishmentFee:     flt(t.EstablishmentFee),
		LineFeeRate:          flt(t.LineFeeRate),
		ActivationMonth:      t.ActivationMonth,
		CapitaliseInterest:   t.CapitaliseInterest,
	}
	for _, r := range t.RateSchedule {
		tj.RateSchedule = append(tj.RateSchedule, RateStepJSON{FromMonth: r.FromMonth, Rate: flt(r.Rate)})
	}
	return tj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }
func flt(d decimal.Decimal) float64 { return d.InexactFloat64() }

func parseStrategy(s string) feaso.Strategy {
	switch s {
	case "", "sell":
		return feaso.StrategySell
	default:
		// unknown strategies are left for Validate to report
		return feaso.Strategy(s)
	}
}

// The enum parsers map an empty value to its default and pass anything
// else through unchanged, so Validate reports misspellings.

func parseCategory(s string) feaso.Category {
	if s == "" {
		return feaso.CategoryMisc
	}
	return feaso.Category(s)
}

func parseInputType(s string) feaso.InputType {
	if s == "" {
		return feaso.InputFixed
	}
	return feaso.InputType(s)
}

func parseShape(s string) feaso.Shape {
	if s == "" {
		return feaso.ShapeLinear
	}
	return feaso.Shape(s)
}

func parseGST(s string) feaso.GSTTreatment {
	if s == "" {
		return feaso.GSTTaxable
	}
	return feaso.GSTTreatment(s)
}

func parseLimitType(s string) feaso.LimitType {
	switch s {
	case "", "fixed":
		return feaso.LimitFixed
	case "ltc":
		return feaso.LimitLTC
	case "lvr":
		return feaso.LimitLVR
	default:
		return feaso.LimitType(s)
	}
}

func parseFeeType(s string) feaso.FeeType {
	if s == "pct" {
		return feaso.FeePct
	}
	return feaso.FeeFixed
}
