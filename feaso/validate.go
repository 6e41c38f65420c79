package feaso

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/statutory"
)

// =============================================================================
// VALIDATION - Run by callers before Simulate
// =============================================================================

var minusHundred = decimal.NewFromInt(-100)

// Validate checks the structural requirements Simulate assumes. Simulate
// itself does not validate; it degrades to zero on odd numbers.
func Validate(s Scenario) error {
	var errs []error
	add := func(field, msg string, sentinel error) {
		errs = append(errs, &ValidationError{Field: field, Message: msg, Err: sentinel})
	}

	set := s.Settings
	switch set.Strategy {
	case StrategySell, StrategyHold:
	default:
		add("settings.strategy", fmt.Sprintf("unknown strategy %q", set.Strategy), nil)
	}

	// A linked scenario inherits its acquisition, so only its own is checked.
	if acq := set.Acquisition; s.LinkedScenarioID == "" {
		if acq.PurchasePrice.IsNegative() {
			add("settings.acquisition.purchase_price", "must not be negative", ErrMissingAcquisition)
		}
		if acq.Jurisdiction == "" {
			add("settings.acquisition.jurisdiction", "is required", ErrMissingAcquisition)
		} else if _, err := statutory.Lookup(acq.Jurisdiction); err != nil {
			add("settings.acquisition.jurisdiction", err.Error(), ErrMissingAcquisition)
		}
		if acq.SettlementMonth < 0 {
			add("settings.acquisition.settlement_month", "must not be negative", ErrMissingAcquisition)
		}
	}

	tiers := []struct {
		name string
		tier CapitalTier
	}{{"senior", set.Capital.Senior}, {"mezzanine", set.Capital.Mezzanine}}
	for _, tt := range tiers {
		field, t := "settings.capital."+tt.name, tt.tier
		switch t.LimitType {
		case "", LimitFixed, LimitLTC, LimitLVR:
		default:
			add(field+".limit_type", fmt.Sprintf("unknown limit type %q", t.LimitType), ErrMissingCapitalStack)
		}
		if t.Limit.IsNegative() {
			add(field+".limit", "must not be negative", ErrMissingCapitalStack)
		}
		if t.ActivationMonth < 0 {
			add(field+".activation_month", "must not be negative", ErrMissingCapitalStack)
		}
	}

	if set.Strategy == StrategyHold && set.Hold.HoldYears <= 0 {
		add("settings.hold.hold_years", "must be positive for a hold strategy", nil)
	}
	if set.Hold.CapitalGrowthRate.LessThan(minusHundred) {
		add("settings.hold.capital_growth_rate", "must not be below -100", nil)
	}

	for i, item := range s.Costs {
		field := fmt.Sprintf("costs[%d]", i)
		if item.Category == CategoryConstruction && item.InputType == InputPctConstruction {
			add(field+".input_type", "construction item cannot be a percentage of construction", ErrCircularConstruction)
		}
		if item.Span < 0 {
			add(field+".span", "must not be negative", nil)
		}
		if item.StartMonth < 0 {
			add(field+".start_month", "must not be negative", nil)
		}
		if !slices.Contains(Categories, item.Category) {
			add(field+".category", fmt.Sprintf("unknown category %q", item.Category), nil)
		}
		switch item.InputType {
		case InputFixed, InputPctConstruction, InputPctRevenue, InputRatePerUnit, InputRatePerSqm:
		default:
			add(field+".input_type", fmt.Sprintf("unknown input type %q", item.InputType), nil)
		}
		switch item.Shape {
		case ShapeLinear, ShapeUpfront, ShapeEnd, ShapeSCurve, ShapeBellCurve, ShapeMilestone:
		default:
			add(field+".shape", fmt.Sprintf("unknown shape %q", item.Shape), nil)
		}
		switch item.GST {
		case GSTTaxable, GSTFree, GSTInputTaxed:
		default:
			add(field+".gst", fmt.Sprintf("unknown GST treatment %q", item.GST), nil)
		}
		switch item.Automation {
		case AutomationNone, AutomationStampDuty, AutomationLandTax, AutomationCouncilRates:
		default:
			add(field+".automation", fmt.Sprintf("unknown automation %q", item.Automation), nil)
		}
		if item.EscalationRate.LessThan(minusHundred) {
			add(field+".escalation_rate", "must not be below -100", nil)
		}
	}

	return errors.Join(errs...)
}

// ValidateLink checks a hold scenario's link to its sell scenario.
func ValidateLink(s Scenario, linked *Scenario) error {
	if linked == nil {
		return nil
	}
	if linked.Settings.Strategy != StrategySell {
		return &ValidationError{Field: "linked_scenario_id", Message: "must reference a sell scenario", Err: ErrLinkedStrategy}
	}
	return nil
}
