/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Scenario and site
  bodies reuse the factory document types so the API accepts exactly what
  scenario files contain. Money in responses is a decimal string.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Sites:        SiteDTO (wraps factory.SiteJSON)
  Scenarios:    ScenarioDTO (wraps factory.ScenarioJSON)
  Simulation:   FlowDTO, SummaryDTO, SimulateResponse
  Solver:       SolveRequest, SolveResponse
  Sensitivity:  SensitivityRequest, SensitivityResponse, JobDTO
  Demos:        DemoDTO, LoadDemoRequest

VALIDATION:
  Validation is done in handlers (and factory), not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/scenario.go: ScenarioJSON, SiteJSON, Document
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/analysis"
	"github.com/warp/feasibility-engine/factory"
	"github.com/warp/feasibility-engine/feaso"
)

// =============================================================================
// SITES & SCENARIOS
// =============================================================================

// SiteDTO represents a site in API responses.
type SiteDTO struct {
	factory.SiteJSON
}

// ScenarioDTO represents a stored scenario.
type ScenarioDTO struct {
	Config  factory.ScenarioJSON `json:"config"`
	Version int                  `json:"version"`
}

// =============================================================================
// SIMULATION
// =============================================================================

// TierFlowDTO is one tier's movement in a month.
type TierFlowDTO struct {
	Draw      decimal.Decimal `json:"draw"`
	Repayment decimal.Decimal `json:"repayment"`
	Interest  decimal.Decimal `json:"interest"`
	LineFee   decimal.Decimal `json:"line_fee"`
	Balance   decimal.Decimal `json:"balance"`
}

// FlowDTO is one month of a simulation.
type FlowDTO struct {
	Month              int                        `json:"month"`
	Date               string                     `json:"date,omitempty"`
	Phase              feaso.Phase                `json:"phase"`
	GrossRevenue       decimal.Decimal            `json:"gross_revenue"`
	NetRevenue         decimal.Decimal            `json:"net_revenue"`
	NetRent            decimal.Decimal            `json:"net_rent"`
	Costs              map[string]decimal.Decimal `json:"costs"`
	TotalCost          decimal.Decimal            `json:"total_cost"`
	GSTPaid            decimal.Decimal            `json:"gst_paid"`
	ITCClaimed         decimal.Decimal            `json:"itc_claimed"`
	SurplusInterest    decimal.Decimal            `json:"surplus_interest"`
	RefinanceInflow    decimal.Decimal            `json:"refinance_inflow"`
	Senior             TierFlowDTO                `json:"senior"`
	Mezzanine          TierFlowDTO                `json:"mezzanine"`
	Equity             TierFlowDTO                `json:"equity"`
	Investment         TierFlowDTO                `json:"investment"`
	NetCashflow        decimal.Decimal            `json:"net_cashflow"`
	CumulativeCashflow decimal.Decimal            `json:"cumulative_cashflow"`
	CashBalance        decimal.Decimal            `json:"cash_balance"`
	AssetValue         decimal.Decimal            `json:"asset_value"`
}

// SummaryDTO holds the headline metrics.
type SummaryDTO struct {
	Months        int             `json:"months"`
	GrossRevenue  decimal.Decimal `json:"gross_revenue"`
	NetRevenue    decimal.Decimal `json:"net_revenue"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Profit        decimal.Decimal `json:"profit"`
	Margin        decimal.Decimal `json:"margin"`
	IRR           decimal.Decimal `json:"irr"`
	NPV           decimal.Decimal `json:"npv"`
	PeakDebt      decimal.Decimal `json:"peak_debt"`
	PeakDebtMonth int             `json:"peak_debt_month"`
	PeakEquity    decimal.Decimal `json:"peak_equity"`
	LTC           decimal.Decimal `json:"ltc"`
	LVR           decimal.Decimal `json:"lvr"`
}

// SimulateResponse is returned by both simulate endpoints.
type SimulateResponse struct {
	ScenarioID string     `json:"scenario_id"`
	Summary    SummaryDTO `json:"summary"`
	Flows      []FlowDTO  `json:"flows,omitempty"`
}

// =============================================================================
// SOLVER & SENSITIVITY
// =============================================================================

// SolveRequest asks for the land value achieving a target.
type SolveRequest struct {
	Target     float64             `json:"target"`
	TargetType analysis.TargetType `json:"target_type"`
}

// SolveResponse is the solver outcome.
type SolveResponse struct {
	LandValue      decimal.Decimal     `json:"land_value"`
	StampDuty      decimal.Decimal     `json:"stamp_duty"`
	AchievedMetric decimal.Decimal     `json:"achieved_metric"`
	TargetType     analysis.TargetType `json:"target_type"`
	Iterations     int                 `json:"iterations"`
	Converged      bool                `json:"converged"`
}

// SensitivityRequest describes a grid. Steps are fractions for revenue and
// cost (0.1 = +10%), months for duration, and percentage points for interest.
type SensitivityRequest struct {
	XAxis  string    `json:"x_axis"`
	YAxis  string    `json:"y_axis"`
	StepsX []float64 `json:"steps_x"`
	StepsY []float64 `json:"steps_y"`
}

// SensitivityResponse carries a computed grid.
type SensitivityResponse struct {
	XAxis analysis.Axis     `json:"x_axis"`
	YAxis analysis.Axis     `json:"y_axis"`
	Grid  [][]analysis.Cell `json:"grid"`
}

// JobDTO represents an asynchronous sensitivity job.
type JobDTO struct {
	ID          string               `json:"id"`
	ScenarioID  string               `json:"scenario_id"`
	Status      string               `json:"status"`
	Request     SensitivityRequest   `json:"request"`
	Result      *SensitivityResponse `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// =============================================================================
// DEMOS & ERRORS
// =============================================================================

// DemoDTO describes a demo dataset.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Strategy    string `json:"strategy"`
}

// LoadDemoRequest selects a demo dataset.
type LoadDemoRequest struct {
	DemoID string `json:"demo_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toFlowDTOs(flows []feaso.MonthlyFlow) []FlowDTO {
	out := make([]FlowDTO, len(flows))
	for i, f := range flows {
		costs := make(map[string]decimal.Decimal, len(feaso.Categories))
		for _, cat := range feaso.Categories {
			if v := f.Costs.Get(cat); !v.IsZero() {
				costs[string(cat)] = v
			}
		}
		var date string
		if !f.Date.IsZero() {
			date = f.Date.Format("2006-01-02")
		}
		out[i] = FlowDTO{
			Month:              f.Month,
			Date:               date,
			Phase:              f.Phase,
			GrossRevenue:       f.GrossRevenue,
			NetRevenue:         f.NetRevenue,
			NetRent:            f.NetRent,
			Costs:              costs,
			TotalCost:          f.TotalCost,
			GSTPaid:            f.GSTPaid,
			ITCClaimed:         f.ITCClaimed,
			SurplusInterest:    f.SurplusInterest,
			RefinanceInflow:    f.RefinanceInflow,
			Senior:             toTierFlowDTO(f.Senior),
			Mezzanine:          toTierFlowDTO(f.Mezzanine),
			Equity:             toTierFlowDTO(f.Equity),
			Investment:         toTierFlowDTO(f.Investment),
			NetCashflow:        f.NetCashflow,
			CumulativeCashflow: f.CumulativeCashflow,
			CashBalance:        f.CashBalance,
			AssetValue:         f.AssetValue,
		}
	}
	return out
}

func toTierFlowDTO(t feaso.TierFlow) TierFlowDTO {
	return TierFlowDTO{
		Draw:      t.Draw,
		Repayment: t.Repayment,
		Interest:  t.Interest,
		LineFee:   t.LineFee,
		Balance:   t.Balance,
	}
}

func toSummaryDTO(s feaso.Summary) SummaryDTO {
	return SummaryDTO{
		Months:        s.Months,
		GrossRevenue:  s.GrossRevenue.Round(2),
		NetRevenue:    s.NetRevenue.Round(2),
		TotalCost:     s.TotalCost.Round(2),
		TotalInterest: s.TotalInterest.Round(2),
		Profit:        s.Profit.Round(2),
		Margin:        s.Margin.Round(2),
		IRR:           s.IRR.Round(2),
		NPV:           s.NPV.Round(2),
		PeakDebt:      s.PeakDebt.Round(2),
		PeakDebtMonth: s.PeakDebtMonth,
		PeakEquity:    s.PeakEquity.Round(2),
		LTC:           s.LTC.Round(2),
		LVR:           s.LVR.Round(2),
	}
}
