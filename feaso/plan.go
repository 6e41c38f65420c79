package feaso

import (
	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/statutory"
)

// =============================================================================
// GOLDEN THREAD - Hold scenarios inheriting a sell scenario
// =============================================================================

// Merge builds the snapshot a simulation runs on. When linked is set, its
// acquisition terms, construction timeline and cost catalogue are copied in
// and the scenario's own costs are layered on top. Neither input is modified.
func Merge(s Scenario, linked *Scenario) Scenario {
	out := s.Clone()
	if linked == nil {
		return out
	}
	l := linked.Clone()
	out.Settings.Acquisition = l.Settings.Acquisition
	out.Settings.ConstructionMonths = l.Settings.ConstructionMonths
	out.Costs = append(l.Costs, out.Costs...)
	return out
}

// =============================================================================
// PLAN - Everything resolved once per simulation
// =============================================================================

type resolvedItem struct {
	CostItem
	Total decimal.Decimal
}

type plan struct {
	scenario Scenario
	site     Site

	items             []resolvedItem
	constructionTotal decimal.Decimal
	catalogueDuty     bool

	horizon    int
	completion int

	deposit    decimal.Decimal
	legalFee   decimal.Decimal
	balance    decimal.Decimal
	duty       decimal.Decimal
	agentFee   decimal.Decimal
	settlement int

	grossSale      decimal.Decimal
	annualNetRent  decimal.Decimal // stabilised, all hold tranches
	refinanceValue decimal.Decimal
	exitValue      decimal.Decimal

	seniorLimit decimal.Decimal
	mezzLimit   decimal.Decimal
	gstRate     decimal.Decimal
}

func newPlan(s Scenario, site Site) plan {
	set := s.Settings
	acq := set.Acquisition
	p := plan{
		scenario:   s,
		site:       site,
		completion: set.ConstructionMonths,
		settlement: set.Acquisition.SettlementMonth,
		gstRate:    set.gstRate(),
		grossSale:  s.GrossSaleRevenue(),
		legalFee:   acq.LegalFee,
		deposit:    acq.Deposit(),
		agentFee:   acq.AgentFee(),
	}
	if p.settlement < 0 {
		p.settlement = 0
	}
	p.balance = acq.PurchasePrice.Sub(p.deposit)

	p.resolveItems()
	if !p.catalogueDuty {
		p.duty = statutory.StampDuty(acq.PurchasePrice, acq.Jurisdiction, acq.ForeignBuyer)
	}
	p.resolveHold()
	p.horizon = p.resolveHorizon()
	p.seniorLimit = p.resolveLimit(set.Capital.Senior)
	p.mezzLimit = p.resolveLimit(set.Capital.Mezzanine)
	return p
}

// resolveItems turns every catalogue amount into a total. Items driven by the
// construction total are resolved in a second pass; a construction item
// driven that way is circular and resolves to zero.
func (p *plan) resolveItems() {
	s := p.scenario
	acq := s.Settings.Acquisition
	units := decimal.NewFromInt(int64(s.TotalUnits()))

	p.items = make([]resolvedItem, len(s.Costs))
	for i, item := range s.Costs {
		total := decimal.Zero
		switch item.InputType {
		case InputPctConstruction:
			// second pass
		case InputPctRevenue:
			total = p.grossSale.Mul(Pct(item.Amount))
		case InputRatePerUnit:
			total = item.Amount.Mul(units)
		case InputRatePerSqm:
			total = item.Amount.Mul(p.site.LandArea)
		default:
			total = item.Amount
		}

		years := decimal.NewFromInt(int64(item.Span)).Div(twelve)
		switch item.Automation {
		case AutomationStampDuty:
			total = statutory.StampDuty(acq.PurchasePrice, acq.Jurisdiction, acq.ForeignBuyer)
			p.catalogueDuty = true
		case AutomationLandTax:
			total = statutory.LandTax(acq.PurchasePrice, acq.Jurisdiction).Mul(years)
		case AutomationCouncilRates:
			total = statutory.CouncilRates(acq.PurchasePrice, p.site.CouncilRatePct).Mul(years)
		}

		p.items[i] = resolvedItem{CostItem: item, Total: total}
		if item.Category == CategoryConstruction && item.InputType != InputPctConstruction {
			p.constructionTotal = p.constructionTotal.Add(total)
		}
	}

	for i, item := range p.items {
		if item.InputType != InputPctConstruction || item.Automation != AutomationNone {
			continue
		}
		if item.Category == CategoryConstruction {
			continue
		}
		p.items[i].Total = p.constructionTotal.Mul(Pct(item.Amount))
	}
}

func (p *plan) resolveHold() {
	hold := p.scenario.Settings.Hold
	mgmt := Pct(hold.ManagementFeePct)
	for _, r := range p.scenario.Revenues {
		if r.Strategy != StrategyHold {
			continue
		}
		net := r.AnnualRent().Mul(one.Sub(Pct(r.OpexRate)).Sub(mgmt))
		p.annualNetRent = p.annualNetRent.Add(net)

		capRate := r.CapRate
		if !capRate.IsPositive() {
			capRate = hold.TerminalCapRate
		}
		p.refinanceValue = p.refinanceValue.Add(SafeDiv(net, Pct(capRate)))

		exitRate := hold.TerminalCapRate
		if !exitRate.IsPositive() {
			exitRate = r.CapRate
		}
		p.exitValue = p.exitValue.Add(SafeDiv(net, Pct(exitRate)))
	}
}

func (p *plan) resolveHorizon() int {
	set := p.scenario.Settings
	if set.Strategy == StrategyHold {
		return p.completion + set.Hold.HoldYears*12
	}
	if set.DurationMonths > 0 {
		return set.DurationMonths
	}

	last := maxInt(p.completion, p.settlement)
	for _, item := range p.items {
		if item.Span > 0 {
			last = maxInt(last, item.StartMonth+item.Span-1)
		}
	}
	for _, r := range p.scenario.Revenues {
		if r.Strategy == StrategySell && r.SettlementSpan > 0 {
			last = maxInt(last, p.completion+r.SettlementOffset+r.SettlementSpan-1)
		}
	}
	return last
}

// CostEstimate is the undiscounted, unescalated project cost used for LTC
// limits: catalogue totals plus the acquisition.
func (p *plan) costEstimate() decimal.Decimal {
	total := decimal.Sum(p.deposit, p.balance, p.duty, p.agentFee, p.legalFee)
	for _, item := range p.items {
		total = total.Add(item.Total)
	}
	return total
}

// grossRealisation is the end value used for LVR limits.
func (p *plan) grossRealisation() decimal.Decimal {
	return p.grossSale.Add(p.refinanceValue)
}

func (p *plan) resolveLimit(t CapitalTier) decimal.Decimal {
	switch t.LimitType {
	case LimitLTC:
		return p.costEstimate().Mul(Pct(t.Limit))
	case LimitLVR:
		return p.grossRealisation().Mul(Pct(t.Limit))
	default:
		return t.Limit
	}
}

// establishmentFee resolves a tier's fee against its limit.
func establishmentFee(t CapitalTier, limit decimal.Decimal) decimal.Decimal {
	if t.EstablishmentFeeType == FeePct {
		return limit.Mul(Pct(t.EstablishmentFee))
	}
	return t.EstablishmentFee
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
