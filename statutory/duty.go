/*
Package statutory computes jurisdiction-specific charges.

PURPOSE:
  Transfer (stamp) duty, foreign purchaser surcharge, land tax, council
  rates and GST. Pure functions over decimal amounts; no state.

MARGINAL SCHEDULES:
  Every schedule is a list of brackets {Threshold, Base, Rate}. The bracket
  used is the highest one whose Threshold is below the value, and the
  charge is Base + (value - Threshold) x Rate%.

  Victoria, purchase price 1,000,000:
    bracket {480,000, 20,370, 6}
    duty = 20,370 + (1,000,000 - 480,000) x 6% = 51,570

SEE ALSO:
  - gst.go: GST helpers
  - feaso/engine.go: charges duty at settlement
*/
package statutory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownJurisdiction is returned when no table exists for a jurisdiction.
var ErrUnknownJurisdiction = errors.New("unknown jurisdiction")

// =============================================================================
// SCHEDULES
// =============================================================================

// Bracket is one step of a marginal schedule. Rate is in percent.
type Bracket struct {
	Threshold decimal.Decimal
	Base      decimal.Decimal
	Rate      decimal.Decimal
}

// Schedule is sorted by Threshold ascending.
type Schedule []Bracket

// Apply evaluates the schedule at value.
func (s Schedule) Apply(value decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() || len(s) == 0 {
		return decimal.Zero
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].Threshold.GreaterThanOrEqual(value) })
	if i == 0 {
		// value sits at or below the first threshold
		i = 1
	}
	b := s[i-1]
	over := value.Sub(b.Threshold)
	if over.IsNegative() {
		over = decimal.Zero
	}
	return b.Base.Add(over.Mul(b.Rate).Div(hundred))
}

// Jurisdiction bundles the tables of one state.
type Jurisdiction struct {
	Code             string
	Name             string
	Duty             Schedule
	ForeignSurcharge decimal.Decimal // % of price
	LandTax          Schedule        // annual
}

var hundred = decimal.NewFromInt(100)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func br(threshold, base, rate string) Bracket {
	return Bracket{Threshold: d(threshold), Base: d(base), Rate: d(rate)}
}

var jurisdictions = map[string]Jurisdiction{
	"VIC": {
		Code: "VIC",
		Name: "Victoria",
		Duty: Schedule{
			br("0", "0", "1.4"),
			br("25000", "350", "2.4"),
			br("130000", "2870", "5"),
			br("480000", "20370", "6"),
			br("2000000", "111570", "6.5"),
		},
		ForeignSurcharge: d("8"),
		LandTax: Schedule{
			br("0", "0", "0"),
			br("50000", "500", "0"),
			br("100000", "975", "0"),
			br("300000", "1350", "0.3"),
			br("600000", "2250", "0.6"),
			br("1000000", "4650", "0.9"),
			br("1800000", "11850", "1.65"),
			br("3000000", "31650", "2.65"),
		},
	},
	"NSW": {
		Code: "NSW",
		Name: "New South Wales",
		Duty: Schedule{
			br("0", "0", "1.25"),
			br("17000", "212", "1.5"),
			br("36000", "497", "1.75"),
			br("97000", "1564", "3.5"),
			br("364000", "10909", "4.5"),
			br("1212000", "49069", "5.5"),
		},
		ForeignSurcharge: d("8"),
		LandTax: Schedule{
			br("0", "0", "0"),
			br("1075000", "100", "1.6"),
			br("6571000", "88036", "2"),
		},
	},
	"QLD": {
		Code: "QLD",
		Name: "Queensland",
		Duty: Schedule{
			br("0", "0", "0"),
			br("5000", "0", "1.5"),
			br("75000", "1050", "3.5"),
			br("540000", "17325", "4.5"),
			br("1000000", "38025", "5.75"),
		},
		ForeignSurcharge: d("8"),
		LandTax: Schedule{
			br("0", "0", "0"),
			br("600000", "500", "1"),
			br("1000000", "4500", "1.65"),
			br("3000000", "37500", "1.25"),
			br("5000000", "62500", "1.75"),
		},
	},
	"WA": {
		Code: "WA",
		Name: "Western Australia",
		Duty: Schedule{
			br("0", "0", "1.9"),
			br("120000", "2280", "2.85"),
			br("150000", "3135", "3.8"),
			br("360000", "11115", "4.75"),
			br("725000", "28453", "5.15"),
		},
		ForeignSurcharge: d("7"),
		LandTax: Schedule{
			br("0", "0", "0"),
			br("300000", "300", "0.25"),
			br("420000", "600", "0.9"),
			br("1000000", "5820", "1.8"),
			br("1800000", "20220", "2"),
		},
	},
	"SA": {
		Code: "SA",
		Name: "South Australia",
		Duty: Schedule{
			br("0", "0", "1"),
			br("12000", "120", "2"),
			br("30000", "480", "3"),
			br("50000", "1080", "3.5"),
			br("100000", "2830", "4"),
			br("200000", "6830", "4.25"),
			br("250000", "8955", "4.75"),
			br("300000", "11330", "5"),
			br("500000", "21330", "5.5"),
		},
		ForeignSurcharge: d("7"),
		LandTax: Schedule{
			br("0", "0", "0"),
			br("732000", "0", "1"),
			br("1176000", "4440", "2"),
			br("1713000", "15180", "2.4"),
		},
	},
}

// Lookup returns the tables for a jurisdiction code (case-insensitive).
func Lookup(code string) (Jurisdiction, error) {
	j, ok := jurisdictions[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Jurisdiction{}, fmt.Errorf("%w: %q", ErrUnknownJurisdiction, code)
	}
	return j, nil
}

// Codes lists the supported jurisdiction codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(jurisdictions))
	for c := range jurisdictions {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// =============================================================================
// CHARGES
// =============================================================================

// StampDuty is transfer duty on price, plus the foreign purchaser surcharge
// when foreign is set. Unknown jurisdictions attract no duty.
func StampDuty(price decimal.Decimal, jurisdiction string, foreign bool) decimal.Decimal {
	j, err := Lookup(jurisdiction)
	if err != nil || !price.IsPositive() {
		return decimal.Zero
	}
	duty := j.Duty.Apply(price)
	if foreign {
		duty = duty.Add(price.Mul(j.ForeignSurcharge).Div(hundred))
	}
	return duty.Round(2)
}

// LandTax is the annual land tax on a taxable land value.
func LandTax(value decimal.Decimal, jurisdiction string) decimal.Decimal {
	j, err := Lookup(jurisdiction)
	if err != nil {
		return decimal.Zero
	}
	return j.LandTax.Apply(value).Round(2)
}

// CouncilRates is the annual council charge at ratePct of value.
func CouncilRates(value, ratePct decimal.Decimal) decimal.Decimal {
	if !value.IsPositive() || !ratePct.IsPositive() {
		return decimal.Zero
	}
	return value.Mul(ratePct).Div(hundred).Round(2)
}
