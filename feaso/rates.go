package feaso

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE SCHEDULE - Time-varying interest rates
// =============================================================================

// RateStep is a rate that applies from FromMonth until the next step.
type RateStep struct {
	FromMonth int
	Rate      decimal.Decimal // annual %
}

// RateSchedule is kept sorted by FromMonth. The rate in force at a month is
// the one with the latest FromMonth <= month.
type RateSchedule []RateStep

// NewRateSchedule sorts a copy of steps.
func NewRateSchedule(steps ...RateStep) RateSchedule {
	s := append(RateSchedule(nil), steps...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].FromMonth < s[j].FromMonth })
	return s
}

// At returns the rate in force at month. ok is false when no step has started.
func (s RateSchedule) At(month int) (decimal.Decimal, bool) {
	// first step starting after month
	i := sort.Search(len(s), func(i int) bool { return s[i].FromMonth > month })
	if i == 0 {
		return decimal.Zero, false
	}
	return s[i-1].Rate, true
}

// Shift adds delta to every step.
func (s RateSchedule) Shift(delta decimal.Decimal) RateSchedule {
	out := s.clone()
	for i := range out {
		out[i].Rate = out[i].Rate.Add(delta)
	}
	return out
}

func (s RateSchedule) clone() RateSchedule {
	if s == nil {
		return nil
	}
	return append(RateSchedule(nil), s...)
}
