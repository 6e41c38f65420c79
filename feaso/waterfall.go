package feaso

import "github.com/shopspring/decimal"

// =============================================================================
// WATERFALL - Funding deficits and repaying from surpluses
// =============================================================================

// fund covers a deficit. Acquisition obligations are met first and outside
// the general order: the deposit from equity, settlement by a senior draw
// that ignores the senior limit and activation month. The forced draw needs
// a senior facility to exist (positive limit); without one, settlement falls
// through to the general order. The remainder is met from surplus cash, then
// mezzanine and senior up to their limits, and finally equity, which is
// uncapped.
func (s *simulation) fund(m int, deficit decimal.Decimal, obl obligations, f *MonthlyFlow) {
	take := func(available decimal.Decimal) decimal.Decimal {
		amt := minDec(deficit, maxDec(decimal.Zero, available))
		deficit = deficit.Sub(amt)
		return amt
	}

	f.Equity.Draw = f.Equity.Draw.Add(take(obl.deposit))

	if s.senior.limit.IsPositive() {
		forced := take(obl.settlement)
		s.senior.balance = s.senior.balance.Add(forced)
		f.Senior.Draw = f.Senior.Draw.Add(forced)
	}

	s.cash = s.cash.Sub(take(s.cash))

	mezz := take(s.mezzanine.available(m))
	s.mezzanine.balance = s.mezzanine.balance.Add(mezz)
	f.Mezzanine.Draw = f.Mezzanine.Draw.Add(mezz)

	senior := take(s.senior.available(m))
	s.senior.balance = s.senior.balance.Add(senior)
	f.Senior.Draw = f.Senior.Draw.Add(senior)

	f.Equity.Draw = f.Equity.Draw.Add(deficit)
}

// repay applies a surplus: senior, then mezzanine, then the investment loan
// at the terminal month. What is left is held as cash until the terminal
// month, when it goes to equity. Repayments accumulate on f, so repay may run
// more than once in a month.
func (s *simulation) repay(surplus decimal.Decimal, terminal bool, f *MonthlyFlow) {
	pay := func(balance *decimal.Decimal) decimal.Decimal {
		amt := minDec(surplus, *balance)
		if !amt.IsPositive() {
			return decimal.Zero
		}
		*balance = balance.Sub(amt)
		surplus = surplus.Sub(amt)
		return amt
	}

	f.Senior.Repayment = f.Senior.Repayment.Add(pay(&s.senior.balance))
	f.Mezzanine.Repayment = f.Mezzanine.Repayment.Add(pay(&s.mezzanine.balance))
	if terminal {
		f.Investment.Repayment = f.Investment.Repayment.Add(pay(&s.investment))
		f.Equity.Repayment = f.Equity.Repayment.Add(surplus)
		return
	}
	s.cash = s.cash.Add(surplus)
}
