package statutory

import "github.com/shopspring/decimal"

// =============================================================================
// GST
// =============================================================================

// DefaultGSTRate is the Australian GST rate in percent.
var DefaultGSTRate = decimal.NewFromInt(10)

// GSTOnAmount is the GST payable on a GST-exclusive amount.
func GSTOnAmount(amount, ratePct decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(ratePct).Div(hundred)
}

// GSTCredit is the input tax credit claimable on a GST-exclusive amount.
// Only creditable (taxable) acquisitions give rise to a credit.
func GSTCredit(amount, ratePct decimal.Decimal, creditable bool) decimal.Decimal {
	if !creditable {
		return decimal.Zero
	}
	return GSTOnAmount(amount, ratePct)
}

// GSTOnSale is the GST component of a GST-inclusive sale price. Under the
// margin scheme only the margin over the land cost basis is taxed, and a
// negative margin attracts no GST.
func GSTOnSale(price, basis, ratePct decimal.Decimal, marginScheme bool) decimal.Decimal {
	taxable := price
	if marginScheme {
		taxable = price.Sub(basis)
	}
	if !taxable.IsPositive() {
		return decimal.Zero
	}
	return taxable.Mul(ratePct).Div(hundred.Add(ratePct))
}
