// Package groupfee rolls client fee calculations up to their client group.
package groupfee

import (
	"github.com/shopspring/decimal"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/money"
)

// firstNonZero returns the first candidate that is present and nonzero, or
// zero when none is.
func firstNonZero(candidates ...decimal.NullDecimal) decimal.Decimal {
	for _, c := range candidates {
		if c.Valid && !c.Decimal.IsZero() {
			return c.Decimal
		}
	}
	return decimal.Zero
}

// discountPercentageSources lists, in precedence order, where a fee's
// discount rate may be stored. Older records only carry the previous year's.
func discountPercentageSources(fee domain.FeeRecord) []decimal.NullDecimal {
	return []decimal.NullDecimal{fee.DiscountPercentage, fee.PreviousYearDiscount}
}

// EffectiveDiscountPercentage is the discount rate a fee is billed at.
func EffectiveDiscountPercentage(fee domain.FeeRecord) decimal.Decimal {
	return firstNonZero(discountPercentageSources(fee)...)
}

// EffectiveDiscountAmount prefers the stored amount and otherwise derives
// it from the base amount and the effective rate.
func EffectiveDiscountAmount(fee domain.FeeRecord) decimal.Decimal {
	derived := decimal.NewNullDecimal(money.Percentage(fee.BaseAmount, EffectiveDiscountPercentage(fee)))
	return firstNonZero(fee.DiscountAmount, derived)
}

// Aggregate sums the member fees of a group. Nothing is rounded.
func Aggregate(fees []domain.FeeRecord) domain.GroupFeeAggregate {
	agg := domain.GroupFeeAggregate{
		BaseAmount:     decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalWithVAT:   decimal.Zero,
		FeeCount:       len(fees),
	}
	for _, fee := range fees {
		agg.BaseAmount = agg.BaseAmount.Add(fee.BaseAmount)
		agg.DiscountAmount = agg.DiscountAmount.Add(EffectiveDiscountAmount(fee))
		agg.TotalWithVAT = agg.TotalWithVAT.Add(fee.TotalAmount)
	}
	return agg
}
