package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// PercentOf applies a basis-point percentage to an amount, truncating toward zero.
func PercentOf(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return amount * Money(bps) / 10000
}

// PercentOfHalfUp applies a basis-point percentage rounding half up.
func PercentOfHalfUp(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}

// ClampMin returns amount raised to at least floor.
func ClampMin(amount, floor Money) Money {
	if amount < floor {
		return floor
	}
	return amount
}

// ClampMax returns amount lowered to at most ceil when ceil is set.
func ClampMax(amount Money, ceil *Money) Money {
	if ceil != nil && amount > *ceil {
		return *ceil
	}
	return amount
}
