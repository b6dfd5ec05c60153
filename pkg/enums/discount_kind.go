package enums

// DiscountKind identifies how a promo code reduces the price. Percent wins
// when a code carries both values.
type DiscountKind string

const (
	DiscountKindAmount  DiscountKind = "amount"
	DiscountKindPercent DiscountKind = "percent"
)

func (d DiscountKind) String() string { return string(d) }
