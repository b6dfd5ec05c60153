package promo

import (
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Discount describes how a validated code reduces a price.
type Discount struct {
	Code    string             `json:"code"`
	Kind    enums.DiscountKind `json:"kind"`
	Amount  *decimal.Decimal   `json:"discount_amount"`
	Percent *int               `json:"discount_percent"`
}

func discountFromModel(p *models.PromoCode) *Discount {
	d := &Discount{
		Code:    p.Code,
		Amount:  p.DiscountAmount,
		Percent: p.DiscountPercent,
		Kind:    enums.DiscountKindAmount,
	}
	if p.DiscountPercent != nil && *p.DiscountPercent > 0 {
		d.Kind = enums.DiscountKindPercent
	}
	return d
}

// Apply returns base reduced by the discount, never below zero, rounded to
// two places. A positive percent takes precedence over a fixed amount.
func (d *Discount) Apply(base decimal.Decimal) decimal.Decimal {
	if d == nil {
		return base.Round(2)
	}
	result := base
	switch {
	case d.Percent != nil && *d.Percent > 0:
		pct := decimal.NewFromInt(int64(*d.Percent))
		result = base.Sub(base.Mul(pct).Div(hundred))
	case d.Amount != nil:
		result = base.Sub(*d.Amount)
	}
	if result.IsNegative() {
		return decimal.Zero.Round(2)
	}
	return result.Round(2)
}
