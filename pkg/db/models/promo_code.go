package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoCode is an admin-managed discount code. Codes are stored uppercase.
type PromoCode struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string           `gorm:"column:code;type:text;not null;uniqueIndex"`
	DiscountAmount  *decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2)"`
	DiscountPercent *int             `gorm:"column:discount_percent"`
	IsActive        bool             `gorm:"column:is_active;not null"`
	ExpiresAt       *time.Time       `gorm:"column:expires_at;type:timestamptz"`
	UsageLimit      *int             `gorm:"column:usage_limit"`
	UsedCount       int              `gorm:"column:used_count;not null;default:0"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the code has an expiry at or before now.
func (p PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// LimitReached reports whether a configured usage limit is exhausted.
func (p PromoCode) LimitReached() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}
