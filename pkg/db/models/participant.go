package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/pkg/enums"
)

// Participant is a registrant moving through payment and invite issuance.
type Participant struct {
	ID                      uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName                string              `gorm:"column:full_name;type:text;not null"`
	Phone                   string              `gorm:"column:phone;type:text;not null"`
	Email                   string              `gorm:"column:email;type:text;not null"`
	City                    string              `gorm:"column:city;type:text;not null"`
	Age                     string              `gorm:"column:age;type:text;not null"`
	PaymentStatus           enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentAmount           decimal.Decimal     `gorm:"column:payment_amount;type:numeric(12,2);not null"`
	PaymentInvID            *int64              `gorm:"column:payment_inv_id;uniqueIndex"`
	PromoCode               *string             `gorm:"column:promo_code;type:text"`
	TelegramInviteLink      *string             `gorm:"column:telegram_invite_link;type:text"`
	TelegramInviteCreatedAt *time.Time          `gorm:"column:telegram_invite_created_at;type:timestamptz"`
	TelegramInviteUsed      bool                `gorm:"column:telegram_invite_used;not null;default:false"`
	CreatedAt               time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPaid reports whether the payment callback has been verified.
func (p Participant) IsPaid() bool {
	return p.PaymentStatus == enums.PaymentStatusPaid
}

// HasUnusedInvite reports whether an issued invite is still redeemable.
func (p Participant) HasUnusedInvite() bool {
	return p.TelegramInviteLink != nil && *p.TelegramInviteLink != "" && !p.TelegramInviteUsed
}
