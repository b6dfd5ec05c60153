package participants

import (
	"time"

	"github.com/energypractice/enrollment-backend/pkg/db/models"
)

// View is the admin-facing JSON shape of a participant.
type View struct {
	ID                      string     `json:"id"`
	FullName                string     `json:"full_name"`
	Phone                   string     `json:"phone"`
	Email                   string     `json:"email"`
	City                    string     `json:"city"`
	Age                     string     `json:"age"`
	PaymentStatus           string     `json:"payment_status"`
	PaymentAmount           string     `json:"payment_amount"`
	PaymentInvID            *int64     `json:"payment_inv_id"`
	PromoCode               *string    `json:"promo_code"`
	TelegramInviteLink      *string    `json:"telegram_invite_link"`
	TelegramInviteCreatedAt *time.Time `json:"telegram_invite_created_at"`
	TelegramInviteUsed      bool       `json:"telegram_invite_used"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

func NewView(p *models.Participant) View {
	return View{
		ID:                      p.ID.String(),
		FullName:                p.FullName,
		Phone:                   p.Phone,
		Email:                   p.Email,
		City:                    p.City,
		Age:                     p.Age,
		PaymentStatus:           p.PaymentStatus.String(),
		PaymentAmount:           p.PaymentAmount.StringFixed(2),
		PaymentInvID:            p.PaymentInvID,
		PromoCode:               p.PromoCode,
		TelegramInviteLink:      p.TelegramInviteLink,
		TelegramInviteCreatedAt: p.TelegramInviteCreatedAt,
		TelegramInviteUsed:      p.TelegramInviteUsed,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}
