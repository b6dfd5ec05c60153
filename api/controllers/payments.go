package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/api/responses"
	"github.com/energypractice/enrollment-backend/api/validators"
	"github.com/energypractice/enrollment-backend/internal/payments"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
)

type paymentLinkRequest struct {
	ParticipantID string          `json:"participant_id" validate:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Email         string          `json:"email" validate:"omitempty,email"`
	Description   string          `json:"description"`
	PromoCode     string          `json:"promo_code"`
}

// PaymentLink returns a signed gateway redirect for a registered participant.
func PaymentLink(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body paymentLinkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		participantID, err := uuid.Parse(body.ParticipantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid participant id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithParticipantID(ctx, participantID.String())
		}
		result, err := svc.CreateLink(ctx, payments.LinkInput{
			ParticipantID: participantID,
			Amount:        body.Amount,
			Email:         validators.SanitizeString(body.Email, maxFieldLen),
			Description:   validators.SanitizeString(body.Description, maxFieldLen),
			PromoCode:     validators.SanitizeString(body.PromoCode, maxFieldLen),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
