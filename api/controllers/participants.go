package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/api/responses"
	"github.com/energypractice/enrollment-backend/api/validators"
	"github.com/energypractice/enrollment-backend/internal/participants"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
)

const maxFieldLen = 255

type registerRequest struct {
	FullName      string           `json:"full_name" validate:"required"`
	Phone         string           `json:"phone" validate:"required"`
	Email         string           `json:"email" validate:"required"`
	City          string           `json:"city" validate:"required"`
	Age           string           `json:"age" validate:"required"`
	PaymentAmount *decimal.Decimal `json:"payment_amount" validate:"required,gte=0"`
	PromoCode     string           `json:"promo_code"`
}

type registerResponse struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
}

// ParticipantRegister stores a pending registration from the site form.
func ParticipantRegister(svc participants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "participants service unavailable"))
			return
		}

		var body registerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		participant, err := svc.Register(r.Context(), participants.RegisterInput{
			FullName:      validators.SanitizeString(body.FullName, maxFieldLen),
			Phone:         validators.SanitizeString(body.Phone, maxFieldLen),
			Email:         validators.SanitizeString(body.Email, maxFieldLen),
			City:          validators.SanitizeString(body.City, maxFieldLen),
			Age:           validators.SanitizeString(body.Age, maxFieldLen),
			PaymentAmount: *body.PaymentAmount,
			PromoCode:     validators.SanitizeString(body.PromoCode, maxFieldLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithParticipantID(r.Context(), participant.ID.String())
			logg.Info(ctx, "participant.registered")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, registerResponse{
			ID:            participant.ID.String(),
			PaymentStatus: participant.PaymentStatus.String(),
		})
	}
}

// AdminParticipantList returns the filtered listing with totals.
func AdminParticipantList(svc participants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "participants service unavailable"))
			return
		}

		query := r.URL.Query()
		result, err := svc.List(r.Context(), participants.ListParams{
			Status:    query.Get("status"),
			StartDate: query.Get("start_date"),
			EndDate:   query.Get("end_date"),
			MinAmount: query.Get("min_amount"),
			MaxAmount: query.Get("max_amount"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
