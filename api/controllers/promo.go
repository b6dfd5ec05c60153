package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/api/responses"
	"github.com/energypractice/enrollment-backend/api/validators"
	"github.com/energypractice/enrollment-backend/internal/promo"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
)

type promoValidateRequest struct {
	Code       string           `json:"code" validate:"required"`
	BaseAmount *decimal.Decimal `json:"base_amount"`
}

type promoValidateResponse struct {
	Valid           bool             `json:"valid"`
	Code            string           `json:"code"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount"`
	DiscountPercent *int             `json:"discount_percent"`
	FinalAmount     *string          `json:"final_amount,omitempty"`
}

// PromoValidate checks a code and, when base_amount is given, prices it.
func PromoValidate(svc promo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		var body promoValidateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, invalidPromo(err))
			return
		}

		discount, err := svc.Validate(r.Context(), body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidPromo(err))
			return
		}

		resp := promoValidateResponse{
			Valid:           true,
			Code:            discount.Code,
			DiscountAmount:  discount.Amount,
			DiscountPercent: discount.Percent,
		}
		if body.BaseAmount != nil {
			final := discount.Apply(*body.BaseAmount).StringFixed(2)
			resp.FinalAmount = &final
		}
		responses.WriteSuccess(w, resp)
	}
}

// invalidPromo copies the failure so shared sentinel errors are never mutated.
func invalidPromo(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	details := map[string]any{"valid": false}
	if existing, ok := typed.Details().(map[string]string); ok {
		for field, msg := range existing {
			details[field] = msg
		}
	}
	return pkgerrors.Wrap(typed.Code(), err, typed.Message()).WithDetails(details)
}
