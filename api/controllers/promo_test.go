package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energypractice/enrollment-backend/internal/promo"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/enums"
)

type stubPromo struct {
	discount *promo.Discount
	err      error
}

func (s stubPromo) Validate(context.Context, string) (*promo.Discount, error) {
	return s.discount, s.err
}

func (s stubPromo) Redeem(context.Context, string) error {
	return s.err
}

func (s stubPromo) Save(context.Context, promo.SaveInput) (*models.PromoCode, error) {
	return nil, s.err
}

func postPromo(t *testing.T, svc promo.Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promo/validate", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	PromoValidate(svc, nil).ServeHTTP(rec, req)
	return rec
}

func TestPromoValidatePricesBaseAmount(t *testing.T) {
	percent := 10
	svc := stubPromo{discount: &promo.Discount{Code: "SPRING", Kind: enums.DiscountKindPercent, Percent: &percent}}

	rec := postPromo(t, svc, `{"code":"spring","base_amount":25000}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp promoValidateResponse
	decodeData(t, rec, &resp)
	assert.True(t, resp.Valid)
	assert.Equal(t, "SPRING", resp.Code)
	require.NotNil(t, resp.DiscountPercent)
	assert.Equal(t, 10, *resp.DiscountPercent)
	require.NotNil(t, resp.FinalAmount)
	assert.Equal(t, "22500.00", *resp.FinalAmount)
}

func TestPromoValidateOmitsFinalWithoutBase(t *testing.T) {
	amount := decimal.NewFromInt(5000)
	svc := stubPromo{discount: &promo.Discount{Code: "FLAT", Kind: enums.DiscountKindAmount, Amount: &amount}}

	rec := postPromo(t, svc, `{"code":"flat"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "final_amount")
}

func TestPromoValidateFailuresCarryValidFalse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown", err: promo.ErrNotFound, status: http.StatusNotFound},
		{name: "expired", err: promo.ErrExpired, status: http.StatusBadRequest},
		{name: "exhausted", err: promo.ErrLimitReached, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postPromo(t, stubPromo{err: tt.err}, `{"code":"nope"}`)

			require.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, false, resp.Error.Details["valid"])
			assert.Nil(t, tt.err.(interface{ Details() any }).Details())
		})
	}
}

func TestPromoValidateMissingCode(t *testing.T) {
	rec := postPromo(t, stubPromo{}, `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, false, resp.Error.Details["valid"])
	assert.Equal(t, "is required", resp.Error.Details["code"])
}
