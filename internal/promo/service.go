package promo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/pkg/db/models"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
)

var (
	ErrNotFound     = pkgerrors.New(pkgerrors.CodeNotFound, "invalid or expired promo code")
	ErrExpired      = pkgerrors.New(pkgerrors.CodeValidation, "promo code has expired")
	ErrLimitReached = pkgerrors.New(pkgerrors.CodeValidation, "promo code usage limit reached")
)

// Service validates and redeems promo codes.
type Service interface {
	Validate(ctx context.Context, code string) (*Discount, error)
	Redeem(ctx context.Context, code string) error
	Save(ctx context.Context, input SaveInput) (*models.PromoCode, error)
}

// SaveInput defines an admin-managed promo code.
type SaveInput struct {
	Code            string
	DiscountAmount  *decimal.Decimal
	DiscountPercent *int
	Active          bool
	ExpiresAt       *time.Time
	UsageLimit      *int
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires promo dependencies. now defaults to time.Now.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "promo repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

// NormalizeCode trims and uppercases a user-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Validate(ctx context.Context, code string) (*Discount, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}

	promo, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup promo code")
	}
	if promo == nil || !promo.IsActive {
		return nil, ErrNotFound
	}
	if promo.Expired(s.now().UTC()) {
		return nil, ErrExpired
	}
	if promo.LimitReached() {
		return nil, ErrLimitReached
	}
	return discountFromModel(promo), nil
}

func (s *service) Redeem(ctx context.Context, code string) error {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	ok, err := s.repo.IncrementUsage(ctx, normalized, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem promo code")
	}
	if !ok {
		return ErrLimitReached
	}
	return nil
}

func (s *service) Save(ctx context.Context, input SaveInput) (*models.PromoCode, error) {
	code := NormalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is required")
	}
	if input.DiscountAmount == nil && input.DiscountPercent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount amount or percent is required")
	}
	if input.DiscountAmount != nil && input.DiscountAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount amount must not be negative")
	}
	if p := input.DiscountPercent; p != nil && (*p < 0 || *p > 100) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
	}
	if l := input.UsageLimit; l != nil && *l < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage limit must not be negative")
	}

	now := s.now().UTC()
	promo := &models.PromoCode{
		ID:              uuid.New(),
		Code:            code,
		DiscountAmount:  input.DiscountAmount,
		DiscountPercent: input.DiscountPercent,
		IsActive:        input.Active,
		ExpiresAt:       input.ExpiresAt,
		UsageLimit:      input.UsageLimit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Upsert(ctx, promo); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save promo code")
	}
	return promo, nil
}
