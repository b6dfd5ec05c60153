package promo

import (
	"context"
	"errors"
	"time"

	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence helpers for promo codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, code string, now time.Time) (bool, error)
	Upsert(ctx context.Context, promo *models.PromoCode) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a promo repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindByCode returns nil, nil when no row matches.
func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// IncrementUsage bumps used_count only while the code is still redeemable,
// so concurrent redemptions can never push used_count past usage_limit.
func (r *repositoryImpl) IncrementUsage(ctx context.Context, code string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("code = ?", code).
		Where("is_active = ?", true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Where("(usage_limit IS NULL OR used_count < usage_limit)").
		Updates(map[string]any{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Upsert inserts a code or replaces its terms. used_count is preserved.
func (r *repositoryImpl) Upsert(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"discount_amount",
			"discount_percent",
			"is_active",
			"expires_at",
			"usage_limit",
			"updated_at",
		}),
	}).Create(promo).Error
}
