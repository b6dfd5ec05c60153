package participants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/energypractice/enrollment-backend/pkg/db"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/enums"
)

// InvIDConstraint is the unique constraint guarding payment references.
const InvIDConstraint = "participants_payment_inv_id_key"

// ErrInvIDTaken is returned by AssignInvID when another participant already
// holds the reference.
var ErrInvIDTaken = errors.New("payment reference already assigned to another participant")

// Repository exposes persistence helpers for participants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, participant *models.Participant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	FindByInvID(ctx context.Context, invID int64) (*models.Participant, error)
	FindByInviteLink(ctx context.Context, link string) (*models.Participant, error)
	AssignInvID(ctx context.Context, id uuid.UUID, invID int64, now time.Time) (bool, error)
	SetPromoCode(ctx context.Context, id uuid.UUID, code string, now time.Time) error
	MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	SetInvite(ctx context.Context, id uuid.UUID, link string, issuedAt time.Time) error
	MarkInviteUsed(ctx context.Context, id uuid.UUID, link string, now time.Time) (bool, error)
	ListOutstandingInvites(ctx context.Context) ([]models.Participant, error)
	ListPaidWithoutInvite(ctx context.Context, limit int) ([]models.Participant, error)
	List(ctx context.Context, filter ListFilter) ([]models.Participant, error)
}

// ListFilter narrows the admin listing. Nil bounds are ignored.
type ListFilter struct {
	Status    enums.PaymentStatus
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a participants repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Create inserts a pending participant. The id is always assigned here.
func (r *repositoryImpl) Create(ctx context.Context, participant *models.Participant) error {
	participant.ID = uuid.New()
	if participant.PaymentStatus == "" {
		participant.PaymentStatus = enums.PaymentStatusPending
	}
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repositoryImpl) FindByInvID(ctx context.Context, invID int64) (*models.Participant, error) {
	return r.findOne(ctx, "payment_inv_id = ?", invID)
}

func (r *repositoryImpl) FindByInviteLink(ctx context.Context, link string) (*models.Participant, error) {
	return r.findOne(ctx, "telegram_invite_link = ?", link)
}

func (r *repositoryImpl) findOne(ctx context.Context, query string, args ...any) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.WithContext(ctx).Where(query, args...).Take(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// AssignInvID writes the payment reference once. It reports false when the
// participant is missing or already carries a reference. A reference held by
// another participant returns ErrInvIDTaken.
func (r *repositoryImpl) AssignInvID(ctx context.Context, id uuid.UUID, invID int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ? AND payment_inv_id IS NULL", id).
		Updates(map[string]any{
			"payment_inv_id": invID,
			"updated_at":     now,
		})
	if isInvIDConflict(res.Error) {
		return false, ErrInvIDTaken
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetPromoCode records the normalized code used for the payment link.
func (r *repositoryImpl) SetPromoCode(ctx context.Context, id uuid.UUID, code string, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"promo_code": code,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isInvIDConflict(err error) bool {
	return db.IsUniqueViolation(err, InvIDConstraint) || db.IsUniqueViolation(err, "payment_inv_id")
}

// MarkPaid moves a participant from pending to paid. It reports false when
// the row was not pending, which makes duplicate callbacks no-ops.
func (r *repositoryImpl) MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) SetInvite(ctx context.Context, id uuid.UUID, link string, issuedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"telegram_invite_link":       link,
			"telegram_invite_created_at": issuedAt,
			"telegram_invite_used":       false,
			"updated_at":                 issuedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkInviteUsed flags the invite as consumed only if link is still the
// participant's current link, so a reissued link is never marked by a stale revoke.
func (r *repositoryImpl) MarkInviteUsed(ctx context.Context, id uuid.UUID, link string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ? AND telegram_invite_link = ?", id, link).
		Updates(map[string]any{
			"telegram_invite_used": true,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListOutstandingInvites(ctx context.Context) ([]models.Participant, error) {
	var rows []models.Participant
	err := r.db.WithContext(ctx).
		Where("telegram_invite_used = ?", false).
		Where("telegram_invite_link IS NOT NULL AND telegram_invite_link <> ''").
		Order("telegram_invite_created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListPaidWithoutInvite(ctx context.Context, limit int) ([]models.Participant, error) {
	query := r.db.WithContext(ctx).
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Where("(telegram_invite_link IS NULL OR telegram_invite_link = '')").
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Participant
	err := query.Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.Participant, error) {
	query := r.db.WithContext(ctx).Model(&models.Participant{})
	if filter.Status != "" {
		query = query.Where("payment_status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.MinAmount != nil {
		query = query.Where("payment_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("payment_amount <= ?", *filter.MaxAmount)
	}

	var rows []models.Participant
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}
