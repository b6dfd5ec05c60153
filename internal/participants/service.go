package participants

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/internal/promo"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/enums"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
)

const maxFieldLen = 255

// Service registers participants and serves the admin listing.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Participant, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// RegisterInput carries the registration form. Personal fields are opaque
// and only checked for presence.
type RegisterInput struct {
	FullName      string
	Phone         string
	Email         string
	City          string
	Age           string
	PaymentAmount decimal.Decimal
	PromoCode     string
}

// ListParams holds raw admin filters as received on the query string.
type ListParams struct {
	Status    string
	StartDate string
	EndDate   string
	MinAmount string
	MaxAmount string
}

type ListResult struct {
	Participants []View `json:"participants"`
	Stats        Stats  `json:"stats"`
}

type Stats struct {
	TotalCount  int    `json:"total_count"`
	TotalAmount string `json:"total_amount"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires participant dependencies. now defaults to time.Now.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "participants repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Participant, error) {
	participant := &models.Participant{
		FullName:      clean(input.FullName),
		Phone:         clean(input.Phone),
		Email:         clean(input.Email),
		City:          clean(input.City),
		Age:           clean(input.Age),
		PaymentStatus: enums.PaymentStatusPending,
		PaymentAmount: input.PaymentAmount.Round(2),
	}

	missing := map[string]string{}
	for field, value := range map[string]string{
		"full_name": participant.FullName,
		"phone":     participant.Phone,
		"email":     participant.Email,
		"city":      participant.City,
		"age":       participant.Age,
	} {
		if value == "" {
			missing[field] = "is required"
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(missing)
	}
	if participant.PaymentAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"payment_amount": "must not be negative"})
	}
	if code := promo.NormalizeCode(input.PromoCode); code != "" {
		participant.PromoCode = &code
	}

	now := s.now().UTC()
	participant.CreatedAt = now
	participant.UpdatedAt = now

	if err := s.repo.Create(ctx, participant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create participant")
	}
	return participant, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant id required")
	}
	participant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant")
	}
	if participant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "participant not found")
	}
	return participant, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	filter, err := parseFilter(params)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list participants")
	}

	total := decimal.Zero
	views := make([]View, 0, len(rows))
	for i := range rows {
		total = total.Add(rows[i].PaymentAmount)
		views = append(views, NewView(&rows[i]))
	}

	return &ListResult{
		Participants: views,
		Stats: Stats{
			TotalCount:  len(rows),
			TotalAmount: total.StringFixed(2),
		},
	}, nil
}

func parseFilter(params ListParams) (ListFilter, error) {
	filter := ListFilter{Status: enums.PaymentStatusPaid}

	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filter, invalidFilter("status", "must be pending or paid")
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(params.StartDate); raw != "" {
		from, _, err := parseDate(raw)
		if err != nil {
			return filter, invalidFilter("start_date", "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(params.EndDate); raw != "" {
		to, dateOnly, err := parseDate(raw)
		if err != nil {
			return filter, invalidFilter("end_date", "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}
	if raw := strings.TrimSpace(params.MinAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, invalidFilter("min_amount", "must be numeric")
		}
		filter.MinAmount = &amount
	}
	if raw := strings.TrimSpace(params.MaxAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, invalidFilter("max_amount", "must be numeric")
		}
		filter.MaxAmount = &amount
	}
	return filter, nil
}

// parseDate reports whether the value was a bare calendar date.
func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

func invalidFilter(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid filter").WithDetails(map[string]any{"field": field, "error": msg})
}

// clean trims value and caps it at maxFieldLen runes, never splitting a
// multi-byte character.
func clean(value string) string {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) <= maxFieldLen {
		return trimmed
	}
	runes := 0
	for i := range trimmed {
		if runes == maxFieldLen {
			return strings.TrimSpace(trimmed[:i])
		}
		runes++
	}
	return trimmed
}
