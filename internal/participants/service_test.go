package participants

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energypractice/enrollment-backend/pkg/db/dbtest"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/enums"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, func() time.Time { return baseTime })
	require.NoError(t, err)
	return svc, repo
}

func validInput() RegisterInput {
	return RegisterInput{
		FullName:      " Aigerim S. ",
		Phone:         "+77010000000",
		Email:         "aigerim@example.com",
		City:          "Astana",
		Age:           "34",
		PaymentAmount: decimal.RequireFromString("20000"),
		PromoCode:     " spring ",
	}
}

func TestRegisterCreatesPendingParticipant(t *testing.T) {
	svc, repo := newTestService(t)

	p, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "Aigerim S.", p.FullName)
	assert.Equal(t, enums.PaymentStatusPending, p.PaymentStatus)
	require.NotNil(t, p.PromoCode)
	assert.Equal(t, "SPRING", *p.PromoCode)

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.PaymentAmount.Equal(decimal.NewFromInt(20000)))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	input := validInput()
	input.City = "  "
	input.Age = ""
	_, err := svc.Register(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "city")
	assert.Contains(t, details, "age")

	input = validInput()
	input.PaymentAmount = decimal.NewFromInt(-1)
	_, err = svc.Register(context.Background(), input)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestRegisterOmitsBlankPromo(t *testing.T) {
	svc, _ := newTestService(t)
	input := validInput()
	input.PromoCode = "   "
	p, err := svc.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Nil(t, p.PromoCode)
}

func TestRegisterKeepsLongCyrillicFieldsValid(t *testing.T) {
	svc, repo := newTestService(t)
	input := validInput()
	input.FullName = strings.Repeat("Ж", 300)
	input.City = strings.Repeat("Ё", maxFieldLen)

	p, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(stored.FullName))
	assert.Equal(t, maxFieldLen, utf8.RuneCountInString(stored.FullName))
	assert.Equal(t, strings.Repeat("Ё", maxFieldLen), stored.City)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Анна", clean("  Анна  "))
	assert.Equal(t, strings.Repeat("я", maxFieldLen), clean(strings.Repeat("я", maxFieldLen+1)))
	assert.Equal(t, strings.Repeat("a", maxFieldLen), clean(strings.Repeat("a", maxFieldLen)))
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestListDefaultsToPaidWithStats(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"25000", "20000.50", "100"} {
		input := validInput()
		input.PaymentAmount = decimal.RequireFromString(amount)
		p, err := svc.Register(ctx, input)
		require.NoError(t, err)
		if amount != "100" {
			_, err = repo.MarkPaid(ctx, p.ID, baseTime)
			require.NoError(t, err)
		}
	}

	result, err := svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.TotalCount)
	assert.Equal(t, "45000.50", result.Stats.TotalAmount)
	for _, v := range result.Participants {
		assert.Equal(t, "paid", v.PaymentStatus)
	}

	result, err = svc.List(ctx, ListParams{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.TotalCount)
	assert.Equal(t, "100.00", result.Stats.TotalAmount)
}

func TestListEmptyStats(t *testing.T) {
	svc, _ := newTestService(t)
	result, err := svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.TotalCount)
	assert.Equal(t, "0.00", result.Stats.TotalAmount)
	assert.NotNil(t, result.Participants)
}

func TestParseFilter(t *testing.T) {
	filter, err := parseFilter(ListParams{StartDate: "2026-03-01", EndDate: "2026-03-02", MinAmount: "10", MaxAmount: "20.5"})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, filter.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *filter.From)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC), *filter.To, "bare end date covers the whole day")
	assert.True(t, filter.MaxAmount.Equal(decimal.RequireFromString("20.5")))

	filter, err = parseFilter(ListParams{EndDate: "2026-03-02T12:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), *filter.To)

	for _, params := range []ListParams{
		{Status: "refunded"},
		{StartDate: "yesterday"},
		{EndDate: "03/02/2026"},
		{MinAmount: "ten"},
		{MaxAmount: "1,000"},
	} {
		_, err := parseFilter(params)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "%+v", params)
	}
}

type failingRepo struct{ Repository }

func (failingRepo) List(context.Context, ListFilter) ([]models.Participant, error) {
	return nil, errors.New("db down")
}

func TestListWrapsStoreErrors(t *testing.T) {
	svc, err := NewService(failingRepo{}, nil)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}
