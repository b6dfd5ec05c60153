package participants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energypractice/enrollment-backend/pkg/db/dbtest"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/enums"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newParticipant(amount string, createdAt time.Time) *models.Participant {
	return &models.Participant{
		FullName:      "Test Person",
		Phone:         "+77000000000",
		Email:         "test@example.com",
		City:          "Almaty",
		Age:           "30",
		PaymentAmount: decimal.RequireFromString(amount),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestRepositoryCreateAssignsIDAndPending(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	p := newParticipant("25000", baseTime)
	p.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	require.NoError(t, repo.Create(ctx, p))
	assert.NotEqual(t, uuid.MustParse("00000000-0000-0000-0000-000000000001"), p.ID, "caller supplied ids are replaced")

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.PaymentStatusPending, found.PaymentStatus)
	assert.True(t, found.PaymentAmount.Equal(decimal.NewFromInt(25000)))
	assert.Nil(t, found.PaymentInvID)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryAssignInvIDIsWriteOnceAndUnique(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	first := newParticipant("25000", baseTime)
	second := newParticipant("25000", baseTime)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	ok, err := repo.AssignInvID(ctx, first.ID, 1700000000, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AssignInvID(ctx, first.ID, 1700000001, baseTime)
	require.NoError(t, err)
	assert.False(t, ok, "reference is immutable once set")

	_, err = repo.AssignInvID(ctx, second.ID, 1700000000, baseTime)
	assert.ErrorIs(t, err, ErrInvIDTaken)

	found, err := repo.FindByInvID(ctx, 1700000000)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestRepositoryMarkPaidOnlyFromPending(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	p := newParticipant("25000", baseTime)
	require.NoError(t, repo.Create(ctx, p))

	ok, err := repo.MarkPaid(ctx, p.ID, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPaid(ctx, p.ID, baseTime.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second transition is a no-op")

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, found.PaymentStatus)
}

func TestRepositoryInviteLifecycle(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	withInvite := newParticipant("25000", baseTime)
	withoutInvite := newParticipant("25000", baseTime)
	require.NoError(t, repo.Create(ctx, withInvite))
	require.NoError(t, repo.Create(ctx, withoutInvite))
	_, err := repo.MarkPaid(ctx, withInvite.ID, baseTime)
	require.NoError(t, err)
	_, err = repo.MarkPaid(ctx, withoutInvite.ID, baseTime)
	require.NoError(t, err)

	require.NoError(t, repo.SetInvite(ctx, withInvite.ID, "https://t.me/+one", baseTime))

	outstanding, err := repo.ListOutstandingInvites(ctx)
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, withInvite.ID, outstanding[0].ID)

	pending, err := repo.ListPaidWithoutInvite(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, withoutInvite.ID, pending[0].ID)

	byLink, err := repo.FindByInviteLink(ctx, "https://t.me/+one")
	require.NoError(t, err)
	require.NotNil(t, byLink)
	assert.Equal(t, withInvite.ID, byLink.ID)

	ok, err := repo.MarkInviteUsed(ctx, withInvite.ID, "https://t.me/+stale", baseTime)
	require.NoError(t, err)
	assert.False(t, ok, "stale link must not mark the current invite")

	ok, err = repo.MarkInviteUsed(ctx, withInvite.ID, "https://t.me/+one", baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	outstanding, err = repo.ListOutstandingInvites(ctx)
	require.NoError(t, err)
	assert.Empty(t, outstanding)

	require.NoError(t, repo.SetInvite(ctx, withInvite.ID, "https://t.me/+two", baseTime.Add(time.Hour)))
	found, err := repo.FindByID(ctx, withInvite.ID)
	require.NoError(t, err)
	assert.False(t, found.TelegramInviteUsed, "reissue resets the used flag")
	assert.Equal(t, "https://t.me/+two", *found.TelegramInviteLink)

	assert.Error(t, repo.SetInvite(ctx, uuid.New(), "https://t.me/+ghost", baseTime))
}

func TestRepositoryListFilters(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	cheap := newParticipant("5000", baseTime)
	mid := newParticipant("20000", baseTime.Add(24*time.Hour))
	rich := newParticipant("25000", baseTime.Add(48*time.Hour))
	unpaid := newParticipant("25000", baseTime.Add(48*time.Hour))
	for _, p := range []*models.Participant{cheap, mid, rich, unpaid} {
		require.NoError(t, repo.Create(ctx, p))
	}
	for _, p := range []*models.Participant{cheap, mid, rich} {
		_, err := repo.MarkPaid(ctx, p.ID, baseTime)
		require.NoError(t, err)
	}

	rows, err := repo.List(ctx, ListFilter{Status: enums.PaymentStatusPaid})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rich.ID, rows[0].ID, "newest first")
	assert.Equal(t, cheap.ID, rows[2].ID)

	minAmount := decimal.NewFromInt(10000)
	rows, err = repo.List(ctx, ListFilter{Status: enums.PaymentStatusPaid, MinAmount: &minAmount})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	maxAmount := decimal.NewFromInt(20000)
	rows, err = repo.List(ctx, ListFilter{Status: enums.PaymentStatusPaid, MaxAmount: &maxAmount})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	from := baseTime.Add(12 * time.Hour)
	to := baseTime.Add(36 * time.Hour)
	rows, err = repo.List(ctx, ListFilter{Status: enums.PaymentStatusPaid, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mid.ID, rows[0].ID)

	rows, err = repo.List(ctx, ListFilter{Status: enums.PaymentStatusPending})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unpaid.ID, rows[0].ID)
}
