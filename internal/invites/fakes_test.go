package invites

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/pkg/db/dbtest"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu         sync.Mutex
	created    []string
	revoked    []string
	createErr  error
	revokeErrs map[string]error
}

func (f *fakeProvider) CreateSingleUseInvite(_ context.Context, name string) (*telegram.InviteLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	return &telegram.InviteLink{InviteLink: fmt.Sprintf("https://t.me/+link%d", len(f.created)), MemberLimit: 1}, nil
}

func (f *fakeProvider) RevokeInvite(_ context.Context, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.revokeErrs[link]; err != nil {
		return err
	}
	f.revoked = append(f.revoked, link)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newRepo(t *testing.T) participants.Repository {
	t.Helper()
	return participants.NewRepository(dbtest.Open(t))
}

func seedParticipant(t *testing.T, repo participants.Repository, paid bool) *models.Participant {
	t.Helper()
	ctx := context.Background()
	p := &models.Participant{
		FullName:      "Test Person",
		Phone:         "+77000000000",
		Email:         "test@example.com",
		City:          "Almaty",
		Age:           "30",
		PaymentAmount: decimal.NewFromInt(25000),
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
	require.NoError(t, repo.Create(ctx, p))
	if paid {
		ok, err := repo.MarkPaid(ctx, p.ID, fixedNow)
		require.NoError(t, err)
		require.True(t, ok)
	}
	return p
}

func seedInvite(t *testing.T, repo participants.Repository, link string) *models.Participant {
	t.Helper()
	p := seedParticipant(t, repo, true)
	require.NoError(t, repo.SetInvite(context.Background(), p.ID, link, fixedNow))
	return p
}

func reload(t *testing.T, repo participants.Repository, p *models.Participant) *models.Participant {
	t.Helper()
	found, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	return found
}
