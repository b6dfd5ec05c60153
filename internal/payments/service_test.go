package payments

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/internal/promo"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db/dbtest"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/robokassa"
)

var fixedNow = time.Unix(1700000000, 0).UTC()

type fakePromo struct {
	promo.Service
	redeemed  []string
	redeemErr error
}

func (f *fakePromo) Redeem(_ context.Context, code string) error {
	f.redeemed = append(f.redeemed, code)
	return f.redeemErr
}

func testConfig() config.RobokassaConfig {
	return config.RobokassaConfig{
		MerchantLogin: "demo",
		Password1:     "pass1",
		Password2:     "pass2",
		BaseURL:       robokassa.DefaultBaseURL,
		Description:   "Participation fee",
	}
}

func newTestService(t *testing.T, cfg config.RobokassaConfig) (Service, participants.Repository, *fakePromo) {
	t.Helper()
	repo := participants.NewRepository(dbtest.Open(t))
	fp := &fakePromo{}
	svc, err := NewService(ServiceParams{
		Participants: repo,
		Promo:        fp,
		Robokassa:    cfg,
		SiteURL:      "https://example.com/",
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, repo, fp
}

func createParticipant(t *testing.T, repo participants.Repository) *models.Participant {
	t.Helper()
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
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestCreateLinkBuildsSignedURL(t *testing.T) {
	svc, repo, fp := newTestService(t, testConfig())
	p := createParticipant(t, repo)

	result, err := svc.CreateLink(context.Background(), LinkInput{
		ParticipantID: p.ID,
		Amount:        decimal.NewFromInt(25000),
		Email:         "test@example.com",
		PromoCode:     "spring",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), result.InvID)
	assert.Equal(t, "25000.00", result.OutSum)

	parsed, err := url.Parse(result.PaymentURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "demo", q.Get("MerchantLogin"))
	assert.Equal(t, "25000.00", q.Get("OutSum"))
	assert.Equal(t, "1700000000", q.Get("InvId"))
	assert.Equal(t, "Participation fee", q.Get("Description"))
	assert.Equal(t, "276C3028AF21B41BBB426A6171B7A2AA", q.Get("SignatureValue"))
	assert.Equal(t, "test@example.com", q.Get("Email"))
	assert.Equal(t, "0", q.Get("IsTest"))
	assert.Equal(t, "https://example.com/success?participant_id="+p.ID.String(), q.Get("SuccessUrl2"))

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentInvID)
	assert.Equal(t, int64(1700000000), *stored.PaymentInvID)

	assert.Equal(t, []string{"SPRING"}, fp.redeemed)
}

func TestCreateLinkStepsPastTakenReference(t *testing.T) {
	svc, repo, _ := newTestService(t, testConfig())
	holder := createParticipant(t, repo)
	_, err := repo.AssignInvID(context.Background(), holder.ID, fixedNow.Unix(), fixedNow)
	require.NoError(t, err)

	p := createParticipant(t, repo)
	result, err := svc.CreateLink(context.Background(), LinkInput{ParticipantID: p.ID, Amount: decimal.NewFromInt(25000)})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Unix()+1, result.InvID)

	stored, err := repo.FindByInvID(context.Background(), result.InvID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, p.ID, stored.ID)
}

func TestCreateLinkReusesStoredReference(t *testing.T) {
	svc, repo, _ := newTestService(t, testConfig())
	p := createParticipant(t, repo)
	_, err := repo.AssignInvID(context.Background(), p.ID, 1600000000, fixedNow)
	require.NoError(t, err)

	result, err := svc.CreateLink(context.Background(), LinkInput{ParticipantID: p.ID, Amount: decimal.NewFromInt(25000)})
	require.NoError(t, err)
	assert.Equal(t, int64(1600000000), result.InvID)
}

func TestCreateLinkPromoFailureIsNotFatal(t *testing.T) {
	svc, repo, fp := newTestService(t, testConfig())
	fp.redeemErr = promo.ErrLimitReached
	p := createParticipant(t, repo)

	result, err := svc.CreateLink(context.Background(), LinkInput{ParticipantID: p.ID, Amount: decimal.NewFromInt(25000), PromoCode: "FULL"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.PaymentURL)
}

func TestCreateLinkRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Password1 = ""
	svc, repo, _ := newTestService(t, cfg)
	p := createParticipant(t, repo)

	_, err := svc.CreateLink(context.Background(), LinkInput{ParticipantID: p.ID, Amount: decimal.NewFromInt(25000)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConfiguration))

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PaymentInvID, "no reference is allocated without credentials")
}

func TestCreateLinkValidation(t *testing.T) {
	svc, _, _ := newTestService(t, testConfig())

	_, err := svc.CreateLink(context.Background(), LinkInput{Amount: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.CreateLink(context.Background(), LinkInput{ParticipantID: uuid.New(), Amount: decimal.Zero})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.CreateLink(context.Background(), LinkInput{ParticipantID: uuid.New(), Amount: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestCreateLinkStoresNormalizedPromoCode(t *testing.T) {
	svc, repo, fp := newTestService(t, testConfig())
	p := createParticipant(t, repo)
	require.Nil(t, p.PromoCode)

	_, err := svc.CreateLink(context.Background(), LinkInput{
		ParticipantID: p.ID,
		Amount:        decimal.NewFromInt(20000),
		PromoCode:     " save5000 ",
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PromoCode)
	assert.Equal(t, "SAVE5000", *stored.PromoCode)
	assert.Equal(t, []string{"SAVE5000"}, fp.redeemed)

	other := createParticipant(t, repo)
	_, err = svc.CreateLink(context.Background(), LinkInput{ParticipantID: other.ID, Amount: decimal.NewFromInt(20000)})
	require.NoError(t, err)
	stored, err = repo.FindByID(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PromoCode, "no code, nothing stored")
}

type exhaustedRepo struct {
	participants.Repository
	attempts int
}

func (r *exhaustedRepo) FindByID(context.Context, uuid.UUID) (*models.Participant, error) {
	return &models.Participant{PaymentAmount: decimal.NewFromInt(1)}, nil
}

func (r *exhaustedRepo) AssignInvID(context.Context, uuid.UUID, int64, time.Time) (bool, error) {
	r.attempts++
	return false, participants.ErrInvIDTaken
}

type brokenRepo struct {
	participants.Repository
}

func (brokenRepo) FindByID(context.Context, uuid.UUID) (*models.Participant, error) {
	return nil, errors.New("db down")
}

func (brokenRepo) AssignInvID(context.Context, uuid.UUID, int64, time.Time) (bool, error) {
	return false, errors.New("db down")
}

func (brokenRepo) SetPromoCode(context.Context, uuid.UUID, string, time.Time) error {
	return errors.New("db down")
}

func TestCreateLinkStorageFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	now := func() time.Time { return fixedNow }

	exhausted := &exhaustedRepo{}
	svc, err := NewService(ServiceParams{Participants: exhausted, Promo: &fakePromo{}, Robokassa: testConfig(), Logger: logg, Now: now})
	require.NoError(t, err)
	_, err = svc.CreateLink(context.Background(), LinkInput{ParticipantID: uuid.New(), Amount: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	assert.Equal(t, maxAssignAttempts, exhausted.attempts)

	svc, err = NewService(ServiceParams{Participants: brokenRepo{}, Promo: &fakePromo{}, Robokassa: testConfig(), Logger: logg, Now: now})
	require.NoError(t, err)
	result, err := svc.CreateLink(context.Background(), LinkInput{ParticipantID: uuid.New(), Amount: decimal.NewFromInt(1), PromoCode: "spring"})
	require.NoError(t, err, "storage outages still yield a link")
	assert.Equal(t, fixedNow.Unix(), result.InvID)
	parsed, err := url.Parse(result.PaymentURL)
	require.NoError(t, err)
	assert.Empty(t, parsed.Query().Get("SuccessUrl2"), "no site configured")
}
