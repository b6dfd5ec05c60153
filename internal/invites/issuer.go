package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
)

// Issuer hands out single-use group invites to paid participants.
type Issuer interface {
	Issue(ctx context.Context, participantID uuid.UUID) (*IssueResult, error)
	Reissue(ctx context.Context, participantID uuid.UUID) (*IssueResult, error)
}

type IssueResult struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	InviteLink    string    `json:"invite_link"`
	IssuedAt      time.Time `json:"issued_at"`
	Reused        bool      `json:"reused"`
}

type IssuerParams struct {
	Participants participants.Repository
	// Provider may be nil when the bot is not configured.
	Provider Provider
	Metrics  *metrics.PipelineMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type issuer struct {
	participants participants.Repository
	provider     Provider
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewIssuer(params IssuerParams) (Issuer, error) {
	if params.Participants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "participants repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &issuer{
		participants: params.Participants,
		provider:     params.Provider,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (i *issuer) Issue(ctx context.Context, participantID uuid.UUID) (*IssueResult, error) {
	participant, err := i.loadPaid(ctx, participantID)
	if err != nil {
		return nil, err
	}

	if participant.HasUnusedInvite() {
		i.metrics.InviteIssued(metrics.ResultReused)
		result := &IssueResult{
			ParticipantID: participant.ID,
			InviteLink:    *participant.TelegramInviteLink,
			Reused:        true,
		}
		if participant.TelegramInviteCreatedAt != nil {
			result.IssuedAt = *participant.TelegramInviteCreatedAt
		}
		return result, nil
	}
	if participant.TelegramInviteUsed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invite link already used").
			WithDetails(map[string]any{"participant_id": participant.ID.String()})
	}

	return i.create(ctx, participant)
}

// Reissue always mints a new link, replacing whatever is stored.
func (i *issuer) Reissue(ctx context.Context, participantID uuid.UUID) (*IssueResult, error) {
	participant, err := i.loadPaid(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return i.create(ctx, participant)
}

func (i *issuer) loadPaid(ctx context.Context, participantID uuid.UUID) (*models.Participant, error) {
	if participantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant id required")
	}
	participant, err := i.participants.FindByID(ctx, participantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant")
	}
	if participant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "participant not found")
	}
	if !participant.IsPaid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "participant has not paid").
			WithDetails(map[string]any{"payment_status": participant.PaymentStatus.String()})
	}
	return participant, nil
}

func (i *issuer) create(ctx context.Context, participant *models.Participant) (*IssueResult, error) {
	if i.provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "telegram bot is not configured")
	}
	ctx = i.logg.WithParticipantID(ctx, participant.ID.String())

	link, err := i.provider.CreateSingleUseInvite(ctx, inviteName(participant.ID))
	if err != nil {
		i.metrics.InviteIssued(metrics.ResultFailure)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invite link")
	}

	issuedAt := i.now().UTC()
	if err := i.participants.SetInvite(ctx, participant.ID, link.InviteLink, issuedAt); err != nil {
		i.logg.Error(ctx, "persist invite link", err)
	}

	i.metrics.InviteIssued(metrics.ResultSuccess)
	i.logg.Info(ctx, "invite link issued")
	return &IssueResult{
		ParticipantID: participant.ID,
		InviteLink:    link.InviteLink,
		IssuedAt:      issuedAt,
	}, nil
}

func inviteName(id uuid.UUID) string {
	return fmt.Sprintf("Invite for participant %s", id)
}
