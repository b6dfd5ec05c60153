package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/energypractice/enrollment-backend/internal/invites"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
)

const defaultReconcileBatch = 50

// InviteReconcileJobParams configure the job that backfills missing invites.
type InviteReconcileJobParams struct {
	Logger *logger.Logger
	Reader paidWithoutInviteReader
	Issuer inviteIssuer
	Batch  int
}

type paidWithoutInviteReader interface {
	ListPaidWithoutInvite(ctx context.Context, limit int) ([]models.Participant, error)
}

type inviteIssuer interface {
	Issue(ctx context.Context, participantID uuid.UUID) (*invites.IssueResult, error)
}

// NewInviteReconcileJob builds the job that issues invites for participants
// whose payment was confirmed but whose issuance failed.
func NewInviteReconcileJob(params InviteReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("participants reader required")
	}
	if params.Issuer == nil {
		return nil, fmt.Errorf("invite issuer required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &inviteReconcileJob{
		logg:   params.Logger,
		reader: params.Reader,
		issuer: params.Issuer,
		batch:  batch,
	}, nil
}

type inviteReconcileJob struct {
	logg   *logger.Logger
	reader paidWithoutInviteReader
	issuer inviteIssuer
	batch  int
}

func (j *inviteReconcileJob) Name() string {
	return "invite_reconcile"
}

func (j *inviteReconcileJob) Run(ctx context.Context) error {
	pending, err := j.reader.ListPaidWithoutInvite(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list paid participants without invite: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var errs error
	issued := 0
	for _, participant := range pending {
		pctx := j.logg.WithParticipantID(ctx, participant.ID.String())
		if _, err := j.issuer.Issue(pctx, participant.ID); err != nil {
			if !pkgerrors.Retryable(err) {
				j.logg.Warn(j.logg.WithField(pctx, "error", err.Error()), "reconcile.invite_skipped")
				continue
			}
			j.logg.Error(pctx, "reconcile.invite_failed", err)
			errs = multierr.Append(errs, fmt.Errorf("participant %s: %w", participant.ID, err))
			continue
		}
		issued++
	}

	j.logg.Info(ctx, fmt.Sprintf("invite reconcile issued %d of %d", issued, len(pending)))
	return errs
}
