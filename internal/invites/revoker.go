package invites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
)

// JoinEvent is a confirmed join to the configured group.
type JoinEvent struct {
	ChatID  string
	UserIDs []int64
	// InviteLink is the link the provider says was used, when it says so.
	InviteLink string
}

// RevokeSummary counts per-invite outcomes of one revocation pass.
type RevokeSummary struct {
	Considered int
	Revoked    int
	Failed     int
}

// Revoker consumes outstanding invites once someone joins the group.
type Revoker interface {
	RevokeOutstanding(ctx context.Context, event JoinEvent) (RevokeSummary, error)
}

type RevokerParams struct {
	Participants participants.Repository
	Provider     Provider
	// Policy is config.RevokePolicyAll or config.RevokePolicyMatched.
	Policy  string
	Metrics *metrics.PipelineMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type revoker struct {
	participants participants.Repository
	provider     Provider
	policy       string
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewRevoker(params RevokerParams) (Revoker, error) {
	if params.Participants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "participants repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	policy := strings.ToLower(strings.TrimSpace(params.Policy))
	switch policy {
	case "":
		policy = config.RevokePolicyAll
	case config.RevokePolicyAll, config.RevokePolicyMatched:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, fmt.Sprintf("unknown revoke policy %q", params.Policy))
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &revoker{
		participants: params.Participants,
		provider:     params.Provider,
		policy:       policy,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

// RevokeOutstanding revokes invites that are issued but not yet consumed.
// An invite is marked used only after the provider confirms the revoke.
// Per-invite failures are aggregated into the returned error.
func (r *revoker) RevokeOutstanding(ctx context.Context, event JoinEvent) (RevokeSummary, error) {
	var summary RevokeSummary
	if r.provider == nil {
		r.logg.Warn(ctx, "join event ignored: telegram bot is not configured")
		return summary, nil
	}

	targets, err := r.targets(ctx, event)
	if err != nil {
		return summary, err
	}
	summary.Considered = len(targets)

	var errs error
	for i := range targets {
		target := &targets[i]
		if target.TelegramInviteLink == nil {
			continue
		}
		link := *target.TelegramInviteLink
		pctx := r.logg.WithParticipantID(ctx, target.ID.String())

		if err := r.provider.RevokeInvite(pctx, link); err != nil {
			summary.Failed++
			r.metrics.InviteRevoked(metrics.ResultFailure)
			r.logg.Error(pctx, "revoke invite link", err)
			errs = multierr.Append(errs, fmt.Errorf("revoke invite for %s: %w", target.ID, err))
			continue
		}

		if _, err := r.participants.MarkInviteUsed(pctx, target.ID, link, r.now().UTC()); err != nil {
			summary.Failed++
			r.metrics.InviteRevoked(metrics.ResultFailure)
			r.logg.Error(pctx, "mark invite used", err)
			errs = multierr.Append(errs, fmt.Errorf("mark invite used for %s: %w", target.ID, err))
			continue
		}
		summary.Revoked++
		r.metrics.InviteRevoked(metrics.ResultSuccess)
	}

	r.logg.Info(ctx, fmt.Sprintf("join processed: %d outstanding, %d revoked, %d failed", summary.Considered, summary.Revoked, summary.Failed))
	return summary, errs
}

func (r *revoker) targets(ctx context.Context, event JoinEvent) ([]models.Participant, error) {
	if r.policy == config.RevokePolicyMatched && strings.TrimSpace(event.InviteLink) != "" {
		matched, err := r.participants.FindByInviteLink(ctx, strings.TrimSpace(event.InviteLink))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant by invite link")
		}
		if matched != nil {
			if !matched.HasUnusedInvite() {
				return nil, nil
			}
			return []models.Participant{*matched}, nil
		}
		r.logg.Warn(ctx, "joined invite link is unknown; revoking all outstanding invites")
	}

	rows, err := r.participants.ListOutstandingInvites(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list outstanding invites")
	}
	return rows, nil
}
