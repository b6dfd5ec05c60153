package robokassawebhook

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/internal/invites"
	"github.com/energypractice/enrollment-backend/internal/participants"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
	"github.com/energypractice/enrollment-backend/pkg/robokassa"
)

// Outcome describes how a verified callback was handled.
type Outcome string

const (
	OutcomePaid             Outcome = metrics.CallbackPaid
	OutcomeAlreadyPaid      Outcome = metrics.CallbackAlreadyPaid
	OutcomeUnknownReference Outcome = metrics.CallbackUnknownReference
	OutcomeDuplicate        Outcome = metrics.CallbackDuplicate
	OutcomeStoreError       Outcome = metrics.CallbackStoreError
)

// Guard narrows concurrent duplicate deliveries. *CallbackGuard satisfies it.
type Guard interface {
	Claim(ctx context.Context, invID int64) (bool, error)
	Release(ctx context.Context, invID int64) error
}

type ServiceParams struct {
	Participants participants.Repository
	Password2    string
	// Issuer, Guard and Metrics are optional.
	Issuer  invites.Issuer
	Guard   Guard
	Metrics *metrics.PipelineMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type Service struct {
	participants participants.Repository
	password2    string
	issuer       invites.Issuer
	guard        Guard
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Participants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "participants repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		participants: params.Participants,
		password2:    params.Password2,
		issuer:       params.Issuer,
		guard:        params.Guard,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

// HandleCallback verifies a result notification and marks the participant
// paid. Only configuration and signature problems are returned as errors;
// every other path is acknowledged so the gateway stops retrying.
func (s *Service) HandleCallback(ctx context.Context, result robokassa.Result) (Outcome, error) {
	if s.password2 == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfiguration, "robokassa password #2 is not configured")
	}
	if result.OutSum == "" || result.InvID == "" || !robokassa.VerifyResult(result.OutSum, result.InvID, result.Signature, s.password2) {
		s.metrics.Callback(metrics.CallbackInvalidSignature)
		s.logg.Warn(s.logg.WithField(ctx, "inv_id", result.InvID), "payment callback rejected: bad signature")
		return "", pkgerrors.New(pkgerrors.CodeSignature, "bad sign")
	}

	outcome := s.process(ctx, result)
	s.metrics.Callback(string(outcome))
	return outcome, nil
}

func (s *Service) process(ctx context.Context, result robokassa.Result) Outcome {
	invID, err := strconv.ParseInt(strings.TrimSpace(result.InvID), 10, 64)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "inv_id", result.InvID), "payment callback with non-numeric reference")
		return OutcomeUnknownReference
	}
	ctx = s.logg.WithInvID(ctx, invID)

	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, invID)
		if err != nil {
			s.logg.Error(ctx, "callback guard unavailable", err)
		} else if !claimed {
			s.logg.Info(ctx, "duplicate payment callback suppressed")
			return OutcomeDuplicate
		}
	}

	participant, err := s.participants.FindByInvID(ctx, invID)
	if err != nil {
		s.logg.Error(ctx, "load participant for payment callback", err)
		s.release(ctx, invID)
		return OutcomeStoreError
	}
	if participant == nil {
		s.logg.Warn(ctx, "payment callback for unknown reference")
		s.release(ctx, invID)
		return OutcomeUnknownReference
	}
	ctx = s.logg.WithParticipantID(ctx, participant.ID.String())

	if participant.IsPaid() {
		s.logg.Info(ctx, "payment callback for already paid participant")
		return OutcomeAlreadyPaid
	}

	if received, err := decimal.NewFromString(result.OutSum); err != nil || !received.Equal(participant.PaymentAmount) {
		s.logg.Warn(ctx, fmt.Sprintf("callback amount %s differs from registered amount %s", result.OutSum, participant.PaymentAmount.StringFixed(2)))
	}

	transitioned, err := s.participants.MarkPaid(ctx, participant.ID, s.now().UTC())
	if err != nil {
		s.logg.Error(ctx, "mark participant paid", err)
		s.release(ctx, invID)
		return OutcomeStoreError
	}
	if !transitioned {
		s.logg.Info(ctx, "participant was marked paid concurrently")
		return OutcomeAlreadyPaid
	}
	s.logg.Info(ctx, "payment confirmed")

	if s.issuer != nil {
		if _, err := s.issuer.Issue(ctx, participant.ID); err != nil {
			s.logg.Error(ctx, "issue invite after payment", err)
		}
	}
	return OutcomePaid
}

func (s *Service) release(ctx context.Context, invID int64) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, invID); err != nil {
		s.logg.Error(ctx, "release callback guard", err)
	}
}
