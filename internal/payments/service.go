package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/internal/promo"
	"github.com/energypractice/enrollment-backend/pkg/config"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/metrics"
	"github.com/energypractice/enrollment-backend/pkg/robokassa"
)

const maxAssignAttempts = 5

// Service produces signed payment redirects.
type Service interface {
	CreateLink(ctx context.Context, input LinkInput) (*LinkResult, error)
}

// LinkInput describes one payment request from the site.
type LinkInput struct {
	ParticipantID uuid.UUID
	Amount        decimal.Decimal
	Email         string
	Description   string
	PromoCode     string
}

type LinkResult struct {
	PaymentURL string `json:"payment_url"`
	InvID      int64  `json:"inv_id"`
	OutSum     string `json:"out_sum"`
}

type ServiceParams struct {
	Participants participants.Repository
	Promo        promo.Service
	Robokassa    config.RobokassaConfig
	SiteURL      string
	Metrics      *metrics.PipelineMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	participants participants.Repository
	promo        promo.Service
	robokassa    config.RobokassaConfig
	siteURL      string
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Participants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "participants repository required")
	}
	if params.Promo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "promo service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		participants: params.Participants,
		promo:        params.Promo,
		robokassa:    params.Robokassa,
		siteURL:      strings.TrimRight(strings.TrimSpace(params.SiteURL), "/"),
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

func (s *service) CreateLink(ctx context.Context, input LinkInput) (*LinkResult, error) {
	builder, err := robokassa.NewLinkBuilder(s.robokassa)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "payment provider credentials missing")
	}
	if input.ParticipantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"participant_id": "is required"})
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"amount": "must be greater than zero"})
	}

	ctx = s.logg.WithParticipantID(ctx, input.ParticipantID.String())

	participant, err := s.participants.FindByID(ctx, input.ParticipantID)
	if err != nil {
		s.logg.Error(ctx, "load participant for payment link", err)
	} else if participant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "participant not found")
	}

	var invID int64
	if participant != nil && participant.PaymentInvID != nil {
		invID = *participant.PaymentInvID
	} else {
		invID, err = s.assignReference(ctx, input.ParticipantID)
		if err != nil {
			return nil, err
		}
	}
	ctx = s.logg.WithInvID(ctx, invID)

	outSum := robokassa.FormatAmount(input.Amount)
	if participant != nil && !participant.PaymentAmount.Equal(input.Amount.Round(2)) {
		s.logg.Warn(ctx, fmt.Sprintf("payment link amount %s differs from registered amount %s", outSum, participant.PaymentAmount.StringFixed(2)))
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = s.robokassa.Description
	}

	link, err := builder.Build(robokassa.LinkParams{
		OutSum:      outSum,
		InvID:       invID,
		Description: description,
		Email:       input.Email,
		SuccessURL:  s.successURL(input.ParticipantID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment link")
	}

	if code := promo.NormalizeCode(input.PromoCode); code != "" {
		if err := s.participants.SetPromoCode(ctx, input.ParticipantID, code, s.now().UTC()); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("persist promo code %s", code), err)
		}
		if err := s.promo.Redeem(ctx, code); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("redeem promo code %s", code), err)
		}
	}

	s.metrics.PaymentLink()
	s.logg.Info(ctx, "payment link generated")

	return &LinkResult{
		PaymentURL: link.URL,
		InvID:      invID,
		OutSum:     outSum,
	}, nil
}

// assignReference persists a time-derived reference, stepping forward on
// collisions. Storage failures other than collisions are logged and the
// candidate reference is still used.
func (s *service) assignReference(ctx context.Context, participantID uuid.UUID) (int64, error) {
	now := s.now().UTC()
	candidate := now.Unix()

	for attempt := 1; attempt <= maxAssignAttempts; attempt++ {
		ok, err := s.participants.AssignInvID(ctx, participantID, candidate, now)
		switch {
		case errors.Is(err, participants.ErrInvIDTaken):
			candidate++
			continue
		case err != nil:
			s.logg.Error(s.logg.WithInvID(ctx, candidate), "persist payment reference", err)
			return candidate, nil
		case !ok:
			// Lost a race with a concurrent request for the same participant.
			current, findErr := s.participants.FindByID(ctx, participantID)
			if findErr == nil && current != nil && current.PaymentInvID != nil {
				return *current.PaymentInvID, nil
			}
			s.logg.Warn(s.logg.WithInvID(ctx, candidate), "payment reference not persisted")
			return candidate, nil
		default:
			return candidate, nil
		}
	}

	return 0, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique payment reference")
}

func (s *service) successURL(participantID uuid.UUID) string {
	if s.siteURL == "" {
		return ""
	}
	return s.siteURL + "/success?participant_id=" + url.QueryEscape(participantID.String())
}
