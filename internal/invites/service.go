package invites

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/energypractice/enrollment-backend/internal/participants"
	"github.com/energypractice/enrollment-backend/pkg/db/models"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
)

const usedMessage = "invite link already used"

// Service answers invite polling from the success page.
type Service interface {
	Lookup(ctx context.Context, query LookupQuery) (*InviteView, error)
}

// LookupQuery holds the raw identifiers; InvID wins when both are set.
type LookupQuery struct {
	ParticipantID string
	InvID         string
}

type InviteView struct {
	InviteLink    *string `json:"invite_link"`
	Used          bool    `json:"used"`
	PaymentStatus string  `json:"payment_status"`
	Message       string  `json:"message,omitempty"`
}

type service struct {
	participants participants.Repository
}

func NewService(repo participants.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "participants repository required")
	}
	return &service{participants: repo}, nil
}

func (s *service) Lookup(ctx context.Context, query LookupQuery) (*InviteView, error) {
	participant, err := s.find(ctx, query)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "participant not found")
	}
	return viewFor(participant), nil
}

func (s *service) find(ctx context.Context, query LookupQuery) (*models.Participant, error) {
	rawInvID := strings.TrimSpace(query.InvID)
	rawID := strings.TrimSpace(query.ParticipantID)

	switch {
	case rawInvID != "":
		invID, err := strconv.ParseInt(rawInvID, 10, 64)
		if err != nil || invID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"inv_id": "must be a positive integer"})
		}
		participant, err := s.participants.FindByInvID(ctx, invID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant by inv id")
		}
		return participant, nil
	case rawID != "":
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"participant_id": "must be a uuid"})
		}
		participant, err := s.participants.FindByID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load participant")
		}
		return participant, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant_id or inv_id is required")
	}
}

func viewFor(p *models.Participant) *InviteView {
	view := &InviteView{PaymentStatus: p.PaymentStatus.String()}
	if p.TelegramInviteUsed {
		view.Used = true
		view.Message = usedMessage
		return view
	}
	if p.TelegramInviteLink != nil && *p.TelegramInviteLink != "" {
		link := *p.TelegramInviteLink
		view.InviteLink = &link
	}
	return view
}
