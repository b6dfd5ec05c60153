package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/energypractice/enrollment-backend/api/responses"
	"github.com/energypractice/enrollment-backend/api/validators"
	"github.com/energypractice/enrollment-backend/internal/invites"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
)

// InviteLookup is polled by the success page until the invite appears.
func InviteLookup(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invites service unavailable"))
			return
		}

		view, err := svc.Lookup(r.Context(), invites.LookupQuery{
			ParticipantID: validators.FirstQueryValue(r, "participant_id"),
			InvID:         validators.FirstQueryValue(r, "inv_id", "InvId"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminInviteReissue replaces a participant's invite with a fresh link.
func AdminInviteReissue(issuer invites.Issuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if issuer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invite issuer unavailable"))
			return
		}

		participantID, err := uuid.Parse(chi.URLParam(r, "participantId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid participant id"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithParticipantID(ctx, participantID.String())
		}
		result, err := issuer.Reissue(ctx, participantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "invite.reissued")
		}
		responses.WriteSuccess(w, result)
	}
}
