package webhooks

import (
	"context"
	"net/http"

	"github.com/energypractice/enrollment-backend/api/responses"
	robokassawebhook "github.com/energypractice/enrollment-backend/internal/webhooks/robokassa"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/robokassa"
)

const robokassaAck = "OK"

type RobokassaCallbackService interface {
	HandleCallback(ctx context.Context, result robokassa.Result) (robokassawebhook.Outcome, error)
}

// RobokassaResult serves the gateway Result URL. The gateway expects a bare
// OK on every accepted delivery, including ones that change nothing.
func RobokassaResult(svc RobokassaCallbackService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "callback service unavailable"))
			return
		}

		// Malformed pairs are dropped and the rest still parsed; a payload
		// missing its signed fields is then rejected by verification.
		if err := r.ParseForm(); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "robokassa.callback.malformed_params")
		}
		result := robokassa.ParseResult(robokassa.MergeParams(r.PostForm, r.URL.Query()))

		outcome, err := svc.HandleCallback(ctx, result)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"inv_id": result.InvID, "outcome": string(outcome)})
			logg.Info(ctx, "robokassa.callback")
		}
		responses.WriteText(w, http.StatusOK, robokassaAck)
	}
}
