package webhooks

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/energypractice/enrollment-backend/api/responses"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type TelegramUpdateService interface {
	Authorized(token string) bool
	HandleUpdate(ctx context.Context, update telegram.Update) bool
}

type telegramAck struct {
	OK bool `json:"ok"`
}

// TelegramUpdate receives bot updates. Every request is acknowledged so the
// Bot API never retries; failures stay in the logs.
func TelegramUpdate(svc TelegramUpdateService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer responses.WriteJSON(w, http.StatusOK, telegramAck{OK: true})

		if svc == nil {
			return
		}
		if !svc.Authorized(r.Header.Get(telegramSecretHeader)) {
			if logg != nil {
				logg.Warn(ctx, "telegram.webhook_secret_mismatch")
			}
			return
		}

		var update telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "telegram.update_decode_failed")
			}
			return
		}
		svc.HandleUpdate(ctx, update)
	}
}
