package telegramwebhook

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/energypractice/enrollment-backend/internal/invites"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

type ServiceParams struct {
	// GroupID empty means the bot is not configured and every update is ignored.
	GroupID       string
	WebhookSecret string
	Revoker       invites.Revoker
	Logger        *logger.Logger
}

// Service turns bot updates into invite revocations.
type Service struct {
	groupID string
	secret  string
	revoker invites.Revoker
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Revoker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invite revoker required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		groupID: params.GroupID,
		secret:  params.WebhookSecret,
		revoker: params.Revoker,
		logg:    params.Logger,
	}, nil
}

// Authorized checks the X-Telegram-Bot-Api-Secret-Token value when a secret
// is configured.
func (s *Service) Authorized(token string) bool {
	if s.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(s.secret), []byte(token)) == 1
}

// HandleUpdate reports whether the update was a join that triggered a
// revocation pass. Revocation failures are logged, never returned.
func (s *Service) HandleUpdate(ctx context.Context, update telegram.Update) bool {
	event, ok := DetectJoin(update, s.groupID)
	if !ok {
		return false
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"update_id": update.UpdateID,
		"chat_id":   event.ChatID,
	})
	s.logg.Info(ctx, fmt.Sprintf("group join detected for %d user(s)", len(event.UserIDs)))

	if _, err := s.revoker.RevokeOutstanding(ctx, event); err != nil {
		s.logg.Error(ctx, "revoke outstanding invites", err)
	}
	return true
}
