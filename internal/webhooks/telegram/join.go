package telegramwebhook

import (
	"strings"

	"github.com/energypractice/enrollment-backend/internal/invites"
	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

// DetectJoin reports whether update records someone joining groupID.
// Both the legacy service message and chat_member transitions count.
func DetectJoin(update telegram.Update, groupID string) (invites.JoinEvent, bool) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return invites.JoinEvent{}, false
	}

	if msg := update.Message; msg != nil && len(msg.NewChatMembers) > 0 {
		if msg.Chat.IDString() != groupID {
			return invites.JoinEvent{}, false
		}
		event := invites.JoinEvent{ChatID: groupID}
		for _, user := range msg.NewChatMembers {
			event.UserIDs = append(event.UserIDs, user.ID)
		}
		return event, true
	}

	if cm := update.ChatMember; cm != nil {
		if cm.Chat.IDString() != groupID {
			return invites.JoinEvent{}, false
		}
		if cm.NewChatMember.Status != telegram.MemberStatusMember || cm.OldChatMember.Status == telegram.MemberStatusMember {
			return invites.JoinEvent{}, false
		}
		event := invites.JoinEvent{ChatID: groupID}
		if cm.NewChatMember.User != nil {
			event.UserIDs = []int64{cm.NewChatMember.User.ID}
		}
		if cm.InviteLink != nil {
			event.InviteLink = cm.InviteLink.InviteLink
		}
		return event, true
	}

	return invites.JoinEvent{}, false
}
