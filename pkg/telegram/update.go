package telegram

import "strconv"

// Update is the subset of a Bot API update relevant to membership changes.
type Update struct {
	UpdateID   int64              `json:"update_id"`
	Message    *Message           `json:"message,omitempty"`
	ChatMember *ChatMemberUpdated `json:"chat_member,omitempty"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// IDString renders the chat id the way it is configured.
func (c Chat) IDString() string {
	return strconv.FormatInt(c.ID, 10)
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Message struct {
	MessageID      int64  `json:"message_id"`
	Chat           Chat   `json:"chat"`
	NewChatMembers []User `json:"new_chat_members,omitempty"`
}

type ChatMember struct {
	Status string `json:"status"`
	User   *User  `json:"user,omitempty"`
}

type ChatMemberUpdated struct {
	Chat          Chat        `json:"chat"`
	From          User        `json:"from"`
	OldChatMember ChatMember  `json:"old_chat_member"`
	NewChatMember ChatMember  `json:"new_chat_member"`
	InviteLink    *InviteLink `json:"invite_link,omitempty"`
}

const MemberStatusMember = "member"
