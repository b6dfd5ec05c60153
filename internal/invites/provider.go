package invites

import (
	"context"

	"github.com/energypractice/enrollment-backend/pkg/telegram"
)

// Provider creates and revokes group invite links.
// *telegram.Client satisfies it.
type Provider interface {
	CreateSingleUseInvite(ctx context.Context, name string) (*telegram.InviteLink, error)
	RevokeInvite(ctx context.Context, inviteLink string) error
}
