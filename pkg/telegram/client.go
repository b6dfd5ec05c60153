package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.telegram.org"
	responseBodyReadLimit int64 = 64 * 1024
)

var (
	errBotTokenRequired = errors.New("telegram bot token is required")
	errChatIDRequired   = errors.New("telegram chat id is required")
)

// Client calls the Bot API methods used to manage channel invites.
type Client struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	chatID     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Bot API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a client bound to one bot and one group chat.
func NewClient(botToken, chatID string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(botToken)
	if token == "" {
		return nil, errBotTokenRequired
	}
	chat := strings.TrimSpace(chatID)
	if chat == "" {
		return nil, errChatIDRequired
	}

	client := &Client{
		botToken:   token,
		chatID:     chat,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ChatID returns the group the client manages.
func (c *Client) ChatID() string {
	return c.chatID
}

// CreateInviteLinkRequest mirrors createChatInviteLink.
type CreateInviteLinkRequest struct {
	ChatID             string `json:"chat_id"`
	Name               string `json:"name,omitempty"`
	MemberLimit        int    `json:"member_limit,omitempty"`
	CreatesJoinRequest bool   `json:"creates_join_request"`
}

// InviteLink is the subset of ChatInviteLink the service stores.
type InviteLink struct {
	InviteLink  string `json:"invite_link"`
	Name        string `json:"name,omitempty"`
	MemberLimit int    `json:"member_limit,omitempty"`
	IsRevoked   bool   `json:"is_revoked"`
}

type revokeInviteLinkRequest struct {
	ChatID     string `json:"chat_id"`
	InviteLink string `json:"invite_link"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// CreateSingleUseInvite creates a link that admits exactly one member
// without a join request.
func (c *Client) CreateSingleUseInvite(ctx context.Context, name string) (*InviteLink, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "telegram client not configured")
	}
	req := CreateInviteLinkRequest{
		ChatID:             c.chatID,
		Name:               truncateName(name),
		MemberLimit:        1,
		CreatesJoinRequest: false,
	}

	var link InviteLink
	if err := c.call(ctx, "createChatInviteLink", req, &link); err != nil {
		return nil, err
	}
	if link.InviteLink == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "telegram returned an empty invite link")
	}
	return &link, nil
}

// RevokeInvite revokes a link previously created by this bot.
func (c *Client) RevokeInvite(ctx context.Context, inviteLink string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "telegram client not configured")
	}
	link := strings.TrimSpace(inviteLink)
	if link == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invite link is required")
	}
	var revoked InviteLink
	return c.call(ctx, "revokeChatInviteLink", revokeInviteLinkRequest{ChatID: c.chatID, InviteLink: link}, &revoked)
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+method+" request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+method+" request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, redactToken(err, c.botToken), "execute "+method+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read "+method+" response")
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %w", resp.StatusCode, err), "decode "+method+" response")
	}
	if !apiResp.OK {
		return pkgerrors.New(pkgerrors.CodeDependency, method+" failed").WithDetails(map[string]any{
			"provider_status":      resp.StatusCode,
			"provider_error_code":  apiResp.ErrorCode,
			"provider_description": apiResp.Description,
		})
	}
	if out == nil || len(apiResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(apiResp.Result, out); err != nil {
		// revokeChatInviteLink returns an object; older gateways return true.
		if method == "revokeChatInviteLink" {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+method+" result")
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.baseURL, "/"), c.botToken, method)
}

// The Bot API embeds the token in the URL; transport errors echo it back.
func redactToken(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, token, "<redacted>"))
}

// Invite names are capped at 32 characters by the Bot API.
func truncateName(name string) string {
	runes := []rune(strings.TrimSpace(name))
	if len(runes) <= 32 {
		return string(runes)
	}
	return string(runes[:32])
}
