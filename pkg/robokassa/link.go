package robokassa

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/energypractice/enrollment-backend/pkg/config"
)

const DefaultBaseURL = "https://auth.robokassa.kz/Merchant/Index.aspx"

var ErrCredentialsMissing = errors.New("robokassa merchant login and password #1 are required")

// LinkParams describes a single payment redirect.
type LinkParams struct {
	OutSum      string
	InvID       int64
	Description string
	Email       string
	SuccessURL  string
}

// Link is a signed payment redirect.
type Link struct {
	URL       string
	Signature string
}

// LinkBuilder signs payment redirects for one merchant account.
type LinkBuilder struct {
	baseURL       string
	merchantLogin string
	password1     string
	testMode      bool
}

// NewLinkBuilder returns ErrCredentialsMissing when the merchant login or
// password #1 is not configured.
func NewLinkBuilder(cfg config.RobokassaConfig) (*LinkBuilder, error) {
	login := strings.TrimSpace(cfg.MerchantLogin)
	if login == "" || cfg.Password1 == "" {
		return nil, ErrCredentialsMissing
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	return &LinkBuilder{
		baseURL:       base,
		merchantLogin: login,
		password1:     cfg.Password1,
		testMode:      cfg.TestMode,
	}, nil
}

// Build signs params and renders the redirect URL.
func (b *LinkBuilder) Build(params LinkParams) (Link, error) {
	if params.OutSum == "" {
		return Link{}, errors.New("out sum is required")
	}
	if params.InvID <= 0 {
		return Link{}, fmt.Errorf("invalid inv id %d", params.InvID)
	}

	signature := LinkSignature(b.merchantLogin, params.OutSum, params.InvID, b.password1)

	values := url.Values{}
	values.Set("MerchantLogin", b.merchantLogin)
	values.Set("OutSum", params.OutSum)
	values.Set("InvId", strconv.FormatInt(params.InvID, 10))
	values.Set("Description", params.Description)
	values.Set("SignatureValue", signature)
	if email := strings.TrimSpace(params.Email); email != "" {
		values.Set("Email", email)
	}
	values.Set("IsTest", testFlag(b.testMode))
	if params.SuccessURL != "" {
		values.Set("SuccessUrl2", params.SuccessURL)
		values.Set("SuccessUrl2Method", "GET")
	}

	return Link{
		URL:       b.baseURL + "?" + values.Encode(),
		Signature: signature,
	}, nil
}

func testFlag(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}
