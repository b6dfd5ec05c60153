package robokassa

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount the way the merchant gateway signs it:
// exactly two fractional digits, dot separator, no grouping.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// LinkSignature signs an outgoing payment link with password #1.
func LinkSignature(merchantLogin, outSum string, invID int64, password1 string) string {
	return hashParts(merchantLogin, outSum, strconv.FormatInt(invID, 10), password1)
}

// ResultSignature computes the signature the gateway attaches to a result
// callback. outSum and invID must be the raw received strings.
func ResultSignature(outSum, invID, password2 string) string {
	return hashParts(outSum, invID, password2)
}

// VerifyResult reports whether signature matches the expected result
// signature, ignoring hex case.
func VerifyResult(outSum, invID, signature, password2 string) bool {
	received := strings.ToUpper(strings.TrimSpace(signature))
	if received == "" {
		return false
	}
	expected := ResultSignature(outSum, invID, password2)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func hashParts(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
