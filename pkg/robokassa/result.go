package robokassa

import (
	"net/url"
	"strings"
)

// Result holds the values the gateway posts to the Result URL.
type Result struct {
	OutSum    string
	InvID     string
	Signature string
	Email     string
}

// MergeParams flattens the given value sets into one map. Later sets win on
// key collisions, so callers pass the form body before the query string.
func MergeParams(sets ...url.Values) map[string]string {
	merged := make(map[string]string)
	for _, set := range sets {
		for key, values := range set {
			if len(values) == 0 {
				continue
			}
			merged[key] = values[0]
		}
	}
	return merged
}

// ParseResult extracts the signed fields from merged callback params.
// OutSum and InvId are kept byte-for-byte since they feed the signature.
func ParseResult(params map[string]string) Result {
	return Result{
		OutSum:    params["OutSum"],
		InvID:     params["InvId"],
		Signature: strings.TrimSpace(params["SignatureValue"]),
		Email:     strings.TrimSpace(params["Email"]),
	}
}
