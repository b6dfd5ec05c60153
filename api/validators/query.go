package validators

import (
	"net/http"
	"strings"
)

// FirstQueryValue returns the first non-empty value among keys, so aliases
// like inv_id and InvId resolve in order of preference.
func FirstQueryValue(r *http.Request, keys ...string) string {
	query := r.URL.Query()
	for _, key := range keys {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return value
		}
	}
	return ""
}
