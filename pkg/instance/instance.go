package instance

import "github.com/energypractice/enrollment-backend/pkg/env"

// GetID names the running process for logs and lock ownership. Platform
// provided identifiers win over the hostname.
func GetID() string {
	if id := env.First(env.Prefix+"INSTANCE_ID", "DYNO", "HOSTNAME"); id != "" {
		return id
	}
	return "local"
}
