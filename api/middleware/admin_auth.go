package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/energypractice/enrollment-backend/api/responses"
	pkgerrors "github.com/energypractice/enrollment-backend/pkg/errors"
	"github.com/energypractice/enrollment-backend/pkg/logger"
)

const bearerPrefix = "Bearer "

// Caller classes used to scope idempotency keys.
const (
	ActorPublic = "public"
	ActorAdmin  = "admin"
)

type actorKey struct{}

// WithActor records the caller class on ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller class set by AdminAuth, or ActorPublic.
func ActorFromContext(ctx context.Context) string {
	if actor, _ := ctx.Value(actorKey{}).(string); actor != "" {
		return actor
	}
	return ActorPublic
}

// AdminAuth accepts requests whose bearer token equals the configured admin
// password. An unset password disables the admin surface with a 500.
func AdminAuth(password string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if password == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "admin password is not configured"))
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			token := strings.TrimPrefix(header, bearerPrefix)
			if subtle.ConstantTimeCompare([]byte(token), []byte(password)) != 1 {
				if logg != nil {
					logg.Warn(ctx, "admin.auth.rejected")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin credentials"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(ctx, ActorAdmin)))
		})
	}
}
