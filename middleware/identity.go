package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const callerContextKey contextKey = "caller"

// AnonymousCaller is reported when the inbound request carries no identity
// header. The request still proceeds; the sign-in route has no identity yet
// and every other route's upstream rejects it itself.
const AnonymousCaller = "anonymous"

// CallerIdentity lifts the X-User-Name header into the request context. The
// relay never verifies it against the bearer token; it is a routing and
// logging hint, and the upstreams own verification.
func CallerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get("X-User-Name")
		if caller == "" {
			caller = AnonymousCaller
		}
		ctx := context.WithValue(r.Context(), callerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCallerIdentity returns the caller from the context, or AnonymousCaller.
func GetCallerIdentity(ctx context.Context) string {
	caller, ok := ctx.Value(callerContextKey).(string)
	if !ok {
		return AnonymousCaller
	}
	return caller
}
