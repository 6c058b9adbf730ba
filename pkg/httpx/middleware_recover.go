package httpx

import (
	"net/http"
	"runtime/debug"

	"github.com/shophub/auth/pkg/slogx"

	"github.com/getsentry/sentry-go"
)

// Recover turns handler panics into a 500 response instead of tearing down
// the connection. The panic is reported to sentry when a client is
// configured and always logged with its stack.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetExtra("panic", rec)
						scope.SetExtra("stack", string(debug.Stack()))
						sentry.CaptureMessage("panic in request")
					})

					slogx.FromContext(r.Context()).Error("panic recovered",
						"path", r.URL.Path,
						"method", r.Method,
						"panic", rec)

					WriteError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
