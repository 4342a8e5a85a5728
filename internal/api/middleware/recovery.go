package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vikramraman/graphpredict/internal/api/response"
)

// Recovery turns handler panics into 500 responses. Worker goroutines have
// their own recovery in the jobs manager; this only covers the request path.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic in handler",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}
