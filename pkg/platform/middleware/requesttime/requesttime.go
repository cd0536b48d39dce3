// Package requesttime fixes the clock for a request. Member timestamps,
// tombstones and audit events written while handling it share one instant.
package requesttime

import (
	"net/http"
	"time"

	"kinship/pkg/requestcontext"
)

// Middleware stores the UTC arrival time in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived := time.Now().UTC()
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), arrived)))
	})
}
