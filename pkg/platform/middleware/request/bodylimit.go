package request

import (
	"net/http"
)

// BodyLimit caps request body size via http.MaxBytesReader: overflow
// yields 413 and the connection is closed. Install it before any body
// parsing runs.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
