package request

import "net/http"

// BodyLimit caps request body size with http.MaxBytesReader, which answers
// 413 and drops the connection on overflow. Webhook payloads are the largest
// bodies this server accepts, so the cap applies uniformly before any decode.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
