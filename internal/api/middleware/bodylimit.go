package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// BodyLimit caps request bodies at maxBytes. Requests that announce a larger
// Content-Length are refused with 413 before any of the body is read; the
// rest are wrapped in http.MaxBytesReader so handlers see *http.MaxBytesError
// once the limit is crossed.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Connection", "close")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				json.NewEncoder(w).Encode(map[string]string{
					"error": fmt.Sprintf("file too large: limit is %d MB", maxBytes>>20),
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
