package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestID 為每個請求產生 X-Request-Id（已有則沿用）並回寫到 response header。
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetReqId(r); id != "" {
			w.Header().Set(chimid.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	}))
}

func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}
