package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/server/httperr"
)

// Recover 攔截 handler panic：記錄堆疊並回 500 JSON。
// http.ErrAbortHandler 照原樣往上拋，讓 net/http 中止連線。
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if log != nil {
					log.Error("http.panic",
						slog.Any("panic", rec),
						slog.String("request_id", GetReqId(r)),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
				}
				if r.Header.Get("Connection") != "Upgrade" {
					httperr.Write(w, http.StatusInternalServerError, dto.ErrorBody{Error: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
