// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// accessRecorder 記下狀態碼與寫出的位元組數（壓縮前）。
type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *accessRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *accessRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *accessRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// AccessLog 每個請求一筆 "http.access"：狀態碼決定等級（5xx Error、4xx Warn）。
// route 是 chi 的路由樣式（/v1/games/{id}），方便依端點彙總而不受 session id 影響。
// quiet 前綴（例如 /healthz、/metrics）的成功請求降為 Debug。log 為 nil 時不記錄。
func AccessLog(log *slog.Logger, quiet ...string) func(http.Handler) http.Handler {
	if log == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &accessRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			lvl := levelByStatus(rw.status)
			if lvl == slog.LevelInfo && hasPrefix(r.URL.Path, quiet) {
				lvl = slog.LevelDebug
			}
			log.LogAttrs(r.Context(), lvl, "http.access",
				slog.Int("status", rw.status),
				slog.String("request_id", GetReqId(r)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("bytes", rw.bytes),
				slog.Duration("latency", time.Since(start)),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func levelByStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
