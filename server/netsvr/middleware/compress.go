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
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 壓縮設定；零值使用 gzip 預設等級與 zstd 最快等級。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
	// Except 不壓縮的路徑前綴（例如 /metrics：promhttp 會自行協商壓縮）
	Except []string
}

// compressor 每個 middleware 實例有自己的 encoder pool，等級不同的實例互不干擾。
type compressor struct {
	cfg      CompressConfig
	gzipPool sync.Pool
	zstdPool sync.Pool
}

// NewCompression 依 Accept-Encoding 以 zstd 或 gzip 壓縮回應（同權重時優先 zstd）。
// HEAD、WebSocket upgrade、已帶 Content-Encoding 的回應與 Except 路徑不處理；
// 204/304/1xx 在 WriteHeader 時取消壓縮。
func NewCompression(cfg CompressConfig) func(http.Handler) http.Handler {
	if cfg.GzipLevel == 0 {
		cfg.GzipLevel = gzip.DefaultCompression
	}
	if cfg.ZstdLevel == 0 {
		cfg.ZstdLevel = zstd.SpeedFastest
	}
	c := &compressor{cfg: cfg}
	return c.wrap
}

func Compression(next http.Handler) http.Handler {
	return NewCompression(CompressConfig{})(next)
}

func CompressionExcept(prefixes ...string) func(http.Handler) http.Handler {
	return NewCompression(CompressConfig{Except: prefixes})
}

func (c *compressor) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || isWebSocketUpgrade(r) ||
			hasPrefix(r.URL.Path, c.cfg.Except) || w.Header().Get("Content-Encoding") != "" {
			next.ServeHTTP(w, r)
			return
		}

		var enc interface {
			io.Writer
			Reset(io.Writer)
			Close() error
		}
		var release func()
		switch negotiate(r.Header.Get("Accept-Encoding")) {
		case "zstd":
			zw := c.zstd(w)
			enc, release = zw, func() { c.zstdPool.Put(zw) }
			w.Header().Set("Content-Encoding", "zstd")
		case "gzip":
			gw := c.gzip(w)
			enc, release = gw, func() { c.gzipPool.Put(gw) }
			w.Header().Set("Content-Encoding", "gzip")
		default:
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Accept-Encoding")

		cw := &compressResponseWriter{ResponseWriter: w, w: enc}
		defer func() {
			// 無 body 的狀態碼不能帶壓縮尾端
			if cw.disabled {
				enc.Reset(io.Discard)
			}
			_ = enc.Close()
			release()
		}()
		next.ServeHTTP(cw, r)
	})
}

func (c *compressor) zstd(w io.Writer) *zstd.Encoder {
	if v := c.zstdPool.Get(); v != nil {
		zw := v.(*zstd.Encoder)
		zw.Reset(w)
		return zw
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.cfg.ZstdLevel), zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(err)
	}
	return zw
}

func (c *compressor) gzip(w io.Writer) *gzip.Writer {
	if v := c.gzipPool.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw
	}
	gw, err := gzip.NewWriterLevel(w, c.cfg.GzipLevel)
	if err != nil {
		gw = gzip.NewWriter(w)
	}
	return gw
}

// negotiate 從 Accept-Encoding 選出 zstd 或 gzip；q=0 表示拒絕。
func negotiate(header string) string {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "zstd" && name != "gzip" {
			continue
		}
		q := 1.0
		if k, v, ok := strings.Cut(strings.TrimSpace(params), "="); ok && strings.TrimSpace(k) == "q" {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				q = f
			}
		}
		if q <= 0 {
			continue
		}
		if q > bestQ || (q == bestQ && name == "zstd") {
			best, bestQ = name, q
		}
	}
	return best
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// 1xx、204、304 沒有 body
func isNoBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type compressResponseWriter struct {
	http.ResponseWriter
	w        io.Writer
	disabled bool
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		if f, ok := cw.w.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}
