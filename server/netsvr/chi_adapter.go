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

package netsvr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
)

// ChiAdapter 以 chi 實作 NetSvr。handler 與 middleware 都是 net/http 介面，
// 所以 api 層和測試（httptest）不需要知道底下是 chi。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
	addr   string
}

// NewChiServer 建立監聽 addr 的 ChiAdapter；addr 為空時使用 svrcfg.DefaultAddr。
//
// WriteTimeout 要蓋過最慢的排行榜提交（Qualifier 可能重試數次遠端請求），
// 所以比讀取時限寬鬆。
func NewChiServer(addr string) *ChiAdapter {
	if addr == "" {
		addr = svrcfg.DefaultAddr
	}
	cr := chi.NewRouter()
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Addr:              addr,
			Handler:           cr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		addr: addr,
	}
}

func (c *ChiAdapter) Ready() bool {
	return c != nil && c.router != nil && c.server != nil &&
		strings.Contains(c.addr, ":") && c.server.Handler == c.router
}

func (c *ChiAdapter) Name() string { return "http" }

// Run 阻塞到 server 停止；經由 Shutdown 停止時回傳 nil。
func (c *ChiAdapter) Run() error {
	if err := c.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) { c.router.Use(mw) }

func (c *ChiAdapter) Get(path string, h http.HandlerFunc)    { c.router.Get(path, h) }
func (c *ChiAdapter) Post(path string, h http.HandlerFunc)   { c.router.Post(path, h) }
func (c *ChiAdapter) Put(path string, h http.HandlerFunc)    { c.router.Put(path, h) }
func (c *ChiAdapter) Delete(path string, h http.HandlerFunc) { c.router.Delete(path, h) }

// Group 子路由只拿到 NetRouter，無法啟停 server。
func (c *ChiAdapter) Group(path string, fn func(NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&chiGroup{router: r})
	})
}

func (c *ChiAdapter) Address() string { return c.addr }

// Handler 路由本身（給 httptest 或外層 mux 使用）
func (c *ChiAdapter) Handler() http.Handler { return c.router }

type chiGroup struct{ router chi.Router }

func (g *chiGroup) Use(mw func(http.Handler) http.Handler) { g.router.Use(mw) }
func (g *chiGroup) Get(path string, h http.HandlerFunc)    { g.router.Get(path, h) }
func (g *chiGroup) Post(path string, h http.HandlerFunc)   { g.router.Post(path, h) }
func (g *chiGroup) Put(path string, h http.HandlerFunc)    { g.router.Put(path, h) }
func (g *chiGroup) Delete(path string, h http.HandlerFunc) { g.router.Delete(path, h) }

func (g *chiGroup) Group(path string, fn func(NetRouter)) {
	g.router.Route(path, func(r chi.Router) {
		fn(&chiGroup{router: r})
	})
}
