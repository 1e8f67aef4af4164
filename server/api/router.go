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

package api

import (
	"log/slog"
	"net/http"

	"github.com/zintix-labs/hanoilab"
	v1 "github.com/zintix-labs/hanoilab/server/api/v1"
	"github.com/zintix-labs/hanoilab/server/netsvr"
	"github.com/zintix-labs/hanoilab/server/netsvr/middleware"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
)

func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, rt *hanoilab.SessionRuntime) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	registerOps(svr, sCfg)            // 2. 健康檢查與監控
	return registerV1API(svr, sCfg, rt)
}

func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log, "/healthz", "/metrics"))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.CompressionExcept("/metrics"))
}

func registerOps(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) {
	svr.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if sCfg.Prom != nil {
		svr.Get("/metrics", sCfg.Prom.Handler().ServeHTTP)
	}
}

func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg, rt *hanoilab.SessionRuntime) error {
	games, err := v1.NewGameHandler(sCfg, rt)
	if err != nil {
		return err
	}
	scores := v1.NewScoreHandler(sCfg)
	prefs := v1.NewPrefsHandler(sCfg)
	board := v1.NewBoardHandler(sCfg)
	limit := middleware.NewIPLimiter(sCfg.SubmitPerMinute, sCfg.SubmitBurst)

	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Post("/games", games.Create)
		vOne.Get("/games/{id}", games.Get)
		vOne.Delete("/games/{id}", games.Delete)
		vOne.Post("/games/{id}/select", games.Select)
		vOne.Post("/games/{id}/cancel", games.Cancel)
		vOne.Post("/games/{id}/restart", games.Restart)
		vOne.Post("/games/{id}/disks", games.Disks)
		vOne.Get("/games/{id}/qualify", games.Qualify)
		vOne.Post("/games/{id}/name", limited(limit, games.Name))

		vOne.Get("/scores", scores.List)
		vOne.Delete("/scores", scores.Clear)
		vOne.Get("/scores/export", scores.Export)
		vOne.Post("/scores/import", scores.Import)

		vOne.Get("/prefs", prefs.Get)
		vOne.Put("/prefs", prefs.Put)
		vOne.Get("/themes", prefs.Themes)

		vOne.Get("/leaderboard/{disks}", board.Get)
		vOne.Put("/leaderboard/{disks}", board.Put)
		vOne.Post("/leaderboard/{disks}", limited(limit, board.Submit))
		vOne.Get("/leaderboard/{disks}/stats", board.Stats)
	})
	return nil
}

func limited(l *middleware.IPLimiter, h http.HandlerFunc) http.HandlerFunc {
	return l.Middleware(h).ServeHTTP
}
