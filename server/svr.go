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

// Package server 組裝 HTTP 服務：路由、session runtime 與生命週期。
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/server/api"
	"github.com/zintix-labs/hanoilab/server/app"
	"github.com/zintix-labs/hanoilab/server/netsvr"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
)

// Run 在 sCfg.Addr 上提供服務，阻塞到 ctx 結束、收到 SIGINT/SIGTERM 或 server 失敗。
func Run(ctx context.Context, sCfg *svrcfg.SvrCfg) {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return
	}
	svr := netsvr.NewChiServer(sCfg.Addr)
	sCfg.Log.Info("[hanoilab] listening on http://localhost" + svr.Address())
	RunWithSvr(ctx, sCfg, svr)
}

func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Vaild(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	} else {
		if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
			sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
			return
		}
	}

	rt, err := Mount(sCfg, svr)
	if err != nil {
		sCfg.Log.Error("mount routes failed", slog.Any("err", err))
		return
	}

	// HTTP 先關（不再收新請求），再清空 session
	a := app.NewWith(app.Options{Log: sCfg.Log, Grace: sCfg.Timeout}, svr, rt)
	if err := a.Run(ctx); err != nil {
		sCfg.Log.Error("server stopped", slog.Any("err", err))
	}
}

// Mount 建立 SessionRuntime 並把所有路由註冊到 svr。
// 呼叫端負責執行（或關閉）回傳的 runtime。
func Mount(sCfg *svrcfg.SvrCfg, svr netsvr.NetRouter) (*hanoilab.SessionRuntime, error) {
	if err := sCfg.Vaild(); err != nil {
		return nil, err
	}
	rt := sCfg.Lab.NewRuntime(sCfg.Sessions)
	if err := api.RegisterRoutes(svr, sCfg, rt); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
