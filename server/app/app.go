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

// Package app 把多個 Component 綁成一個行程：一起啟動，收到信號或任一元件結束時
// 在同一個寬限期內依序關閉。
package app

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// DefaultGrace 未指定寬限期時的關閉時限
const DefaultGrace = 5 * time.Second

type Options struct {
	// Log 為 nil 時丟棄
	Log *slog.Logger
	// Grace 所有 Shutdown 共用的時限；<= 0 時為 DefaultGrace
	Grace time.Duration
}

type App struct {
	comps []Component
	log   *slog.Logger
	grace time.Duration
}

func New(opt Options) *App {
	a := &App{log: opt.Log, grace: opt.Grace}
	if a.log == nil {
		a.log = slog.New(slog.DiscardHandler)
	}
	if a.grace <= 0 {
		a.grace = DefaultGrace
	}
	return a
}

// NewWith 建立 App 並依序註冊 comps；關閉順序與註冊順序相同。
func NewWith(opt Options, comps ...Component) *App {
	a := New(opt)
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	if c != nil {
		a.comps = append(a.comps, c)
	}
}

type exit struct {
	name string
	err  error
}

// Run 啟動所有元件並阻塞到下列任一情況，然後關閉全部元件：
//   - ctx 結束或收到 SIGINT/SIGTERM：回傳 nil
//   - 任一元件的 Run 返回：回傳該元件的錯誤（正常返回時為 nil）
//
// 關閉錯誤與其他元件在關閉期間回傳的錯誤只記錄，不回傳。
func (a *App) Run(ctx context.Context) error {
	if len(a.comps) == 0 {
		return nil
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exits := make(chan exit, len(a.comps))
	for _, c := range a.comps {
		go func() {
			exits <- exit{name: nameOf(c), err: c.Run()}
		}()
	}

	var runErr error
	pending := len(a.comps)
	select {
	case <-ctx.Done():
		a.log.Info("shutting down", slog.String("cause", context.Cause(ctx).Error()))
	case ex := <-exits:
		pending--
		runErr = ex.err
		if ex.err != nil {
			a.log.Error("component stopped", slog.String("component", ex.name), slog.Any("err", ex.err))
		} else {
			a.log.Info("component stopped", slog.String("component", ex.name))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	a.shutdown(sctx)
	a.drain(sctx, exits, pending)
	return runErr
}

func (a *App) shutdown(ctx context.Context) {
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Error("shutdown failed", slog.String("component", nameOf(c)), slog.Any("err", err))
		}
	}
}

// drain 等其餘元件的 Run 返回，最多等到寬限期結束。
func (a *App) drain(ctx context.Context, exits <-chan exit, pending int) {
	for ; pending > 0; pending-- {
		select {
		case ex := <-exits:
			if ex.err != nil {
				a.log.Warn("component exited with error during shutdown",
					slog.String("component", ex.name), slog.Any("err", ex.err))
			}
		case <-ctx.Done():
			a.log.Warn("components still running after grace period", slog.Int("count", pending))
			return
		}
	}
}
